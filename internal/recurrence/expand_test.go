package recurrence

import (
	"testing"
	"time"

	"gorm.io/datatypes"

	"campus-calendar/internal/model"
)

// ── 测试辅助 ──

func strPtr(s string) *string { return &s }

// weeklyMonday 每周一 10:00-11:00，从 2026-01-05 开始
func weeklyMonday() *model.CalendarEvent {
	return &model.CalendarEvent{
		EventID:    "evt-1",
		CalendarID: "cal-1",
		Title:      "周例会",
		StartTime:  time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		EndTime:    time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
		Timezone:   "UTC",
		RRule:      strPtr("FREQ=WEEKLY;BYDAY=MO"),
		Status:     model.EventStatusConfirmed,
		Metadata:   datatypes.NewJSONType(model.EventMetadata{}),
	}
}

func newTestExpander() *Expander {
	return NewExpander(NewRRuleEngine(), 0)
}

// ── 单次日程 ──

func TestExpand_Standalone_Overlap(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	evt.RRule = nil

	res, err := x.Expand(evt, nil, evt.StartTime.Add(30*time.Minute), evt.EndTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 1 {
		t.Fatalf("期望1个实例，实际=%d", len(res.Instances))
	}
	inst := res.Instances[0]
	if inst.InstanceID != evt.EventID {
		t.Errorf("单次日程不应改写标识，实际=%s", inst.InstanceID)
	}
	if inst.IsException || inst.IsRecurring {
		t.Error("单次日程不应标记为例外或重复")
	}
}

func TestExpand_Standalone_OutsideWindow(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	evt.RRule = nil

	res, err := x.Expand(evt, nil, evt.EndTime.Add(time.Hour), evt.EndTime.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 0 {
		t.Errorf("窗口外不应返回实例，实际=%d", len(res.Instances))
	}
}

// ── 重复日程 ──

func TestExpand_Weekly_FourMondays(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 26, 23, 59, 59, 0, time.UTC)

	res, err := x.Expand(evt, nil, start, end)
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 4 {
		t.Fatalf("期望4个实例，实际=%d", len(res.Instances))
	}
	for i, inst := range res.Instances {
		if inst.End.Sub(inst.Start) != time.Hour {
			t.Errorf("实例 %d 时长应为1小时，实际=%v", i, inst.End.Sub(inst.Start))
		}
		if inst.Start.Weekday() != time.Monday || inst.Start.Hour() != 10 {
			t.Errorf("实例 %d 应在周一 10:00，实际=%v", i, inst.Start)
		}
		if inst.InstanceID != InstanceID(evt.EventID, inst.Start) {
			t.Errorf("实例 %d 标识不符: %s", i, inst.InstanceID)
		}
	}
}

func TestExpand_ExceptionMovedWithinWindow(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	third := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	exceptions := []model.EventException{{
		ExceptionID:   "ex-1",
		ParentEventID: evt.EventID,
		OriginalStart: third,
		Title:         "周例会（改期）",
		StartTime:     time.Date(2026, 1, 19, 14, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 1, 19, 15, 0, 0, 0, time.UTC),
		Metadata:      datatypes.NewJSONType(model.EventMetadata{}),
	}}

	res, err := x.Expand(evt, exceptions,
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 26, 23, 59, 59, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 4 {
		t.Fatalf("期望4个实例，实际=%d", len(res.Instances))
	}

	got := res.Instances[2]
	if !got.IsException {
		t.Fatal("第3个实例应为例外")
	}
	if got.Start.Hour() != 14 {
		t.Errorf("第3个实例应在 14:00，实际=%v", got.Start)
	}
	if got.ExceptionID != "ex-1" {
		t.Errorf("期望 ExceptionID=ex-1，实际=%s", got.ExceptionID)
	}
	for _, inst := range res.Instances {
		if !inst.IsException && inst.Start.Equal(third) {
			t.Error("原定时间不应再出现未修改的实例")
		}
	}
}

func TestExpand_ExceptionMovedOutOfWindow(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	exceptions := []model.EventException{{
		ExceptionID:   "ex-1",
		ParentEventID: evt.EventID,
		OriginalStart: time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC),
		Title:         "挪到下个月",
		StartTime:     time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC),
		EndTime:       time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC),
		Metadata:      datatypes.NewJSONType(model.EventMetadata{}),
	}}

	res, err := x.Expand(evt, exceptions,
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 1 {
		t.Fatalf("原时间被移出窗口后仅剩1个实例，实际=%d", len(res.Instances))
	}

	res, err = x.Expand(evt, exceptions,
		time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 1 || !res.Instances[0].IsException {
		t.Fatalf("新时间所在窗口应包含例外实例，实际=%+v", res.Instances)
	}
	if d := res.Instances[0].End.Sub(res.Instances[0].Start); d != 2*time.Hour {
		t.Errorf("例外可有自己的时长，期望2小时，实际=%v", d)
	}
}

func TestExpand_CancelledException(t *testing.T) {
	x := newTestExpander()
	evt := weeklyMonday()
	second := time.Date(2026, 1, 12, 10, 0, 0, 0, time.UTC)
	exceptions := []model.EventException{{
		ExceptionID:   "ex-1",
		ParentEventID: evt.EventID,
		OriginalStart: second,
		StartTime:     second,
		EndTime:       second.Add(time.Hour),
		Cancelled:     true,
	}}

	res, err := x.Expand(evt, exceptions,
		time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 26, 23, 59, 59, 0, time.UTC))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 3 {
		t.Fatalf("取消的实例不应出现，期望3个，实际=%d", len(res.Instances))
	}
}

func TestExpand_PreservesWallClockAcrossDST(t *testing.T) {
	x := newTestExpander()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	evt := weeklyMonday()
	evt.Timezone = "America/New_York"
	evt.StartTime = time.Date(2026, 3, 2, 10, 0, 0, 0, loc).UTC()
	evt.EndTime = time.Date(2026, 3, 2, 11, 0, 0, 0, loc).UTC()

	res, err := x.Expand(evt, nil, evt.StartTime, evt.StartTime.AddDate(0, 0, 14))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if len(res.Instances) != 3 {
		t.Fatalf("期望3个实例，实际=%d", len(res.Instances))
	}
	for _, inst := range res.Instances {
		if inst.Start.In(loc).Hour() != 10 {
			t.Errorf("夏令时切换后仍应为当地 10:00，实际=%v", inst.Start.In(loc))
		}
	}
}

func TestExpand_Truncated(t *testing.T) {
	x := NewExpander(NewRRuleEngine(), 3)
	evt := weeklyMonday()
	evt.RRule = strPtr("FREQ=DAILY")

	res, err := x.Expand(evt, nil, evt.StartTime, evt.StartTime.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("Expand 应成功: %v", err)
	}
	if !res.Truncated || len(res.Instances) != 3 {
		t.Errorf("期望截断为3个实例，实际 truncated=%v len=%d", res.Truncated, len(res.Instances))
	}
}

func TestParseInstanceID_RoundTrip(t *testing.T) {
	start := time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC)
	id := InstanceID("evt-1", start)

	eventID, got, err := ParseInstanceID(id)
	if err != nil {
		t.Fatalf("ParseInstanceID 应成功: %v", err)
	}
	if eventID != "evt-1" || !got.Equal(start) {
		t.Errorf("解析结果不符: %s %v", eventID, got)
	}
	if _, _, err := ParseInstanceID("evt-1"); err == nil {
		t.Error("缺少时间部分应返回错误")
	}
}

func TestShiftWallClock_AcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("缺少时区数据: %v", err)
	}
	// 3 月 8 日夏令时开始，平移 10:00→14:00 应保持本地 14:00
	from := time.Date(2026, 3, 2, 10, 0, 0, 0, ny)
	to := time.Date(2026, 3, 2, 14, 0, 0, 0, ny)
	t0 := time.Date(2026, 3, 9, 10, 0, 0, 0, ny)

	got := ShiftWallClock(t0, from, to, ny)
	want := time.Date(2026, 3, 9, 14, 0, 0, 0, ny)
	if !got.Equal(want) {
		t.Errorf("期望 %v，实际 %v", want, got)
	}
}
