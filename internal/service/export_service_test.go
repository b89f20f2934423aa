package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"campus-calendar/internal/dto"
	"campus-calendar/internal/model"
)

// ── 测试辅助 ──

func setupTestExportService(t *testing.T) (ExportService, EventService, *mockStore) {
	t.Helper()
	store := newMockStore()
	events := newTestEventService(store, newTestCalendarConfig())
	return NewExportService(store.repo(), events, zap.NewNop()), events, store
}

// seedExportSeries 每周一系列：第2次取消，第3次改到 14:00
func seedExportSeries(t *testing.T, events EventService) string {
	t.Helper()
	ctx := context.Background()
	created, err := events.CreateEvent(ctx, testCalendarID, weeklyRequest(), publisher)
	if err != nil {
		t.Fatalf("CreateEvent 应成功: %v", err)
	}

	cancelled := time.Date(2026, 1, 12, 10, 0, 0, 0, ny)
	if err := events.DeleteEvent(ctx, created.ID, EditModeThis, &cancelled, publisher); err != nil {
		t.Fatalf("取消单次失败: %v", err)
	}
	moved := time.Date(2026, 1, 19, 10, 0, 0, 0, ny)
	newStart := time.Date(2026, 1, 19, 14, 0, 0, 0, ny)
	if _, err := events.UpdateEvent(ctx, created.ID, &dto.UpdateEventRequest{
		Mode:            "this",
		OccurrenceStart: &moved,
		EventChanges:    dto.EventChanges{StartTime: &newStart},
	}, publisher); err != nil {
		t.Fatalf("修改单次失败: %v", err)
	}
	return created.ID
}

// ── ExportICS ──

func TestExportService_ExportICS_RecurrenceProperties(t *testing.T) {
	svc, events, _ := setupTestExportService(t)
	eventID := seedExportSeries(t, events)

	start, end := januaryWindow()
	data, filename, err := svc.ExportICS(context.Background(), testCalendarID, start, end)
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	if filename != "校园活动.ics" {
		t.Errorf("文件名不正确: %s", filename)
	}

	cal, err := ics.ParseCalendar(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("导出内容应为合法 iCalendar: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 2 {
		t.Fatalf("期望系列与覆盖共2个 VEVENT，实际=%d", len(vevents))
	}

	uid := eventID + "@" + icsUIDDomain
	root, override := vevents[0], vevents[1]
	if root.Id() != uid || override.Id() != uid {
		t.Errorf("覆盖应与系列共享 UID，实际 %s / %s", root.Id(), override.Id())
	}

	if p := root.GetProperty(ics.ComponentPropertyRrule); p == nil || p.Value != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("系列应输出 RRULE，实际=%v", p)
	}
	dtstart := root.GetProperty(ics.ComponentPropertyDtStart)
	if dtstart == nil || dtstart.Value != "20260105T100000" || dtstart.ICalParameters["TZID"][0] != "America/New_York" {
		t.Errorf("系列 DTSTART 应为带 TZID 的本地时间，实际=%+v", dtstart)
	}
	exdate := root.GetProperty(ics.ComponentPropertyExdate)
	if exdate == nil || exdate.Value != "20260112T100000" {
		t.Errorf("取消的发生应输出 EXDATE，实际=%+v", exdate)
	}

	rid := override.GetProperty(ics.ComponentPropertyRecurrenceId)
	if rid == nil || rid.Value != "20260119T100000" {
		t.Errorf("覆盖应以 RECURRENCE-ID 指向原定时间，实际=%+v", rid)
	}
	if p := override.GetProperty(ics.ComponentPropertyDtStart); p == nil || p.Value != "20260119T140000" {
		t.Errorf("覆盖的 DTSTART 应为新时间，实际=%+v", p)
	}
}

func TestExportService_ExportICS_SkipsUnconfirmed(t *testing.T) {
	svc, events, _ := setupTestExportService(t)
	if _, err := events.CreateEvent(context.Background(), testCalendarID, weeklyRequest(), member); err != nil {
		t.Fatalf("CreateEvent 应成功: %v", err)
	}

	start, end := januaryWindow()
	data, _, err := svc.ExportICS(context.Background(), testCalendarID, start, end)
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	if strings.Contains(string(data), "BEGIN:VEVENT") {
		t.Error("草稿不应导出")
	}
}

func TestExportService_CalendarNotFound(t *testing.T) {
	svc, _, _ := setupTestExportService(t)
	start, end := januaryWindow()

	if _, _, err := svc.ExportICS(context.Background(), "missing", start, end); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("期望 ErrCalendarNotFound，实际=%v", err)
	}
	if _, _, err := svc.ExportXLSX(context.Background(), "missing", start, end); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("期望 ErrCalendarNotFound，实际=%v", err)
	}
}

// ── ExportXLSX ──

func TestExportService_ExportXLSX_OneRowPerInstance(t *testing.T) {
	svc, events, _ := setupTestExportService(t)
	seedExportSeries(t, events)

	start, end := januaryWindow()
	buf, filename, err := svc.ExportXLSX(context.Background(), testCalendarID, start, end)
	if err != nil {
		t.Fatalf("ExportXLSX 应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("打开 Excel 失败: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("日程")
	if err != nil {
		t.Fatalf("读取工作表失败: %v", err)
	}
	// 表头 + 3 个实例（第2次已取消）
	if len(rows) != 4 {
		t.Fatalf("期望4行，实际=%d", len(rows))
	}
	if rows[0][0] != "标题" {
		t.Errorf("首行应为表头，实际=%v", rows[0])
	}
	if rows[2][5] != "是" {
		t.Errorf("第2个实例为覆盖，应标记已修改，实际=%v", rows[2])
	}
	if rows[1][6] != model.EventStatusConfirmed {
		t.Errorf("状态列不正确: %v", rows[1])
	}
}
