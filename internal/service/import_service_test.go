package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"campus-calendar/internal/model"
	"campus-calendar/internal/recurrence"
)

// ── 测试辅助 ──

const importFixture = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//campus//import test//ZH
BEGIN:VEVENT
UID:weekly-1@example.edu
DTSTAMP:20251201T000000Z
SUMMARY:读书会
DESCRIPTION:每周一次\, 图书馆三楼
DTSTART;TZID=America/New_York:20260105T100000
DTEND;TZID=America/New_York:20260105T110000
RRULE:FREQ=WEEKLY;BYDAY=MO;COUNT=4
EXDATE;TZID=America/New_York:20260112T100000
END:VEVENT
BEGIN:VEVENT
UID:weekly-1@example.edu
DTSTAMP:20251201T000000Z
RECURRENCE-ID;TZID=America/New_York:20260119T100000
SUMMARY:读书会（改期）
DTSTART;TZID=America/New_York:20260119T140000
DTEND;TZID=America/New_York:20260119T150000
END:VEVENT
BEGIN:VEVENT
UID:single-1@example.edu
DTSTAMP:20251201T000000Z
SUMMARY:开放日
DTSTART:20260110T150000Z
DTEND:20260110T170000Z
END:VEVENT
BEGIN:VEVENT
UID:broken-1@example.edu
DTSTAMP:20251201T000000Z
SUMMARY:坏规则
DTSTART:20260110T150000Z
DTEND:20260110T170000Z
RRULE:FREQ=SOMETIMES
END:VEVENT
BEGIN:VEVENT
UID:orphan-1@example.edu
DTSTAMP:20251201T000000Z
RECURRENCE-ID:20260101T000000Z
SUMMARY:孤立覆盖
DTSTART:20260102T000000Z
DTEND:20260102T010000Z
END:VEVENT
END:VCALENDAR
`

func setupTestImportService(store *mockStore) ImportService {
	repo := store.repo()
	logger := zap.NewNop()
	return NewImportService(repo, recurrence.NewRRuleEngine(), NewApprovalEngine(repo, logger), logger)
}

// ── ParseICS ──

func TestParseICS_GroupsByUID(t *testing.T) {
	series, errs, err := ParseICS(strings.NewReader(importFixture), "America/New_York")
	if err != nil {
		t.Fatalf("ParseICS 应成功: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("期望3个系列，实际=%d", len(series))
	}
	if len(errs) != 1 || errs[0].UID != "orphan-1@example.edu" {
		t.Fatalf("孤立的 RECURRENCE-ID 应记为错误，实际=%+v", errs)
	}

	weekly := series[0]
	if weekly.UID != "weekly-1@example.edu" {
		t.Fatalf("系列应按开始时间排序，首个为 %s", weekly.UID)
	}
	m := weekly.Master
	if m.Timezone != "America/New_York" {
		t.Errorf("时区应取自 DTSTART 的 TZID，实际=%s", m.Timezone)
	}
	if !m.Start.Equal(time.Date(2026, 1, 5, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("DTSTART 解析错误: %v", m.Start)
	}
	if m.Description != "每周一次, 图书馆三楼" {
		t.Errorf("DESCRIPTION 应反转义，实际=%q", m.Description)
	}
	if len(m.ExDates) != 1 || !m.ExDates[0].Equal(time.Date(2026, 1, 12, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("EXDATE 解析错误: %v", m.ExDates)
	}
	if len(weekly.Overrides) != 1 || !weekly.Overrides[0].RecurrenceID.Equal(time.Date(2026, 1, 19, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("RECURRENCE-ID 覆盖解析错误: %+v", weekly.Overrides)
	}
}

func TestParseICS_AllDayWithoutEnd(t *testing.T) {
	data := "BEGIN:VCALENDAR\nVERSION:2.0\nBEGIN:VEVENT\nUID:holiday@example.edu\nSUMMARY:校庆\nDTSTART;VALUE=DATE:20260501\nEND:VEVENT\nEND:VCALENDAR\n"
	series, errs, err := ParseICS(strings.NewReader(data), "Asia/Shanghai")
	if err != nil || len(errs) != 0 || len(series) != 1 {
		t.Fatalf("全天日程应解析成功: series=%d errs=%v err=%v", len(series), errs, err)
	}
	m := series[0].Master
	if !m.AllDay {
		t.Error("纯日期 DTSTART 应视为全天")
	}
	if m.End.Sub(m.Start) != 24*time.Hour {
		t.Errorf("缺少 DTEND 的全天日程应持续一天，实际=%v", m.End.Sub(m.Start))
	}
}

func TestParseICS_Malformed(t *testing.T) {
	if _, _, err := ParseICS(strings.NewReader("not a calendar"), "UTC"); err == nil {
		t.Error("非 iCalendar 内容应返回错误")
	}
}

// ── ImportICS ──

func TestImportService_ImportICS_PartialSuccess(t *testing.T) {
	store := newMockStore()
	svc := setupTestImportService(store)

	resp, err := svc.ImportICS(context.Background(), testCalendarID, strings.NewReader(importFixture), publisher)
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	if resp.Total != 4 || resp.Success != 2 || resp.Failed != 2 {
		t.Fatalf("统计不正确: total=%d success=%d failed=%d", resp.Total, resp.Success, resp.Failed)
	}

	var brokenReported bool
	for _, e := range resp.Errors {
		if e.UID == "broken-1@example.edu" {
			brokenReported = true
		}
	}
	if !brokenReported {
		t.Errorf("非法 RRULE 应按 UID 报告，实际=%+v", resp.Errors)
	}

	root, ok := store.event(resp.EventIDs[0])
	if !ok {
		t.Fatal("系列根应已写入")
	}
	if root.Status != model.EventStatusConfirmed {
		t.Errorf("发布者导入的日程应直接确认，实际=%s", root.Status)
	}
	if root.Timezone != "America/New_York" || !root.IsRecurring() {
		t.Errorf("系列根字段不正确: tz=%s rrule=%v", root.Timezone, root.RRule)
	}

	exceptions := store.exceptions.byParent(root.EventID)
	if len(exceptions) != 2 {
		t.Fatalf("期望1条取消与1条修改的覆盖，实际=%d", len(exceptions))
	}
	if !exceptions[0].Cancelled {
		t.Error("EXDATE 应转为取消的覆盖")
	}
	if exceptions[1].Cancelled || exceptions[1].Title != "读书会（改期）" {
		t.Errorf("RECURRENCE-ID 应转为修改的覆盖: %+v", exceptions[1])
	}
}

func TestImportService_ImportICS_ExpandsLikeCreatedSeries(t *testing.T) {
	store := newMockStore()
	svc := setupTestImportService(store)
	if _, err := svc.ImportICS(context.Background(), testCalendarID, strings.NewReader(importFixture), publisher); err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}

	events := newTestEventService(store, newTestCalendarConfig())
	start, end := januaryWindow()
	result, err := events.GetEventsInRange(context.Background(), []string{testCalendarID}, start, end, false)
	if err != nil {
		t.Fatalf("GetEventsInRange 应成功: %v", err)
	}

	want := []string{
		"2026-01-05T15:00:00Z",
		"2026-01-10T15:00:00Z",
		"2026-01-19T19:00:00Z",
		"2026-01-26T15:00:00Z",
	}
	if len(result.Instances) != len(want) {
		t.Fatalf("期望%d个实例，实际=%d", len(want), len(result.Instances))
	}
	for i, inst := range result.Instances {
		if inst.Start != want[i] {
			t.Errorf("第%d个实例开始时间=%s，期望=%s", i, inst.Start, want[i])
		}
	}
}

func TestImportService_ImportICS_MemberDraft(t *testing.T) {
	store := newMockStore()
	svc := setupTestImportService(store)

	resp, err := svc.ImportICS(context.Background(), testCalendarID, strings.NewReader(importFixture), member)
	if err != nil {
		t.Fatalf("ImportICS 应成功: %v", err)
	}
	for _, id := range resp.EventIDs {
		e, _ := store.event(id)
		if e.Status != model.EventStatusDraft || e.CreatorID != testCreatorID {
			t.Errorf("普通成员导入的日程应为草稿: status=%s creator=%s", e.Status, e.CreatorID)
		}
	}
}

func TestImportService_ImportICS_Errors(t *testing.T) {
	store := newMockStore()
	svc := setupTestImportService(store)
	ctx := context.Background()

	if _, err := svc.ImportICS(ctx, "00000000-0000-0000-0000-0000000000ff", strings.NewReader(importFixture), publisher); !errors.Is(err, ErrCalendarNotFound) {
		t.Errorf("日历不存在应返回 ErrCalendarNotFound，实际=%v", err)
	}
	if _, err := svc.ImportICS(ctx, testCalendarID, strings.NewReader("garbage"), publisher); !errors.Is(err, ErrICSParseFailed) {
		t.Errorf("格式错误应返回 ErrICSParseFailed，实际=%v", err)
	}
	empty := "BEGIN:VCALENDAR\nVERSION:2.0\nEND:VCALENDAR\n"
	if _, err := svc.ImportICS(ctx, testCalendarID, strings.NewReader(empty), publisher); !errors.Is(err, ErrICSEmpty) {
		t.Errorf("空日历应返回 ErrICSEmpty，实际=%v", err)
	}
}
