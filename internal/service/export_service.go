package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-calendar/internal/model"
	"campus-calendar/internal/recurrence"
	"campus-calendar/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

const (
	icsProductID = "-//campus-calendar//calendar export//ZH"
	icsUIDDomain = "campus-calendar"

	// icsLocalLayout 带 TZID 参数时使用的本地时间格式
	icsLocalLayout = "20060102T150405"
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 只导出已确认的日程
//   - ICS 保留重复规则：系列根输出 RRULE，已取消的发生输出 EXDATE，修改过的发生输出带 RECURRENCE-ID 的 VEVENT
//   - Excel 按实例逐行展开
type ExportService interface {
	ExportICS(ctx context.Context, calendarID string, start, end time.Time) ([]byte, string, error)
	ExportXLSX(ctx context.Context, calendarID string, start, end time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	events EventService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, events EventService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, events: events, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportICS 导出为 iCalendar 订阅源
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, calendarID string, start, end time.Time) ([]byte, string, error) {
	calendar, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return nil, "", err
	}

	events, err := s.repo.Event.ListInRange(ctx, []string{calendarID}, start, end, []string{model.EventStatusConfirmed})
	if err != nil {
		s.logger.Error("查询导出日程失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, "", err
	}

	var seriesIDs []string
	for i := range events {
		if events[i].IsRecurring() {
			seriesIDs = append(seriesIDs, events[i].EventID)
		}
	}
	exceptions, err := s.repo.Exception.ListByParents(ctx, seriesIDs)
	if err != nil {
		s.logger.Error("查询实例覆盖失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, "", err
	}

	cal := buildICS(calendar, events, exceptions, time.Now())
	filename := fmt.Sprintf("%s.ics", calendar.Name)
	return []byte(cal.Serialize()), filename, nil
}

// buildICS 组装 VCALENDAR
func buildICS(calendar *model.Calendar, events []model.CalendarEvent, exceptions []model.EventException, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(calendar.Name)
	if calendar.Timezone != "" {
		cal.SetXWRTimezone(calendar.Timezone)
	}

	byParent := make(map[string][]model.EventException)
	for _, ex := range exceptions {
		byParent[ex.ParentEventID] = append(byParent[ex.ParentEventID], ex)
	}

	for i := range events {
		e := &events[i]
		uid := fmt.Sprintf("%s@%s", e.EventID, icsUIDDomain)

		vevent := cal.AddEvent(uid)
		vevent.SetDtStampTime(now)
		vevent.SetSummary(e.Title)
		if e.Description != "" {
			vevent.SetDescription(e.Description)
		}
		vevent.SetStatus(ics.ObjectStatusConfirmed)
		setEventTimes(vevent, e.StartTime, e.EndTime, e.AllDay, e.Timezone, e.IsRecurring())

		if !e.IsRecurring() {
			continue
		}
		vevent.AddRrule(*e.RRule)

		loc := recurrence.Location(e.Timezone)
		for _, ex := range byParent[e.EventID] {
			if ex.Cancelled {
				vevent.AddExdate(ex.OriginalStart.In(loc).Format(icsLocalLayout), ics.WithTZID(loc.String()))
				continue
			}
			override := cal.AddEvent(uid)
			override.SetDtStampTime(now)
			override.SetProperty(ics.ComponentPropertyRecurrenceId,
				ex.OriginalStart.In(loc).Format(icsLocalLayout), ics.WithTZID(loc.String()))
			override.SetSummary(ex.Title)
			if ex.Description != "" {
				override.SetDescription(ex.Description)
			}
			override.SetStatus(ics.ObjectStatusConfirmed)
			setEventTimes(override, ex.StartTime, ex.EndTime, ex.AllDay, e.Timezone, true)
		}
	}
	return cal
}

// setEventTimes 重复日程以 TZID 本地时间输出，保证订阅端按本地时刻跨夏令时展开
func setEventTimes(vevent *ics.VEvent, start, end time.Time, allDay bool, tz string, local bool) {
	loc := recurrence.Location(tz)
	switch {
	case allDay:
		vevent.SetAllDayStartAt(start.In(loc))
		vevent.SetAllDayEndAt(end.In(loc))
	case local:
		vevent.SetProperty(ics.ComponentPropertyDtStart, start.In(loc).Format(icsLocalLayout), ics.WithTZID(loc.String()))
		vevent.SetProperty(ics.ComponentPropertyDtEnd, end.In(loc).Format(icsLocalLayout), ics.WithTZID(loc.String()))
	default:
		vevent.SetStartAt(start)
		vevent.SetEndAt(end)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportXLSX 导出实例明细为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "日程"
//   - 列：标题 / 开始 / 结束 / 全天 / 重复 / 已修改 / 状态
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportXLSX(ctx context.Context, calendarID string, start, end time.Time) (*bytes.Buffer, string, error) {
	calendar, err := s.loadCalendar(ctx, calendarID)
	if err != nil {
		return nil, "", err
	}

	result, err := s.events.GetEventsInRange(ctx, []string{calendarID}, start, end, false)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "日程"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 32)
	f.SetColWidth(sheetName, "B", "C", 26)
	f.SetColWidth(sheetName, "D", "G", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"标题", "开始", "结束", "全天", "重复", "已修改", "状态"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	row := 2
	for _, inst := range result.Instances {
		f.SetCellValue(sheetName, cell("A", row), inst.Title)
		f.SetCellValue(sheetName, cell("B", row), inst.Start)
		f.SetCellValue(sheetName, cell("C", row), inst.End)
		f.SetCellValue(sheetName, cell("D", row), yesNo(inst.AllDay))
		f.SetCellValue(sheetName, cell("E", row), yesNo(inst.IsRecurring))
		f.SetCellValue(sheetName, cell("F", row), yesNo(inst.IsException))
		f.SetCellValue(sheetName, cell("G", row), inst.Status)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s_%s_%s.xlsx", calendar.Name, start.Format("20060102"), end.Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func (s *exportService) loadCalendar(ctx context.Context, calendarID string) (*model.Calendar, error) {
	calendar, err := s.repo.Calendar.GetByID(ctx, calendarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCalendarNotFound
		}
		s.logger.Error("查询日历失败", zap.String("calendar_id", calendarID), zap.Error(err))
		return nil, err
	}
	return calendar, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
