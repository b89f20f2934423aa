package service

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容按 UID 归并为系列。
//
// 设计决策：
//   - 同一 UID 下不带 RECURRENCE-ID 的 VEVENT 为系列主记录
//   - 主记录的 RRULE 原样交给规则引擎校验，EXDATE 转为取消的实例覆盖
//   - 带 RECURRENCE-ID 的 VEVENT 转为修改的实例覆盖，STATUS:CANCELLED 视为取消
//   - 带 TZID 的时间按该时区解释，浮动时间按日历时区解释
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second

	icsStatusCancelled = "CANCELLED"
)

// parsedVEvent 单个 VEVENT 的解析结果
type parsedVEvent struct {
	UID          string
	Title        string
	Description  string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Timezone     string
	RRule        string
	ExDates      []time.Time
	RecurrenceID *time.Time
	Cancelled    bool
}

// parsedSeries 同一 UID 的主记录与覆盖
type parsedSeries struct {
	UID       string
	Master    *parsedVEvent
	Overrides []parsedVEvent
}

// icsParseError 无法解析的 VEVENT
type icsParseError struct {
	UID    string
	Reason string
}

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容并按 UID 归并
//
// 参数：
//   - reader: ICS 数据流
//   - defaultTZ: 浮动时间与无 TZID 时使用的时区
//
// 返回值按主记录开始时间排序；无法解析的 VEVENT 记入 errs，不中断整体解析。
func ParseICS(reader io.Reader, defaultTZ string) ([]parsedSeries, []icsParseError, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	defaultLoc, err := time.LoadLocation(defaultTZ)
	if err != nil {
		defaultLoc = time.UTC
		defaultTZ = "UTC"
	}

	var errs []icsParseError
	byUID := make(map[string]*parsedSeries)
	var order []string

	for _, comp := range cal.Events() {
		evt, err := parseVEvent(comp, defaultTZ, defaultLoc)
		if err != nil {
			errs = append(errs, icsParseError{UID: comp.Id(), Reason: err.Error()})
			continue
		}

		series, ok := byUID[evt.UID]
		if !ok {
			series = &parsedSeries{UID: evt.UID}
			byUID[evt.UID] = series
			order = append(order, evt.UID)
		}
		if evt.RecurrenceID != nil {
			series.Overrides = append(series.Overrides, evt)
			continue
		}
		if series.Master != nil {
			errs = append(errs, icsParseError{UID: evt.UID, Reason: "UID 重复"})
			continue
		}
		series.Master = &evt
	}

	result := make([]parsedSeries, 0, len(order))
	for _, uid := range order {
		series := byUID[uid]
		if series.Master == nil {
			errs = append(errs, icsParseError{UID: uid, Reason: "缺少主记录，仅有 RECURRENCE-ID 覆盖"})
			continue
		}
		sort.Slice(series.Overrides, func(a, b int) bool {
			return series.Overrides[a].RecurrenceID.Before(*series.Overrides[b].RecurrenceID)
		})
		result = append(result, *series)
	}
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].Master.Start.Before(result[b].Master.Start)
	})
	return result, errs, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, defaultTZ string, defaultLoc *time.Location) (parsedVEvent, error) {
	uid := strings.TrimSpace(evt.Id())
	if uid == "" {
		return parsedVEvent{}, fmt.Errorf("缺少 UID")
	}

	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return parsedVEvent{}, fmt.Errorf("缺少 SUMMARY")
	}

	start, allDay, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtStart), defaultLoc)
	if err != nil {
		return parsedVEvent{}, fmt.Errorf("DTSTART: %w", err)
	}
	end, _, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtEnd), defaultLoc)
	if err != nil {
		// 缺少 DTEND：全天日程持续一天，其余视为零时长不合法
		if !allDay {
			return parsedVEvent{}, fmt.Errorf("DTEND: %w", err)
		}
		end = start.AddDate(0, 0, 1)
	}

	out := parsedVEvent{
		UID:      uid,
		Title:    strings.TrimSpace(ics.FromText(summary.Value)),
		Start:    start,
		End:      end,
		AllDay:   allDay,
		Timezone: defaultTZ,
	}
	if tz := propertyTZID(evt.GetProperty(ics.ComponentPropertyDtStart)); tz != "" {
		if _, err := time.LoadLocation(tz); err == nil {
			out.Timezone = tz
		}
	}
	if desc := evt.GetProperty(ics.ComponentPropertyDescription); desc != nil {
		out.Description = strings.TrimSpace(ics.FromText(desc.Value))
	}
	if status := evt.GetProperty(ics.ComponentPropertyStatus); status != nil {
		out.Cancelled = strings.EqualFold(status.Value, icsStatusCancelled)
	}
	if rr := evt.GetProperty(ics.ComponentPropertyRrule); rr != nil {
		out.RRule = strings.TrimSpace(rr.Value)
	}
	if rid := evt.GetProperty(ics.ComponentPropertyRecurrenceId); rid != nil {
		t, _, err := parseICSDateTime(rid, defaultLoc)
		if err != nil {
			return parsedVEvent{}, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		out.RecurrenceID = &t
	}
	out.ExDates = parseExDates(evt, defaultLoc)
	return out, nil
}

// parseExDates 解析事件中所有 EXDATE（单个属性可含逗号分隔的多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) []time.Time {
	var out []time.Time
	for i := range evt.Properties {
		prop := &evt.Properties[i]
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			single := ics.IANAProperty{BaseProperty: ics.BaseProperty{
				IANAToken:      prop.IANAToken,
				ICalParameters: prop.ICalParameters,
				Value:          strings.TrimSpace(v),
			}}
			if t, _, err := parseICSDateTime(&single, loc); err == nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// parseICSDateTime 解析日期时间属性，返回时间与是否为纯日期
func parseICSDateTime(prop *ics.IANAProperty, loc *time.Location) (time.Time, bool, error) {
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("属性缺失")
	}
	val := strings.TrimSpace(prop.Value)

	if tzid := propertyTZID(prop); tzid != "" {
		if tzLoc, err := time.LoadLocation(tzid); err == nil {
			loc = tzLoc
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", val, loc); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("20060102", val, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

// propertyTZID 读取 TZID 参数
func propertyTZID(prop *ics.IANAProperty) string {
	if prop == nil {
		return ""
	}
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, string(ics.ParameterTzid)) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
