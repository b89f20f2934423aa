package recurrence

import (
	"fmt"
	"sort"
	"time"

	"campus-calendar/internal/model"
)

const (
	defaultMaxOccurrencesPerSeries = 5000

	// instanceTimeLayout 实例标识中的时间格式（与 RECURRENCE-ID 的 UTC 形式一致）
	instanceTimeLayout = "20060102T150405Z"
)

// Instance 一次具体发生的投影，不落库，每次读取时重新计算
type Instance struct {
	InstanceID    string
	EventID       string
	ExceptionID   string
	CalendarID    string
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	OriginalStart time.Time
	AllDay        bool
	Status        string
	CategoryID    *string
	LocationID    *string
	Metadata      model.EventMetadata
	IsRecurring   bool
	IsException   bool
}

// Result 展开结果
type Result struct {
	Instances []Instance
	// Truncated 为 true 表示触达单系列发生次数上限
	Truncated bool
}

// Expander 将日程（含重复规则与例外）展开为查询窗口内的实例
type Expander struct {
	engine         RuleEngine
	maxOccurrences int
}

// NewExpander 创建 Expander；maxOccurrences<=0 时使用默认上限
func NewExpander(engine RuleEngine, maxOccurrences int) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = defaultMaxOccurrencesPerSeries
	}
	return &Expander{engine: engine, maxOccurrences: maxOccurrences}
}

// InstanceID 由 (系列根 ID, 原定开始时间) 推导的实例标识
func InstanceID(eventID string, originalStart time.Time) string {
	return fmt.Sprintf("%s_%s", eventID, originalStart.UTC().Format(instanceTimeLayout))
}

// ParseInstanceID 解析 InstanceID，返回系列根 ID 与原定开始时间
func ParseInstanceID(id string) (string, time.Time, error) {
	if len(id) <= len(instanceTimeLayout)+1 || id[len(id)-len(instanceTimeLayout)-1] != '_' {
		return "", time.Time{}, fmt.Errorf("无效的实例标识 %q", id)
	}
	cut := len(id) - len(instanceTimeLayout)
	t, err := time.Parse(instanceTimeLayout, id[cut:])
	if err != nil {
		return "", time.Time{}, fmt.Errorf("无效的实例标识 %q: %w", id, err)
	}
	return id[:cut-1], t, nil
}

// Location 解析日程时区，未知或为空时回退 UTC
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Expand 返回开始时间落在 [rangeStart, rangeEnd] 内的实例，按开始时间升序（稳定排序）
//
// 单次日程只要与窗口重叠即原样返回。重复日程以根记录的开始时间为锚点、
// 根记录时长为固定时长生成发生时间；例外的原定时间在生成阶段直接排除，
// 再并入覆盖后开始时间落在窗口内的未取消例外。
func (x *Expander) Expand(event *model.CalendarEvent, exceptions []model.EventException, rangeStart, rangeEnd time.Time) (Result, error) {
	var result Result

	if !event.IsRecurring() {
		if !event.StartTime.After(rangeEnd) && !event.EndTime.Before(rangeStart) {
			result.Instances = []Instance{standaloneInstance(event)}
		}
		return result, nil
	}

	loc := Location(event.Timezone)
	anchor := event.StartTime.In(loc)
	duration := event.Duration()

	excluded := make([]time.Time, 0, len(exceptions))
	for i := range exceptions {
		excluded = append(excluded, exceptions[i].OriginalStart)
	}

	times, err := x.engine.OccurrencesBetween(*event.RRule, anchor, rangeStart, rangeEnd, excluded)
	if err != nil {
		return result, err
	}
	if len(times) > x.maxOccurrences {
		times = times[:x.maxOccurrences]
		result.Truncated = true
	}

	instances := make([]Instance, 0, len(times)+len(exceptions))
	for _, occStart := range times {
		instances = append(instances, virtualInstance(event, occStart, occStart.Add(duration)))
	}

	// 例外按覆盖后的开始时间过滤：移动过的实例出现在新时间，不再出现在原时间
	for i := range exceptions {
		ex := &exceptions[i]
		if ex.Cancelled {
			continue
		}
		if ex.StartTime.Before(rangeStart) || ex.StartTime.After(rangeEnd) {
			continue
		}
		instances = append(instances, exceptionInstance(event, ex, loc))
	}

	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].Start.Before(instances[j].Start)
	})

	result.Instances = instances
	return result, nil
}

func standaloneInstance(event *model.CalendarEvent) Instance {
	return Instance{
		InstanceID:    event.EventID,
		EventID:       event.EventID,
		CalendarID:    event.CalendarID,
		Title:         event.Title,
		Description:   event.Description,
		Start:         event.StartTime,
		End:           event.EndTime,
		OriginalStart: event.StartTime,
		AllDay:        event.AllDay,
		Status:        event.Status,
		CategoryID:    event.CategoryID,
		LocationID:    event.LocationID,
		Metadata:      event.Metadata.Data(),
	}
}

func virtualInstance(event *model.CalendarEvent, start, end time.Time) Instance {
	inst := standaloneInstance(event)
	inst.InstanceID = InstanceID(event.EventID, start)
	inst.Start = start
	inst.End = end
	inst.OriginalStart = start
	inst.IsRecurring = true
	return inst
}

func exceptionInstance(event *model.CalendarEvent, ex *model.EventException, loc *time.Location) Instance {
	return Instance{
		InstanceID:    InstanceID(event.EventID, ex.OriginalStart),
		EventID:       event.EventID,
		ExceptionID:   ex.ExceptionID,
		CalendarID:    event.CalendarID,
		Title:         ex.Title,
		Description:   ex.Description,
		Start:         ex.StartTime.In(loc),
		End:           ex.EndTime.In(loc),
		OriginalStart: ex.OriginalStart.In(loc),
		AllDay:        ex.AllDay,
		Status:        event.Status,
		CategoryID:    ex.CategoryID,
		LocationID:    ex.LocationID,
		Metadata:      ex.Metadata.Data(),
		IsRecurring:   true,
		IsException:   true,
	}
}

// ShiftWallClock 将 t 平移 from→to 的墙上时间差，结果按 loc 解释
//
// 跨越夏令时切换时保持本地时刻不变，而不是保持绝对时长。
func ShiftWallClock(t, from, to time.Time, loc *time.Location) time.Time {
	wall := func(x time.Time) time.Time {
		x = x.In(loc)
		return time.Date(x.Year(), x.Month(), x.Day(), x.Hour(), x.Minute(), x.Second(), x.Nanosecond(), time.UTC)
	}
	shifted := wall(t).Add(wall(to).Sub(wall(from)))
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(),
		shifted.Hour(), shifted.Minute(), shifted.Second(), shifted.Nanosecond(), loc)
}
