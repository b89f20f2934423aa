package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRule 重复规则无法解析或不合法
var ErrInvalidRule = errors.New("重复规则无效")

// RuleEngine RFC 5545 重复规则能力
//
// 规则以不含 DTSTART 的 RRULE 值存储（如 FREQ=WEEKLY;BYDAY=MO），锚点由调用方单独传入。
type RuleEngine interface {
	// Normalize 校验规则并返回规范化字符串
	Normalize(rule string, anchor time.Time) (string, error)
	// OccurrencesBetween 返回 [start, end] 内的发生时间，exclude 中的时间点不会生成
	OccurrencesBetween(rule string, anchor, start, end time.Time, exclude []time.Time) ([]time.Time, error)
	// IsOccurrence 判断 t 是否为规则生成的发生时间
	IsOccurrence(rule string, anchor, t time.Time) (bool, error)
	// CountBefore 统计严格早于 t 的发生次数
	CountBefore(rule string, anchor, t time.Time) (int, error)
	// WithUntil 设置 UNTIL 并清除 COUNT
	WithUntil(rule string, until time.Time) (string, error)
	// Rebased 以新锚点沿用原规则：COUNT 扣除 consumed 次，不晚于新锚点的 UNTIL 被丢弃
	Rebased(rule string, anchor time.Time, consumed int) (string, error)
	// IsSubDaily 频率是否小于一天（HOURLY / MINUTELY / SECONDLY）
	IsSubDaily(rule string) (bool, error)
	// Realigned 锚点从 from 移到 to 时，把规则里与 from 吻合的 BY 字段改写为 to 对应的值
	Realigned(rule string, from, to time.Time) (string, error)
}

// RRuleEngine 基于 teambition/rrule-go 的实现
type RRuleEngine struct{}

// NewRRuleEngine 创建 RRuleEngine
func NewRRuleEngine() *RRuleEngine {
	return &RRuleEngine{}
}

func parseOption(rule string) (*rrule.ROption, error) {
	s := strings.TrimSpace(rule)
	s = strings.TrimPrefix(s, "RRULE:")
	if s == "" {
		return nil, fmt.Errorf("%w: 规则为空", ErrInvalidRule)
	}
	if strings.Contains(strings.ToUpper(s), "DTSTART") {
		return nil, fmt.Errorf("%w: 规则中不允许包含 DTSTART", ErrInvalidRule)
	}
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return opt, nil
}

func build(rule string, anchor time.Time) (*rrule.RRule, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = anchor
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	return r, nil
}

func (e *RRuleEngine) Normalize(rule string, anchor time.Time) (string, error) {
	r, err := build(rule, anchor)
	if err != nil {
		return "", err
	}
	return r.OrigOptions.RRuleString(), nil
}

func (e *RRuleEngine) OccurrencesBetween(rule string, anchor, start, end time.Time, exclude []time.Time) ([]time.Time, error) {
	r, err := build(rule, anchor)
	if err != nil {
		return nil, err
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range exclude {
		// 对齐到锚点时区，rrule-go 按绝对时间比较
		set.ExDate(ex.In(anchor.Location()))
	}

	return set.Between(start.In(anchor.Location()), end.In(anchor.Location()), true), nil
}

func (e *RRuleEngine) IsOccurrence(rule string, anchor, t time.Time) (bool, error) {
	r, err := build(rule, anchor)
	if err != nil {
		return false, err
	}
	return len(r.Between(t, t, true)) > 0, nil
}

func (e *RRuleEngine) CountBefore(rule string, anchor, t time.Time) (int, error) {
	r, err := build(rule, anchor)
	if err != nil {
		return 0, err
	}
	if !t.After(anchor) {
		return 0, nil
	}
	n := 0
	for _, occ := range r.Between(anchor, t, true) {
		if occ.Before(t) {
			n++
		}
	}
	return n, nil
}

func (e *RRuleEngine) WithUntil(rule string, until time.Time) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}
	// UNTIL 与 COUNT 互斥（RFC 5545 §3.3.10）
	opt.Count = 0
	opt.Until = until.UTC()
	return opt.RRuleString(), nil
}

func (e *RRuleEngine) Rebased(rule string, anchor time.Time, consumed int) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}
	if opt.Count > 0 && consumed > 0 {
		if consumed >= opt.Count {
			return "", fmt.Errorf("%w: COUNT=%d 已全部用完", ErrInvalidRule, opt.Count)
		}
		opt.Count -= consumed
	}
	if !opt.Until.IsZero() && !opt.Until.After(anchor) {
		opt.Until = time.Time{}
	}
	return opt.RRuleString(), nil
}

func (e *RRuleEngine) IsSubDaily(rule string) (bool, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return false, err
	}
	switch opt.Freq {
	case rrule.HOURLY, rrule.MINUTELY, rrule.SECONDLY:
		return true, nil
	}
	return false, nil
}

// weekdays 按 rrule-go 的编号排列，MO 为 0
var weekdays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func rruleDay(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Realigned 只改写与 from 吻合的不带序号的 BYDAY 以及 BYMONTH / BYMONTHDAY / BYHOUR / BYMINUTE，
// 其余字段原样保留；调用方仍需用 IsOccurrence 确认 to 落在新规则上。
// from 与 to 应使用系列时区表示。
func (e *RRuleEngine) Realigned(rule string, from, to time.Time) (string, error) {
	opt, err := parseOption(rule)
	if err != nil {
		return "", err
	}

	if fromDay, toDay := rruleDay(from), rruleDay(to); fromDay != toDay {
		for i := range opt.Byweekday {
			w := &opt.Byweekday[i]
			if w.N() == 0 && w.Day() == fromDay {
				opt.Byweekday[i] = weekdays[toDay]
			}
		}
		opt.Byweekday = dedupeWeekdays(opt.Byweekday)
	}
	replaceInt(opt.Bymonth, int(from.Month()), int(to.Month()))
	replaceInt(opt.Bymonthday, from.Day(), to.Day())
	replaceInt(opt.Byhour, from.Hour(), to.Hour())
	replaceInt(opt.Byminute, from.Minute(), to.Minute())
	return opt.RRuleString(), nil
}

func replaceInt(values []int, from, to int) {
	for i, v := range values {
		if v == from {
			values[i] = to
		}
	}
}

func dedupeWeekdays(days []rrule.Weekday) []rrule.Weekday {
	out := days[:0]
	seen := make(map[[2]int]bool, len(days))
	for i := range days {
		key := [2]int{days[i].Day(), days[i].N()}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, days[i])
	}
	return out
}
