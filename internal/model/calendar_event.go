package model

import (
	"time"

	"gorm.io/datatypes"
)

// 日程生命周期状态
const (
	EventStatusDraft           = "draft"
	EventStatusPendingApproval = "pending_approval"
	EventStatusConfirmed       = "confirmed"
	EventStatusRejected        = "rejected"
)

// EventKind 日程记录的角色（由字段组合推导，调用方不应再自行判断可空字段）
type EventKind int

const (
	// EventKindStandalone 单次日程
	EventKindStandalone EventKind = iota
	// EventKindSeriesRoot 重复系列的根记录
	EventKindSeriesRoot
	// EventKindSplitChild 拆分出的子系列头（带重复规则且带父引用）
	EventKindSplitChild
)

func (k EventKind) String() string {
	switch k {
	case EventKindSeriesRoot:
		return "series_root"
	case EventKindSplitChild:
		return "split_child"
	default:
		return "standalone"
	}
}

// EventMetadata 日程扩展信息（jsonb），键集合固定
type EventMetadata struct {
	ContactName        string   `json:"contact_name,omitempty"`
	ContactEmail       string   `json:"contact_email,omitempty"`
	ExpectedAttendance int      `json:"expected_attendance,omitempty"`
	ExternalURL        string   `json:"external_url,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// CalendarEvent 日程表，对应 calendar_events
//
// 单次日程、重复系列根、拆分子系列共用此表；单次实例的修改/取消存放在 event_exceptions。
type CalendarEvent struct {
	EventID       string                            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"event_id"`
	CalendarID    string                            `gorm:"type:uuid;not null;index"                       json:"calendar_id"`
	Title         string                            `gorm:"type:varchar(200);not null"                     json:"title"`
	Description   string                            `gorm:"type:text"                                      json:"description,omitempty"`
	StartTime     time.Time                         `gorm:"not null;index"                                 json:"start_time"`
	EndTime       time.Time                         `gorm:"not null"                                       json:"end_time"`
	AllDay        bool                              `gorm:"not null;default:false"                         json:"all_day"`
	Timezone      string                            `gorm:"type:varchar(64);not null;default:'UTC'"        json:"timezone"`
	RRule         *string                           `gorm:"column:rrule;type:varchar(500)"                 json:"rrule,omitempty"`
	Status        string                            `gorm:"type:varchar(20);not null;default:'draft'"      json:"status"` // draft | pending_approval | confirmed | rejected
	ParentEventID *string                           `gorm:"type:uuid;index"                                json:"parent_event_id,omitempty"`
	CategoryID    *string                           `gorm:"type:uuid"                                      json:"category_id,omitempty"`
	LocationID    *string                           `gorm:"type:uuid"                                      json:"location_id,omitempty"`
	Metadata      datatypes.JSONType[EventMetadata] `gorm:"type:jsonb;not null;default:'{}'"               json:"metadata"`
	CreatorID     string                            `gorm:"type:uuid;not null"                             json:"creator_id"`
	ApprovedBy    *string                           `gorm:"type:uuid"                                      json:"approved_by,omitempty"`
	ApprovedAt    *time.Time                        `json:"approved_at,omitempty"`
	VersionedModel

	// 关联
	Calendar *Calendar `gorm:"foreignKey:CalendarID;references:CalendarID" json:"calendar,omitempty"`
	Category *Category `gorm:"foreignKey:CategoryID;references:CategoryID" json:"category,omitempty"`
}

// TableName 指定表名
func (CalendarEvent) TableName() string { return "calendar_events" }

// Kind 返回记录角色
func (e *CalendarEvent) Kind() EventKind {
	if !e.IsRecurring() {
		return EventKindStandalone
	}
	if e.ParentEventID != nil {
		return EventKindSplitChild
	}
	return EventKindSeriesRoot
}

// IsRecurring 是否带重复规则
func (e *CalendarEvent) IsRecurring() bool {
	return e.RRule != nil && *e.RRule != ""
}

// Duration 根记录时长，所有生成的实例沿用此值
func (e *CalendarEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

// EventException 单次实例覆盖表，对应 event_exceptions
//
// 以 (parent_event_id, original_start) 唯一标识被替换的那一次发生。
type EventException struct {
	ExceptionID   string                            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"exception_id"`
	ParentEventID string                            `gorm:"type:uuid;not null;uniqueIndex:uk_exception_slot"        json:"parent_event_id"`
	OriginalStart time.Time                         `gorm:"not null;uniqueIndex:uk_exception_slot"                  json:"original_start"`
	Title         string                            `gorm:"type:varchar(200);not null"                              json:"title"`
	Description   string                            `gorm:"type:text"                                               json:"description,omitempty"`
	StartTime     time.Time                         `gorm:"not null;index"                                          json:"start_time"`
	EndTime       time.Time                         `gorm:"not null"                                                json:"end_time"`
	AllDay        bool                              `gorm:"not null;default:false"                                  json:"all_day"`
	CategoryID    *string                           `gorm:"type:uuid"                                               json:"category_id,omitempty"`
	LocationID    *string                           `gorm:"type:uuid"                                               json:"location_id,omitempty"`
	Metadata      datatypes.JSONType[EventMetadata] `gorm:"type:jsonb;not null;default:'{}'"                        json:"metadata"`
	Cancelled     bool                              `gorm:"not null;default:false"                                  json:"cancelled"`
	BaseModel
}

// TableName 指定表名
func (EventException) TableName() string { return "event_exceptions" }
