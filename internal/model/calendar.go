package model

// Calendar 日历表，对应 calendars
type Calendar struct {
	CalendarID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"calendar_id"`
	OrganizationID   string `gorm:"type:uuid;not null;index"                       json:"organization_id"`
	Name             string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description      string `gorm:"type:text"                                      json:"description,omitempty"`
	Timezone         string `gorm:"type:varchar(64);not null;default:'UTC'"        json:"timezone"` // IANA 时区名
	RequiresApproval bool   `gorm:"not null"                                       json:"requires_approval"`
	IsPublic         bool   `gorm:"not null;default:false"                         json:"is_public"`
	SoftDeleteModel
}

// TableName 指定表名
func (Calendar) TableName() string { return "calendars" }

// Category 日程分类表，对应 event_categories
type Category struct {
	CategoryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"category_id"`
	CalendarID string `gorm:"type:uuid;not null;index"                       json:"calendar_id"`
	Name       string `gorm:"type:varchar(50);not null"                      json:"name"`
	Color      string `gorm:"type:varchar(7);not null;default:'#3b82f6'"     json:"color"`
	SortOrder  int    `gorm:"not null;default:0"                             json:"sort_order"`
	SoftDeleteModel
}

// TableName 指定表名
func (Category) TableName() string { return "event_categories" }

// CalendarSubscription 日历订阅表，对应 calendar_subscriptions（用户与日历的偏好关系）
type CalendarSubscription struct {
	UserID     string `gorm:"type:uuid;primaryKey"  json:"user_id"`
	CalendarID string `gorm:"type:uuid;primaryKey"  json:"calendar_id"`
	Subscribed bool   `gorm:"not null"              json:"subscribed"`
	BaseModel

	// 关联
	Calendar *Calendar `gorm:"foreignKey:CalendarID;references:CalendarID" json:"calendar,omitempty"`
}

// TableName 指定表名
func (CalendarSubscription) TableName() string { return "calendar_subscriptions" }
