package model

// Location 校园场地，对应 locations
//
// ResourceType 决定场地由哪个审批渠道负责：日程提交审批时，
// 引用的场地等同一条该类型的资源申请。停用场地不能被新日程选用。
type Location struct {
	LocationID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"location_id"`
	OrganizationID string `gorm:"type:uuid;not null;index"                       json:"organization_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	Building       string `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	ResourceType   string `gorm:"type:varchar(30);not null"                      json:"resource_type"`
	Capacity       int    `gorm:"not null;default:0"                             json:"capacity"` // 0 表示不限
	IsActive       bool   `gorm:"not null"                                       json:"is_active"`
	SoftDeleteModel
}

// TableName 指定表名
func (Location) TableName() string { return "locations" }

// IsVenueType 场地可用的资源类型：普通教室、设施、体育场馆
func IsVenueType(resourceType string) bool {
	switch resourceType {
	case ResourceTypeRoom, ResourceTypeFacility, ResourceTypeAthleticsVenue:
		return true
	}
	return false
}

// AsResourceRequest 将场地视为一条资源申请，参与审批渠道规划
func (l *Location) AsResourceRequest(eventID string) ResourceRequest {
	id := l.LocationID
	return ResourceRequest{
		EventID:      eventID,
		ResourceType: l.ResourceType,
		ResourceID:   &id,
		Quantity:     1,
	}
}
