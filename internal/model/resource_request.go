package model

// 资源类型标签
const (
	ResourceTypeFacility       = "facility"
	ResourceTypeRoom           = "room"
	ResourceTypeAVEquipment    = "av_equipment"
	ResourceTypeCustodial      = "custodial"
	ResourceTypeSecurity       = "security"
	ResourceTypeAthleticsVenue = "athletics_venue"
)

// resourceChannels 资源类型 → 负责审批的渠道
var resourceChannels = map[string]ApprovalChannel{
	ResourceTypeFacility:       ChannelFacilities,
	ResourceTypeRoom:           ChannelFacilities,
	ResourceTypeAVEquipment:    ChannelAV,
	ResourceTypeCustodial:      ChannelCustodial,
	ResourceTypeSecurity:       ChannelSecurity,
	ResourceTypeAthleticsVenue: ChannelAthletics,
}

// ChannelForResourceType 返回资源类型对应的审批渠道；未知类型返回 false
func ChannelForResourceType(resourceType string) (ApprovalChannel, bool) {
	ch, ok := resourceChannels[resourceType]
	return ch, ok
}

// ResourceRequest 日程资源申请表，对应 event_resource_requests
type ResourceRequest struct {
	RequestID    string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"request_id"`
	EventID      string  `gorm:"type:uuid;not null;index"                       json:"event_id"`
	ResourceType string  `gorm:"type:varchar(30);not null"                      json:"resource_type"`
	ResourceID   *string `gorm:"type:uuid"                                      json:"resource_id,omitempty"`
	Quantity     int     `gorm:"not null;default:1"                             json:"quantity"`
	Notes        string  `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	BaseModel
}

// TableName 指定表名
func (ResourceRequest) TableName() string { return "event_resource_requests" }
