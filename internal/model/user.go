package model

// 用户角色
const (
	RoleAdmin     = "admin"
	RolePublisher = "publisher"
	RoleMember    = "member"
)

// User 用户表，对应 users
type User struct {
	UserID         string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email          string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash   string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string `gorm:"type:varchar(20);not null;default:'member'"     json:"role"` // admin | publisher | member
	OrganizationID string `gorm:"type:uuid;not null"                             json:"organization_id"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// CanPublish 是否拥有免审批发布权限
func (u *User) CanPublish() bool {
	return u.Role == RoleAdmin || u.Role == RolePublisher
}
