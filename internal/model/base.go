package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 审计字段：记录创建者与最后修改者
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}

// StampCreated 新建记录时写入操作人，同时作为首个修改者
func (m *BaseModel) StampCreated(actorID string) {
	m.CreatedBy = &actorID
	m.UpdatedBy = &actorID
}

// StampUpdated 记录最后一次修改的操作人
func (m *BaseModel) StampUpdated(actorID string) {
	m.UpdatedBy = &actorID
}

// SoftDeleteModel 日历、分类、场地等可恢复数据使用软删除
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"     json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:uuid" json:"deleted_by,omitempty"`
}

// VersionedModel 日程与用户的乐观锁版本号，每次 Update 自增
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// NextVersion 返回提交更新时应写入的版本号
func (m *VersionedModel) NextVersion() int {
	return m.Version + 1
}
