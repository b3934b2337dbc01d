package model

import "time"

// Artist 表示厂牌旗下的一位艺人
// 新模块，由 GORM 管理（见 repository/artist_repository.go）
type Artist struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	Bio       string    `gorm:"type:text" json:"bio,omitempty"`
	PhotoURL  string    `gorm:"type:varchar(767)" json:"photoUrl,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定数据库表名
func (Artist) TableName() string {
	return "artists"
}
