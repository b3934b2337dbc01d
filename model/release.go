package model

import "time"

// Release 表示一张发行（专辑/EP/单曲）
// 新模块，由 GORM 管理（见 repository/release_repository.go）
type Release struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_artist_title,priority:2" json:"title"`
	Artist      string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_artist_title,priority:1" json:"artist"`
	CoverURL    string     `gorm:"type:varchar(767)" json:"coverUrl,omitempty"`
	Genre       string     `gorm:"type:varchar(100)" json:"genre,omitempty"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Published   bool       `gorm:"not null;default:false" json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定数据库表名
func (Release) TableName() string {
	return "releases"
}

// ReleaseWithTracks 包含发行信息及其曲目
type ReleaseWithTracks struct {
	Release Release  `json:"release"`
	Tracks  []*Track `json:"tracks"`
}
