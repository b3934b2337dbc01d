package repository

import (
	"context"
	"errors"
	"fmt"

	"Bside/model"

	"gorm.io/gorm"
)

// ArtistRepository 艺人数据访问接口
type ArtistRepository interface {
	Create(ctx context.Context, artist *model.Artist) error
	GetByID(ctx context.Context, id int64) (*model.Artist, error)
	List(ctx context.Context) ([]*model.Artist, error)
	Update(ctx context.Context, artist *model.Artist) error
	Delete(ctx context.Context, id int64) error
}

// gormArtistRepository 基于GORM的实现（新模块风格）
type gormArtistRepository struct {
	db *gorm.DB
}

// NewGormArtistRepository 创建艺人仓储
func NewGormArtistRepository(db *gorm.DB) ArtistRepository {
	return &gormArtistRepository{db: db}
}

// Create 新增艺人
func (r *gormArtistRepository) Create(ctx context.Context, artist *model.Artist) error {
	if err := r.db.WithContext(ctx).Create(artist).Error; err != nil {
		return fmt.Errorf("failed to create artist: %w", err)
	}
	return nil
}

// GetByID 按ID查询艺人，不存在时返回nil
func (r *gormArtistRepository) GetByID(ctx context.Context, id int64) (*model.Artist, error) {
	var artist model.Artist
	err := r.db.WithContext(ctx).First(&artist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artist %d: %w", id, err)
	}
	return &artist, nil
}

// List 返回全部艺人，按名称排序
func (r *gormArtistRepository) List(ctx context.Context) ([]*model.Artist, error) {
	var artists []*model.Artist
	err := r.db.WithContext(ctx).Order("name ASC").Find(&artists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return artists, nil
}

// Update 更新艺人信息
func (r *gormArtistRepository) Update(ctx context.Context, artist *model.Artist) error {
	if err := r.db.WithContext(ctx).Save(artist).Error; err != nil {
		return fmt.Errorf("failed to update artist %d: %w", artist.ID, err)
	}
	return nil
}

// Delete 删除艺人
func (r *gormArtistRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Artist{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete artist %d: %w", id, err)
	}
	return nil
}
