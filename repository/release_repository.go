package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Bside/model"

	"gorm.io/gorm"
)

// ReleaseRepository 发行数据访问接口
type ReleaseRepository interface {
	Create(ctx context.Context, release *model.Release) error
	GetByID(ctx context.Context, id int64) (*model.Release, error)
	// GetByArtistAndTitle 按（艺人，标题）精确匹配，批量提交的
	// auto-match 依赖它；不存在时返回nil
	GetByArtistAndTitle(ctx context.Context, artist, title string) (*model.Release, error)
	List(ctx context.Context, publishedOnly bool) ([]*model.Release, error)
	Update(ctx context.Context, release *model.Release) error
	Delete(ctx context.Context, id int64) error
	SetPublished(ctx context.Context, id int64, published bool) error
	Count(ctx context.Context) (int64, error)
}

// gormReleaseRepository 基于GORM的实现（新模块风格）
type gormReleaseRepository struct {
	db *gorm.DB
}

// NewGormReleaseRepository 创建发行仓储
func NewGormReleaseRepository(db *gorm.DB) ReleaseRepository {
	return &gormReleaseRepository{db: db}
}

// Create 新增发行
func (r *gormReleaseRepository) Create(ctx context.Context, release *model.Release) error {
	if err := r.db.WithContext(ctx).Create(release).Error; err != nil {
		return fmt.Errorf("failed to create release: %w", err)
	}
	return nil
}

// GetByID 按ID查询发行，不存在时返回nil
func (r *gormReleaseRepository) GetByID(ctx context.Context, id int64) (*model.Release, error) {
	var release model.Release
	err := r.db.WithContext(ctx).First(&release, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release %d: %w", id, err)
	}
	return &release, nil
}

// GetByArtistAndTitle 按艺人和标题查询发行，不存在时返回nil
func (r *gormReleaseRepository) GetByArtistAndTitle(ctx context.Context, artist, title string) (*model.Release, error) {
	var release model.Release
	err := r.db.WithContext(ctx).Where("artist = ? AND title = ?", artist, title).First(&release).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get release by artist %q title %q: %w", artist, title, err)
	}
	return &release, nil
}

// List 返回发行列表，publishedOnly 时只含已发布的
func (r *gormReleaseRepository) List(ctx context.Context, publishedOnly bool) ([]*model.Release, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var releases []*model.Release
	if err := query.Find(&releases).Error; err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	return releases, nil
}

// Update 更新发行信息
func (r *gormReleaseRepository) Update(ctx context.Context, release *model.Release) error {
	if err := r.db.WithContext(ctx).Save(release).Error; err != nil {
		return fmt.Errorf("failed to update release %d: %w", release.ID, err)
	}
	return nil
}

// Delete 删除发行
func (r *gormReleaseRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&model.Release{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete release %d: %w", id, err)
	}
	return nil
}

// SetPublished 设置发布状态并记录发布时间
func (r *gormReleaseRepository) SetPublished(ctx context.Context, id int64, published bool) error {
	updates := map[string]interface{}{"published": published}
	if published {
		now := time.Now()
		updates["published_at"] = &now
	} else {
		updates["published_at"] = nil
	}

	err := r.db.WithContext(ctx).Model(&model.Release{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to set published=%v for release %d: %w", published, id, err)
	}
	return nil
}

// Count 返回发行总数
func (r *gormReleaseRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Release{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count releases: %w", err)
	}
	return count, nil
}
