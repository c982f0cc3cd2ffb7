package repository

import (
	"context"

	"rabbithole/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SongRepository defines the interface for catalog data operations.
type SongRepository interface {
	Upsert(ctx context.Context, track *model.TrackRecord) error
	GetBySlug(ctx context.Context, slug string) (*model.TrackRecord, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context) ([]*model.TrackRecord, error)
	Search(ctx context.Context, query string) ([]*model.TrackRecord, error)
}

// gormSongRepository GORM 实现
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建 GORM 歌曲仓库
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

// Upsert creates the song or updates it in place when the slug exists.
func (r *gormSongRepository) Upsert(ctx context.Context, track *model.TrackRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "artist", "duration", "standard_section_length",
				"ensemble", "timeline", "cover_art_path", "audio_path", "updated_at",
			}),
		}).
		Create(track).Error
}

// GetBySlug 根据slug获取歌曲
func (r *gormSongRepository) GetBySlug(ctx context.Context, slug string) (*model.TrackRecord, error) {
	var track model.TrackRecord
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&track).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

// ExistsBySlug 检查歌曲是否存在
func (r *gormSongRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TrackRecord{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

// List 获取全部歌曲
func (r *gormSongRepository) List(ctx context.Context) ([]*model.TrackRecord, error) {
	var tracks []*model.TrackRecord
	err := r.db.WithContext(ctx).
		Order("title ASC").
		Find(&tracks).Error
	return tracks, err
}

// Search 按标题或艺术家模糊搜索
func (r *gormSongRepository) Search(ctx context.Context, query string) ([]*model.TrackRecord, error) {
	var tracks []*model.TrackRecord
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("title LIKE ? OR artist LIKE ?", pattern, pattern).
		Order("title ASC").
		Find(&tracks).Error
	return tracks, err
}
