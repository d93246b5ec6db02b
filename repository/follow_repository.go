package repository

import (
	"context"
	"errors"
	"fmt"

	"dropfm/model"

	"gorm.io/gorm"
)

// FollowRepository is the follow graph. The engine only reads fan-out sets
// from it; the write methods exist for the HTTP surface.
type FollowRepository interface {
	// GetFollowees returns the ids of every user followerID follows.
	GetFollowees(ctx context.Context, followerID int64) ([]int64, error)
	CreateFollow(ctx context.Context, followerID, followeeID int64) error
	// RemoveFollow returns false when no edge existed.
	RemoveFollow(ctx context.Context, followerID, followeeID int64) (bool, error)
	FollowExists(ctx context.Context, followerID, followeeID int64) (bool, error)
}

// gormFollowRepository implements FollowRepository with GORM.
type gormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new follow repository.
func NewGormFollowRepository(db *gorm.DB) FollowRepository {
	return &gormFollowRepository{db: db}
}

func (r *gormFollowRepository) GetFollowees(ctx context.Context, followerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ?", followerID).
		Order("created_at ASC").
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get followees for user %d: %w", followerID, err)
	}
	return ids, nil
}

func (r *gormFollowRepository) CreateFollow(ctx context.Context, followerID, followeeID int64) error {
	follow := &model.Follow{FollowerID: followerID, FolloweeID: followeeID}
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil // Already following
		}
		return fmt.Errorf("failed to create follow %d -> %d: %w", followerID, followeeID, err)
	}
	return nil
}

func (r *gormFollowRepository) RemoveFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to remove follow %d -> %d: %w", followerID, followeeID, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *gormFollowRepository) FollowExists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check follow %d -> %d: %w", followerID, followeeID, err)
	}
	return count > 0, nil
}
