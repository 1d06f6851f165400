package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository manages follower -> followed edges.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID uint) (bool, error)
	Delete(ctx context.Context, followerID, followedID uint) (bool, error)
	Exists(ctx context.Context, followerID, followedID uint) (bool, error)
	Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	NeighborIDs(ctx context.Context, userID uint) ([]uint, error)
	DeleteAllFor(ctx context.Context, userID uint) error
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Create inserts the edge and reports whether a new row was written. An
// existing edge is left untouched.
func (r *followRepository) Create(ctx context.Context, followerID, followedID uint) (bool, error) {
	edge := models.Follow{FollowerID: followerID, FollowedID: followedID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followedID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followedID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// Following lists the users userID follows, newest edge first.
func (r *followRepository) Following(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listEdges(ctx, "follows.followed_id = users.id", "follows.follower_id = ?", userID, limit, offset)
}

// Followers lists the users following userID, newest edge first.
func (r *followRepository) Followers(ctx context.Context, userID uint, limit, offset int) ([]models.User, error) {
	return r.listEdges(ctx, "follows.follower_id = users.id", "follows.followed_id = ?", userID, limit, offset)
}

func (r *followRepository) listEdges(ctx context.Context, join, where string, userID uint, limit, offset int) ([]models.User, error) {
	var users []models.User
	if offset < 0 {
		offset = 0
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.*").
		Joins("JOIN follows ON "+join).
		Where(where, userID).
		Order("follows.created_at DESC").
		Order("users.id DESC").
		Limit(clampLimit(limit, maxPageSize)).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followed_id = ?", userID).
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// NeighborIDs returns everyone on the other end of an edge touching userID,
// in either direction.
func (r *followRepository) NeighborIDs(ctx context.Context, userID uint) ([]uint, error) {
	var edges []models.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? OR followed_id = ?", userID, userID).
		Find(&edges).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	seen := make(map[uint]struct{}, len(edges))
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		other := e.FollowerID
		if other == userID {
			other = e.FollowedID
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}

// DeleteAllFor removes every edge touching userID in either direction.
func (r *followRepository) DeleteAllFor(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).
		Where("follower_id = ? OR followed_id = ?", userID, userID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
