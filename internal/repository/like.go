package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages the user <-> message like relation.
type LikeRepository interface {
	Insert(ctx context.Context, userID, messageID uint) (bool, error)
	Delete(ctx context.Context, userID, messageID uint) (bool, error)
	Exists(ctx context.Context, userID, messageID uint) (bool, error)
	ListLikedBy(ctx context.Context, userID uint, limit int) ([]models.Message, error)
	LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error)
	LikerIDs(ctx context.Context, messageID uint) ([]uint, error)
	LikerIDsOnMessagesOf(ctx context.Context, authorID uint) ([]uint, error)
	DeleteForMessage(ctx context.Context, messageID uint) error
	DeleteOnMessagesOf(ctx context.Context, authorID uint) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Insert adds the like and reports whether a row was written. Concurrent
// duplicates are absorbed by ON CONFLICT DO NOTHING.
func (r *likeRepository) Insert(ctx context.Context, userID, messageID uint) (bool, error) {
	like := models.Like{UserID: userID, MessageID: messageID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, messageID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Delete(&models.Like{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Exists(ctx context.Context, userID, messageID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// ListLikedBy returns liked messages, most recent like first.
func (r *likeRepository) ListLikedBy(ctx context.Context, userID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("messages.*").
		Joins("JOIN likes ON likes.message_id = messages.id").
		Where("likes.user_id = ?", userID).
		Order("likes.created_at DESC").
		Order("messages.id DESC").
		Preload("User").
		Limit(clampLimit(limit, maxPageSize)).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}

func (r *likeRepository) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Pluck("message_id", &liked).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

// LikerIDs returns the users who like messageID.
func (r *likeRepository) LikerIDs(ctx context.Context, messageID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("message_id = ?", messageID).
		Distinct().Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// LikerIDsOnMessagesOf returns the users who like any message by authorID.
func (r *likeRepository) LikerIDsOnMessagesOf(ctx context.Context, authorID uint) ([]uint, error) {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.Message{}).Select("id").Where("user_id = ?", authorID)
	var ids []uint
	err := db.Model(&models.Like{}).
		Where("message_id IN (?)", owned).
		Distinct().Pluck("user_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) DeleteForMessage(ctx context.Context, messageID uint) error {
	if err := r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteOnMessagesOf removes every like on messages authored by authorID.
func (r *likeRepository) DeleteOnMessagesOf(ctx context.Context, authorID uint) error {
	db := r.db.WithContext(ctx)
	owned := db.Model(&models.Message{}).Select("id").Where("user_id = ?", authorID)
	if err := db.Where("message_id IN (?)", owned).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
