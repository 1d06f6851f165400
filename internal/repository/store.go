// Package repository implements the data access layer for the application.
package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// Store groups the repositories behind one database handle. Repositories
// obtained from the Store passed to Transaction share that transaction.
type Store interface {
	Users() UserRepository
	Follows() FollowRepository
	Messages() MessageRepository
	Likes() LikeRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *gormStore) Follows() FollowRepository   { return NewFollowRepository(s.db) }
func (s *gormStore) Messages() MessageRepository { return NewMessageRepository(s.db) }
func (s *gormStore) Likes() LikeRepository       { return NewLikeRepository(s.db) }

// Transaction runs fn in a single database transaction. Any returned error
// rolls the whole transaction back.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

const (
	defaultPageSize = 20
	maxPageSize     = models.MaxTimelineLimit
)

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
