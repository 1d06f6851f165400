// Package service implements Warbler's operations on top of the repository
// layer. Every operation takes the caller's identity explicitly; nothing is
// read from ambient request state.
package service

import (
	"context"
	"log/slog"

	"warbler/internal/cache"
	"warbler/internal/middleware"
	"warbler/internal/models"
)

// SessionRevoker ends all sessions of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID uint) error
}

func requireUser(who models.Identity) error {
	if who.IsAnonymous() {
		return models.NewUnauthorizedError("Access unauthorized")
	}
	return nil
}

func capLimit(limit, ceiling int) int {
	if limit <= 0 || limit > ceiling {
		return ceiling
	}
	return limit
}

// refreshStats drops cached profile counters once a write has committed.
func refreshStats(ctx context.Context, userIDs ...uint) {
	cache.InvalidateStats(ctx, userIDs...)
}

func logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	middleware.Logger.WarnContext(ctx, msg, attrs...)
}
