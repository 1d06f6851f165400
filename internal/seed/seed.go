package seed

import (
	"context"
	"fmt"
	"log"

	"warbler/internal/credential"
	"warbler/internal/models"

	"gorm.io/gorm"
)

// DefaultPassword is the password of every generated account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	Users           int
	MessagesPerUser int
	FollowsPerUser  int
	LikesPerUser    int
	MaxDays         int
	MessageLimit    int
	ShouldClean     bool
	// RandomSeed makes runs reproducible; zero seeds from the clock.
	RandomSeed int64
	// Hasher hashes DefaultPassword; the zero value uses bcrypt's default cost.
	Hasher credential.Hasher
}

func (o Options) maxLength() int {
	if o.MessageLimit <= 0 {
		return models.DefaultMessageMaxLength
	}
	return o.MessageLimit
}

// DefaultOptions is a small but connected demo graph.
func DefaultOptions() Options {
	return Options{
		Users:           25,
		MessagesPerUser: 8,
		FollowsPerUser:  6,
		LikesPerUser:    10,
		MaxDays:         30,
		ShouldClean:     true,
	}
}

// Summary counts what a run inserted.
type Summary struct {
	Users    int
	Follows  int
	Messages int
	Likes    int
}

// Seed populates the database with demo users, follows, messages and likes.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	db = db.WithContext(ctx)
	log.Printf("seed: %d users, %d messages each", opts.Users, opts.MessagesPerUser)

	if opts.ShouldClean {
		if err := ClearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	hash, err := opts.Hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}
	f := NewFactory(db, opts, hash)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	for i, u := range users {
		for _, j := range f.pick(len(users), opts.FollowsPerUser, i) {
			if err := f.Follow(u.ID, users[j].ID); err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			sum.Follows++
		}
	}

	var msgs []*models.Message
	for _, u := range users {
		for i := 0; i < opts.MessagesPerUser; i++ {
			msgs = append(msgs, f.BuildMessage(u))
		}
	}
	if err := f.CreateMessages(msgs); err != nil {
		return nil, fmt.Errorf("create messages: %w", err)
	}
	sum.Messages = len(msgs)

	for _, u := range users {
		for _, j := range f.pick(len(msgs)+1, opts.LikesPerUser, len(msgs)) {
			if msgs[j].UserID == u.ID {
				continue
			}
			if err := f.Like(u.ID, msgs[j].ID); err != nil {
				return nil, fmt.Errorf("create like: %w", err)
			}
			sum.Likes++
		}
	}

	log.Printf("seed: done (%d users, %d follows, %d messages, %d likes)",
		sum.Users, sum.Follows, sum.Messages, sum.Likes)
	return sum, nil
}

// ClearData removes every Warbler row, children first.
func ClearData(db *gorm.DB) error {
	all := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&models.Like{}, &models.Follow{}, &models.Message{}, &models.User{}} {
		if err := all.Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}
