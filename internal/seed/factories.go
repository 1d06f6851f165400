// Package seed provides helpers to create demo data for the Warbler database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"warbler/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db           *gorm.DB
	faker        *gofakeit.Faker
	opts         Options
	passwordHash string
	now          time.Time
	serial       int
}

// NewFactory creates a Factory bound to db. passwordHash is stored for every
// generated user so the bcrypt cost is paid once per run.
func NewFactory(db *gorm.DB, opts Options, passwordHash string) *Factory {
	seed := opts.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{
		db:           db,
		faker:        gofakeit.New(seed),
		opts:         opts,
		passwordHash: passwordHash,
		now:          time.Now().UTC(),
	}
}

// BuildUser returns an unsaved user with a unique username.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	f.serial++
	base := strings.ToLower(f.faker.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	if len(base) < 3 {
		base = "warbler"
	}
	if len(base) > 40 {
		base = base[:40]
	}
	username := fmt.Sprintf("%s%d", base, f.serial)

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: f.passwordHash,
		ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/200/200", f.faker.UUID()),
		Bio:          f.faker.Sentence(8),
		Location:     f.faker.City(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser persists a generated user.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)
	user.ApplyImageDefaults()
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildMessage returns an unsaved message by user, timestamped somewhere in
// the last MaxDays days and never longer than the configured limit.
func (f *Factory) BuildMessage(user *models.User) *models.Message {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	text := f.faker.Sentence(f.faker.Number(4, 18))
	for utf8.RuneCountInString(text) > f.opts.maxLength() {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:f.opts.maxLength()]))
	}

	return &models.Message{
		Text:      text,
		Timestamp: f.faker.DateRange(f.now.AddDate(0, 0, -maxDays), f.now).UTC(),
		UserID:    user.ID,
	}
}

// CreateMessages persists msgs in batches.
func (f *Factory) CreateMessages(msgs []*models.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return f.db.Omit("User").CreateInBatches(msgs, 200).Error
}

// Follow adds follower -> followed, ignoring existing edges.
func (f *Factory) Follow(followerID, followedID uint) error {
	if followerID == followedID {
		return nil
	}
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error
}

// Like records a like, ignoring duplicates.
func (f *Factory) Like(userID, messageID uint) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{UserID: userID, MessageID: messageID}).Error
}

// pick returns n distinct indexes in [0, size) excluding skip.
func (f *Factory) pick(size, n, skip int) []int {
	if size <= 1 || n <= 0 {
		return nil
	}
	if n > size-1 {
		n = size - 1
	}
	seen := make(map[int]struct{}, n)
	out := make([]int, 0, n)
	for len(out) < n {
		i := f.faker.Number(0, size-1)
		if i == skip {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}
