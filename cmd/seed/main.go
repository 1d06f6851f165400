// Command seed fills the database with demo users, follows, messages and likes.
package main

import (
	"context"
	"flag"
	"log"

	"warbler/internal/config"
	"warbler/internal/database"
	"warbler/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	messagesPerUser := flag.Int("messages", defaults.MessagesPerUser, "Messages per user")
	followsPerUser := flag.Int("follows", defaults.FollowsPerUser, "Accounts each user follows")
	likesPerUser := flag.Int("likes", defaults.LikesPerUser, "Likes per user")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread message timestamps over this many days")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 uses the clock)")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d messages/user, %d follows/user, %d likes/user, clean=%v\n",
		*numUsers, *messagesPerUser, *followsPerUser, *likesPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	summary, err := seed.Seed(context.Background(), db, seed.Options{
		Users:           *numUsers,
		MessagesPerUser: *messagesPerUser,
		FollowsPerUser:  *followsPerUser,
		LikesPerUser:    *likesPerUser,
		MaxDays:         *maxDays,
		MessageLimit:    cfg.MessageLimit(),
		ShouldClean:     *shouldClean,
		RandomSeed:      *randomSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Inserted %d users, %d follows, %d messages, %d likes",
		summary.Users, summary.Follows, summary.Messages, summary.Likes)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
