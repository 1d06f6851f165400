// Package main provides account and data management utilities for Warbler operators.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/credential"
	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/seed"
	"warbler/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin users list [query]        - List accounts, optionally filtered")
	fmt.Println("  go run ./cmd/admin users show <user_id>      - Show an account with its counts")
	fmt.Println("  go run ./cmd/admin users delete <user_id>    - Delete an account and everything it owns")
	fmt.Println("  go run ./cmd/admin sessions revoke <user_id> - Log a user out everywhere")
	fmt.Println("  go run ./cmd/admin data wipe -yes            - Remove all users, messages, follows and likes")
	fmt.Println("  go run ./cmd/admin schema                    - Print tables and columns")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer rt.Close()

	ctx := context.Background()
	store := repository.NewStore(rt.DB)
	users := service.NewUserService(store, credential.NewHasher(credential.DefaultCost), rt.Sessions, cfg.TimelineCap())

	args := os.Args[1:]
	switch {
	case len(args) >= 2 && args[0] == "users" && args[1] == "list":
		query := ""
		if len(args) > 2 {
			query = args[2]
		}
		listUsers(ctx, users, query)
	case len(args) >= 3 && args[0] == "users" && args[1] == "show":
		showUser(ctx, users, mustID(args[2]))
	case len(args) >= 3 && args[0] == "users" && args[1] == "delete":
		id := mustID(args[2])
		if err := users.DeleteAccount(ctx, models.IdentityFor(id)); err != nil {
			log.Fatalf("Failed to delete user %d: %v", id, err)
		}
		fmt.Printf("Deleted user %d and all of their messages, follows and likes\n", id)
	case len(args) >= 3 && args[0] == "sessions" && args[1] == "revoke":
		id := mustID(args[2])
		if err := rt.Sessions.RevokeAll(ctx, id); err != nil {
			log.Fatalf("Failed to revoke sessions: %v", err)
		}
		fmt.Printf("Revoked every session of user %d\n", id)
	case len(args) >= 2 && args[0] == "data" && args[1] == "wipe":
		fs := flag.NewFlagSet("wipe", flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm the wipe")
		_ = fs.Parse(args[2:])
		if !*yes {
			fmt.Println("Refusing to wipe without -yes")
			os.Exit(1)
		}
		if cfg.IsProduction() {
			log.Fatal("Refusing to wipe a production database")
		}
		if err := seed.ClearData(rt.DB); err != nil {
			log.Fatalf("Wipe failed: %v", err)
		}
		fmt.Println("All application data removed")
	case args[0] == "schema":
		printSchema(rt)
	default:
		fmt.Printf("Unknown command: %v\n", args)
		usage()
	}
}

func mustID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		log.Fatalf("Invalid user id %q", raw)
	}
	return uint(id)
}

func listUsers(ctx context.Context, users *service.UserService, query string) {
	list, err := users.ListUsers(ctx, query, 100, 0)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}
	if len(list) == 0 {
		fmt.Println("No users found")
		return
	}
	fmt.Println("─────────────────────────────────────")
	for _, u := range list {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", u.ID, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func showUser(ctx context.Context, users *service.UserService, id uint) {
	p, err := users.Profile(ctx, id, models.Anonymous)
	if err != nil {
		log.Fatalf("Failed to load user %d: %v", id, err)
	}
	fmt.Printf("ID: %d\nUsername: %s\nEmail: %s\nLocation: %s\n", p.User.ID, p.User.Username, p.User.Email, p.User.Location)
	fmt.Printf("Messages: %d | Following: %d | Followers: %d | Likes: %d\n",
		p.Stats.Messages, p.Stats.Following, p.Stats.Followers, p.Stats.Likes)
}

func printSchema(rt *bootstrap.Runtime) {
	migrator := rt.DB.Migrator()
	tables, err := migrator.GetTables()
	if err != nil {
		log.Fatalf("Failed to list tables: %v", err)
	}
	for _, table := range tables {
		fmt.Printf("%s\n", table)
		cols, err := migrator.ColumnTypes(table)
		if err != nil {
			log.Printf("  columns unavailable: %v", err)
			continue
		}
		for _, col := range cols {
			nullable, _ := col.Nullable()
			fmt.Printf("  %-20s %-20s nullable=%t\n", col.Name(), col.DatabaseTypeName(), nullable)
		}
	}
}
