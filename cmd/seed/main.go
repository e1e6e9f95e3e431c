// Command seed fills the database with demo accounts, posts and comment threads.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of reader accounts to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxComments, "Maximum top-level comments per published post")
	maxReplies := flag.Int("replies", defaults.MaxReplies, "Maximum replies per comment")
	drafts := flag.Float64("drafts", defaults.DraftRatio, "Share of posts left unpublished")
	shouldClean := flag.Bool("clean", false, "Delete existing content before seeding")
	fast := flag.Bool("fast", false, "Store the password unhashed (local use only)")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}
	middleware.SetupLogger(cfg.Env)

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumPosts = *numPosts
	opts.MaxComments = *maxComments
	opts.MaxReplies = *maxReplies
	opts.DraftRatio = *drafts
	opts.Clean = *shouldClean
	opts.SkipBcrypt = *fast
	opts.RandSeed = *randSeed

	db, rdb, err := bootstrap.InitRuntime(context.Background(), cfg, bootstrap.Options{Seed: &opts})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if rdb != nil {
		// Cached accounts may predate a clean.
		if err := rdb.FlushDB(context.Background()).Err(); err != nil {
			log.Printf("Could not flush cache: %v", err)
		}
		_ = rdb.Close()
	}
	sqlDB, err := db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}

	log.Printf("Done. Seeded accounts use the password %q; the admin is %s", seed.DefaultPassword, seed.AdminEmail)
}
