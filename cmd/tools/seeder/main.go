package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/backend-offers/internal/seed"
)

func main() {
	users := flag.Int("users", 10, "sample users to create, each with one empty cart")
	reset := flag.Bool("reset", false, "truncate every table before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin: %v", err)
	}
	defer func() { _ = tx.Rollback() }()

	if *reset {
		if _, err := tx.ExecContext(ctx, `TRUNCATE cart_items, carts, rules, items, users`); err != nil {
			log.Fatalf("Failed to reset: %v", err)
		}
		log.Println("Tables truncated")
	}

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM items`).Scan(&existing); err != nil {
		log.Fatalf("Failed to count items: %v", err)
	}
	if existing > 0 {
		log.Println("Catalog already present, nothing to do (use -reset to reseed)")
		return
	}

	seedCatalog(ctx, tx)
	seedRules(ctx, tx)
	seedUsers(ctx, tx, *users)

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}
	log.Println("Seeding completed successfully!")
}

func seedCatalog(ctx context.Context, tx *sql.Tx) {
	for _, it := range seed.Catalog() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (code, name, price) VALUES ($1, $2, $3)`,
			it.Code, it.Name, it.Price); err != nil {
			log.Fatalf("Failed to insert item %s: %v", it.Code, err)
		}
	}
	log.Printf("Seeded %d items", len(seed.Catalog()))
}

func seedRules(ctx context.Context, tx *sql.Tx) {
	rules := seed.Rules()
	for _, r := range rules {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (item_code, name, description, firing_operator, firing_threshold, effect_type, effect_percentage)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ItemCode, r.Name, r.Description, r.FiringOperator, r.FiringThreshold, r.EffectType, r.EffectPercentage); err != nil {
			log.Fatalf("Failed to insert rule %s: %v", r.Name, err)
		}
	}
	log.Printf("Seeded %d rules", len(rules))
}

func seedUsers(ctx context.Context, tx *sql.Tx, n int) {
	for i := 0; i < n; i++ {
		var id string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, fullname, nickname) VALUES ($1, $2, $3) RETURNING id`,
			fmt.Sprintf("name_%d", i), fmt.Sprintf("full_%d", i), fmt.Sprintf("nick_%d", i)).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to insert user %d: %v", i, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO carts (user_id) VALUES ($1)`, id); err != nil {
			log.Fatalf("Failed to insert cart for user %s: %v", id, err)
		}
	}
	log.Printf("Seeded %d users with carts", n)
}
