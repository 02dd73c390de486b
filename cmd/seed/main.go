// seed inserts a password user into the local dev database.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
	"github.com/ErlanBelekov/accounts/internal/infrastructure/postgres"
	"golang.org/x/crypto/bcrypt"
)

const (
	seedEmail    = "kody@example.com"
	seedUsername = "kody"
	seedName     = "Kody"
	seedPassword = "kodylovesyou"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err = postgres.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	users := postgres.NewUserRepository(pool)

	if u, err := users.FindByUsername(ctx, seedUsername); err == nil {
		fmt.Println("Seed user already exists")
		printUser(u.ID)
		return
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		log.Fatalf("find user: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user, _, err := users.Create(ctx, domain.NewUser{
		Email:        seedEmail,
		Username:     seedUsername,
		Name:         seedName,
		PasswordHash: hash,
		ExpiresAt:    time.Now().Add(domain.SessionTTL),
	})
	if err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Println("Seed complete")
	printUser(user.ID)
}

func printUser(id string) {
	fmt.Println()
	fmt.Printf("  Username: %s\n", seedUsername)
	fmt.Printf("  Email:    %s\n", seedEmail)
	fmt.Printf("  Password: %s\n", seedPassword)
	fmt.Printf("  User ID:  %s\n", id)
	fmt.Println()
	fmt.Println("Log in:")
	fmt.Println()
	fmt.Println("  curl -si -c cookies.txt http://localhost:8080/login \\")
	fmt.Printf("    -d username=%s -d password=%s -d remember=on\n", seedUsername, seedPassword)
	fmt.Println()
	fmt.Println("  curl -s -b cookies.txt http://localhost:8080/settings/profile")
	fmt.Println()
	fmt.Println("Emailed codes are printed by the server when run with ENV=local LOG_LEVEL=debug.")
}
