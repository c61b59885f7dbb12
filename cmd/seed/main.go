package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/internal/app/repository"
	"github.com/madness-store/madness-backend/internal/db"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/madness-store/madness-backend/pkg/util"
	"gorm.io/gorm"
)

const batchSize = 500

// Imports a product catalog from an XLSX sheet and makes sure an admin
// account exists. ADMIN_EMAIL and ADMIN_PASSWORD select the admin.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <catalog.xlsx>")
	}
	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.Initialize(logger.ConfigFor(cfg.Server.Environment, cfg.Server.LogLevel))

	conn, err := db.Initialize(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := db.Seed(); err != nil {
		log.Fatal("Failed to seed defaults:", err)
	}

	ctx := context.Background()
	if err := ensureAdmin(ctx, repository.NewUserRepository(conn), os.Getenv("ADMIN_EMAIL"), os.Getenv("ADMIN_PASSWORD")); err != nil {
		log.Fatal("Failed to create admin account:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, summary, err := readCatalogFile(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", summary.Rows)
	fmt.Printf("  Products: %d\n", summary.Products)
	fmt.Printf("  Variants: %d\n", summary.Variants)
	fmt.Printf("  Skipped rows: %d\n", summary.Skipped)

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	productRepo := repository.NewProductRepository(conn)
	if err := productRepo.BulkCreate(ctx, products, batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Printf("Import completed: %d products\n", len(products))
}

// ensureAdmin creates a verified admin, or promotes an existing account.
func ensureAdmin(ctx context.Context, users repository.UserRepository, email, password string) error {
	if email == "" {
		fmt.Println("ADMIN_EMAIL not set, skipping admin account")
		return nil
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin() && existing.Verified {
			return nil
		}
		existing.Role = model.RoleAdmin
		existing.Verified = true
		return users.Update(ctx, existing)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	if len(password) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Store",
		LastName:     "Admin",
		Role:         model.RoleAdmin,
		Verified:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	fmt.Printf("Created admin account %s\n", email)
	return nil
}
