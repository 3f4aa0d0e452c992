package db

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rentledger/rentledger/internal/models"
)

// ConnectAndMigrate opens the postgres database with retries and brings the
// schema up to date. MIGRATIONS=1 runs SQL migrations via golang-migrate;
// otherwise gorm AutoMigrate is used as the dev convenience path.
func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}
	var db *gorm.DB
	var err error
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	// Basic connectivity test
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	// Print masked DSN once for diagnostics (before migrations for visibility)
	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)

	if v := strings.ToLower(os.Getenv("MIGRATIONS")); v == "1" || v == "true" || v == "yes" {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"roles", "users", "rooms", "invoices"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	// Seeding only when explicitly requested (e.g. development) via DB_SEED=1|true
	if v := strings.ToLower(os.Getenv("DB_SEED")); v == "1" || v == "true" || v == "yes" {
		Seed(db)
	}
	return db, nil
}

// AutoMigrate migrates every model, in dependency order.
func AutoMigrate(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Role{}, &models.User{}, &models.Room{}, &models.Tenant{},
		&models.CatalogItem{}, &models.Invoice{}, &models.InvoiceLine{}, &models.Payment{},
	}
	for _, m := range modelsToMigrate {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

// Seed inserts baseline roles and catalog items if they are missing.
// Safe to run repeatedly.
func Seed(db *gorm.DB) {
	baseRoles := []models.Role{
		{Name: "admin", Description: "Full access", Permissions: "*:*"},
		{Name: "manager", Description: "Manage tenants, rooms, invoices and payments", Permissions: "tenant:*,room:*,item:*,invoice:*,payment:*"},
		{Name: "viewer", Description: "Read-only access", Permissions: "*:view,*:list"},
	}
	for _, role := range baseRoles {
		var existing models.Role
		if err := db.Where("name = ?", role.Name).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&role)
		}
	}
	baseItems := []models.CatalogItem{
		{Code: "WATER", Name: "Water usage", UnitOfMeasure: "m3", UnitPrice: decimal.NewFromFloat(2.50), TaxPercent: decimal.NewFromInt(10), Category: "utilities"},
		{Code: "POWER", Name: "Electricity usage", UnitOfMeasure: "kWh", UnitPrice: decimal.NewFromFloat(0.30), TaxPercent: decimal.NewFromInt(10), Category: "utilities"},
		{Code: "TRASH", Name: "Waste collection", UnitOfMeasure: "month", UnitPrice: decimal.NewFromInt(5), TaxPercent: decimal.Zero, Category: "services"},
		{Code: "CLEAN", Name: "Common area cleaning", UnitOfMeasure: "month", UnitPrice: decimal.NewFromInt(10), TaxPercent: decimal.Zero, Category: "services"},
		{Code: "LATE", Name: "Late payment penalty", UnitOfMeasure: "unit", UnitPrice: decimal.NewFromInt(25), TaxPercent: decimal.Zero, Category: "penalties"},
	}
	for _, item := range baseItems {
		var existing models.CatalogItem
		if err := db.Where("code = ?", item.Code).First(&existing).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			db.Create(&item)
		}
	}
}

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
