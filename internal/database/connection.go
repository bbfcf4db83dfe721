// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/models"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return DB, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.ContractType{},
		&models.AmountRange{},
		&models.ContractPhase{},
		&models.PhaseTypeOverride{},
		&models.Department{},
		&models.DepartmentPermission{},
		&models.Contract{},
		&models.PhaseOccurrence{},
		&models.ContractDocument{},
		&models.PhaseNotification{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// gen_random_uuid() lives in pgcrypto before PostgreSQL 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Catalog indexes
		"CREATE INDEX IF NOT EXISTS idx_amount_ranges_lookup ON amount_ranges(object_category, is_active, min_amount)",
		"CREATE INDEX IF NOT EXISTS idx_contract_phases_sequence ON contract_phases(phase_order, category) WHERE is_active AND deleted_at IS NULL",
		// Only one active phase may hold an (order, category) slot
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_phases_slot ON contract_phases(phase_order, category) WHERE is_active AND deleted_at IS NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_contract_phases_code ON contract_phases(code) WHERE deleted_at IS NULL",

		// Contract indexes
		"CREATE INDEX IF NOT EXISTS idx_contracts_department_status ON contracts(department_id, general_status)",
		"CREATE INDEX IF NOT EXISTS idx_contracts_type_status ON contracts(contract_type_code, general_status)",
		"CREATE INDEX IF NOT EXISTS idx_contracts_created_at ON contracts(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_occurrences_status ON contract_phase_occurrences(status, start_date)",
		"CREATE INDEX IF NOT EXISTS idx_contract_documents_phase ON contract_documents(contract_id, phase_code, status)",

		// Permission indexes
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_department_permissions ON department_permissions(user_id, department_id, category, action) WHERE deleted_at IS NULL",

		// Admin indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_phase_notifications_status ON phase_notifications(status, due_date)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the administration department the first time the
// service starts. Catalog seeding goes through the catalog services so every
// entry is validated.
func SeedInitialData(db *gorm.DB) error {
	logrus.Info("Seeding initial data...")

	err := WithTransaction(db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Department{}).Where("code = ?", "ADMIN").Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count departments: %w", err)
		}
		if count > 0 {
			return nil
		}

		admin := &models.Department{
			Code:     "ADMIN",
			Name:     "Dirección Administrativa",
			IsActive: true,
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin department: %w", err)
		}
		logrus.Info("Default administration department created successfully")
		return nil
	})
	if err != nil {
		return err
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// WithTransaction runs fn in a transaction, rolling back on error or panic.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
