package database

import (
	"fmt"
	"os"

	"repair-ops/logger"
	"repair-ops/models/actionlog"
	"repair-ops/models/extracharge"
	"repair-ops/models/log"
	"repair-ops/models/media"
	"repair-ops/models/notice"
	"repair-ops/models/notification"
	"repair-ops/models/order"
	"repair-ops/models/payment"
	"repair-ops/models/points"
	"repair-ops/models/setting"
	"repair-ops/models/slipparser"
	"repair-ops/models/user"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the database connection with auto migration and indexing
func InitDB() (*gorm.DB, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", err)
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	database := os.Getenv("DB_DATABASE")
	dbUser := os.Getenv("DB_USERNAME")
	password := os.Getenv("DB_PASSWORD")
	sslmode := os.Getenv("DB_SSLMODE")

	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, dbUser, password, database, sslmode)

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to the database", err)
		return nil, err
	}
	logger.Success("Successfully connected to the database")

	if err := AutoMigrate(DB); err != nil {
		logger.Error("Failed to run migrations", err)
		return nil, err
	}
	logger.Success("All migrations completed successfully")

	if err := createIndexes(); err != nil {
		logger.Error("Failed to create indexes", err)
		return nil, err
	}
	logger.Success("All indexes created successfully")

	return DB, nil
}

// AutoMigrate runs auto migration for all models, in dependency order.
// Exposed so test fixtures can migrate an in-memory database the same way.
func AutoMigrate(db *gorm.DB) error {
	// Stage 1: core foundation models
	stage1Models := []interface{}{
		&user.User{},
		&setting.Setting{},
		&notice.Notice{},
	}

	for _, model := range stage1Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 2: models with dependencies on stage 1
	stage2Models := []interface{}{
		&order.Order{},
		&order.OrderStatusEvent{},
		&extracharge.ExtraChargeRequest{},
		&payment.Payment{},
		&points.PointTransaction{},
		&notification.Notification{},
		&notification.DeviceToken{},
		&media.Media{},
	}

	for _, model := range stage2Models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	// Stage 3: bookkeeping models
	remainingModels := []interface{}{
		&actionlog.ActionLog{},
		&log.Log{},
		&slipparser.SlipParserRequest{},
	}

	for _, model := range remainingModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", model, err)
		}
	}

	return nil
}

// createIndexes creates additional indexes for better performance
func createIndexes() error {
	indexes := []struct {
		name string
		sql  string
	}{
		{"idx_users_role_deleted", "CREATE INDEX IF NOT EXISTS idx_users_role_deleted ON users(role, deleted_at)"},
		{"idx_orders_status_created", "CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at)"},
		{"idx_orders_extra_charge_status", "CREATE INDEX IF NOT EXISTS idx_orders_extra_charge_status ON orders(extra_charge_status)"},
		{"idx_extra_charge_requests_order_status", "CREATE INDEX IF NOT EXISTS idx_extra_charge_requests_order_status ON extra_charge_requests(order_id, status)"},
		{"idx_point_transactions_user_created", "CREATE INDEX IF NOT EXISTS idx_point_transactions_user_created ON point_transactions(user_id, created_at)"},
		{"idx_point_transactions_expiry", "CREATE INDEX IF NOT EXISTS idx_point_transactions_expiry ON point_transactions(expires_at, expired)"},
		{"idx_notifications_user_read", "CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications(user_id, read_at)"},
		{"idx_media_waybill_type", "CREATE INDEX IF NOT EXISTS idx_media_waybill_type ON media(waybill_no, type)"},
		{"idx_action_logs_order_action", "CREATE INDEX IF NOT EXISTS idx_action_logs_order_action ON action_logs(order_id, action_type)"},
		{"idx_logs_created_at", "CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs(created_at)"},
	}

	for _, idx := range indexes {
		if err := DB.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
