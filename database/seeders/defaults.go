package seeders

import (
	"fmt"
	"os"

	"repair-ops/constants"
	"repair-ops/logger"
	"repair-ops/models/setting"
	"repair-ops/models/user"
	"repair-ops/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seed creates the bootstrap super-admin account and the default settings
// when they are missing. Safe to run on every startup.
func Seed(db *gorm.DB) error {
	if err := seedSuperAdmin(db); err != nil {
		return err
	}
	return seedSettings(db)
}

func seedSuperAdmin(db *gorm.DB) error {
	username := os.Getenv("SEED_ADMIN_USERNAME")
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if username == "" || password == "" {
		logger.Warning("SEED_ADMIN_USERNAME/SEED_ADMIN_PASSWORD not set, skipping super admin seed")
		return nil
	}

	var count int64
	if err := db.Model(&user.User{}).Where("role = ?", constants.RoleSuperAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash seed admin password: %w", err)
	}

	admin := user.User{
		Uuid:         uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		LegalName:    "System Administrator",
		Phone:        os.Getenv("SEED_ADMIN_PHONE"),
		Role:         constants.RoleSuperAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	logger.Success(fmt.Sprintf("Seeded super admin account: %s", username))
	return nil
}

func seedSettings(db *gorm.DB) error {
	defaults := []struct {
		key, value, valueType string
	}{
		{setting.KeyPointEarnRate, "1", "integer"},
		{setting.KeyPointValidMonths, "12", "integer"},
		{setting.KeyMergeEnabled, "true", "boolean"},
	}

	for _, d := range defaults {
		var s setting.Setting
		err := db.Where("setting_key = ?", d.key).First(&s).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&setting.Setting{Key: d.key, Value: d.value, Type: d.valueType}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}
