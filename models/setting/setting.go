package setting

import (
	"strconv"
	"time"

	"gorm.io/gorm"
)

// Well-known setting keys.
const (
	KeyPointEarnRate    = "point_earn_rate"    // percent of a paid amount earned as points
	KeyPointValidMonths = "point_valid_months" // months until earned points expire
	KeyMergeEnabled     = "merge_enabled"
	KeySiteNotice       = "site_notice"
)

// Setting is one typed key/value row.
type Setting struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Key       string    `gorm:"column:setting_key;type:varchar(100);not null;uniqueIndex" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"type:varchar(20);not null" json:"type"` // string, boolean, integer
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetString returns the value for key, or def when the key is missing.
func GetString(db *gorm.DB, key, def string) string {
	var s Setting
	if err := db.Where("setting_key = ?", key).First(&s).Error; err != nil {
		return def
	}
	return s.Value
}

// GetInt returns the integer value for key, or def on a missing key or a
// non-numeric value.
func GetInt(db *gorm.DB, key string, def int) int {
	v := GetString(db, key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetBool returns the boolean value for key, or def when missing.
func GetBool(db *gorm.DB, key string, def bool) bool {
	v := GetString(db, key, "")
	if v == "" {
		return def
	}
	return v == "true" || v == "1"
}

// Put creates or updates the row for key.
func Put(db *gorm.DB, key, value, valueType string) error {
	var s Setting
	err := db.Where("setting_key = ?", key).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&Setting{Key: key, Value: value, Type: valueType}).Error
	}
	if err != nil {
		return err
	}
	s.Value = value
	s.Type = valueType
	return db.Save(&s).Error
}
