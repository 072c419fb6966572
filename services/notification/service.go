package notification

import (
	"fmt"
	"strconv"
	"time"

	"repair-ops/httpServices/push"
	"repair-ops/logger"
	notificationModel "repair-ops/models/notification"
	"repair-ops/models/user"
	"repair-ops/utils"

	"gorm.io/gorm"
)

// NotificationService persists per-user notification rows and fans the same
// message out to the user's registered devices. Push delivery is
// best-effort; the row is the source of truth.
type NotificationService struct {
	DB   *gorm.DB
	Push *push.Client
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, pushClient *push.Client) *NotificationService {
	return &NotificationService{DB: db, Push: pushClient}
}

// Notify stores one notification for a user and pushes it to their devices.
func (s *NotificationService) Notify(userID uint, notifType, title, body string, referenceID uint) error {
	row := notificationModel.Notification{
		UserID:      userID,
		Type:        notifType,
		Title:       title,
		Body:        body,
		ReferenceID: referenceID,
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	s.pushToUsers([]uint{userID}, notifType, title, body, referenceID)
	return nil
}

// NotifyRole stores the same notification for every active user holding one
// of the given roles, then pushes to all their devices in one multicast.
func (s *NotificationService) NotifyRole(roles []string, notifType, title, body string, referenceID uint) error {
	var users []user.User
	if err := s.DB.Where("role IN ? AND deleted_at IS NULL", roles).Find(&users).Error; err != nil {
		return fmt.Errorf("failed to load role recipients: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	rows := make([]notificationModel.Notification, 0, len(users))
	userIDs := make([]uint, 0, len(users))
	for _, u := range users {
		rows = append(rows, notificationModel.Notification{
			UserID:      u.ID,
			Type:        notifType,
			Title:       title,
			Body:        body,
			ReferenceID: referenceID,
		})
		userIDs = append(userIDs, u.ID)
	}
	if err := s.DB.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to store role notifications: %w", err)
	}

	s.pushToUsers(userIDs, notifType, title, body, referenceID)
	return nil
}

// pushToUsers decrypts the device tokens of the given users and multicasts.
func (s *NotificationService) pushToUsers(userIDs []uint, notifType, title, body string, referenceID uint) {
	if s.Push == nil {
		return
	}

	var devices []notificationModel.DeviceToken
	if err := s.DB.Where("user_id IN ?", userIDs).Find(&devices).Error; err != nil {
		logger.Error("Failed to load device tokens for push", err)
		return
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		token, err := utils.DecryptData(d.TokenEnc)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to decrypt device token %d", d.ID), err)
			continue
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return
	}

	result, err := s.Push.SendMulticast(push.MulticastMessage{
		Tokens: tokens,
		Title:  title,
		Body:   body,
		Data: map[string]string{
			"type":         notifType,
			"reference_id": strconv.FormatUint(uint64(referenceID), 10),
		},
	})
	if err != nil {
		logger.Error("Push multicast failed", err)
		return
	}
	if result.FailureCount > 0 {
		logger.Warning(fmt.Sprintf("Push multicast: %d delivered, %d failed", result.SuccessCount, result.FailureCount))
	}
}

// List returns a user's notifications newest-first, optionally unread only.
func (s *NotificationService) List(userID uint, unreadOnly bool, limit, offset int) ([]notificationModel.Notification, int64, error) {
	db := s.DB.Model(&notificationModel.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("read_at IS NULL")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []notificationModel.Notification
	err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

// MarkRead sets the read marker on one of the user's notifications.
func (s *NotificationService) MarkRead(userID, notificationID uint) error {
	now := time.Now()
	res := s.DB.Model(&notificationModel.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead sets the read marker on every unread notification of a user.
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	now := time.Now()
	res := s.DB.Model(&notificationModel.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

// RegisterDevice stores (or refreshes) a push device token for a user. The
// raw token is encrypted at rest; the hash makes re-registrations idempotent.
func (s *NotificationService) RegisterDevice(userID uint, rawToken, platform string) (*notificationModel.DeviceToken, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("device token is required")
	}

	tokenHash := utils.HashToken(rawToken)
	now := time.Now()

	var existing notificationModel.DeviceToken
	err := s.DB.Where("token_hash = ?", tokenHash).First(&existing).Error
	if err == nil {
		// Token already known: re-own it for the current user.
		existing.UserID = userID
		existing.Platform = platform
		existing.LastSeenAt = &now
		if err := s.DB.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	tokenEnc, err := utils.EncryptData(rawToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt device token: %w", err)
	}

	device := notificationModel.DeviceToken{
		UserID:     userID,
		TokenEnc:   tokenEnc,
		TokenHash:  tokenHash,
		Platform:   platform,
		LastSeenAt: &now,
	}
	if err := s.DB.Create(&device).Error; err != nil {
		return nil, err
	}
	return &device, nil
}

// RemoveDevice deletes a registered token, matched by its hash.
func (s *NotificationService) RemoveDevice(userID uint, rawToken string) error {
	tokenHash := utils.HashToken(rawToken)
	res := s.DB.Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Delete(&notificationModel.DeviceToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
