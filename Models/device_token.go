package Models

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// DeviceToken maps a user to the FCM registration token of their phone.
// One row per user; re-registering replaces the token in place.
type DeviceToken struct {
	gorm.Model
	UserID uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	Token  string `json:"token" gorm:"size:255;not null"`
}

// UpsertDeviceToken stores the latest push token for a user.
func UpsertDeviceToken(db *gorm.DB, userID uint, token string) error {
	var existing DeviceToken
	err := db.Where("user_id = ?", userID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&DeviceToken{UserID: userID, Token: token}).Error
	}
	if err != nil {
		return err
	}
	existing.Token = token
	return db.Save(&existing).Error
}

type UpdateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// UpdateToken registers the caller's device for push notifications. The
// app calls this on every launch since FCM rotates tokens.
func UpdateToken(c *fiber.Ctx) error {
	var req UpdateTokenRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Token value is required",
		})
	}

	user, ok := c.Locals("user").(User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not logged in",
		})
	}

	if err := UpsertDeviceToken(DB, user.Id, req.Token); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create/update token",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Token updated successfully",
	})
}

// TokensForUsers returns the push tokens registered for the given users.
func TokensForUsers(db *gorm.DB, userIDs []uint) ([]string, error) {
	var rows []DeviceToken
	if err := db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(rows))
	for _, row := range rows {
		tokens = append(tokens, row.Token)
	}
	return tokens, nil
}
