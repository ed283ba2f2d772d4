package Apis

import (
	"Aegis/Models"
	"log"

	"github.com/gofiber/fiber/v2"
)

// GetTechnicians returns the approved accounts for the assignment
// dropdowns.
func GetTechnicians(c *fiber.Ctx) error {
	var technicians []Models.User
	if err := Models.DB.Where("is_approved = ?", 1).
		Order("name ASC").Find(&technicians).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(technicians)
}

// GetPendingRequests lists accounts waiting for approval.
func GetPendingRequests(c *fiber.Ctx) error {
	var pending []Models.User
	if err := Models.DB.Where("is_approved = ?", 0).
		Order("created_at ASC").Find(&pending).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(pending)
}

// ApproveRequest accepts a pending account, optionally setting its
// permission level in the same call.
func ApproveRequest(c *fiber.Ctx) error {
	var inputJson struct {
		ID         uint `json:"id"`
		Permission int  `json:"permission"`
	}
	if err := c.BodyParser(&inputJson); err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var user Models.User
	if err := Models.DB.First(&user, inputJson.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if user.IsApproved == 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "User is already approved",
		})
	}

	user.IsApproved = 1
	if inputJson.Permission >= Models.PermissionTechnician && inputJson.Permission <= Models.PermissionAdmin {
		user.Permission = inputJson.Permission
	}
	if err := Models.DB.Save(&user).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Request Approved Successfully",
	})
}

// RejectRequest removes a pending account.
func RejectRequest(c *fiber.Ctx) error {
	var inputJson struct {
		ID uint `json:"id"`
	}
	if err := c.BodyParser(&inputJson); err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var user Models.User
	if err := Models.DB.First(&user, inputJson.ID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if user.IsApproved == 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot reject an approved account",
		})
	}

	if err := Models.DB.Unscoped().Delete(&user).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Request Rejected Successfully",
	})
}

// UpdatePermission changes one account's permission level.
func UpdatePermission(c *fiber.Ctx) error {
	var inputJson struct {
		ID         uint `json:"id"`
		Permission int  `json:"permission"`
	}
	if err := c.BodyParser(&inputJson); err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if inputJson.Permission < Models.PermissionTechnician || inputJson.Permission > Models.PermissionAdmin {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Permission must be between 1 and 4",
		})
	}

	if err := Models.DB.Model(&Models.User{}).
		Where("id = ?", inputJson.ID).
		Update("permission", inputJson.Permission).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Permission Updated Successfully",
	})
}

// GetPhotoAlbum collects every photo of an intervention grouped by zone,
// plus the signature, for the dashboard's gallery view.
func GetPhotoAlbum(c *fiber.Ctx) error {
	var inputJson struct {
		InterventionID uint `json:"intervention_id"`
	}
	if err := c.BodyParser(&inputJson); err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var intervention Models.Intervention
	if err := Models.DB.First(&intervention, inputJson.InterventionID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Intervention not found",
		})
	}

	var zones []Models.InstallationZone
	if err := Models.DB.Where("intervention_id = ?", intervention.ID).
		Order("zone_order ASC").Find(&zones).Error; err != nil {
		log.Println(err.Error())
		return c.JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	type zoneAlbum struct {
		Zone   string   `json:"zone"`
		Photos []string `json:"photos"`
	}
	album := make([]zoneAlbum, 0, len(zones))
	for _, zone := range zones {
		album = append(album, zoneAlbum{
			Zone:   zone.Name,
			Photos: zone.PhotoList(),
		})
	}

	return c.JSON(fiber.Map{
		"album":     album,
		"signature": intervention.SignaturePath,
	})
}
