package Controllers

import (
	"Aegis/Models"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ZoneHandler struct {
	DB *gorm.DB
}

func NewZoneHandler(db *gorm.DB) *ZoneHandler {
	return &ZoneHandler{DB: db}
}

type AddZoneRequest struct {
	Name      string          `json:"name" validate:"required,max=100"`
	Area      float64         `json:"area"`
	FilmSpec  string          `json:"film_spec"`
	Checklist map[string]bool `json:"checklist"`
}

type UpdateZoneRequest struct {
	Checklist    *map[string]bool `json:"checklist"`
	QualityScore *float64         `json:"quality_score"`
	Notes        *string          `json:"notes"`
	FilmSpec     *string          `json:"film_spec"`
	Area         *float64         `json:"area"`
}

type AddZonePhotoURLsRequest struct {
	URLs []string `json:"urls"`
}

func (h *ZoneHandler) openIntervention(id uint64) (Models.Intervention, error) {
	var intervention Models.Intervention
	if err := h.DB.First(&intervention, id).Error; err != nil {
		return intervention, err
	}
	if intervention.Status == Models.InterventionCompleted {
		return intervention, fmt.Errorf("intervention already completed")
	}
	return intervention, nil
}

// AddZone adds a panel to the install. Zone names are unique within an
// intervention so the photo folders and the job sheet stay unambiguous.
// POST /api/interventions/:id/zones
func (h *ZoneHandler) AddZone(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var req AddZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	var duplicate int64
	h.DB.Model(&Models.InstallationZone{}).
		Where("intervention_id = ? AND name = ?", interventionID, req.Name).
		Count(&duplicate)
	if duplicate > 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "A zone with this name already exists",
		})
	}

	checklist := Models.DefaultZoneChecklist()
	if len(req.Checklist) > 0 {
		encoded, err := json.Marshal(req.Checklist)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid checklist",
			})
		}
		checklist = datatypes.JSON(encoded)
	}

	var maxOrder int
	h.DB.Model(&Models.InstallationZone{}).
		Where("intervention_id = ?", interventionID).
		Select("COALESCE(MAX(zone_order), 0)").Scan(&maxOrder)

	zone := Models.InstallationZone{
		InterventionID: uint(interventionID),
		Name:           req.Name,
		Area:           req.Area,
		FilmSpec:       req.FilmSpec,
		Status:         Models.StepStatusPending,
		Checklist:      checklist,
		ZoneOrder:      maxOrder + 1,
	}
	if err := h.DB.Create(&zone).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create zone",
			"error":   err.Error(),
		})
	}

	return c.Status(http.StatusCreated).JSON(zone)
}

// SelectZone makes one zone the active panel, demoting whichever zone
// was in progress. Completed zones open read-only and keep their status.
// POST /api/interventions/:id/zones/:zoneId/select
func (h *ZoneHandler) SelectZone(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	zoneID, err := strconv.ParseUint(c.Params("zoneId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid zone ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var zone Models.InstallationZone
	if err := h.DB.Where("id = ? AND intervention_id = ?", zoneID, interventionID).First(&zone).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Zone not found",
		})
	}

	switch zone.Status {
	case Models.StepStatusPending:
		if err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&Models.InstallationZone{}).
				Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
				Update("status", Models.StepStatusPending).Error; err != nil {
				return err
			}
			return tx.Model(&zone).Update("status", Models.StepStatusInProgress).Error
		}); err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to select zone",
				"error":   err.Error(),
			})
		}
		zone.Status = Models.StepStatusInProgress
	case Models.StepStatusCompleted:
		// Reviewing a finished zone deselects whatever was active; nothing
		// is left in progress until the installer picks an open zone.
		if err := h.DB.Model(&Models.InstallationZone{}).
			Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
			Update("status", Models.StepStatusPending).Error; err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to select zone",
				"error":   err.Error(),
			})
		}
	}

	return c.JSON(zone)
}

// UpdateZone applies the provided zone fields. Quality scores live on a
// 0-10 scale.
// PUT /api/interventions/:id/zones/:zoneId
func (h *ZoneHandler) UpdateZone(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	zoneID, err := strconv.ParseUint(c.Params("zoneId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid zone ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var req UpdateZoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var zone Models.InstallationZone
	if err := h.DB.Where("id = ? AND intervention_id = ?", zoneID, interventionID).First(&zone).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Zone not found",
		})
	}

	if req.QualityScore != nil {
		if *req.QualityScore < 0 || *req.QualityScore > 10 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Quality score must be between 0 and 10",
			})
		}
		zone.QualityScore = req.QualityScore
	}
	if req.Checklist != nil {
		encoded, err := json.Marshal(*req.Checklist)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid checklist",
			})
		}
		zone.Checklist = datatypes.JSON(encoded)
	}
	if req.Notes != nil {
		zone.Notes = *req.Notes
	}
	if req.FilmSpec != nil {
		zone.FilmSpec = *req.FilmSpec
	}
	if req.Area != nil {
		zone.Area = *req.Area
	}

	if err := h.DB.Save(&zone).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update zone",
			"error":   err.Error(),
		})
	}

	return c.JSON(zone)
}

// UploadZonePhotos attaches photos to a zone, either as multipart files
// (normalized and resized before storage) or as already-hosted URLs.
// POST /api/interventions/:id/zones/:zoneId/photos
func (h *ZoneHandler) UploadZonePhotos(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	zoneID, err := strconv.ParseUint(c.Params("zoneId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid zone ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var zone Models.InstallationZone
	if err := h.DB.Where("id = ? AND intervention_id = ?", zoneID, interventionID).First(&zone).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Zone not found",
		})
	}

	photos := zone.PhotoList()

	if form, err := c.MultipartForm(); err == nil && form != nil && len(form.File["photos"]) > 0 {
		if err := os.MkdirAll("./ZonePhotos", 0755); err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to prepare storage",
			})
		}
		for i, fileHeader := range form.File["photos"] {
			file, err := fileHeader.Open()
			if err != nil {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{
					"message": fmt.Sprintf("Failed to read photo %s", fileHeader.Filename),
				})
			}
			img, err := imaging.Decode(file)
			file.Close()
			if err != nil {
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{
					"message": fmt.Sprintf("Unsupported image format: %s", fileHeader.Filename),
				})
			}
			if img.Bounds().Dx() > 1600 {
				img = imaging.Resize(img, 1600, 0, imaging.Lanczos)
			}
			filename := fmt.Sprintf("zone_%d_%d_%d.jpg", zone.ID, time.Now().Unix(), i)
			path := filepath.Join("./ZonePhotos", filename)
			if err := imaging.Save(img, path); err != nil {
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
					"message": "Failed to save photo",
					"error":   err.Error(),
				})
			}
			photos = append(photos, "/ZonePhotos/"+filename)
		}
	} else {
		var req AddZonePhotoURLsRequest
		if err := c.BodyParser(&req); err != nil || len(req.URLs) == 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "No photos provided",
			})
		}
		photos = append(photos, req.URLs...)
	}

	encoded, err := json.Marshal(photos)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to encode photos",
		})
	}
	zone.Photos = datatypes.JSON(encoded)

	if err := h.DB.Save(&zone).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update zone",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"photos": photos,
	})
}

// ValidateZone completes a zone once its checklist, quality score and
// photo count all hold. On success the next pending zone becomes active
// so the technician moves panel to panel without extra taps.
// POST /api/interventions/:id/zones/:zoneId/validate
func (h *ZoneHandler) ValidateZone(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	zoneID, err := strconv.ParseUint(c.Params("zoneId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid zone ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var zone Models.InstallationZone
	if err := h.DB.Where("id = ? AND intervention_id = ?", zoneID, interventionID).First(&zone).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Zone not found",
		})
	}

	if zone.Status == Models.StepStatusCompleted {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Zone already completed",
		})
	}

	settings, err := Models.GetShopSettings(h.DB)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load settings",
			"error":   err.Error(),
		})
	}

	ok, reasons := zone.CanValidate(settings.MinZonePhotos)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Zone requirements not met",
			"reasons": reasons,
		})
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		zone.Status = Models.StepStatusCompleted
		if err := tx.Save(&zone).Error; err != nil {
			return err
		}
		return advanceNextZone(tx, uint(interventionID))
	}); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to validate zone",
			"error":   err.Error(),
		})
	}

	var zones []Models.InstallationZone
	if err := h.DB.Where("intervention_id = ?", interventionID).
		Order("zone_order ASC").Find(&zones).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load zones",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"zone":  zone,
		"zones": zones,
	})
}

// DeleteZone removes a panel from the install and closes the gap in the
// ordering. Zones can only be removed while the intervention is open.
// DELETE /api/interventions/:id/zones/:zoneId
func (h *ZoneHandler) DeleteZone(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	zoneID, err := strconv.ParseUint(c.Params("zoneId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid zone ID",
		})
	}

	if _, err := h.openIntervention(interventionID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{
				"message": "Intervention not found",
			})
		}
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var zone Models.InstallationZone
	if err := h.DB.Where("id = ? AND intervention_id = ?", zoneID, interventionID).First(&zone).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Zone not found",
		})
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&zone).Error; err != nil {
			return err
		}
		return tx.Model(&Models.InstallationZone{}).
			Where("intervention_id = ? AND zone_order > ?", interventionID, zone.ZoneOrder).
			Update("zone_order", gorm.Expr("zone_order - 1")).Error
	}); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete zone",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Zone deleted",
	})
}

// advanceNextZone promotes the first pending zone when nothing is
// active.
func advanceNextZone(tx *gorm.DB, interventionID uint) error {
	var active int64
	if err := tx.Model(&Models.InstallationZone{}).
		Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return nil
	}

	var next Models.InstallationZone
	err := tx.Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusPending).
		Order("zone_order ASC").First(&next).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(&next).Update("status", Models.StepStatusInProgress).Error
}
