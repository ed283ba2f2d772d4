package Controllers

import (
	"Aegis/Models"
	"Aegis/Whatsapp"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
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

type InterventionHandler struct {
	DB *gorm.DB
}

func NewInterventionHandler(db *gorm.DB) *InterventionHandler {
	return &InterventionHandler{DB: db}
}

type SaveStepDraftRequest struct {
	CollectedData datatypes.JSON `json:"collected_data"`
	Notes         string         `json:"notes"`
}

type UploadSignatureRequest struct {
	ImageBase64 string `json:"image_base64"`
}

// loadTree fetches an intervention with steps and zones in wizard order.
func (h *InterventionHandler) loadTree(db *gorm.DB, id uint) (Models.Intervention, error) {
	var intervention Models.Intervention
	err := db.Preload("Steps", func(db *gorm.DB) *gorm.DB {
		return db.Order("step_order ASC")
	}).Preload("Zones", func(db *gorm.DB) *gorm.DB {
		return db.Order("zone_order ASC")
	}).First(&intervention, id).Error
	return intervention, err
}

// StartIntervention opens the guided workflow for a task. Calling it on
// a task that already has an intervention returns the existing one, so a
// technician tapping "start" twice never forks the session.
// POST /api/tasks/:id/intervention/start
func (h *InterventionHandler) StartIntervention(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var task Models.Task
	if err := h.DB.First(&task, taskID).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	if Models.IsTerminalTaskStatus(task.Status) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Task is in a terminal state",
		})
	}

	var existing Models.Intervention
	if err := h.DB.Where("task_id = ?", task.ID).First(&existing).Error; err == nil {
		tree, err := h.loadTree(h.DB, existing.ID)
		if err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load intervention",
				"error":   err.Error(),
			})
		}
		return c.JSON(tree)
	}

	tx := h.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	intervention := Models.Intervention{
		TaskID:    task.ID,
		Status:    Models.InterventionInProgress,
		StartedAt: time.Now(),
	}
	if err := tx.Create(&intervention).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create intervention",
			"error":   err.Error(),
		})
	}

	steps := Models.DefaultSteps(intervention.ID)
	steps[0].Status = Models.StepStatusInProgress
	if err := tx.Create(&steps).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create steps",
			"error":   err.Error(),
		})
	}

	// The zone plan on the task pre-seeds the panels to wrap.
	if len(task.ZonePlan) > 0 {
		var names []string
		if err := json.Unmarshal(task.ZonePlan, &names); err == nil {
			for i, name := range names {
				zone := Models.InstallationZone{
					InterventionID: intervention.ID,
					Name:           name,
					Status:         Models.StepStatusPending,
					Checklist:      Models.DefaultZoneChecklist(),
					ZoneOrder:      i + 1,
				}
				if err := tx.Create(&zone).Error; err != nil {
					tx.Rollback()
					return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
						"message": "Failed to create zones",
						"error":   err.Error(),
					})
				}
			}
		}
	}

	task.Status = Models.TaskStatusInProgress
	if err := tx.Save(&task).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update task",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to commit",
			"error":   err.Error(),
		})
	}

	tree, err := h.loadTree(h.DB, intervention.ID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load intervention",
			"error":   err.Error(),
		})
	}
	return c.Status(http.StatusCreated).JSON(tree)
}

// GetIntervention returns the full wizard state.
// GET /api/interventions/:id
func (h *InterventionHandler) GetIntervention(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}

	tree, err := h.loadTree(h.DB, uint(id))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Intervention not found",
		})
	}
	return c.JSON(tree)
}

// SelectStep makes one step the active screen. Any other step that was
// in progress goes back to pending, so exactly one step is ever active.
// Completed and skipped steps can be opened for review but keep their
// status.
// POST /api/interventions/:id/steps/:stepId/select
func (h *InterventionHandler) SelectStep(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	stepID, err := strconv.ParseUint(c.Params("stepId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid step ID",
		})
	}

	var step Models.InterventionStep
	if err := h.DB.Where("id = ? AND intervention_id = ?", stepID, interventionID).First(&step).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Step not found",
		})
	}

	switch step.Status {
	case Models.StepStatusPending:
		if err := h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&Models.InterventionStep{}).
				Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
				Update("status", Models.StepStatusPending).Error; err != nil {
				return err
			}
			return tx.Model(&step).Update("status", Models.StepStatusInProgress).Error
		}); err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to select step",
				"error":   err.Error(),
			})
		}
		step.Status = Models.StepStatusInProgress
	case Models.StepStatusCompleted, Models.StepStatusSkipped:
		// Opening a closed step is a read-only review; the active step is
		// deselected so nothing stays in progress behind the reader.
		if err := h.DB.Model(&Models.InterventionStep{}).
			Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
			Update("status", Models.StepStatusPending).Error; err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to select step",
				"error":   err.Error(),
			})
		}
	}

	return c.JSON(step)
}

// SaveStepDraft autosaves the step form. The payload is hashed first;
// when nothing changed since the last save the handler acknowledges
// without touching the row, so the client's retry loop stays cheap.
// PUT /api/interventions/:id/steps/:stepId/draft
func (h *InterventionHandler) SaveStepDraft(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	stepID, err := strconv.ParseUint(c.Params("stepId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid step ID",
		})
	}

	var req SaveStepDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var step Models.InterventionStep
	if err := h.DB.Where("id = ? AND intervention_id = ?", stepID, interventionID).First(&step).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Step not found",
		})
	}

	if step.Status == Models.StepStatusCompleted || step.Status == Models.StepStatusSkipped {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Step is already closed",
		})
	}

	digest := Models.DigestCollectedData(req.CollectedData, req.Notes)
	if digest == step.CollectedHash {
		return c.JSON(fiber.Map{
			"unchanged": true,
			"step":      step,
		})
	}

	// A draft is not a selection: the step keeps whatever status it
	// has so the wizard's single active step stays whichever one
	// SelectStep or auto-advance made active.
	step.CollectedData = req.CollectedData
	step.Notes = req.Notes
	step.CollectedHash = digest

	if err := h.DB.Save(&step).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to save draft",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"unchanged": false,
		"step":      step,
	})
}

// ValidateStep marks a step completed once its requirements hold: the
// installation step needs every zone completed, the other steps need
// their form checklist fully ticked. On success the next pending step
// becomes active.
// POST /api/interventions/:id/steps/:stepId/validate
func (h *InterventionHandler) ValidateStep(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	stepID, err := strconv.ParseUint(c.Params("stepId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid step ID",
		})
	}

	var step Models.InterventionStep
	if err := h.DB.Where("id = ? AND intervention_id = ?", stepID, interventionID).First(&step).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Step not found",
		})
	}

	if step.Status == Models.StepStatusCompleted {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Step already completed",
		})
	}

	if step.StepType == Models.StepInstallation {
		var zones []Models.InstallationZone
		if err := h.DB.Where("intervention_id = ?", interventionID).Find(&zones).Error; err != nil {
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to load zones",
				"error":   err.Error(),
			})
		}
		if len(zones) == 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "No installation zones defined",
			})
		}
		var open []string
		for _, zone := range zones {
			if zone.Status != Models.StepStatusCompleted {
				open = append(open, zone.Name)
			}
		}
		if len(open) > 0 {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Zones not completed",
				"zones":   open,
			})
		}
	} else {
		ok, missing := step.StepCollectedChecklistComplete()
		if !ok {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Step checklist incomplete",
				"reasons": missing,
			})
		}
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		step.Status = Models.StepStatusCompleted
		step.QualityCheckPassed = true
		if err := tx.Save(&step).Error; err != nil {
			return err
		}
		return advanceNextStep(tx, uint(interventionID))
	}); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to validate step",
			"error":   err.Error(),
		})
	}

	tree, err := h.loadTree(h.DB, uint(interventionID))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load intervention",
			"error":   err.Error(),
		})
	}
	return c.JSON(tree)
}

// SkipStep skips an optional step. Mandatory steps refuse.
// POST /api/interventions/:id/steps/:stepId/skip
func (h *InterventionHandler) SkipStep(c *fiber.Ctx) error {
	interventionID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}
	stepID, err := strconv.ParseUint(c.Params("stepId"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid step ID",
		})
	}

	var step Models.InterventionStep
	if err := h.DB.Where("id = ? AND intervention_id = ?", stepID, interventionID).First(&step).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Step not found",
		})
	}

	if step.Mandatory {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Mandatory steps cannot be skipped",
		})
	}
	if step.Status == Models.StepStatusCompleted {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Step already completed",
		})
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		step.Status = Models.StepStatusSkipped
		if err := tx.Save(&step).Error; err != nil {
			return err
		}
		return advanceNextStep(tx, uint(interventionID))
	}); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to skip step",
			"error":   err.Error(),
		})
	}

	tree, err := h.loadTree(h.DB, uint(interventionID))
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load intervention",
			"error":   err.Error(),
		})
	}
	return c.JSON(tree)
}

// advanceNextStep promotes the first pending step when no step is
// currently active.
func advanceNextStep(tx *gorm.DB, interventionID uint) error {
	var active int64
	if err := tx.Model(&Models.InterventionStep{}).
		Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusInProgress).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return nil
	}

	var next Models.InterventionStep
	err := tx.Where("intervention_id = ? AND status = ?", interventionID, Models.StepStatusPending).
		Order("step_order ASC").First(&next).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return tx.Model(&next).Update("status", Models.StepStatusInProgress).Error
}

// UploadSignature stores the customer's sign-off image for the
// intervention. Accepts a multipart "signature" file or a base64 JSON
// body from the canvas widget. Images are normalized to PNG and capped
// in size before hitting disk.
// POST /api/interventions/:id/signature
func (h *InterventionHandler) UploadSignature(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}

	var intervention Models.Intervention
	if err := h.DB.First(&intervention, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Intervention not found",
		})
	}
	if intervention.Status == Models.InterventionCompleted {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var raw []byte
	if file, err := c.FormFile("signature"); err == nil {
		opened, err := file.Open()
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Failed to read signature file",
			})
		}
		defer opened.Close()
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(opened); err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Failed to read signature file",
			})
		}
		raw = buf.Bytes()
	} else {
		var req UploadSignatureRequest
		if err := c.BodyParser(&req); err != nil || req.ImageBase64 == "" {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "No signature provided",
			})
		}
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid base64 image",
			})
		}
		raw = decoded
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Unsupported image format",
		})
	}
	if img.Bounds().Dx() > 1200 {
		img = imaging.Resize(img, 1200, 0, imaging.Lanczos)
	}

	if err := os.MkdirAll("./SignatureImages", 0755); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to prepare storage",
		})
	}
	filename := fmt.Sprintf("signature_%d_%d.png", intervention.ID, time.Now().Unix())
	path := filepath.Join("./SignatureImages", filename)
	if err := imaging.Save(img, path); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to save signature",
			"error":   err.Error(),
		})
	}

	intervention.SignaturePath = "/SignatureImages/" + filename
	if err := h.DB.Save(&intervention).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update intervention",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message":        "Signature saved",
		"signature_path": intervention.SignaturePath,
	})
}

// FinalizeIntervention closes the session. Every step must be completed
// or skipped and the customer signature must be on file. The task flips
// to completed in the same transaction; the customer ping goes out after
// commit so a dead gateway can't block the close.
// POST /api/interventions/:id/finalize
func (h *InterventionHandler) FinalizeIntervention(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}

	tx := h.DB.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	intervention, err := h.loadTree(tx, uint(id))
	if err != nil {
		tx.Rollback()
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Intervention not found",
		})
	}

	if intervention.Status == Models.InterventionCompleted {
		tx.Rollback()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	var open []string
	for _, step := range intervention.Steps {
		if step.Status != Models.StepStatusCompleted && step.Status != Models.StepStatusSkipped {
			open = append(open, step.StepType)
		}
	}
	if len(open) > 0 {
		tx.Rollback()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Steps not completed",
			"steps":   open,
		})
	}

	if intervention.SignaturePath == "" {
		tx.Rollback()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Customer signature required",
		})
	}

	now := time.Now()
	intervention.Status = Models.InterventionCompleted
	intervention.CompletedAt = &now
	if err := tx.Save(&intervention).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to finalize intervention",
			"error":   err.Error(),
		})
	}

	var task Models.Task
	if err := tx.First(&task, intervention.TaskID).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load task",
			"error":   err.Error(),
		})
	}
	task.Status = Models.TaskStatusCompleted
	if err := tx.Save(&task).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update task",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to commit",
			"error":   err.Error(),
		})
	}

	if task.CustomerPhone != "" {
		vehicle := fmt.Sprintf("%s %s", task.VehicleMake, task.VehicleModel)
		go func() {
			if err := Whatsapp.SendVehicleReady(task.CustomerPhone, task.CustomerName, vehicle); err != nil {
				log.Printf("vehicle ready message failed: %v", err)
			}
		}()
	}

	return c.JSON(fiber.Map{
		"message":      "Intervention completed",
		"intervention": intervention,
	})
}

// ResumeIntervention restores the wizard after an app restart: the full
// tree, which step and zone were active, and the autosave debounce the
// client should use.
// GET /api/tasks/:id/intervention/resume
func (h *InterventionHandler) ResumeIntervention(c *fiber.Ctx) error {
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var task Models.Task
	if err := h.DB.First(&task, taskID).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	var intervention Models.Intervention
	if err := h.DB.Where("task_id = ?", task.ID).First(&intervention).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "No intervention in progress",
		})
	}

	if intervention.Status == Models.InterventionCompleted {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Intervention already completed",
		})
	}

	tree, err := h.loadTree(h.DB, intervention.ID)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load intervention",
			"error":   err.Error(),
		})
	}

	var activeStepID, activeZoneID uint
	for _, step := range tree.Steps {
		if step.Status == Models.StepStatusInProgress {
			activeStepID = step.ID
			break
		}
	}
	for _, zone := range tree.Zones {
		if zone.Status == Models.StepStatusInProgress {
			activeZoneID = zone.ID
			break
		}
	}

	settings, err := Models.GetShopSettings(h.DB)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load settings",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"task":              task,
		"intervention":      tree,
		"active_step_id":    activeStepID,
		"active_zone_id":    activeZoneID,
		"autosave_quiet_ms": settings.AutosaveQuietMS,
	})
}

// PrintInterventionSheet renders the printable job sheet handed to the
// customer at pickup.
// GET /intervention/:id/print
func (h *InterventionHandler) PrintInterventionSheet(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid intervention ID",
		})
	}

	tree, err := h.loadTree(h.DB, uint(id))
	if err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Intervention not found",
		})
	}

	var task Models.Task
	if err := h.DB.First(&task, tree.TaskID).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	completedAt := ""
	if tree.CompletedAt != nil {
		completedAt = tree.CompletedAt.Format("2006-01-02 15:04")
	}

	type zoneRow struct {
		Name         string
		FilmSpec     string
		Area         float64
		QualityScore string
		PhotoCount   int
	}
	zones := make([]zoneRow, 0, len(tree.Zones))
	for _, zone := range tree.Zones {
		score := "-"
		if zone.QualityScore != nil {
			score = fmt.Sprintf("%.1f", *zone.QualityScore)
		}
		zones = append(zones, zoneRow{
			Name:         zone.Name,
			FilmSpec:     zone.FilmSpec,
			Area:         zone.Area,
			QualityScore: score,
			PhotoCount:   len(zone.PhotoList()),
		})
	}

	return c.Render("intervention", fiber.Map{
		"Task":          task,
		"Intervention":  tree,
		"Zones":         zones,
		"CompletedAt":   completedAt,
		"StartedAt":     tree.StartedAt.Format("2006-01-02 15:04"),
		"SignaturePath": tree.SignaturePath,
		"PrintedAt":     time.Now().Format("2006-01-02 15:04"),
	})
}
