package Controllers

import (
	"Aegis/Models"
	"Aegis/Notifications"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CalendarHandler struct {
	DB *gorm.DB
}

func NewCalendarHandler(db *gorm.DB) *CalendarHandler {
	return &CalendarHandler{DB: db}
}

type CheckConflictsRequest struct {
	TaskID       uint   `json:"task_id"`
	TechnicianID uint   `json:"technician_id" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

type RescheduleTaskRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	TechnicianID *uint  `json:"technician_id"`
	Force        bool   `json:"force"`
}

// GetCalendarTasks returns the calendar projection of tasks in a date
// range. Archived tasks never show on the calendar.
// GET /api/calendar?from=...&to=...&technician_id=...
func (h *CalendarHandler) GetCalendarTasks(c *fiber.Ctx) error {
	from := c.Query("from")
	if from == "" {
		from = time.Now().Format("2006-01-02")
	}
	to := c.Query("to")
	if to == "" {
		to = from
	}

	query := h.DB.Model(&Models.Task{}).
		Where("scheduled_date >= ? AND scheduled_date <= ?", from, to).
		Where("status <> ?", Models.TaskStatusArchived)
	if technician := c.Query("technician_id"); technician != "" {
		query = query.Where("technician_id = ?", technician)
	}

	var tasks []Models.Task
	if err := query.Order("scheduled_date ASC, start_time ASC, id ASC").Find(&tasks).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch calendar",
			"error":   err.Error(),
		})
	}

	entries := make([]Models.CalendarTask, 0, len(tasks))
	for _, task := range tasks {
		entries = append(entries, Models.CalendarTaskFromTask(task))
	}

	return c.JSON(fiber.Map{
		"data": entries,
		"meta": fiber.Map{
			"from": from,
			"to":   to,
		},
	})
}

// CheckConflicts is the advisory check the scheduling dialog calls while
// the user drags a slot around. It never writes anything; the
// authoritative check happens again inside RescheduleTask.
// POST /api/calendar/check-conflicts
func (h *CalendarHandler) CheckConflicts(c *fiber.Ctx) error {
	var req CheckConflictsRequest
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

	window, err := Models.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	collisions, err := Models.FindCollisions(h.DB, req.TaskID, req.TechnicianID, req.Date, window)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to check for conflicts",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"conflict":   len(collisions) > 0,
		"collisions": collisions,
	})
}

// RescheduleTask moves a task to a new slot. The conflict check runs
// inside the transaction so two dispatchers grabbing the same slot can't
// both win; the loser gets a 409 with whatever is now in the way.
// POST /api/tasks/:id/reschedule
func (h *CalendarHandler) RescheduleTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var req RescheduleTaskRequest
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

	window, err := Models.NewTimeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": err.Error(),
		})
	}

	tx := h.DB.Begin()
	if tx.Error != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to start transaction",
		})
	}

	var task Models.Task
	if err := tx.First(&task, id).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	if Models.IsTerminalTaskStatus(task.Status) {
		tx.Rollback()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Cannot reschedule a task in a terminal state",
		})
	}

	technicianID := task.TechnicianID
	technicianName := task.TechnicianName
	if req.TechnicianID != nil {
		technicianID = *req.TechnicianID
		technicianName = ""
		if technicianID != 0 {
			var technician Models.User
			if err := tx.First(&technician, technicianID).Error; err != nil {
				tx.Rollback()
				return c.Status(http.StatusBadRequest).JSON(fiber.Map{
					"message": "Technician not found",
				})
			}
			technicianName = technician.Name
		}
	}

	if technicianID != 0 && !req.Force {
		collisions, err := Models.FindCollisions(tx, task.ID, technicianID, req.Date, window)
		if err != nil {
			tx.Rollback()
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to check for conflicts",
				"error":   err.Error(),
			})
		}
		if len(collisions) > 0 {
			tx.Rollback()
			return c.Status(http.StatusConflict).JSON(fiber.Map{
				"message":    "Schedule conflict",
				"collisions": collisions,
			})
		}
	}

	task.ScheduledDate = req.Date
	task.StartTime = req.StartTime
	task.EndTime = req.EndTime
	task.TechnicianID = technicianID
	task.TechnicianName = technicianName
	if task.Status == Models.TaskStatusPending || task.Status == Models.TaskStatusDraft {
		task.Status = Models.TaskStatusScheduled
	}

	if err := tx.Save(&task).Error; err != nil {
		tx.Rollback()
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to reschedule task",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to commit reschedule",
			"error":   err.Error(),
		})
	}

	if task.TechnicianID != 0 {
		go Notifications.NotifyReschedule(task)
	}

	return c.JSON(task)
}
