package Controllers

import (
	"Aegis/Models"
	"Aegis/Notifications"
	"math"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskHandler struct {
	DB *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{DB: db}
}

// Request DTOs
type CreateTaskRequest struct {
	Title         string         `json:"title" validate:"required,max=200"`
	Description   string         `json:"description"`
	Priority      string         `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	ScheduledDate string         `json:"scheduled_date" validate:"omitempty,datetime=2006-01-02"`
	StartTime     string         `json:"start_time"`
	EndTime       string         `json:"end_time"`
	TechnicianID  uint           `json:"technician_id"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	VehicleMake   string         `json:"vehicle_make"`
	VehicleModel  string         `json:"vehicle_model"`
	VehiclePlate  string         `json:"vehicle_plate"`
	VehicleYear   int            `json:"vehicle_year"`
	MobileJob     bool           `json:"mobile_job"`
	Latitude      float64        `json:"latitude"`
	Longitude     float64        `json:"longitude"`
	ZonePlan      datatypes.JSON `json:"zone_plan"`
	Force         bool           `json:"force"`
}

type UpdateTaskRequest struct {
	Title         *string         `json:"title"`
	Description   *string         `json:"description"`
	Priority      *string         `json:"priority"`
	ScheduledDate *string         `json:"scheduled_date"`
	StartTime     *string         `json:"start_time"`
	EndTime       *string         `json:"end_time"`
	TechnicianID  *uint           `json:"technician_id"`
	CustomerName  *string         `json:"customer_name"`
	CustomerPhone *string         `json:"customer_phone"`
	VehicleMake   *string         `json:"vehicle_make"`
	VehicleModel  *string         `json:"vehicle_model"`
	VehiclePlate  *string         `json:"vehicle_plate"`
	VehicleYear   *int            `json:"vehicle_year"`
	MobileJob     *bool           `json:"mobile_job"`
	Latitude      *float64        `json:"latitude"`
	Longitude     *float64        `json:"longitude"`
	ZonePlan      *datatypes.JSON `json:"zone_plan"`
	Force         bool            `json:"force"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GetAllTasks lists tasks with the dashboard's filters and pagination.
// GET /api/tasks
func (h *TaskHandler) GetAllTasks(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := h.DB.Model(&Models.Task{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if technician := c.Query("technician_id"); technician != "" {
		query = query.Where("technician_id = ?", technician)
	}
	if from := c.Query("from"); from != "" {
		query = query.Where("scheduled_date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		query = query.Where("scheduled_date <= ?", to)
	}
	if mobile := c.Query("mobile"); mobile != "" {
		query = query.Where("mobile_job = ?", mobile == "true")
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"title LIKE ? OR customer_name LIKE ? OR vehicle_plate LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to count tasks",
			"error":   err.Error(),
		})
	}

	var tasks []Models.Task
	offset := (page - 1) * limit
	if err := query.Order("scheduled_date DESC, start_time ASC, id ASC").
		Offset(offset).Limit(limit).Find(&tasks).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch tasks",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": tasks,
		"meta": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// GetTask returns one task with its intervention tree, so the detail
// screen shows work progress without a second request.
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var task Models.Task
	if err := h.DB.Preload("Intervention").
		Preload("Intervention.Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Intervention.Zones", func(db *gorm.DB) *gorm.DB {
			return db.Order("zone_order ASC")
		}).
		First(&task, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	return c.JSON(task)
}

// CreateTask creates a task. A scheduled task is checked against the
// technician's calendar first and refused with the colliding tasks
// unless force is set.
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
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

	task := Models.Task{
		Title:         req.Title,
		Description:   req.Description,
		Status:        Models.TaskStatusPending,
		Priority:      Models.TaskPriorityMedium,
		ScheduledDate: req.ScheduledDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		TechnicianID:  req.TechnicianID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		VehicleMake:   req.VehicleMake,
		VehicleModel:  req.VehicleModel,
		VehiclePlate:  req.VehiclePlate,
		VehicleYear:   req.VehicleYear,
		MobileJob:     req.MobileJob,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ZonePlan:      req.ZonePlan,
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}

	if req.TechnicianID != 0 {
		var technician Models.User
		if err := h.DB.First(&technician, req.TechnicianID).Error; err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Technician not found",
			})
		}
		task.TechnicianName = technician.Name
	}

	if req.ScheduledDate != "" {
		task.Status = Models.TaskStatusScheduled
		if req.TechnicianID != 0 && !req.Force {
			collisions, err := Models.FindCollisions(h.DB, 0, req.TechnicianID, req.ScheduledDate, window)
			if err != nil {
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
					"message": "Failed to check for conflicts",
					"error":   err.Error(),
				})
			}
			if len(collisions) > 0 {
				return c.Status(http.StatusConflict).JSON(fiber.Map{
					"message":    "Schedule conflict",
					"collisions": collisions,
				})
			}
		}
	}

	if err := h.DB.Create(&task).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create task",
			"error":   err.Error(),
		})
	}

	if task.TechnicianID != 0 {
		go Notifications.NotifyAssignment(task)
	}

	return c.Status(http.StatusCreated).JSON(task)
}

// UpdateTask applies the provided fields. When the update touches the
// schedule (date, window or technician) the new slot goes through the
// same conflict check as a reschedule.
// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var task Models.Task
	if err := h.DB.First(&task, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		if !Models.IsValidTaskPriority(*req.Priority) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid priority",
			})
		}
		task.Priority = *req.Priority
	}
	if req.CustomerName != nil {
		task.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		task.CustomerPhone = *req.CustomerPhone
	}
	if req.VehicleMake != nil {
		task.VehicleMake = *req.VehicleMake
	}
	if req.VehicleModel != nil {
		task.VehicleModel = *req.VehicleModel
	}
	if req.VehiclePlate != nil {
		task.VehiclePlate = *req.VehiclePlate
	}
	if req.VehicleYear != nil {
		task.VehicleYear = *req.VehicleYear
	}
	if req.MobileJob != nil {
		task.MobileJob = *req.MobileJob
	}
	if req.Latitude != nil {
		task.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		task.Longitude = *req.Longitude
	}
	if req.ZonePlan != nil {
		task.ZonePlan = *req.ZonePlan
	}

	previousTechnician := task.TechnicianID
	touchesSchedule := req.ScheduledDate != nil || req.StartTime != nil || req.EndTime != nil || req.TechnicianID != nil
	if touchesSchedule {
		if req.ScheduledDate != nil {
			task.ScheduledDate = *req.ScheduledDate
		}
		if req.StartTime != nil {
			task.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			task.EndTime = *req.EndTime
		}
		if req.TechnicianID != nil {
			task.TechnicianID = *req.TechnicianID
			task.TechnicianName = ""
			if *req.TechnicianID != 0 {
				var technician Models.User
				if err := h.DB.First(&technician, *req.TechnicianID).Error; err != nil {
					return c.Status(http.StatusBadRequest).JSON(fiber.Map{
						"message": "Technician not found",
					})
				}
				task.TechnicianName = technician.Name
			}
		}

		window, err := Models.NewTimeWindow(task.StartTime, task.EndTime)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"message": err.Error(),
			})
		}

		if task.ScheduledDate != "" && task.TechnicianID != 0 && !req.Force {
			collisions, err := Models.FindCollisions(h.DB, task.ID, task.TechnicianID, task.ScheduledDate, window)
			if err != nil {
				return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
					"message": "Failed to check for conflicts",
					"error":   err.Error(),
				})
			}
			if len(collisions) > 0 {
				return c.Status(http.StatusConflict).JSON(fiber.Map{
					"message":    "Schedule conflict",
					"collisions": collisions,
				})
			}
		}

		if task.ScheduledDate != "" && task.Status == Models.TaskStatusPending {
			task.Status = Models.TaskStatusScheduled
		}
	}

	if err := h.DB.Save(&task).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update task",
			"error":   err.Error(),
		})
	}

	if task.TechnicianID != 0 && task.TechnicianID != previousTechnician {
		go Notifications.NotifyAssignment(task)
	}

	return c.JSON(task)
}

// UpdateTaskStatus moves a task through its lifecycle. Terminal tasks
// (completed, cancelled) may only move to archived.
// POST /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	var req UpdateTaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
		})
	}
	if !Models.IsValidTaskStatus(req.Status) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid status",
		})
	}

	var task Models.Task
	if err := h.DB.First(&task, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	if Models.IsTerminalTaskStatus(task.Status) && req.Status != Models.TaskStatusArchived {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Task is in a terminal state",
		})
	}

	task.Status = req.Status
	if err := h.DB.Save(&task).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update status",
			"error":   err.Error(),
		})
	}

	return c.JSON(task)
}

// DeleteTask soft-deletes a task; its intervention data stays around for
// reporting.
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid task ID",
		})
	}

	result := h.DB.Delete(&Models.Task{}, id)
	if result.Error != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete task",
			"error":   result.Error.Error(),
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Task not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Task deleted",
	})
}

// GetTaskStatuses returns the status options for pickers.
// GET /api/tasks/statuses
func (h *TaskHandler) GetTaskStatuses(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"statuses": Models.TaskStatuses,
	})
}

// GetTaskPriorities returns the priority options for pickers.
// GET /api/tasks/priorities
func (h *TaskHandler) GetTaskPriorities(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"priorities": Models.TaskPriorities,
	})
}
