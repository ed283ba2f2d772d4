package Controllers

import (
	"fmt"
	"net/http"
	"testing"

	"Aegis/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taskListBody struct {
	Data []Models.Task `json:"data"`
	Meta struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Pages int   `json:"pages"`
	} `json:"meta"`
}

type conflictBody struct {
	Message    string                `json:"message"`
	Collisions []Models.CalendarTask `json:"collisions"`
}

func TestCreateTaskDefaults(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:        "Full front PPF",
		CustomerName: "Nadia Mansour",
		VehicleMake:  "BMW",
		VehicleModel: "M4",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var task Models.Task
	decodeJSON(t, resp, &task)
	assert.NotZero(t, task.ID)
	assert.Equal(t, Models.TaskStatusPending, task.Status)
	assert.Equal(t, Models.TaskPriorityMedium, task.Priority)
}

func TestCreateTaskScheduled(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")

	resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:         "Hood and fenders",
		ScheduledDate: "2026-09-10",
		StartTime:     "09:00",
		EndTime:       "11:00",
		TechnicianID:  technician.Id,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var task Models.Task
	decodeJSON(t, resp, &task)
	assert.Equal(t, Models.TaskStatusScheduled, task.Status)
	assert.Equal(t, "Omar Farouk", task.TechnicianName)
}

func TestCreateTaskUnknownTechnician(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:        "Hood only",
		TechnicianID: 99,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Technician not found", messageOf(t, resp))
}

func TestCreateTaskValidation(t *testing.T) {
	app, _ := setupTestApp(t)

	t.Run("title required", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
			CustomerName: "Karim Adel",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation failed", messageOf(t, resp))
	})

	t.Run("priority must be a known value", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
			Title:    "Door edges",
			Priority: "extreme",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation failed", messageOf(t, resp))
	})
}

func TestCreateTaskConflict(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")

	resp := doJSON(t, app, http.MethodPost, "/api/tasks", CreateTaskRequest{
		Title:         "Morning job",
		ScheduledDate: "2026-09-10",
		StartTime:     "09:00",
		EndTime:       "11:00",
		TechnicianID:  technician.Id,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var first Models.Task
	decodeJSON(t, resp, &first)

	overlapping := CreateTaskRequest{
		Title:         "Double booked",
		ScheduledDate: "2026-09-10",
		StartTime:     "09:30",
		EndTime:       "10:30",
		TechnicianID:  technician.Id,
	}

	resp = doJSON(t, app, http.MethodPost, "/api/tasks", overlapping)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	var conflict conflictBody
	decodeJSON(t, resp, &conflict)
	assert.Equal(t, "Schedule conflict", conflict.Message)
	require.Len(t, conflict.Collisions, 1)
	assert.Equal(t, first.ID, conflict.Collisions[0].ID)

	// The dispatcher can still push it through deliberately.
	overlapping.Force = true
	resp = doJSON(t, app, http.MethodPost, "/api/tasks", overlapping)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestListTasks(t *testing.T) {
	app, db := setupTestApp(t)

	seed := []Models.Task{
		{Title: "Hood wrap", Status: Models.TaskStatusScheduled, Priority: Models.TaskPriorityHigh, ScheduledDate: "2026-09-01", CustomerName: "Nadia Mansour", VehiclePlate: "QRT 481"},
		{Title: "Full body", Status: Models.TaskStatusPending, Priority: Models.TaskPriorityUrgent, CustomerName: "Karim Adel"},
		{Title: "Mirror caps", Status: Models.TaskStatusScheduled, Priority: Models.TaskPriorityLow, ScheduledDate: "2026-09-02", CustomerName: "Bassem Gohar"},
	}
	require.NoError(t, db.Create(&seed).Error)

	t.Run("status filter", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks?status=scheduled", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body taskListBody
		decodeJSON(t, resp, &body)
		assert.Equal(t, int64(2), body.Meta.Total)
		for _, task := range body.Data {
			assert.Equal(t, Models.TaskStatusScheduled, task.Status)
		}
	})

	t.Run("search matches customer name", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks?search=Karim", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body taskListBody
		decodeJSON(t, resp, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Full body", body.Data[0].Title)
	})

	t.Run("search matches plate", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks?search=QRT", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body taskListBody
		decodeJSON(t, resp, &body)
		require.Len(t, body.Data, 1)
		assert.Equal(t, "Hood wrap", body.Data[0].Title)
	})

	t.Run("pagination meta", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks?limit=2&page=2", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body taskListBody
		decodeJSON(t, resp, &body)
		assert.Equal(t, int64(3), body.Meta.Total)
		assert.Equal(t, 2, body.Meta.Page)
		assert.Equal(t, 2, body.Meta.Pages)
		assert.Len(t, body.Data, 1)
	})
}

func TestGetTask(t *testing.T) {
	app, db := setupTestApp(t)

	task := Models.Task{Title: "Rocker panels"}
	require.NoError(t, db.Create(&task).Error)

	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched Models.Task
	decodeJSON(t, resp, &fetched)
	assert.Equal(t, task.ID, fetched.ID)

	resp = doJSON(t, app, http.MethodGet, "/api/tasks/9999", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateTask(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")

	task := Models.Task{Title: "Rocker panels", Status: Models.TaskStatusPending, Priority: Models.TaskPriorityMedium}
	require.NoError(t, db.Create(&task).Error)

	t.Run("partial update keeps other fields", func(t *testing.T) {
		priority := Models.TaskPriorityUrgent
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			Priority: &priority,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, Models.TaskPriorityUrgent, updated.Priority)
		assert.Equal(t, "Rocker panels", updated.Title)
	})

	t.Run("invalid priority refused", func(t *testing.T) {
		priority := "extreme"
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			Priority: &priority,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid priority", messageOf(t, resp))
	})

	t.Run("scheduling promotes pending to scheduled", func(t *testing.T) {
		date := "2026-09-15"
		start := "10:00"
		end := "12:00"
		id := technician.Id
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			ScheduledDate: &date,
			StartTime:     &start,
			EndTime:       &end,
			TechnicianID:  &id,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, Models.TaskStatusScheduled, updated.Status)
		assert.Equal(t, "Omar Farouk", updated.TechnicianName)
	})

	t.Run("conflicting move refused then forced", func(t *testing.T) {
		blocker := Models.Task{
			Title:          "Blocker",
			Status:         Models.TaskStatusScheduled,
			ScheduledDate:  "2026-09-16",
			StartTime:      "09:00",
			EndTime:        "11:00",
			TechnicianID:   technician.Id,
			TechnicianName: "Omar Farouk",
		}
		require.NoError(t, db.Create(&blocker).Error)

		date := "2026-09-16"
		start := "10:00"
		end := "12:00"
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			ScheduledDate: &date,
			StartTime:     &start,
			EndTime:       &end,
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		var conflict conflictBody
		decodeJSON(t, resp, &conflict)
		require.Len(t, conflict.Collisions, 1)
		assert.Equal(t, blocker.ID, conflict.Collisions[0].ID)

		resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			ScheduledDate: &date,
			StartTime:     &start,
			EndTime:       &end,
			Force:         true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("unassigning clears the technician", func(t *testing.T) {
		var none uint
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/tasks/%d", task.ID), UpdateTaskRequest{
			TechnicianID: &none,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Zero(t, updated.TechnicianID)
		assert.Empty(t, updated.TechnicianName)
	})
}

func TestUpdateTaskStatus(t *testing.T) {
	app, db := setupTestApp(t)

	task := Models.Task{Title: "Door cups", Status: Models.TaskStatusInProgress}
	require.NoError(t, db.Create(&task).Error)

	statusURL := fmt.Sprintf("/api/tasks/%d/status", task.ID)

	t.Run("unknown status refused", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, statusURL, UpdateTaskStatusRequest{Status: "paused"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid status", messageOf(t, resp))
	})

	t.Run("moves through the lifecycle", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, statusURL, UpdateTaskStatusRequest{Status: Models.TaskStatusCompleted})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, Models.TaskStatusCompleted, updated.Status)
	})

	t.Run("terminal tasks refuse reopening", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, statusURL, UpdateTaskStatusRequest{Status: Models.TaskStatusInProgress})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Task is in a terminal state", messageOf(t, resp))
	})

	t.Run("terminal tasks may still archive", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, statusURL, UpdateTaskStatusRequest{Status: Models.TaskStatusArchived})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, Models.TaskStatusArchived, updated.Status)
	})

	t.Run("missing task", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tasks/9999/status", UpdateTaskStatusRequest{Status: Models.TaskStatusPending})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestDeleteTask(t *testing.T) {
	app, db := setupTestApp(t)

	task := Models.Task{Title: "Trunk lip"}
	require.NoError(t, db.Create(&task).Error)

	resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Task deleted", messageOf(t, resp))

	resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestTaskOptionLists(t *testing.T) {
	app, _ := setupTestApp(t)

	t.Run("statuses", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks/statuses", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Statuses []Models.StatusOption `json:"statuses"`
		}
		decodeJSON(t, resp, &body)
		assert.Len(t, body.Statuses, len(Models.TaskStatuses))
	})

	t.Run("priorities", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/tasks/priorities", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Priorities []Models.StatusOption `json:"priorities"`
		}
		decodeJSON(t, resp, &body)
		assert.Len(t, body.Priorities, len(Models.TaskPriorities))
	})
}
