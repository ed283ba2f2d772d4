package Controllers

import (
	"fmt"
	"net/http"
	"testing"

	"Aegis/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkConflictsBody struct {
	Conflict   bool                  `json:"conflict"`
	Collisions []Models.CalendarTask `json:"collisions"`
}

func TestCheckConflicts(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")

	busy := Models.Task{
		Title:         "Morning install",
		Status:        Models.TaskStatusScheduled,
		ScheduledDate: "2026-09-01",
		StartTime:     "09:00",
		EndTime:       "10:00",
		TechnicianID:  technician.Id,
	}
	require.NoError(t, db.Create(&busy).Error)

	t.Run("overlap reports the colliding task", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TechnicianID: technician.Id,
			Date:         "2026-09-01",
			StartTime:    "09:30",
			EndTime:      "10:30",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body checkConflictsBody
		decodeJSON(t, resp, &body)
		assert.True(t, body.Conflict)
		require.Len(t, body.Collisions, 1)
		assert.Equal(t, busy.ID, body.Collisions[0].ID)
	})

	t.Run("adjacent slot is clear", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TechnicianID: technician.Id,
			Date:         "2026-09-01",
			StartTime:    "10:00",
			EndTime:      "11:00",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body checkConflictsBody
		decodeJSON(t, resp, &body)
		assert.False(t, body.Conflict)
		assert.Empty(t, body.Collisions)
	})

	t.Run("untimed probe blocks the whole day", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TechnicianID: technician.Id,
			Date:         "2026-09-01",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body checkConflictsBody
		decodeJSON(t, resp, &body)
		assert.True(t, body.Conflict)
	})

	t.Run("other days are clear", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TechnicianID: technician.Id,
			Date:         "2026-09-02",
			StartTime:    "09:00",
			EndTime:      "10:00",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body checkConflictsBody
		decodeJSON(t, resp, &body)
		assert.False(t, body.Conflict)
	})

	t.Run("a task never collides with itself", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TaskID:       busy.ID,
			TechnicianID: technician.Id,
			Date:         "2026-09-01",
			StartTime:    "09:00",
			EndTime:      "10:00",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body checkConflictsBody
		decodeJSON(t, resp, &body)
		assert.False(t, body.Conflict)
	})

	t.Run("technician and date are required", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			StartTime: "09:00",
			EndTime:   "10:00",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation failed", messageOf(t, resp))
	})

	t.Run("one-sided window refused", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/calendar/check-conflicts", CheckConflictsRequest{
			TechnicianID: technician.Id,
			Date:         "2026-09-01",
			StartTime:    "09:00",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, messageOf(t, resp))
	})
}

func TestGetCalendarTasks(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")

	seed := []Models.Task{
		{Title: "Day one", Status: Models.TaskStatusScheduled, ScheduledDate: "2026-09-01", StartTime: "09:00", EndTime: "10:00", TechnicianID: technician.Id},
		{Title: "Hidden", Status: Models.TaskStatusArchived, ScheduledDate: "2026-09-01", StartTime: "11:00", EndTime: "12:00", TechnicianID: technician.Id},
		{Title: "Day two", Status: Models.TaskStatusScheduled, ScheduledDate: "2026-09-02", TechnicianID: technician.Id},
		{Title: "Out of range", Status: Models.TaskStatusScheduled, ScheduledDate: "2026-09-05", TechnicianID: technician.Id},
	}
	require.NoError(t, db.Create(&seed).Error)

	resp := doJSON(t, app, http.MethodGet, "/api/calendar?from=2026-09-01&to=2026-09-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []Models.CalendarTask `json:"data"`
		Meta struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"meta"`
	}
	decodeJSON(t, resp, &body)

	assert.Equal(t, "2026-09-01", body.Meta.From)
	assert.Equal(t, "2026-09-02", body.Meta.To)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "Day one", body.Data[0].Title)
	assert.Equal(t, "Day two", body.Data[1].Title)
	for _, entry := range body.Data {
		assert.NotEqual(t, Models.TaskStatusArchived, entry.Status)
	}
}

func TestRescheduleTask(t *testing.T) {
	app, db := setupTestApp(t)
	technician := seedTechnician(t, db, "Omar Farouk", "omar")
	second := seedTechnician(t, db, "Hassan Tarek", "hassan")

	busy := Models.Task{
		Title:         "Blocker",
		Status:        Models.TaskStatusScheduled,
		ScheduledDate: "2026-09-20",
		StartTime:     "09:00",
		EndTime:       "10:00",
		TechnicianID:  technician.Id,
	}
	moving := Models.Task{
		Title:         "Moving job",
		Status:        Models.TaskStatusScheduled,
		ScheduledDate: "2026-09-20",
		StartTime:     "13:00",
		EndTime:       "14:00",
		TechnicianID:  technician.Id,
	}
	require.NoError(t, db.Create(&busy).Error)
	require.NoError(t, db.Create(&moving).Error)

	rescheduleURL := fmt.Sprintf("/api/tasks/%d/reschedule", moving.ID)

	t.Run("collision refused and nothing moves", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			Date:      "2026-09-20",
			StartTime: "09:30",
			EndTime:   "10:30",
		})
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		var conflict conflictBody
		decodeJSON(t, resp, &conflict)
		assert.Equal(t, "Schedule conflict", conflict.Message)
		require.Len(t, conflict.Collisions, 1)
		assert.Equal(t, busy.ID, conflict.Collisions[0].ID)

		assert.Equal(t, "13:00", reloadTask(t, db, moving.ID).StartTime)
	})

	t.Run("force takes the slot anyway", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			Date:      "2026-09-20",
			StartTime: "09:30",
			EndTime:   "10:30",
			Force:     true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, "09:30", updated.StartTime)
	})

	t.Run("reassigns to another technician", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			Date:         "2026-09-21",
			StartTime:    "10:00",
			EndTime:      "12:00",
			TechnicianID: &second.Id,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, second.Id, updated.TechnicianID)
		assert.Equal(t, "Hassan Tarek", updated.TechnicianName)
	})

	t.Run("unknown technician refused", func(t *testing.T) {
		missing := uint(99)
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			Date:         "2026-09-21",
			StartTime:    "10:00",
			EndTime:      "12:00",
			TechnicianID: &missing,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Technician not found", messageOf(t, resp))
	})

	t.Run("zero unassigns the technician", func(t *testing.T) {
		var none uint
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			Date:         "2026-09-21",
			StartTime:    "10:00",
			EndTime:      "12:00",
			TechnicianID: &none,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Zero(t, updated.TechnicianID)
		assert.Empty(t, updated.TechnicianName)
	})

	t.Run("scheduling a pending task promotes it", func(t *testing.T) {
		pending := Models.Task{Title: "Walk-in", Status: Models.TaskStatusPending}
		require.NoError(t, db.Create(&pending).Error)

		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/tasks/%d/reschedule", pending.ID), RescheduleTaskRequest{
			Date:      "2026-09-22",
			StartTime: "09:00",
			EndTime:   "11:00",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated Models.Task
		decodeJSON(t, resp, &updated)
		assert.Equal(t, Models.TaskStatusScheduled, updated.Status)
	})

	t.Run("terminal task refused", func(t *testing.T) {
		done := Models.Task{Title: "Done", Status: Models.TaskStatusCompleted}
		require.NoError(t, db.Create(&done).Error)

		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/tasks/%d/reschedule", done.ID), RescheduleTaskRequest{
			Date: "2026-09-22",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Cannot reschedule a task in a terminal state", messageOf(t, resp))
	})

	t.Run("missing task", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/tasks/9999/reschedule", RescheduleTaskRequest{
			Date: "2026-09-22",
		})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("date is required", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, rescheduleURL, RescheduleTaskRequest{
			StartTime: "09:00",
			EndTime:   "10:00",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation failed", messageOf(t, resp))
	})
}
