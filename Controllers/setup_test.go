package Controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"Aegis/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestApp wires every handler onto a throwaway app and database,
// mirroring FiberConfig.SetupRoutes minus the auth middleware. The
// working directory moves to a temp dir so handlers that write files
// (signatures, photos) don't touch the repo.
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Single connection so the notification goroutines handlers fire
	// can't trip over sqlite write locks mid-test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&Models.User{},
		&Models.ShopSettings{},
		&Models.FilmMaterial{},
		&Models.DeviceToken{},
		&Models.AppNotification{},
		&Models.Task{},
		&Models.Intervention{},
		&Models.InterventionStep{},
		&Models.InstallationZone{},
	))

	// Notification writes go through the package-global handle.
	Models.DB = db

	app := fiber.New()

	taskHandler := NewTaskHandler(db)
	calendarHandler := NewCalendarHandler(db)
	interventionHandler := NewInterventionHandler(db)
	zoneHandler := NewZoneHandler(db)

	app.Get("/api/tasks", taskHandler.GetAllTasks)
	app.Get("/api/tasks/statuses", taskHandler.GetTaskStatuses)
	app.Get("/api/tasks/priorities", taskHandler.GetTaskPriorities)
	app.Get("/api/tasks/:id", taskHandler.GetTask)
	app.Post("/api/tasks", taskHandler.CreateTask)
	app.Put("/api/tasks/:id", taskHandler.UpdateTask)
	app.Post("/api/tasks/:id/status", taskHandler.UpdateTaskStatus)
	app.Delete("/api/tasks/:id", taskHandler.DeleteTask)
	app.Post("/api/tasks/:id/reschedule", calendarHandler.RescheduleTask)

	app.Get("/api/calendar", calendarHandler.GetCalendarTasks)
	app.Post("/api/calendar/check-conflicts", calendarHandler.CheckConflicts)

	app.Post("/api/tasks/:id/intervention/start", interventionHandler.StartIntervention)
	app.Get("/api/tasks/:id/intervention/resume", interventionHandler.ResumeIntervention)
	app.Get("/api/interventions/:id", interventionHandler.GetIntervention)
	app.Post("/api/interventions/:id/steps/:stepId/select", interventionHandler.SelectStep)
	app.Put("/api/interventions/:id/steps/:stepId/draft", interventionHandler.SaveStepDraft)
	app.Post("/api/interventions/:id/steps/:stepId/validate", interventionHandler.ValidateStep)
	app.Post("/api/interventions/:id/steps/:stepId/skip", interventionHandler.SkipStep)
	app.Post("/api/interventions/:id/signature", interventionHandler.UploadSignature)
	app.Post("/api/interventions/:id/finalize", interventionHandler.FinalizeIntervention)

	materialHandler := NewMaterialHandler(db)
	app.Get("/api/materials", materialHandler.GetAllMaterials)
	app.Get("/api/materials/:id", materialHandler.GetMaterial)
	app.Post("/api/materials", materialHandler.CreateMaterial)
	app.Put("/api/materials/:id", materialHandler.UpdateMaterial)
	app.Delete("/api/materials/:id", materialHandler.DeleteMaterial)
	app.Post("/api/materials/:id/adjust-stock", materialHandler.AdjustStock)

	app.Post("/api/interventions/:id/zones", zoneHandler.AddZone)
	app.Post("/api/interventions/:id/zones/:zoneId/select", zoneHandler.SelectZone)
	app.Put("/api/interventions/:id/zones/:zoneId", zoneHandler.UpdateZone)
	app.Post("/api/interventions/:id/zones/:zoneId/photos", zoneHandler.UploadZonePhotos)
	app.Post("/api/interventions/:id/zones/:zoneId/validate", zoneHandler.ValidateZone)
	app.Delete("/api/interventions/:id/zones/:zoneId", zoneHandler.DeleteZone)

	return app, db
}

func seedTechnician(t *testing.T, db *gorm.DB, name, username string) Models.User {
	t.Helper()
	user := Models.User{
		Name:       name,
		Username:   username,
		Password:   []byte("not-a-real-hash"),
		Permission: Models.PermissionTechnician,
		IsApproved: 1,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// doJSON sends a request through the in-process app. A nil payload sends
// an empty body; json.RawMessage payloads go out byte for byte.
func doJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// messageOf pulls the "message" field out of an error envelope.
func messageOf(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	decodeJSON(t, resp, &body)
	return body.Message
}

func reloadTask(t *testing.T, db *gorm.DB, id uint) Models.Task {
	t.Helper()
	var task Models.Task
	require.NoError(t, db.First(&task, id).Error)
	return task
}
