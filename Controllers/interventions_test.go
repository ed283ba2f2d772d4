package Controllers

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"testing"
	"time"

	"Aegis/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// createWorkTask seeds a task ready for the wizard. No customer phone,
// so finalize never tries to ping the gateway from a test.
func createWorkTask(t *testing.T, db *gorm.DB, zones ...string) Models.Task {
	t.Helper()
	task := Models.Task{
		Title:         "Front package",
		Status:        Models.TaskStatusScheduled,
		ScheduledDate: "2026-09-03",
		StartTime:     "09:00",
		EndTime:       "12:00",
		CustomerName:  "Nadia Mansour",
		VehicleMake:   "Porsche",
		VehicleModel:  "911",
	}
	if len(zones) > 0 {
		encoded, err := json.Marshal(zones)
		require.NoError(t, err)
		task.ZonePlan = datatypes.JSON(encoded)
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func startIntervention(t *testing.T, app *fiber.App, taskID uint) Models.Intervention {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/tasks/%d/intervention/start", taskID), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tree Models.Intervention
	decodeJSON(t, resp, &tree)
	return tree
}

func getTree(t *testing.T, app *fiber.App, interventionID uint) Models.Intervention {
	t.Helper()
	resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/interventions/%d", interventionID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tree Models.Intervention
	decodeJSON(t, resp, &tree)
	return tree
}

func stepByType(t *testing.T, tree Models.Intervention, stepType string) Models.InterventionStep {
	t.Helper()
	for _, step := range tree.Steps {
		if step.StepType == stepType {
			return step
		}
	}
	t.Fatalf("step %q not in tree", stepType)
	return Models.InterventionStep{}
}

// completeZone runs a zone through checklist, score, photo and validate.
func completeZone(t *testing.T, app *fiber.App, interventionID, zoneID uint) {
	t.Helper()
	checklist := map[string]bool{
		"surface_cleaned": true,
		"pattern_aligned": true,
		"edges_sealed":    true,
		"no_bubbles":      true,
	}
	score := 9.0
	resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/interventions/%d/zones/%d", interventionID, zoneID), UpdateZoneRequest{
		Checklist:    &checklist,
		QualityScore: &score,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/photos", interventionID, zoneID), AddZonePhotoURLsRequest{
		URLs: []string{"/ZonePhotos/sample.jpg"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", interventionID, zoneID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// completeStep ticks a step's own checklist and validates it. Not for
// the installation step, which completes through its zones.
func completeStep(t *testing.T, app *fiber.App, interventionID, stepID uint) {
	t.Helper()
	resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/interventions/%d/steps/%d/draft", interventionID, stepID), SaveStepDraftRequest{
		CollectedData: datatypes.JSON(`{"checklist":{"walkthrough_done":true}}`),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", interventionID, stepID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// signaturePNG encodes a tiny stroke the way the canvas widget does.
func signaturePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 4))
	for x := 0; x < 12; x++ {
		img.Set(x, 2, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestStartIntervention(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db, "hood", "left_fender")

	tree := startIntervention(t, app, task.ID)
	assert.Equal(t, Models.InterventionInProgress, tree.Status)

	require.Len(t, tree.Steps, 3)
	assert.Equal(t, Models.StepPreparation, tree.Steps[0].StepType)
	assert.Equal(t, Models.StepStatusInProgress, tree.Steps[0].Status)
	assert.Equal(t, Models.StepStatusPending, tree.Steps[1].Status)
	assert.Equal(t, Models.StepStatusPending, tree.Steps[2].Status)

	require.Len(t, tree.Zones, 2)
	assert.Equal(t, "hood", tree.Zones[0].Name)
	assert.Equal(t, 1, tree.Zones[0].ZoneOrder)
	assert.Equal(t, "left_fender", tree.Zones[1].Name)
	assert.Equal(t, 2, tree.Zones[1].ZoneOrder)

	assert.Equal(t, Models.TaskStatusInProgress, reloadTask(t, db, task.ID).Status)

	// Tapping start again returns the same session instead of forking.
	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/tasks/%d/intervention/start", task.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again Models.Intervention
	decodeJSON(t, resp, &again)
	assert.Equal(t, tree.ID, again.ID)
}

func TestStartInterventionTerminalTask(t *testing.T) {
	app, db := setupTestApp(t)
	done := Models.Task{Title: "Closed out", Status: Models.TaskStatusCompleted}
	require.NoError(t, db.Create(&done).Error)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/tasks/%d/intervention/start", done.ID), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Task is in a terminal state", messageOf(t, resp))
}

func TestSaveStepDraft(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)
	prep := stepByType(t, tree, Models.StepPreparation)

	draftURL := fmt.Sprintf("/api/interventions/%d/steps/%d/draft", tree.ID, prep.ID)

	var saved struct {
		Unchanged bool                    `json:"unchanged"`
		Step      Models.InterventionStep `json:"step"`
	}

	resp := doJSON(t, app, http.MethodPut, draftURL, json.RawMessage(
		`{"collected_data":{"keys_received":true,"customer_briefed":false},"notes":"waiting on spare key"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &saved)
	assert.False(t, saved.Unchanged)

	// The same form state with keys in a different order is a no-op.
	resp = doJSON(t, app, http.MethodPut, draftURL, json.RawMessage(
		`{"notes":"waiting on spare key","collected_data":{"customer_briefed":false,"keys_received":true}}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &saved)
	assert.True(t, saved.Unchanged)

	// Touching the notes changes the digest.
	resp = doJSON(t, app, http.MethodPut, draftURL, json.RawMessage(
		`{"collected_data":{"customer_briefed":false,"keys_received":true},"notes":"key arrived"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON(t, resp, &saved)
	assert.False(t, saved.Unchanged)
	assert.Equal(t, "key arrived", saved.Step.Notes)
}

func TestSaveStepDraftIsNotASelection(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)
	installation := stepByType(t, tree, Models.StepInstallation)

	// Autosave fires against a step the installer has not opened yet;
	// preparation stays the one active step.
	resp := doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/interventions/%d/steps/%d/draft", tree.ID, installation.ID),
		json.RawMessage(`{"collected_data":{"film_batch":"PX-204"},"notes":""}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved struct {
		Step Models.InterventionStep `json:"step"`
	}
	decodeJSON(t, resp, &saved)
	assert.Equal(t, Models.StepStatusPending, saved.Step.Status)

	refreshed := getTree(t, app, tree.ID)
	var active []string
	for _, step := range refreshed.Steps {
		if step.Status == Models.StepStatusInProgress {
			active = append(active, step.StepType)
		}
	}
	assert.Equal(t, []string{Models.StepPreparation}, active)

	// The draft itself still landed.
	var stored Models.InterventionStep
	require.NoError(t, db.First(&stored, installation.ID).Error)
	assert.JSONEq(t, `{"film_batch":"PX-204"}`, string(stored.CollectedData))
}

func TestSelectStep(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)
	finalization := stepByType(t, tree, Models.StepFinalization)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/select", tree.ID, finalization.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var selected Models.InterventionStep
	decodeJSON(t, resp, &selected)
	assert.Equal(t, Models.StepStatusInProgress, selected.Status)

	// Exactly one step is active afterwards.
	refreshed := getTree(t, app, tree.ID)
	var active []string
	for _, step := range refreshed.Steps {
		if step.Status == Models.StepStatusInProgress {
			active = append(active, step.StepType)
		}
	}
	assert.Equal(t, []string{Models.StepFinalization}, active)

	// Reviewing a closed step deselects the active one, leaving nothing
	// in progress.
	preparation := stepByType(t, tree, Models.StepPreparation)
	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/skip", tree.ID, preparation.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/select", tree.ID, finalization.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/select", tree.ID, preparation.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed = getTree(t, app, tree.ID)
	for _, step := range refreshed.Steps {
		assert.NotEqual(t, Models.StepStatusInProgress, step.Status,
			"step %s should be deselected", step.StepType)
	}
}

func TestValidateStep(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db, "hood")
	tree := startIntervention(t, app, task.ID)
	prep := stepByType(t, tree, Models.StepPreparation)
	installation := stepByType(t, tree, Models.StepInstallation)

	prepDraftURL := fmt.Sprintf("/api/interventions/%d/steps/%d/draft", tree.ID, prep.ID)
	prepValidateURL := fmt.Sprintf("/api/interventions/%d/steps/%d/validate", tree.ID, prep.ID)

	t.Run("nothing collected yet", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, prepValidateURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Message string   `json:"message"`
			Reasons []string `json:"reasons"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Step checklist incomplete", body.Message)
		assert.NotEmpty(t, body.Reasons)
	})

	t.Run("unticked item blocks", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, prepDraftURL, SaveStepDraftRequest{
			CollectedData: datatypes.JSON(`{"checklist":{"bay_prepped":true,"panels_washed":false}}`),
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPost, prepValidateURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Message string   `json:"message"`
			Reasons []string `json:"reasons"`
		}
		decodeJSON(t, resp, &body)
		require.Len(t, body.Reasons, 1)
		assert.Contains(t, body.Reasons[0], "panels_washed")
	})

	t.Run("complete checklist validates and advances", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, prepDraftURL, SaveStepDraftRequest{
			CollectedData: datatypes.JSON(`{"checklist":{"bay_prepped":true,"panels_washed":true}}`),
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPost, prepValidateURL, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var refreshed Models.Intervention
		decodeJSON(t, resp, &refreshed)
		assert.Equal(t, Models.StepStatusCompleted, stepByType(t, refreshed, Models.StepPreparation).Status)
		assert.Equal(t, Models.StepStatusInProgress, stepByType(t, refreshed, Models.StepInstallation).Status)
	})

	t.Run("closed steps refuse drafts", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, prepDraftURL, SaveStepDraftRequest{
			CollectedData: datatypes.JSON(`{"checklist":{"bay_prepped":true}}`),
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Step is already closed", messageOf(t, resp))
	})

	t.Run("installation blocked while zones open", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", tree.ID, installation.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Message string   `json:"message"`
			Zones   []string `json:"zones"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Zones not completed", body.Message)
		assert.Equal(t, []string{"hood"}, body.Zones)
	})

	t.Run("installation validates once zones close", func(t *testing.T) {
		refreshed := getTree(t, app, tree.ID)
		completeZone(t, app, tree.ID, refreshed.Zones[0].ID)

		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", tree.ID, installation.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var after Models.Intervention
		decodeJSON(t, resp, &after)
		assert.Equal(t, Models.StepStatusCompleted, stepByType(t, after, Models.StepInstallation).Status)
		assert.Equal(t, Models.StepStatusInProgress, stepByType(t, after, Models.StepFinalization).Status)
	})
}

func TestValidateInstallationWithoutZones(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)
	installation := stepByType(t, tree, Models.StepInstallation)

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", tree.ID, installation.ID), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No installation zones defined", messageOf(t, resp))
}

func TestSkipStep(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)

	t.Run("mandatory steps refuse", func(t *testing.T) {
		installation := stepByType(t, tree, Models.StepInstallation)
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/skip", tree.ID, installation.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Mandatory steps cannot be skipped", messageOf(t, resp))
	})

	t.Run("optional preparation skips and advances", func(t *testing.T) {
		prep := stepByType(t, tree, Models.StepPreparation)
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/skip", tree.ID, prep.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var refreshed Models.Intervention
		decodeJSON(t, resp, &refreshed)
		assert.Equal(t, Models.StepStatusSkipped, stepByType(t, refreshed, Models.StepPreparation).Status)
		assert.Equal(t, Models.StepStatusInProgress, stepByType(t, refreshed, Models.StepInstallation).Status)
	})
}

func TestZoneLifecycle(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db, "hood", "left_fender")
	tree := startIntervention(t, app, task.ID)
	hood := tree.Zones[0]
	fender := tree.Zones[1]

	t.Run("add zone appends to the order", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones", tree.ID), AddZoneRequest{
			Name:     "rear_bumper",
			Area:     1.8,
			FilmSpec: "gloss 8mil",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var zone Models.InstallationZone
		decodeJSON(t, resp, &zone)
		assert.Equal(t, 3, zone.ZoneOrder)
		assert.Equal(t, Models.StepStatusPending, zone.Status)
	})

	t.Run("duplicate names refused", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones", tree.ID), AddZoneRequest{
			Name: "hood",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "A zone with this name already exists", messageOf(t, resp))
	})

	t.Run("select keeps exactly one zone active", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", tree.ID, fender.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", tree.ID, hood.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var selected Models.InstallationZone
		decodeJSON(t, resp, &selected)
		assert.Equal(t, Models.StepStatusInProgress, selected.Status)

		refreshed := getTree(t, app, tree.ID)
		var active []string
		for _, zone := range refreshed.Zones {
			if zone.Status == Models.StepStatusInProgress {
				active = append(active, zone.Name)
			}
		}
		assert.Equal(t, []string{"hood"}, active)
	})

	t.Run("quality score bounds", func(t *testing.T) {
		score := 11.0
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/interventions/%d/zones/%d", tree.ID, hood.ID), UpdateZoneRequest{
			QualityScore: &score,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Quality score must be between 0 and 10", messageOf(t, resp))
	})

	t.Run("validation lists what is missing", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", tree.ID, hood.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Message string   `json:"message"`
			Reasons []string `json:"reasons"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Zone requirements not met", body.Message)
		assert.NotEmpty(t, body.Reasons)
	})

	t.Run("photo URLs attach", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/photos", tree.ID, hood.ID), AddZonePhotoURLsRequest{
			URLs: []string{"/ZonePhotos/hood_before.jpg", "/ZonePhotos/hood_after.jpg"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Photos []string `json:"photos"`
		}
		decodeJSON(t, resp, &body)
		assert.Len(t, body.Photos, 2)
	})

	t.Run("validate completes and advances", func(t *testing.T) {
		checklist := map[string]bool{
			"surface_cleaned": true,
			"pattern_aligned": true,
			"edges_sealed":    true,
			"no_bubbles":      true,
		}
		score := 9.5
		resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/interventions/%d/zones/%d", tree.ID, hood.ID), UpdateZoneRequest{
			Checklist:    &checklist,
			QualityScore: &score,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", tree.ID, hood.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Zone  Models.InstallationZone   `json:"zone"`
			Zones []Models.InstallationZone `json:"zones"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, Models.StepStatusCompleted, body.Zone.Status)

		// The next pending panel picks up automatically.
		byName := make(map[string]string, len(body.Zones))
		for _, zone := range body.Zones {
			byName[zone.Name] = zone.Status
		}
		assert.Equal(t, Models.StepStatusInProgress, byName["left_fender"])
	})

	t.Run("completed zones refuse re-validation", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", tree.ID, hood.ID), nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Zone already completed", messageOf(t, resp))
	})

	t.Run("selecting a completed zone deselects the active one", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", tree.ID, hood.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		refreshed := getTree(t, app, tree.ID)
		for _, zone := range refreshed.Zones {
			assert.NotEqual(t, Models.StepStatusInProgress, zone.Status,
				"zone %s should be deselected", zone.Name)
		}
	})

	t.Run("delete closes the order gap", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/api/interventions/%d/zones/%d", tree.ID, fender.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Zone deleted", messageOf(t, resp))

		var bumper Models.InstallationZone
		require.NoError(t, db.Where("intervention_id = ? AND name = ?", tree.ID, "rear_bumper").First(&bumper).Error)
		assert.Equal(t, 2, bumper.ZoneOrder)
	})
}

func TestCompletedInterventionLocksZones(t *testing.T) {
	app, db := setupTestApp(t)

	task := Models.Task{Title: "Signed off", Status: Models.TaskStatusCompleted}
	require.NoError(t, db.Create(&task).Error)
	now := time.Now()
	closed := Models.Intervention{TaskID: task.ID, Status: Models.InterventionCompleted, CompletedAt: &now}
	require.NoError(t, db.Create(&closed).Error)
	zone := Models.InstallationZone{InterventionID: closed.ID, Name: "hood", ZoneOrder: 1, Status: Models.StepStatusCompleted}
	require.NoError(t, db.Create(&zone).Error)

	lateNote := "late edit"
	calls := []struct {
		label  string
		method string
		url    string
		body   interface{}
	}{
		{"select", http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", closed.ID, zone.ID), nil},
		{"update", http.MethodPut, fmt.Sprintf("/api/interventions/%d/zones/%d", closed.ID, zone.ID), UpdateZoneRequest{Notes: &lateNote}},
		{"photos", http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/photos", closed.ID, zone.ID), AddZonePhotoURLsRequest{URLs: []string{"/ZonePhotos/late.jpg"}}},
		{"validate", http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", closed.ID, zone.ID), nil},
	}

	for _, call := range calls {
		t.Run(call.label, func(t *testing.T) {
			resp := doJSON(t, app, call.method, call.url, call.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Intervention already completed", messageOf(t, resp))
		})
	}

	// Nothing on the zone moved.
	var reloaded Models.InstallationZone
	require.NoError(t, db.First(&reloaded, zone.ID).Error)
	assert.Equal(t, Models.StepStatusCompleted, reloaded.Status)
	assert.Empty(t, reloaded.Notes)
	assert.Empty(t, reloaded.PhotoList())
}

func TestUploadSignature(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db)
	tree := startIntervention(t, app, task.ID)

	signatureURL := fmt.Sprintf("/api/interventions/%d/signature", tree.ID)

	t.Run("empty body refused", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, signatureURL, UploadSignatureRequest{})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "No signature provided", messageOf(t, resp))
	})

	t.Run("garbage base64 refused", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, signatureURL, UploadSignatureRequest{ImageBase64: "not base64!!"})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid base64 image", messageOf(t, resp))
	})

	t.Run("stores the canvas image", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, signatureURL, UploadSignatureRequest{ImageBase64: signaturePNG(t)})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Message       string `json:"message"`
			SignaturePath string `json:"signature_path"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Signature saved", body.Message)
		assert.Contains(t, body.SignaturePath, "/SignatureImages/")

		_, err := os.Stat("." + body.SignaturePath)
		assert.NoError(t, err)
	})
}

func TestFinalizeIntervention(t *testing.T) {
	app, db := setupTestApp(t)
	task := createWorkTask(t, db, "hood")
	tree := startIntervention(t, app, task.ID)
	finalizeURL := fmt.Sprintf("/api/interventions/%d/finalize", tree.ID)

	t.Run("open steps block the close", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, finalizeURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Message string   `json:"message"`
			Steps   []string `json:"steps"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Steps not completed", body.Message)
		assert.Contains(t, body.Steps, Models.StepInstallation)

		// Nothing moved.
		assert.Equal(t, Models.TaskStatusInProgress, reloadTask(t, db, task.ID).Status)
	})

	// Work the wizard to the end.
	prep := stepByType(t, tree, Models.StepPreparation)
	completeStep(t, app, tree.ID, prep.ID)

	refreshed := getTree(t, app, tree.ID)
	completeZone(t, app, tree.ID, refreshed.Zones[0].ID)

	installation := stepByType(t, tree, Models.StepInstallation)
	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", tree.ID, installation.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	finalization := stepByType(t, tree, Models.StepFinalization)
	completeStep(t, app, tree.ID, finalization.ID)

	t.Run("signature required", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, finalizeURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Customer signature required", messageOf(t, resp))
	})

	resp = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/signature", tree.ID), UploadSignatureRequest{
		ImageBase64: signaturePNG(t),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	t.Run("closes the intervention and the task", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, finalizeURL, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Message      string              `json:"message"`
			Intervention Models.Intervention `json:"intervention"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "Intervention completed", body.Message)
		assert.Equal(t, Models.InterventionCompleted, body.Intervention.Status)
		require.NotNil(t, body.Intervention.CompletedAt)

		assert.Equal(t, Models.TaskStatusCompleted, reloadTask(t, db, task.ID).Status)
	})

	t.Run("cannot finalize twice", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, finalizeURL, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Intervention already completed", messageOf(t, resp))
	})
}

func TestResumeIntervention(t *testing.T) {
	app, db := setupTestApp(t)

	t.Run("no session yet", func(t *testing.T) {
		task := createWorkTask(t, db)
		resp := doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/tasks/%d/intervention/resume", task.ID), nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "No intervention in progress", messageOf(t, resp))
	})

	t.Run("restores the wizard position", func(t *testing.T) {
		task := createWorkTask(t, db, "hood", "left_fender")
		tree := startIntervention(t, app, task.ID)

		// Make the second panel the active one.
		resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", tree.ID, tree.Zones[1].ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/tasks/%d/intervention/resume", task.ID), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Task            Models.Task         `json:"task"`
			Intervention    Models.Intervention `json:"intervention"`
			ActiveStepID    uint                `json:"active_step_id"`
			ActiveZoneID    uint                `json:"active_zone_id"`
			AutosaveQuietMS int                 `json:"autosave_quiet_ms"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, task.ID, body.Task.ID)
		assert.Equal(t, tree.Steps[0].ID, body.ActiveStepID)
		assert.Equal(t, tree.Zones[1].ID, body.ActiveZoneID)
		assert.Equal(t, 800, body.AutosaveQuietMS)
	})
}
