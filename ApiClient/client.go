package ApiClient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"Aegis/Models"

	"gorm.io/datatypes"
)

// Client talks to the Aegis API. The mobile app and the shop scripts
// share it; the dashboard uses the cookie session instead.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewClient constructs a client. Call Login to obtain a token, or set
// Token directly when resuming a stored session.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is returned for any non-2xx response, carrying the server's
// message field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// ListMeta is the pagination envelope on list endpoints.
type ListMeta struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// ListTasksOptions are the /api/tasks query filters. Zero values are
// left off the query string.
type ListTasksOptions struct {
	Status       string
	Priority     string
	TechnicianID uint
	From         string
	To           string
	Search       string
	Page         int
	Limit        int
}

// CreateTaskRequest mirrors POST /api/tasks.
type CreateTaskRequest struct {
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Priority      string         `json:"priority,omitempty"`
	ScheduledDate string         `json:"scheduled_date,omitempty"`
	StartTime     string         `json:"start_time,omitempty"`
	EndTime       string         `json:"end_time,omitempty"`
	TechnicianID  uint           `json:"technician_id,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerPhone string         `json:"customer_phone,omitempty"`
	VehicleMake   string         `json:"vehicle_make,omitempty"`
	VehicleModel  string         `json:"vehicle_model,omitempty"`
	VehiclePlate  string         `json:"vehicle_plate,omitempty"`
	VehicleYear   int            `json:"vehicle_year,omitempty"`
	MobileJob     bool           `json:"mobile_job,omitempty"`
	Latitude      float64        `json:"latitude,omitempty"`
	Longitude     float64        `json:"longitude,omitempty"`
	ZonePlan      datatypes.JSON `json:"zone_plan,omitempty"`
	Force         bool           `json:"force,omitempty"`
}

// UpdateTaskRequest mirrors PUT /api/tasks/:id; only set fields change.
type UpdateTaskRequest struct {
	Title         *string         `json:"title,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Priority      *string         `json:"priority,omitempty"`
	ScheduledDate *string         `json:"scheduled_date,omitempty"`
	StartTime     *string         `json:"start_time,omitempty"`
	EndTime       *string         `json:"end_time,omitempty"`
	TechnicianID  *uint           `json:"technician_id,omitempty"`
	CustomerName  *string         `json:"customer_name,omitempty"`
	CustomerPhone *string         `json:"customer_phone,omitempty"`
	VehicleMake   *string         `json:"vehicle_make,omitempty"`
	VehicleModel  *string         `json:"vehicle_model,omitempty"`
	VehiclePlate  *string         `json:"vehicle_plate,omitempty"`
	VehicleYear   *int            `json:"vehicle_year,omitempty"`
	MobileJob     *bool           `json:"mobile_job,omitempty"`
	Latitude      *float64        `json:"latitude,omitempty"`
	Longitude     *float64        `json:"longitude,omitempty"`
	ZonePlan      *datatypes.JSON `json:"zone_plan,omitempty"`
	Force         bool            `json:"force,omitempty"`
}

// CheckConflictsRequest mirrors POST /api/calendar/check-conflicts.
type CheckConflictsRequest struct {
	TaskID       uint   `json:"task_id,omitempty"`
	TechnicianID uint   `json:"technician_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
}

// ConflictReport is the advisory answer: whether the slot collides and
// with which calendar entries.
type ConflictReport struct {
	Conflict   bool                  `json:"conflict"`
	Collisions []Models.CalendarTask `json:"collisions"`
}

// RescheduleRequest mirrors POST /api/tasks/:id/reschedule.
type RescheduleRequest struct {
	Date         string `json:"date"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	TechnicianID *uint  `json:"technician_id,omitempty"`
	Force        bool   `json:"force,omitempty"`
}

// DraftResult reports whether an autosave actually wrote anything.
type DraftResult struct {
	Unchanged bool                    `json:"unchanged"`
	Step      Models.InterventionStep `json:"step"`
}

// SignatureResult carries the stored signature path.
type SignatureResult struct {
	Message       string `json:"message"`
	SignaturePath string `json:"signature_path"`
}

// FinalizeResult carries the closed intervention.
type FinalizeResult struct {
	Message      string              `json:"message"`
	Intervention Models.Intervention `json:"intervention"`
}

// ResumeState restores the wizard after an app restart.
type ResumeState struct {
	Task            Models.Task         `json:"task"`
	Intervention    Models.Intervention `json:"intervention"`
	ActiveStepID    uint                `json:"active_step_id"`
	ActiveZoneID    uint                `json:"active_zone_id"`
	AutosaveQuietMS int                 `json:"autosave_quiet_ms"`
}

// AddZoneRequest mirrors POST /api/interventions/:id/zones.
type AddZoneRequest struct {
	Name      string          `json:"name"`
	Area      float64         `json:"area,omitempty"`
	FilmSpec  string          `json:"film_spec,omitempty"`
	Checklist map[string]bool `json:"checklist,omitempty"`
}

// UpdateZoneRequest mirrors PUT /api/interventions/:id/zones/:zoneId.
type UpdateZoneRequest struct {
	Checklist    *map[string]bool `json:"checklist,omitempty"`
	QualityScore *float64         `json:"quality_score,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
	FilmSpec     *string          `json:"film_spec,omitempty"`
	Area         *float64         `json:"area,omitempty"`
}

// ZoneValidationResult carries the validated zone plus the refreshed
// zone list so the wizard can show which panel went active next.
type ZoneValidationResult struct {
	Zone  Models.InstallationZone   `json:"zone"`
	Zones []Models.InstallationZone `json:"zones"`
}

// Login exchanges credentials for a bearer token and stores it on the
// client for the following calls.
func (c *Client) Login(ctx context.Context, username, password string) (Models.User, error) {
	var out struct {
		Message string      `json:"message"`
		Token   string      `json:"token"`
		User    Models.User `json:"user"`
	}
	payload := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/Login", nil, payload, &out); err != nil {
		return Models.User{}, err
	}
	c.Token = out.Token
	return out.User, nil
}

// CurrentUser returns the account behind the stored token.
func (c *Client) CurrentUser(ctx context.Context) (Models.User, error) {
	var user Models.User
	err := c.do(ctx, http.MethodGet, "/api/User", nil, nil, &user)
	return user, err
}

// ListTasks fetches a page of the task board.
func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) ([]Models.Task, ListMeta, error) {
	query := url.Values{}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}
	if opts.Priority != "" {
		query.Set("priority", opts.Priority)
	}
	if opts.TechnicianID != 0 {
		query.Set("technician_id", strconv.FormatUint(uint64(opts.TechnicianID), 10))
	}
	if opts.From != "" {
		query.Set("from", opts.From)
	}
	if opts.To != "" {
		query.Set("to", opts.To)
	}
	if opts.Search != "" {
		query.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}

	var out struct {
		Data []Models.Task `json:"data"`
		Meta ListMeta      `json:"meta"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &out); err != nil {
		return nil, ListMeta{}, err
	}
	return out.Data, out.Meta, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id uint) (Models.Task, error) {
	var task Models.Task
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d", id), nil, nil, &task)
	return task, err
}

// CreateTask books a new job.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (Models.Task, error) {
	var task Models.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &task)
	return task, err
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id uint, req UpdateTaskRequest) (Models.Task, error) {
	var task Models.Task
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/tasks/%d", id), nil, req, &task)
	return task, err
}

// UpdateTaskStatus moves a task through its lifecycle.
func (c *Client) UpdateTaskStatus(ctx context.Context, id uint, status string) (Models.Task, error) {
	var task Models.Task
	payload := map[string]string{"status": status}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/status", id), nil, payload, &task)
	return task, err
}

// DeleteTask soft-deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", id), nil, nil, nil)
}

// CalendarTasks returns the calendar projection for a date range.
func (c *Client) CalendarTasks(ctx context.Context, from, to string, technicianID uint) ([]Models.CalendarTask, error) {
	query := url.Values{}
	if from != "" {
		query.Set("from", from)
	}
	if to != "" {
		query.Set("to", to)
	}
	if technicianID != 0 {
		query.Set("technician_id", strconv.FormatUint(uint64(technicianID), 10))
	}

	var out struct {
		Data []Models.CalendarTask `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/calendar", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CheckConflicts runs the advisory overlap check for a slot.
func (c *Client) CheckConflicts(ctx context.Context, req CheckConflictsRequest) (ConflictReport, error) {
	var report ConflictReport
	err := c.do(ctx, http.MethodPost, "/api/calendar/check-conflicts", nil, req, &report)
	return report, err
}

// RescheduleTask moves a task to a new slot. A colliding slot comes back
// as a 409 APIError unless req.Force is set.
func (c *Client) RescheduleTask(ctx context.Context, id uint, req RescheduleRequest) (Models.Task, error) {
	var task Models.Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/reschedule", id), nil, req, &task)
	return task, err
}

// StartIntervention opens the guided workflow for a task. Calling it on
// a task that already has one returns the existing tree.
func (c *Client) StartIntervention(ctx context.Context, taskID uint) (Models.Intervention, error) {
	var tree Models.Intervention
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/tasks/%d/intervention/start", taskID), nil, nil, &tree)
	return tree, err
}

// GetIntervention fetches the full tree, steps and zones in order.
func (c *Client) GetIntervention(ctx context.Context, id uint) (Models.Intervention, error) {
	var tree Models.Intervention
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/interventions/%d", id), nil, nil, &tree)
	return tree, err
}

// ResumeIntervention restores the wizard state for a task.
func (c *Client) ResumeIntervention(ctx context.Context, taskID uint) (ResumeState, error) {
	var state ResumeState
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tasks/%d/intervention/resume", taskID), nil, nil, &state)
	return state, err
}

// SelectStep makes a step the active one.
func (c *Client) SelectStep(ctx context.Context, interventionID, stepID uint) (Models.InterventionStep, error) {
	var step Models.InterventionStep
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/select", interventionID, stepID), nil, nil, &step)
	return step, err
}

// SaveStepDraft autosaves collected form data. The server skips the
// write when the content hash is unchanged.
func (c *Client) SaveStepDraft(ctx context.Context, interventionID, stepID uint, collected datatypes.JSON, notes string) (DraftResult, error) {
	payload := map[string]interface{}{
		"collected_data": collected,
		"notes":          notes,
	}
	var result DraftResult
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/interventions/%d/steps/%d/draft", interventionID, stepID), nil, payload, &result)
	return result, err
}

// ValidateStep completes a step once its requirements hold and returns
// the refreshed tree.
func (c *Client) ValidateStep(ctx context.Context, interventionID, stepID uint) (Models.Intervention, error) {
	var tree Models.Intervention
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/validate", interventionID, stepID), nil, nil, &tree)
	return tree, err
}

// SkipStep skips a non-mandatory step and returns the refreshed tree.
func (c *Client) SkipStep(ctx context.Context, interventionID, stepID uint) (Models.Intervention, error) {
	var tree Models.Intervention
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/steps/%d/skip", interventionID, stepID), nil, nil, &tree)
	return tree, err
}

// UploadSignature sends the customer's e-signature as base64 PNG data.
func (c *Client) UploadSignature(ctx context.Context, interventionID uint, imageBase64 string) (SignatureResult, error) {
	payload := map[string]string{"image_base64": imageBase64}
	var result SignatureResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/signature", interventionID), nil, payload, &result)
	return result, err
}

// FinalizeIntervention closes the session and completes the task.
func (c *Client) FinalizeIntervention(ctx context.Context, interventionID uint) (FinalizeResult, error) {
	var result FinalizeResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/finalize", interventionID), nil, nil, &result)
	return result, err
}

// AddZone adds a panel to an open intervention.
func (c *Client) AddZone(ctx context.Context, interventionID uint, req AddZoneRequest) (Models.InstallationZone, error) {
	var zone Models.InstallationZone
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones", interventionID), nil, req, &zone)
	return zone, err
}

// SelectZone makes a zone the active one.
func (c *Client) SelectZone(ctx context.Context, interventionID, zoneID uint) (Models.InstallationZone, error) {
	var zone Models.InstallationZone
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/select", interventionID, zoneID), nil, nil, &zone)
	return zone, err
}

// UpdateZone applies a draft update to a zone.
func (c *Client) UpdateZone(ctx context.Context, interventionID, zoneID uint, req UpdateZoneRequest) (Models.InstallationZone, error) {
	var zone Models.InstallationZone
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/interventions/%d/zones/%d", interventionID, zoneID), nil, req, &zone)
	return zone, err
}

// ValidateZone completes a zone once checklist, quality score and photos
// pass the shop's requirements.
func (c *Client) ValidateZone(ctx context.Context, interventionID, zoneID uint) (ZoneValidationResult, error) {
	var result ZoneValidationResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/interventions/%d/zones/%d/validate", interventionID, zoneID), nil, nil, &result)
	return result, err
}

// do runs one request: resolve the path, attach the token, send the
// JSON body and decode the answer or the error envelope.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	endpoint, err := c.resolve(path)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		} else {
			apiErr.Message = string(raw)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) resolve(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(rel).String(), nil
}
