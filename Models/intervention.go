package Models

import (
	"Aegis/Constants"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Intervention statuses
const (
	InterventionInProgress = "in_progress"
	InterventionCompleted  = "completed"
)

// Step types, in wizard order.
const (
	StepPreparation  = "preparation"
	StepInstallation = "installation"
	StepFinalization = "finalization"
)

// Step / zone statuses
const (
	StepStatusPending    = "pending"
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
	StepStatusSkipped    = "skipped"
)

// Intervention is the guided install session for a task: one per task,
// created when the technician starts work and closed by finalize.
type Intervention struct {
	gorm.Model
	TaskID        uint       `json:"task_id" gorm:"uniqueIndex;not null"`
	Status        string     `json:"status" gorm:"type:varchar(20);default:'in_progress'"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	SignaturePath string     `json:"signature_path"`

	Steps []InterventionStep `json:"steps,omitempty" gorm:"foreignKey:InterventionID;constraint:OnDelete:CASCADE"`
	Zones []InstallationZone `json:"zones,omitempty" gorm:"foreignKey:InterventionID;constraint:OnDelete:CASCADE"`
}

// InterventionStep is one screen of the wizard. CollectedData holds
// whatever the step form gathered; CollectedHash is the digest of the
// last saved draft so identical autosaves are acknowledged without a
// write.
type InterventionStep struct {
	gorm.Model
	InterventionID     uint           `json:"intervention_id" gorm:"index;not null"`
	StepType           string         `json:"step_type" gorm:"type:varchar(20);not null"`
	StepOrder          int            `json:"step_order" gorm:"not null"`
	Status             string         `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Mandatory          bool           `json:"mandatory"`
	CollectedData      datatypes.JSON `json:"collected_data"`
	CollectedHash      string         `json:"-" gorm:"size:64"`
	QualityCheckPassed bool           `json:"quality_check_passed"`
	Notes              string         `json:"notes" gorm:"type:text"`
}

// InstallationZone is one film panel (hood, left fender, ...) inside an
// intervention. A zone may only reach completed when its whole checklist
// is ticked, a quality score is recorded and enough photos are attached.
type InstallationZone struct {
	gorm.Model
	InterventionID uint           `json:"intervention_id" gorm:"index;not null"`
	Name           string         `json:"name" gorm:"size:100;not null"`
	Area           float64        `json:"area"`
	FilmSpec       string         `json:"film_spec"`
	Status         string         `json:"status" gorm:"type:varchar(20);default:'pending'"`
	Checklist      datatypes.JSON `json:"checklist"`
	QualityScore   *float64       `json:"quality_score"`
	Photos         datatypes.JSON `json:"photos"`
	ZoneOrder      int            `json:"zone_order"`
	Notes          string         `json:"notes" gorm:"type:text"`
}

// DefaultSteps returns the step rows a fresh intervention starts with.
// Preparation can be skipped for repeat customers; installation and
// finalization cannot.
func DefaultSteps(interventionID uint) []InterventionStep {
	return []InterventionStep{
		{InterventionID: interventionID, StepType: StepPreparation, StepOrder: 1, Status: StepStatusPending, Mandatory: false},
		{InterventionID: interventionID, StepType: StepInstallation, StepOrder: 2, Status: StepStatusPending, Mandatory: true},
		{InterventionID: interventionID, StepType: StepFinalization, StepOrder: 3, Status: StepStatusPending, Mandatory: true},
	}
}

// DefaultZoneChecklist returns the shop's standard checklist with every
// item unticked, encoded for storage.
func DefaultZoneChecklist() datatypes.JSON {
	items := make(map[string]bool, len(Constants.Shop.DefaultChecklist))
	for _, item := range Constants.Shop.DefaultChecklist {
		items[item] = false
	}
	encoded, _ := json.Marshal(items)
	return datatypes.JSON(encoded)
}

// DigestCollectedData produces the dedup hash for a draft save. The
// payload is decoded and re-encoded so key order does not matter: two
// autosaves of the same form state always digest identically.
func DigestCollectedData(collected datatypes.JSON, notes string) string {
	canonical := []byte("null")
	if len(collected) > 0 {
		var decoded interface{}
		if err := json.Unmarshal(collected, &decoded); err == nil {
			if encoded, err := json.Marshal(decoded); err == nil {
				canonical = encoded
			}
		}
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s|%s", canonical, notes)))
	return fmt.Sprintf("%x", hash)
}

// ChecklistMap decodes the zone checklist. A zone created without one
// decodes to an empty map.
func (z *InstallationZone) ChecklistMap() map[string]bool {
	items := make(map[string]bool)
	if len(z.Checklist) > 0 {
		_ = json.Unmarshal(z.Checklist, &items)
	}
	return items
}

// PhotoList decodes the stored photo URLs.
func (z *InstallationZone) PhotoList() []string {
	var photos []string
	if len(z.Photos) > 0 {
		_ = json.Unmarshal(z.Photos, &photos)
	}
	return photos
}

// CanValidate checks the zone completion invariant: every checklist item
// true, a quality score recorded, and at least minPhotos photos. It
// returns every failed condition so the wizard can show all of them at
// once instead of one per round trip.
func (z *InstallationZone) CanValidate(minPhotos int) (bool, []string) {
	var reasons []string

	checklist := z.ChecklistMap()
	if len(checklist) == 0 {
		reasons = append(reasons, "checklist is empty")
	}
	for item, done := range checklist {
		if !done {
			reasons = append(reasons, fmt.Sprintf("checklist item %q not done", item))
		}
	}

	if z.QualityScore == nil {
		reasons = append(reasons, "quality score not recorded")
	}

	if photos := z.PhotoList(); len(photos) < minPhotos {
		reasons = append(reasons, fmt.Sprintf("needs at least %d photo(s), has %d", minPhotos, len(photos)))
	}

	return len(reasons) == 0, reasons
}

// StepCollectedChecklistComplete decodes the "checklist" object inside a
// step's collected data and reports whether every entry is ticked. Steps
// other than installation complete through their own form checklist; the
// installation step completes through its zones instead.
func (s *InterventionStep) StepCollectedChecklistComplete() (bool, []string) {
	var payload struct {
		Checklist map[string]bool `json:"checklist"`
	}
	if len(s.CollectedData) == 0 {
		return false, []string{"no data collected yet"}
	}
	if err := json.Unmarshal(s.CollectedData, &payload); err != nil {
		return false, []string{"collected data is not valid JSON"}
	}
	if len(payload.Checklist) == 0 {
		return false, []string{"checklist not filled in"}
	}
	var missing []string
	for item, done := range payload.Checklist {
		if !done {
			missing = append(missing, fmt.Sprintf("checklist item %q not done", item))
		}
	}
	return len(missing) == 0, missing
}
