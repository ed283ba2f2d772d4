package Models

import (
	"crypto/sha256"
	"fmt"

	"gorm.io/gorm"
)

// PatternEntry is one cut pattern scraped from the supplier portal:
// which panel of which vehicle it fits and the plotter code to cut it.
type PatternEntry struct {
	gorm.Model
	VehicleMake  string  `json:"vehicle_make" gorm:"size:60;index"`
	VehicleModel string  `json:"vehicle_model" gorm:"size:60;index"`
	YearRange    string  `json:"year_range" gorm:"size:20"`
	PanelName    string  `json:"panel_name" gorm:"size:60"`
	PatternCode  string  `json:"pattern_code" gorm:"size:40"`
	LengthCM     float64 `json:"length_cm"`
	WidthCM      float64 `json:"width_cm"`
	Hash         string  `json:"-" gorm:"uniqueIndex;size:64"`
}

// ComputeHash returns the dedup digest of the pattern's identity fields.
// The catalog sync uses it to skip rows it already imported.
func (pattern *PatternEntry) ComputeHash() string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s",
		pattern.VehicleMake,
		pattern.VehicleModel,
		pattern.YearRange,
		pattern.PanelName,
		pattern.PatternCode,
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// BeforeCreate derives the dedup hash so re-running the catalog sync
// never inserts the same pattern twice.
func (pattern *PatternEntry) BeforeCreate(tx *gorm.DB) error {
	pattern.Hash = pattern.ComputeHash()
	return nil
}
