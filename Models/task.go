package Models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Task statuses
const (
	TaskStatusDraft      = "draft"
	TaskStatusPending    = "pending"
	TaskStatusScheduled  = "scheduled"
	TaskStatusInProgress = "in_progress"
	TaskStatusOnHold     = "on_hold"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
	TaskStatusArchived   = "archived"
)

// Task priorities
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Task is a job on the shop board: one vehicle, one customer, optionally
// scheduled to a technician and a day. Times are stored as strings the
// way the calendar sends them ("YYYY-MM-DD" and "HH:MM").
type Task struct {
	gorm.Model
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Status      string `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Priority    string `json:"priority" gorm:"type:varchar(10);default:'medium'"`

	ScheduledDate string `json:"scheduled_date" gorm:"type:varchar(10);index"`
	StartTime     string `json:"start_time" gorm:"type:varchar(5)"`
	EndTime       string `json:"end_time" gorm:"type:varchar(5)"`

	TechnicianID   uint   `json:"technician_id" gorm:"index"`
	TechnicianName string `json:"technician_name"`

	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`

	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehiclePlate string `json:"vehicle_plate"`
	VehicleYear  int    `json:"vehicle_year"`

	// Mobile installs happen at the customer's location.
	MobileJob bool    `json:"mobile_job"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// ZonePlan is the quoted list of zone names before the intervention
	// exists; the wizard turns it into InstallationZone rows.
	ZonePlan datatypes.JSON `json:"zone_plan"`

	Intervention *Intervention `json:"intervention,omitempty" gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
}

// StatusOption feeds the status dropdowns on the board and the calendar.
type StatusOption struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// TaskStatuses defines all allowed task status values
var TaskStatuses = []StatusOption{
	{
		Value:       TaskStatusDraft,
		Label:       "Draft",
		Description: "Quote only, not on the board yet",
		Category:    "Open",
	},
	{
		Value:       TaskStatusPending,
		Label:       "Pending",
		Description: "Accepted but not scheduled",
		Category:    "Open",
	},
	{
		Value:       TaskStatusScheduled,
		Label:       "Scheduled",
		Description: "Booked on the calendar",
		Category:    "Open",
	},
	{
		Value:       TaskStatusInProgress,
		Label:       "In Progress",
		Description: "Intervention started, vehicle in the bay",
		Category:    "Active",
	},
	{
		Value:       TaskStatusOnHold,
		Label:       "On Hold",
		Description: "Waiting on parts, film or the customer",
		Category:    "Active",
	},
	{
		Value:       TaskStatusCompleted,
		Label:       "Completed",
		Description: "Installation finished and signed off",
		Category:    "Closed",
	},
	{
		Value:       TaskStatusCancelled,
		Label:       "Cancelled",
		Description: "Customer cancelled the job",
		Category:    "Closed",
	},
	{
		Value:       TaskStatusArchived,
		Label:       "Archived",
		Description: "Removed from the board and the calendar",
		Category:    "Closed",
	},
}

// TaskPriorities defines all allowed task priority values
var TaskPriorities = []StatusOption{
	{Value: TaskPriorityLow, Label: "Low", Description: "Flexible timing", Category: "Priority"},
	{Value: TaskPriorityMedium, Label: "Medium", Description: "Normal booking", Category: "Priority"},
	{Value: TaskPriorityHigh, Label: "High", Description: "Customer waiting", Category: "Priority"},
	{Value: TaskPriorityUrgent, Label: "Urgent", Description: "Same-day turnaround promised", Category: "Priority"},
}

// IsValidTaskStatus checks if the provided status is a known value.
func IsValidTaskStatus(status string) bool {
	for _, opt := range TaskStatuses {
		if opt.Value == status {
			return true
		}
	}
	return false
}

// IsValidTaskPriority checks if the provided priority is a known value.
func IsValidTaskPriority(priority string) bool {
	for _, opt := range TaskPriorities {
		if opt.Value == priority {
			return true
		}
	}
	return false
}

// IsTerminalTaskStatus reports whether a task in this status refuses any
// further status change.
func IsTerminalTaskStatus(status string) bool {
	return status == TaskStatusCompleted ||
		status == TaskStatusCancelled ||
		status == TaskStatusArchived
}
