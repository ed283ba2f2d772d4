package Models

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// CalendarTask is the read-only projection the calendar grid renders.
// Built from Task, never stored.
type CalendarTask struct {
	ID             uint   `json:"id"`
	Title          string `json:"title"`
	ScheduledDate  string `json:"scheduled_date"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	TechnicianID   uint   `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
}

// CalendarTaskFromTask projects a Task onto the calendar shape.
func CalendarTaskFromTask(t Task) CalendarTask {
	return CalendarTask{
		ID:             t.ID,
		Title:          t.Title,
		ScheduledDate:  t.ScheduledDate,
		StartTime:      t.StartTime,
		EndTime:        t.EndTime,
		Status:         t.Status,
		Priority:       t.Priority,
		TechnicianID:   t.TechnicianID,
		TechnicianName: t.TechnicianName,
	}
}

// minutesPerDay bounds a whole-day window.
const minutesPerDay = 24 * 60

// TimeWindow is a half-open [Start, End) slot in minutes since midnight.
// A task without explicit times occupies the whole day, so two untimed
// tasks on the same date always collide and a timed task collides with
// any untimed one.
type TimeWindow struct {
	Start int
	End   int
}

// WholeDay returns the window an untimed task occupies.
func WholeDay() TimeWindow {
	return TimeWindow{Start: 0, End: minutesPerDay}
}

// Overlaps reports whether two half-open windows intersect. Adjacent
// windows (one ends exactly when the other starts) do not conflict.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start < other.End && other.Start < w.End
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", clock)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", clock)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", clock)
	}
	return hours*60 + minutes, nil
}

// NewTimeWindow builds a window from an optional "HH:MM" pair. Times must
// come in pairs; a start without an end (or the reverse) is rejected, and
// the end must be strictly after the start.
func NewTimeWindow(startTime, endTime string) (TimeWindow, error) {
	if startTime == "" && endTime == "" {
		return WholeDay(), nil
	}
	if startTime == "" || endTime == "" {
		return TimeWindow{}, fmt.Errorf("start_time and end_time must both be set or both be empty")
	}
	start, err := ParseClock(startTime)
	if err != nil {
		return TimeWindow{}, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return TimeWindow{}, err
	}
	if end <= start {
		return TimeWindow{}, fmt.Errorf("end_time %q must be after start_time %q", endTime, startTime)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// WindowForTask derives the slot a stored task occupies. Stored times are
// trusted; if they fail to parse the task falls back to blocking the
// whole day rather than silently vanishing from conflict checks.
func WindowForTask(t Task) TimeWindow {
	window, err := NewTimeWindow(t.StartTime, t.EndTime)
	if err != nil {
		return WholeDay()
	}
	return window
}

// FindCollisions returns every calendar task of the technician on the
// given date whose window overlaps the proposed one. The task being moved
// (excludeTaskID) and cancelled/archived tasks never count. Run it on a
// transaction handle to make the check-and-apply of a reschedule atomic.
func FindCollisions(db *gorm.DB, excludeTaskID uint, technicianID uint, date string, window TimeWindow) ([]CalendarTask, error) {
	var candidates []Task
	query := db.Model(&Task{}).
		Where("technician_id = ? AND scheduled_date = ?", technicianID, date).
		Where("status NOT IN ?", []string{TaskStatusCancelled, TaskStatusArchived})
	if excludeTaskID != 0 {
		query = query.Where("id != ?", excludeTaskID)
	}
	if err := query.Order("start_time ASC, id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	var colliding []CalendarTask
	for _, candidate := range candidates {
		if window.Overlaps(WindowForTask(candidate)) {
			colliding = append(colliding, CalendarTaskFromTask(candidate))
		}
	}
	return colliding, nil
}
