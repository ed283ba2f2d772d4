package CronJobs

import (
	"fmt"
	"log"
	"os"
	"time"

	"Aegis/Constants"
	"Aegis/Models"
	"Aegis/Notifications"
	"Aegis/PatternCatalog"
	"Aegis/Slack"

	"github.com/robfig/cron/v3"
)

// ShopScheduler owns the recurring jobs: the evening reminder push, the
// morning checklist post and the weekly pattern catalog sync.
type ShopScheduler struct {
	cronScheduler  *cron.Cron
	reminderJobID  cron.EntryID
	checklistJobID cron.EntryID
	catalogJobID   cron.EntryID
}

// NewShopScheduler creates a scheduler with second-resolution specs.
func NewShopScheduler() *ShopScheduler {
	return &ShopScheduler{
		cronScheduler: cron.New(cron.WithSeconds()),
	}
}

// Start registers and starts all recurring jobs. The reminder hour comes
// from the settings row so an admin change applies on next restart.
func (s *ShopScheduler) Start() error {
	reminderHour := Constants.Shop.ReminderHour
	if settings, err := Models.GetShopSettings(Models.DB); err == nil {
		reminderHour = settings.ReminderHour
	}

	var err error
	s.reminderJobID, err = s.cronScheduler.AddFunc(fmt.Sprintf("0 0 %d * * *", reminderHour), func() {
		log.Println("Running scheduled job reminders")
		s.runReminders()
	})
	if err != nil {
		return fmt.Errorf("error scheduling reminder job: %w", err)
	}

	s.checklistJobID, err = s.cronScheduler.AddFunc("0 0 7 * * *", func() {
		log.Println("Posting morning checklist")
		s.runChecklistPost()
	})
	if err != nil {
		return fmt.Errorf("error scheduling checklist job: %w", err)
	}

	s.catalogJobID, err = s.cronScheduler.AddFunc("0 0 5 * * 1", func() {
		log.Println("Running weekly pattern catalog sync")
		s.runCatalogSync()
	})
	if err != nil {
		return fmt.Errorf("error scheduling catalog sync job: %w", err)
	}

	s.cronScheduler.Start()
	fmt.Printf("Shop scheduler started - reminders at %02d:00, checklist at 07:00, catalog sync Mondays 05:00\n", reminderHour)

	return nil
}

// Stop terminates the scheduler
func (s *ShopScheduler) Stop() {
	if s.cronScheduler != nil {
		s.cronScheduler.Stop()
		log.Println("Shop scheduler stopped")
	}
}

// UpdateReminderSchedule changes the reminder spec at runtime.
// Format: "0 0 18 * * *" = at 18:00:00 every day
func (s *ShopScheduler) UpdateReminderSchedule(schedule string) error {
	s.cronScheduler.Remove(s.reminderJobID)

	var err error
	s.reminderJobID, err = s.cronScheduler.AddFunc(schedule, func() {
		log.Println("Running scheduled job reminders")
		s.runReminders()
	})

	if err != nil {
		return fmt.Errorf("error updating schedule: %w", err)
	}

	log.Printf("Reminder schedule updated to: %s\n", schedule)
	return nil
}

// RunManualReminders fires the reminder push outside the schedule.
func (s *ShopScheduler) RunManualReminders() {
	log.Println("Running manual job reminders")
	s.runReminders()
}

// runReminders pushes each technician tomorrow's schedule.
func (s *ShopScheduler) runReminders() {
	count := Notifications.SendTomorrowReminders()
	appendCronLog(fmt.Sprintf("reminders: %d technicians notified", count))
	log.Printf("Job reminders sent to %d technicians", count)
}

// runChecklistPost refreshes today's checklist rows and the pinned
// Slack message.
func (s *ShopScheduler) runChecklistPost() {
	if err := Slack.CreateDailyChecklist(); err != nil {
		log.Printf("Error creating daily checklist: %v\n", err)
		appendCronLog(fmt.Sprintf("checklist: create failed: %v", err))
		return
	}
	if err := Slack.SendDailyChecklistToSlack(); err != nil {
		log.Printf("Error posting checklist to Slack: %v\n", err)
		appendCronLog(fmt.Sprintf("checklist: post failed: %v", err))
		return
	}
	appendCronLog("checklist: posted")
}

// runCatalogSync imports new patterns from the supplier portal.
func (s *ShopScheduler) runCatalogSync() {
	created, skipped, err := PatternCatalog.SyncPatternCatalog()
	if err != nil {
		log.Printf("Error in catalog sync: %v\n", err)
		appendCronLog(fmt.Sprintf("catalog: sync failed: %v", err))
		return
	}
	appendCronLog(fmt.Sprintf("catalog: %d imported, %d skipped", created, skipped))
}

// appendCronLog writes one line per job run to logs/cron.log so the
// scheduler's history survives restarts.
func appendCronLog(line string) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Error creating logs directory: %v\n", err)
		return
	}

	logFile, err := os.OpenFile("logs/cron.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Error opening cron log file: %v\n", err)
		return
	}
	defer logFile.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(logFile, "%s %s\n", timestamp, line)
}
