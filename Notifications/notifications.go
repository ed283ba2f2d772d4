package Notifications

import (
	"Aegis/Constants"
	"Aegis/Models"
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/gofiber/fiber/v2"
	"google.golang.org/api/option"
)

var firebaseApp *firebase.App

// InitFirebase sets up the FCM client. Push stays silently disabled when
// the credentials file is missing so local setups run without it.
func InitFirebase() {
	opt := option.WithCredentialsFile(Constants.FirebaseCredentialsFile)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		log.Printf("firebase init failed, push disabled: %v", err)
		return
	}
	firebaseApp = app
	log.Println("Firebase initialized")
}

// sendPush delivers one data+notification message to every token.
func sendPush(title, body string, data map[string]string, tokens []string) {
	if firebaseApp == nil || len(tokens) == 0 {
		return
	}

	ctx := context.Background()
	client, err := firebaseApp.Messaging(ctx)
	if err != nil {
		log.Printf("messaging client failed: %v", err)
		return
	}

	for _, token := range tokens {
		msg := &messaging.Message{
			Token: token,
			Data:  data,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		}
		if _, err := client.Send(ctx, msg); err != nil {
			log.Printf("push send failed: %v", err)
		}
	}
}

// notifyUser stores the in-app copy and pushes to the user's device.
func notifyUser(userID uint, taskID uint, title, body string) {
	record := Models.AppNotification{
		UserID: userID,
		TaskID: taskID,
		Title:  title,
		Body:   body,
	}
	if err := Models.DB.Create(&record).Error; err != nil {
		log.Printf("notification record failed: %v", err)
	}

	tokens, err := Models.TokensForUsers(Models.DB, []uint{userID})
	if err != nil {
		log.Printf("token lookup failed: %v", err)
		return
	}
	sendPush(title, body, map[string]string{
		"task_id": strconv.Itoa(int(taskID)),
		"type":    "task",
	}, tokens)
}

// NotifyAssignment tells a technician they got a new job.
func NotifyAssignment(task Models.Task) {
	if task.TechnicianID == 0 {
		return
	}
	body := fmt.Sprintf("%s %s (%s)", task.VehicleMake, task.VehicleModel, task.VehiclePlate)
	if task.ScheduledDate != "" {
		body += " on " + task.ScheduledDate
		if task.StartTime != "" {
			body += " at " + task.StartTime
		}
	}
	notifyUser(task.TechnicianID, task.ID, "New job assigned", body)
}

// NotifyReschedule tells a technician one of their jobs moved.
func NotifyReschedule(task Models.Task) {
	if task.TechnicianID == 0 {
		return
	}
	body := fmt.Sprintf("%s moved to %s", task.Title, task.ScheduledDate)
	if task.StartTime != "" {
		body += " at " + task.StartTime
	}
	notifyUser(task.TechnicianID, task.ID, "Job rescheduled", body)
}

// SendTomorrowReminders pushes each technician a summary of tomorrow's
// jobs. Returns how many technicians were pinged; the cron logs it.
func SendTomorrowReminders() int {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	var tasks []Models.Task
	if err := Models.DB.Where("scheduled_date = ? AND technician_id <> 0", tomorrow).
		Where("status NOT IN ?", []string{
			Models.TaskStatusCancelled,
			Models.TaskStatusArchived,
			Models.TaskStatusCompleted,
		}).
		Order("start_time ASC").Find(&tasks).Error; err != nil {
		log.Printf("reminder query failed: %v", err)
		return 0
	}

	byTechnician := make(map[uint][]Models.Task)
	for _, task := range tasks {
		byTechnician[task.TechnicianID] = append(byTechnician[task.TechnicianID], task)
	}

	for technicianID, jobs := range byTechnician {
		first := jobs[0]
		start := first.StartTime
		if start == "" {
			start = "open"
		}
		body := fmt.Sprintf("%d job(s) tomorrow, first: %s (%s)", len(jobs), first.Title, start)
		notifyUser(technicianID, first.ID, "Tomorrow's schedule", body)
	}

	return len(byTechnician)
}

// ReturnNotifications lists the caller's latest in-app notifications.
// GET /api/GetNotifications
func ReturnNotifications(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not logged in",
		})
	}

	var notifications []Models.AppNotification
	if err := Models.DB.Where("user_id = ?", user.Id).
		Order("created_at DESC").Limit(50).Find(&notifications).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch notifications",
		})
	}

	return c.JSON(notifications)
}

// MarkNotificationRead flips one notification to read.
// POST /api/MarkNotificationRead
func MarkNotificationRead(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Not logged in",
		})
	}

	var inputJson struct {
		ID uint `json:"id"`
	}
	if err := c.BodyParser(&inputJson); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result := Models.DB.Model(&Models.AppNotification{}).
		Where("id = ? AND user_id = ?", inputJson.ID, user.Id).
		Update("read", true)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update notification",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Notification not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "success",
	})
}
