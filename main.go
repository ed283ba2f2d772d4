package main

import (
	"Aegis/Constants"
	"Aegis/CronJobs"
	"Aegis/FiberConfig"
	"Aegis/Models"
	"Aegis/Notifications"
	"Aegis/Slack"
	"log"

	_ "github.com/go-sql-driver/mysql"
)

func main() {
	Constants.Load()
	Models.Connect()

	go Notifications.InitFirebase()

	if Constants.SlackBotToken != "" {
		go func() {
			if err := Slack.InitializeChecklistSystem(); err != nil {
				log.Printf("Slack checklist init failed: %v", err)
			}
		}()
	} else {
		log.Println("SLACK_BOT_TOKEN not set, checklist bot disabled")
	}

	scheduler := CronJobs.NewShopScheduler()
	if err := scheduler.Start(); err != nil {
		log.Printf("Scheduler failed to start: %v", err)
	}
	defer scheduler.Stop()

	FiberConfig.FiberConfig()
}
