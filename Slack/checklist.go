package Slack

import (
	"Aegis/Constants"
	"Aegis/Models"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"gorm.io/gorm"
)

// checklistItemDef defines one line of the morning routine.
type checklistItemDef struct {
	Description string
	Validated   bool
}

// OpeningChecklist is the shop's morning routine. Order matters: the
// item number in Slack commands is the 1-based position here.
var OpeningChecklist = []checklistItemDef{
	{"Confirm film stock above minimums", true},
	{"Check plotter blade and cutting strip", false},
	{"Mix fresh slip solution and fill sprayers", false},
	{"Review today's schedule for overlaps", true},
	{"Charge heat guns and check IR thermometer", false},
	{"Call customers with vehicles ready for pickup", false},
}

// validators maps the 1-based checklist position to its database check.
var validators = map[int]func() (bool, string, []string){
	1: ValidateFilmStock,
	4: ValidateSchedule,
}

// ValidateFilmStock fails when any film material sits at or below its
// minimum stock, listing the rolls that need a reorder.
func ValidateFilmStock() (bool, string, []string) {
	var materials []Models.FilmMaterial
	if err := Models.DB.Find(&materials).Error; err != nil {
		log.Printf("Error fetching film materials: %v", err)
		return false, "Error fetching film materials from database", nil
	}

	var low []string
	for _, material := range materials {
		if material.IsLowStock() {
			low = append(low, fmt.Sprintf("%s (%.1fm left, min %.1fm)",
				material.Name, material.StockMeters, material.MinStockMeters))
		}
	}

	details := []string{
		fmt.Sprintf("Materials tracked: %d", len(materials)),
		fmt.Sprintf("Below minimum: %d", len(low)),
	}

	if len(low) > 0 {
		details = append(details, fmt.Sprintf("Reorder: %s", strings.Join(low, ", ")))
		return false, fmt.Sprintf("%d materials below minimum stock", len(low)), details
	}

	return true, fmt.Sprintf("All %d materials above minimum stock", len(materials)), details
}

// ValidateSchedule fails when two jobs of the same technician overlap
// today, listing each colliding pair so the scheduler can fix the board.
func ValidateSchedule() (bool, string, []string) {
	today := time.Now().Format("2006-01-02")

	var tasks []Models.Task
	if err := Models.DB.Where("scheduled_date = ? AND technician_id <> 0", today).
		Where("status NOT IN ?", []string{Models.TaskStatusCancelled, Models.TaskStatusArchived}).
		Order("technician_id ASC, start_time ASC").Find(&tasks).Error; err != nil {
		log.Printf("Error fetching today's schedule: %v", err)
		return false, "Error fetching today's schedule from database", nil
	}

	var clashes []string
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			if tasks[i].TechnicianID != tasks[j].TechnicianID {
				continue
			}
			if Models.WindowForTask(tasks[i]).Overlaps(Models.WindowForTask(tasks[j])) {
				clashes = append(clashes, fmt.Sprintf("%s: '%s' and '%s'",
					tasks[i].TechnicianName, tasks[i].Title, tasks[j].Title))
			}
		}
	}

	details := []string{
		fmt.Sprintf("Jobs today: %d", len(tasks)),
		fmt.Sprintf("Overlaps: %d", len(clashes)),
	}

	if len(clashes) > 0 {
		details = append(details, fmt.Sprintf("Fix: %s", strings.Join(clashes, ", ")))
		return false, fmt.Sprintf("%d overlapping jobs on today's board", len(clashes)), details
	}

	return true, fmt.Sprintf("No overlaps across %d scheduled jobs", len(tasks)), details
}

// CreateDailyChecklist inserts today's checklist rows if they are
// missing. Safe to call repeatedly; existing rows are left alone.
func CreateDailyChecklist() error {
	today := time.Now().Format("2006-01-02")

	tx := Models.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("error starting transaction: %v", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for i, def := range OpeningChecklist {
		var existing Models.ShopChecklistItem
		err := tx.Where("date = ? AND item_order = ?", today, i+1).First(&existing).Error

		if err == gorm.ErrRecordNotFound {
			item := Models.ShopChecklistItem{
				Date:        today,
				ItemOrder:   i + 1,
				Description: def.Description,
			}
			if err := tx.Create(&item).Error; err != nil {
				tx.Rollback()
				return fmt.Errorf("error creating checklist item %d: %v", i+1, err)
			}
		} else if err != nil {
			tx.Rollback()
			return fmt.Errorf("error checking checklist item %d: %v", i+1, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("error committing transaction: %v", err)
	}

	return nil
}

// GenerateChecklistMessage renders the pinned checklist message.
func GenerateChecklistMessage() string {
	var message strings.Builder

	today := time.Now()
	todayStr := today.Format("2006-01-02")

	message.WriteString("# Shop Opening Checklist\n")
	message.WriteString(fmt.Sprintf("*Date: %s*\n\n", today.Format("January 2, 2006")))

	var jobCount int64
	Models.DB.Model(&Models.Task{}).
		Where("scheduled_date = ?", todayStr).
		Where("status NOT IN ?", []string{Models.TaskStatusCancelled, Models.TaskStatusArchived}).
		Count(&jobCount)
	message.WriteString(fmt.Sprintf("**Jobs on the board today:** %d\n\n", jobCount))
	message.WriteString("---\n\n")

	items, err := Models.ChecklistForDate(Models.DB, todayStr)
	if err != nil {
		log.Printf("Error loading checklist: %v", err)
	}

	for i, def := range OpeningChecklist {
		num := i + 1

		var item *Models.ShopChecklistItem
		for k := range items {
			if items[k].ItemOrder == num {
				item = &items[k]
				break
			}
		}
		completed := item != nil && item.Completed

		var status, emoji, checkLine string
		if completed {
			status = "DONE"
			emoji = "✅"
		} else if validator, ok := validators[num]; ok {
			passed, validationMsg, _ := validator()
			if passed {
				status = "READY"
				emoji = "🟢"
				checkLine = fmt.Sprintf("**Check:** %s\n", validationMsg)
			} else {
				status = "BLOCKED"
				emoji = "❌"
				checkLine = fmt.Sprintf("**Blocked:** %s\n", validationMsg)
			}
		} else {
			status = "OPEN"
			emoji = "⏳"
		}

		message.WriteString(fmt.Sprintf("## **%d. %s** %s\n", num, def.Description, emoji))
		message.WriteString(fmt.Sprintf("**Status:** %s\n", status))

		if completed {
			if item.CompletedAt != nil {
				message.WriteString(fmt.Sprintf("**Done by:** %s at %s\n",
					item.CompletedBy, item.CompletedAt.Format("15:04")))
			} else {
				message.WriteString(fmt.Sprintf("**Done by:** %s\n", item.CompletedBy))
			}
		} else {
			message.WriteString(checkLine)
			message.WriteString(fmt.Sprintf("\n*Mark off with:* `!done %d [your_name]`\n", num))
		}

		if i < len(OpeningChecklist)-1 {
			message.WriteString("\n---\n\n")
		}
	}

	message.WriteString("\n---\n\n")
	message.WriteString("### **Commands:**\n")
	message.WriteString("- `!done [number] [your_name]` - Mark an item off\n")
	message.WriteString("- `!checklist` - Show current status\n")
	message.WriteString("- `!help` - Show help information\n\n")
	message.WriteString("*Items with database checks are verified before completion*")

	return message.String()
}

// ProcessChecklistCommand handles checklist commands typed in Slack.
func ProcessChecklistCommand(command string) (string, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch strings.ToLower(parts[0]) {
	case "!done":
		if len(parts) < 3 {
			return "Usage: `!done [item_number] [your_name]`", nil
		}
		return handleDoneCommand(parts[1], parts[2])

	case "!checklist":
		return handleChecklistStatus()

	case "!help":
		return handleChecklistHelp()

	default:
		return "", fmt.Errorf("unknown command")
	}
}

// handleDoneCommand marks one item off, running its validator first.
func handleDoneCommand(itemNumStr, employeeName string) (string, error) {
	itemNum, err := strconv.Atoi(itemNumStr)
	if err != nil || itemNum < 1 || itemNum > len(OpeningChecklist) {
		return fmt.Sprintf("Item number must be 1-%d", len(OpeningChecklist)), nil
	}

	today := time.Now().Format("2006-01-02")
	def := OpeningChecklist[itemNum-1]

	var item Models.ShopChecklistItem
	err = Models.DB.Where("date = ? AND item_order = ?", today, itemNum).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		if createErr := CreateDailyChecklist(); createErr != nil {
			return "Error creating today's checklist", createErr
		}
		if err := Models.DB.Where("date = ? AND item_order = ?", today, itemNum).First(&item).Error; err != nil {
			return "Error loading checklist item", err
		}
	} else if err != nil {
		return "Error loading checklist item", err
	}

	if item.Completed {
		return fmt.Sprintf("Item %d '%s' is already done by %s",
			itemNum, def.Description, item.CompletedBy), nil
	}

	if validator, ok := validators[itemNum]; ok {
		passed, validationMsg, details := validator()
		if !passed {
			response := fmt.Sprintf("❌ **Cannot mark off item %d '%s'**\n%s\n\n",
				itemNum, def.Description, validationMsg)
			if len(details) > 0 {
				response += fmt.Sprintf("**Details:**\n%s\n\n", strings.Join(details, "\n"))
			}
			response += "Sort it out first, then try again."
			return response, nil
		}
	}

	if _, err := Models.CompleteChecklistItem(Models.DB, item.ID, employeeName); err != nil {
		return "Error saving item completion", err
	}

	return fmt.Sprintf("✅ **Item %d marked off!**\n'%s' done by %s",
		itemNum, def.Description, employeeName), nil
}

// handleChecklistStatus returns a compact status listing.
func handleChecklistStatus() (string, error) {
	today := time.Now()
	todayStr := today.Format("2006-01-02")

	items, err := Models.ChecklistForDate(Models.DB, todayStr)
	if err != nil {
		return "Error loading today's checklist", err
	}

	response := fmt.Sprintf("**Opening Checklist - %s**\n\n", today.Format("January 2, 2006"))

	for i, def := range OpeningChecklist {
		num := i + 1

		var item *Models.ShopChecklistItem
		for k := range items {
			if items[k].ItemOrder == num {
				item = &items[k]
				break
			}
		}

		var status string
		if item != nil && item.Completed {
			if item.CompletedAt != nil {
				status = fmt.Sprintf("Done by %s at %s", item.CompletedBy, item.CompletedAt.Format("15:04"))
			} else {
				status = fmt.Sprintf("Done by %s", item.CompletedBy)
			}
		} else if validator, ok := validators[num]; ok {
			passed, validationMsg, _ := validator()
			if passed {
				status = "Ready - " + validationMsg
			} else {
				status = "Blocked - " + validationMsg
			}
		} else {
			status = "Open"
		}

		response += fmt.Sprintf("**%d. %s:** %s\n", num, def.Description, status)
	}

	response += "\nUse `!done [number] [your_name]` to mark items off"
	return response, nil
}

// handleChecklistHelp returns help information.
func handleChecklistHelp() (string, error) {
	help := "**Opening Checklist Help**\n\n"
	help += "**Commands:**\n"
	help += "`!done [number] [your_name]` - Mark an item off\n"
	help += "`!checklist` - Show current status\n"
	help += "`!help` - Show this help message\n\n"
	help += "**Examples:**\n"
	help += "`!done 2 Omar` - Mark the plotter check done as Omar\n"
	help += "`!done 1 Sara` - Confirm stock levels as Sara\n\n"
	help += "**Items:**\n"
	for i, def := range OpeningChecklist {
		note := ""
		if def.Validated {
			note = " (verified against the database)"
		}
		help += fmt.Sprintf("%d. %s%s\n", i+1, def.Description, note)
	}
	help += "\n**Notes:**\n"
	help += "- Verified items stay blocked until the database check passes\n"
	help += "- The pinned list refreshes automatically each morning"

	return help, nil
}

// SendDailyChecklistToSlack renders the checklist and pins it to the
// shop channel, remembering the message timestamp on today's rows.
func SendDailyChecklistToSlack() error {
	if Constants.SlackBotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN not set")
	}
	if Constants.Shop.SlackChannelID == "" {
		return fmt.Errorf("slack channel not configured")
	}

	client := NewSlackClient(Constants.SlackBotToken)
	message := GenerateChecklistMessage()

	ts, err := client.SendAndPinWithCleanup(Constants.Shop.SlackChannelID, message)
	if err != nil {
		return err
	}

	if ts != "" {
		today := time.Now().Format("2006-01-02")
		Models.DB.Model(&Models.ShopChecklistItem{}).
			Where("date = ?", today).Update("slack_ts", ts)
	}

	return nil
}

// StartChecklistListener runs the Socket Mode listener that picks up
// checklist commands typed in the shop channel. Blocks until the
// connection dies.
func StartChecklistListener() error {
	if Constants.SlackBotToken == "" || Constants.SlackAppToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set")
	}

	api := slack.New(
		Constants.SlackBotToken,
		slack.OptionAppLevelToken(Constants.SlackAppToken),
		slack.OptionDebug(false),
	)

	socketClient := socketmode.New(api)

	go func() {
		for envelope := range socketClient.Events {
			switch envelope.Type {
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
				if !ok {
					log.Printf("Unexpected event type: %s", envelope.Type)
					continue
				}

				// Acknowledge the event
				socketClient.Ack(*envelope.Request)

				if eventsAPIEvent.Type == slackevents.CallbackEvent {
					innerEvent := eventsAPIEvent.InnerEvent
					if ev, ok := innerEvent.Data.(*slackevents.MessageEvent); ok {
						// Skip bot messages and messages from other channels
						if ev.BotID != "" || ev.Channel != Constants.Shop.SlackChannelID {
							continue
						}

						if strings.HasPrefix(ev.Text, "!") {
							response, err := ProcessChecklistCommand(ev.Text)
							if err != nil {
								log.Printf("Error processing command: %v", err)
								continue
							}

							if response != "" {
								_, _, err := api.PostMessage(ev.Channel,
									slack.MsgOptionText(response, false),
								)
								if err != nil {
									log.Printf("Error sending response: %v", err)
								}

								// Refresh the pinned list after a completion
								if strings.Contains(response, "marked off") {
									time.Sleep(2 * time.Second)
									if err := SendDailyChecklistToSlack(); err != nil {
										log.Printf("Error updating pinned checklist: %v", err)
									}
								}
							}
						}
					}
				}
			}
		}
	}()

	log.Println("Starting Slack checklist listener...")
	return socketClient.Run()
}

// InitializeChecklistSystem creates today's checklist, posts it, and
// starts the command listener. The daily refresh runs from CronJobs.
func InitializeChecklistSystem() error {
	if err := CreateDailyChecklist(); err != nil {
		log.Printf("Warning: Could not create today's checklist: %v", err)
	}

	if err := SendDailyChecklistToSlack(); err != nil {
		log.Printf("Warning: Could not send initial checklist to Slack: %v", err)
	} else {
		log.Println("Opening checklist sent to Slack")
	}

	go func() {
		if err := StartChecklistListener(); err != nil {
			log.Printf("Error starting Slack checklist listener: %v", err)
		}
	}()

	log.Println("Slack checklist system initialized")
	return nil
}
