package Slack

import (
	"Aegis/Models"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ChecklistActionResponse represents the result of a checklist action
type ChecklistActionResponse struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message"`
	Item    *Models.ShopChecklistItem `json:"item,omitempty"`
}

// ChecklistResponse represents a full day's checklist
type ChecklistResponse struct {
	Date  string                     `json:"date"`
	Items []Models.ShopChecklistItem `json:"items"`
}

// ValidationResult represents one database check run on demand
type ValidationResult struct {
	Item        int      `json:"item"`
	Description string   `json:"description"`
	Passed      bool     `json:"passed"`
	Message     string   `json:"message"`
	Details     []string `json:"details,omitempty"`
}

// getUserFromContext extracts the authenticated user from fiber context
func getUserFromContext(c *fiber.Ctx) (*Models.User, error) {
	user, ok := c.Locals("user").(Models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, "User authentication required")
	}
	return &user, nil
}

// GetShopChecklist returns the checklist of one day (today by default).
func GetShopChecklist(c *fiber.Ctx) error {
	date := c.Query("date", time.Now().Format("2006-01-02"))

	items, err := Models.ChecklistForDate(Models.DB, date)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Failed to load checklist: " + err.Error(),
		})
	}

	return c.JSON(ChecklistResponse{
		Date:  date,
		Items: items,
	})
}

// CompleteChecklistItemAPI marks one of today's items off from the
// dashboard. Same validation gate as the Slack command path.
func CompleteChecklistItemAPI(c *fiber.Ctx) error {
	user, err := getUserFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ChecklistActionResponse{
			Success: false,
			Message: "User authentication required",
		})
	}

	itemNum, err := strconv.Atoi(c.Params("order"))
	if err != nil || itemNum < 1 || itemNum > len(OpeningChecklist) {
		return c.Status(fiber.StatusBadRequest).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Invalid item number",
		})
	}

	if createErr := CreateDailyChecklist(); createErr != nil {
		log.Printf("Could not create today's checklist: %v", createErr)
	}

	today := time.Now().Format("2006-01-02")
	var item Models.ShopChecklistItem
	if err := Models.DB.Where("date = ? AND item_order = ?", today, itemNum).First(&item).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Checklist item not found",
		})
	}

	if item.Completed {
		return c.JSON(ChecklistActionResponse{
			Success: true,
			Message: "Item already done by " + item.CompletedBy,
			Item:    &item,
		})
	}

	if validator, ok := validators[itemNum]; ok {
		passed, validationMsg, _ := validator()
		if !passed {
			return c.Status(fiber.StatusBadRequest).JSON(ChecklistActionResponse{
				Success: false,
				Message: validationMsg,
				Item:    &item,
			})
		}
	}

	updated, err := Models.CompleteChecklistItem(Models.DB, item.ID, user.Name)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Failed to complete item: " + err.Error(),
		})
	}

	log.Printf("API: Checklist item %d completed by %s", itemNum, user.Name)

	// Refresh the pinned Slack message off the request path
	go func() {
		if err := SendDailyChecklistToSlack(); err != nil {
			log.Printf("Error updating pinned checklist: %v", err)
		}
	}()

	return c.JSON(ChecklistActionResponse{
		Success: true,
		Message: "Item marked off",
		Item:    &updated,
	})
}

// RunChecklistValidations runs every database check and returns the
// results, so the dashboard can show why an item is blocked.
func RunChecklistValidations(c *fiber.Ctx) error {
	var results []ValidationResult
	for i, def := range OpeningChecklist {
		validator, ok := validators[i+1]
		if !ok {
			continue
		}
		passed, message, details := validator()
		results = append(results, ValidationResult{
			Item:        i + 1,
			Description: def.Description,
			Passed:      passed,
			Message:     message,
			Details:     details,
		})
	}

	return c.JSON(fiber.Map{
		"validations": results,
	})
}

// RepostChecklist forces a fresh pinned message in the shop channel.
func RepostChecklist(c *fiber.Ctx) error {
	if err := CreateDailyChecklist(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Failed to create today's checklist: " + err.Error(),
		})
	}

	if err := SendDailyChecklistToSlack(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ChecklistActionResponse{
			Success: false,
			Message: "Failed to post checklist: " + err.Error(),
		})
	}

	return c.JSON(ChecklistActionResponse{
		Success: true,
		Message: "Checklist posted to Slack",
	})
}

// RegisterSlackRoutes registers all checklist API routes with middleware
func RegisterSlackRoutes(app *fiber.App, middleware ...fiber.Handler) {
	api := app.Group("/api/slack", middleware...)

	api.Get("/checklist", GetShopChecklist)
	api.Post("/checklist/:order/complete", CompleteChecklistItemAPI)
	api.Get("/checklist/validations", RunChecklistValidations)
	api.Post("/checklist/repost", RepostChecklist)

	log.Println("Slack API routes registered:")
	log.Println("  GET  /api/slack/checklist")
	log.Println("  POST /api/slack/checklist/:order/complete")
	log.Println("  GET  /api/slack/checklist/validations")
	log.Println("  POST /api/slack/checklist/repost")
}
