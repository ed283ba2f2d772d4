package FiberConfig

import (
	"Aegis/Apis"
	"Aegis/Controllers"
	"Aegis/MobileRoutes"
	"Aegis/Models"
	"Aegis/Notifications"
	"Aegis/PatternCatalog"
	"Aegis/Slack"
	"Aegis/Whatsapp"
	"Aegis/middleware"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"gorm.io/gorm"
)

var startTime = time.Now()

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize handlers
	taskHandler := Controllers.NewTaskHandler(db)
	calendarHandler := Controllers.NewCalendarHandler(db)
	interventionHandler := Controllers.NewInterventionHandler(db)
	zoneHandler := Controllers.NewZoneHandler(db)
	materialHandler := Controllers.NewMaterialHandler(db)
	reportsController := Controllers.NewReportsController(db)

	// API group
	api := app.Group("/api")

	// Task routes
	tasks := api.Group("/tasks", middleware.Verify(1))
	tasks.Get("/", taskHandler.GetAllTasks)

	// Option lists for dropdowns - place these BEFORE the ID route to avoid conflicts
	tasks.Get("/statuses", taskHandler.GetTaskStatuses)
	tasks.Get("/priorities", taskHandler.GetTaskPriorities)

	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Put("/:id", taskHandler.UpdateTask)
	tasks.Post("/:id/status", taskHandler.UpdateTaskStatus)
	tasks.Delete("/:id", middleware.Verify(3), taskHandler.DeleteTask)
	tasks.Post("/:id/reschedule", calendarHandler.RescheduleTask)
	tasks.Post("/:id/notify-ready", middleware.RequireWhatsappSession(), Whatsapp.NotifyVehicleReady)

	// Wizard entry points hang off the task
	tasks.Post("/:id/intervention/start", interventionHandler.StartIntervention)
	tasks.Get("/:id/intervention/resume", interventionHandler.ResumeIntervention)

	// Calendar routes
	calendar := api.Group("/calendar", middleware.Verify(1))
	calendar.Get("/", calendarHandler.GetCalendarTasks)
	calendar.Post("/check-conflicts", calendarHandler.CheckConflicts)

	// Intervention routes
	interventions := api.Group("/interventions", middleware.Verify(1))
	interventions.Get("/:id", interventionHandler.GetIntervention)
	interventions.Post("/:id/steps/:stepId/select", interventionHandler.SelectStep)
	interventions.Put("/:id/steps/:stepId/draft", interventionHandler.SaveStepDraft)
	interventions.Post("/:id/steps/:stepId/validate", interventionHandler.ValidateStep)
	interventions.Post("/:id/steps/:stepId/skip", interventionHandler.SkipStep)
	interventions.Post("/:id/signature", interventionHandler.UploadSignature)
	interventions.Post("/:id/finalize", interventionHandler.FinalizeIntervention)

	// Zone routes under interventions
	interventions.Post("/:id/zones", zoneHandler.AddZone)
	interventions.Post("/:id/zones/:zoneId/select", zoneHandler.SelectZone)
	interventions.Put("/:id/zones/:zoneId", zoneHandler.UpdateZone)
	interventions.Post("/:id/zones/:zoneId/photos", zoneHandler.UploadZonePhotos)
	interventions.Post("/:id/zones/:zoneId/validate", zoneHandler.ValidateZone)
	interventions.Delete("/:id/zones/:zoneId", zoneHandler.DeleteZone)

	// Printable job sheet, rendered server-side for the shop printer
	app.Get("/intervention/:id/print", middleware.Verify(1), interventionHandler.PrintInterventionSheet)

	// Material routes
	materials := api.Group("/materials", middleware.Verify(1))
	materials.Get("/", materialHandler.GetAllMaterials)
	materials.Get("/:id", materialHandler.GetMaterial)
	materials.Post("/", materialHandler.CreateMaterial)
	materials.Put("/:id", materialHandler.UpdateMaterial)
	materials.Delete("/:id", middleware.Verify(3), materialHandler.DeleteMaterial)
	materials.Post("/:id/adjust-stock", materialHandler.AdjustStock)

	// Reporting routes
	reports := api.Group("/reports", middleware.Verify(2))
	reports.Get("/summary", reportsController.Summary)
	reports.Get("/monthly", reportsController.MonthlyCompleted)
	reports.Get("/technicians", reportsController.TechnicianWorkload)
	reports.Get("/recent-activity", reportsController.RecentActivity)
	reports.Get("/export", middleware.Verify(3), reportsController.ExportInterventions)

	// Pattern catalog routes
	patterns := api.Group("/patterns", middleware.Verify(1))
	patterns.Get("/", PatternCatalog.GetPatterns)
	patterns.Get("/makes", PatternCatalog.GetPatternMakes)
	patterns.Get("/models", PatternCatalog.GetPatternModels)
	app.Post("/api/SyncPatternCatalog", middleware.Verify(4), PatternCatalog.SyncPatternCatalogHandler)

	// Route optimizer for mobile install days
	routes := api.Group("/routes", middleware.Verify(1))
	routes.Post("/optimal", MobileRoutes.OptimalRouteHandler)
	routes.Post("/day-plan", MobileRoutes.DayRouteHandler)
}

func FiberConfig() {
	fmt.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	// Html Template engine
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(middleware.RequestLogger())
	app.Use(middleware.ErrorLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression, // 2
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*", // Allow all origins
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true, // Important for cookies
		MaxAge:           300,  // Max age for preflight requests caching (5 minutes)
	}))

	// Health probe for the gateway
	app.Get("/health", func(c *fiber.Ctx) error {
		dbOK := false
		if sqlDB, err := Models.DB.DB(); err == nil {
			dbOK = sqlDB.Ping() == nil
		}
		status := fiber.StatusOK
		state := "ok"
		if !dbOK {
			status = fiber.StatusServiceUnavailable
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status":   state,
			"database": dbOK,
			"uptime":   time.Since(startTime).String(),
		})
	})

	SetupRoutes(app, Models.DB)

	// Auth and session routes
	app.Post("/api/Login", Controllers.Login)
	app.Post("/api/SignUp", Controllers.SignUp)
	app.Get("/api/validate-token", Controllers.ValidateToken)
	app.Use("/api/User", Controllers.User)
	app.Use("/api/Logout", Controllers.Logout)

	// User administration
	app.Post("/api/RegisterUser", middleware.Verify(4), Controllers.RegisterUser)
	app.Patch("/api/UpdateUser", middleware.Verify(4), Controllers.UpdateUser)
	app.Get("/api/FetchUsers", middleware.Verify(4), Controllers.FetchUsers)
	app.Delete("/api/DeleteUser", middleware.Verify(4), Controllers.DeleteUser)
	app.Get("/api/GetTechnicians", middleware.Verify(1), Apis.GetTechnicians)
	app.Get("/api/GetPendingRequests", middleware.Verify(4), Apis.GetPendingRequests)
	app.Post("/api/ApproveRequest", middleware.Verify(4), Apis.ApproveRequest)
	app.Post("/api/RejectRequest", middleware.Verify(4), Apis.RejectRequest)
	app.Post("/api/UpdatePermission", middleware.Verify(4), Apis.UpdatePermission)

	// Push tokens and in-app notifications
	app.Post("/api/UpdateToken", middleware.Verify(1), Models.UpdateToken)
	app.Get("/api/GetNotifications", middleware.Verify(1), Notifications.ReturnNotifications)
	app.Post("/api/MarkNotificationRead", middleware.Verify(1), Notifications.MarkNotificationRead)

	// Logs API routes
	app.Get("/api/logs", middleware.Verify(4), Controllers.GetLogs)
	app.Get("/api/logs/stats", middleware.Verify(4), Controllers.GetLogStats)
	app.Get("/api/logs/path/:path", middleware.Verify(4), Controllers.GetLogsByPath)

	protectedApis := app.Group("/api/protected/", middleware.Verify(1))
	protectedApis.Post("/GetPhotoAlbum", Apis.GetPhotoAlbum)
	protectedApis.Get("/CheckWPLogin", middleware.Verify(4), Whatsapp.LoginStatus)
	protectedApis.Get("/GetWhatsAppQRCode", middleware.Verify(4), Whatsapp.GetQRCode)

	// Serve Static Images
	app.Static("/ZonePhotos", "./ZonePhotos", fiber.Static{Compress: true, CacheDuration: time.Second * 10})
	app.Static("/SignatureImages", "./SignatureImages", fiber.Static{Compress: true, CacheDuration: time.Second * 10})

	Slack.RegisterSlackRoutes(app, middleware.Verify(1))

	app.Listen(":3001")
}
