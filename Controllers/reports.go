package Controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"Aegis/Models"
	"Aegis/email"
)

// ReportsController handles the dashboard widgets and the Excel export.
type ReportsController struct {
	DB *gorm.DB
}

func NewReportsController(db *gorm.DB) *ReportsController {
	return &ReportsController{DB: db}
}

// Summary returns the numbers on the dashboard header.
func (c *ReportsController) Summary(ctx *fiber.Ctx) error {
	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}

	var byStatus []statusCount
	c.DB.Model(&Models.Task{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&byStatus)

	var totalTasks int64
	c.DB.Model(&Models.Task{}).Count(&totalTasks)

	monthStart := time.Now().AddDate(0, 0, -30)
	var completedLast30 int64
	c.DB.Model(&Models.Intervention{}).
		Where("status = ? AND completed_at >= ?", Models.InterventionCompleted, monthStart).
		Count(&completedLast30)

	var avgQuality float64
	c.DB.Model(&Models.InstallationZone{}).
		Where("quality_score IS NOT NULL").
		Select("COALESCE(AVG(quality_score), 0)").
		Scan(&avgQuality)

	var totalArea float64
	c.DB.Model(&Models.InstallationZone{}).
		Where("status = ?", Models.StepStatusCompleted).
		Select("COALESCE(SUM(area), 0)").
		Scan(&totalArea)

	var lowStock int64
	c.DB.Model(&Models.FilmMaterial{}).
		Where("stock_meters <= min_stock_meters").
		Count(&lowStock)

	return ctx.JSON(fiber.Map{
		"total_tasks":         totalTasks,
		"tasks_by_status":     byStatus,
		"completed_last_30":   completedLast30,
		"average_quality":     avgQuality,
		"installed_area_m2":   totalArea,
		"low_stock_materials": lowStock,
	})
}

// MonthlyCompleted returns a 12-month series of finished jobs for the
// dashboard chart. Months with no work still appear with zeros.
func (c *ReportsController) MonthlyCompleted(ctx *fiber.Ctx) error {
	type MonthlyData struct {
		Month     string  `json:"month"`
		Completed int     `json:"completed"`
		AreaM2    float64 `json:"area_m2"`
	}

	endDate := time.Now()
	startDate := endDate.AddDate(-1, 0, 0)

	var interventions []Models.Intervention
	result := c.DB.Preload("Zones").
		Where("status = ? AND completed_at BETWEEN ? AND ?", Models.InterventionCompleted, startDate, endDate).
		Find(&interventions)
	if result.Error != nil {
		return ctx.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to retrieve interventions"})
	}

	monthlySummary := make(map[string]*MonthlyData)
	for i := 0; i < 12; i++ {
		date := endDate.AddDate(0, -i, 0)
		monthlySummary[date.Format("2006-01")] = &MonthlyData{
			Month: date.Format("Jan 2006"),
		}
	}

	for _, intervention := range interventions {
		if intervention.CompletedAt == nil {
			continue
		}
		monthKey := intervention.CompletedAt.Format("2006-01")
		data, exists := monthlySummary[monthKey]
		if !exists {
			continue
		}
		data.Completed++
		for _, zone := range intervention.Zones {
			if zone.Status == Models.StepStatusCompleted {
				data.AreaM2 += zone.Area
			}
		}
	}

	var response []MonthlyData
	for i := 0; i < 12; i++ {
		date := endDate.AddDate(0, -i, 0)
		if data, exists := monthlySummary[date.Format("2006-01")]; exists {
			response = append(response, *data)
		}
	}
	for i, j := 0, len(response)-1; i < j; i, j = i+1, j-1 {
		response[i], response[j] = response[j], response[i]
	}

	return ctx.JSON(response)
}

// TechnicianWorkload ranks technicians by completed jobs with their
// average zone quality score.
func (c *ReportsController) TechnicianWorkload(ctx *fiber.Ctx) error {
	type TechnicianSummary struct {
		ID         uint    `json:"id"`
		Name       string  `json:"name"`
		Completed  int     `json:"completed"`
		InProgress int     `json:"in_progress"`
		AvgQuality float64 `json:"avg_quality"`
	}

	var results []TechnicianSummary

	c.DB.Raw(`
		SELECT
			u.id,
			u.name,
			SUM(CASE WHEN t.status = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN t.status = 'in_progress' THEN 1 ELSE 0 END) as in_progress,
			COALESCE(AVG(z.quality_score), 0) as avg_quality
		FROM users u
		JOIN tasks t ON t.technician_id = u.id
		LEFT JOIN interventions i ON i.task_id = t.id
		LEFT JOIN installation_zones z ON z.intervention_id = i.id AND z.quality_score IS NOT NULL
		WHERE t.deleted_at IS NULL
		GROUP BY u.id, u.name
		ORDER BY completed DESC
		LIMIT 10
	`).Scan(&results)

	return ctx.JSON(results)
}

// RecentActivity returns the latest finished jobs for the activity feed.
func (c *ReportsController) RecentActivity(ctx *fiber.Ctx) error {
	type RecentIntervention struct {
		ID             uint       `json:"id"`
		TaskID         uint       `json:"task_id"`
		Title          string     `json:"title"`
		CustomerName   string     `json:"customer_name"`
		VehiclePlate   string     `json:"vehicle_plate"`
		TechnicianName string     `json:"technician_name"`
		CompletedAt    *time.Time `json:"completed_at"`
	}

	var results []RecentIntervention

	c.DB.Raw(`
		SELECT
			i.id,
			i.task_id,
			t.title,
			t.customer_name,
			t.vehicle_plate,
			t.technician_name,
			i.completed_at
		FROM interventions i
		JOIN tasks t ON i.task_id = t.id
		WHERE i.status = 'completed'
		AND i.deleted_at IS NULL
		ORDER BY i.completed_at DESC
		LIMIT 10
	`).Scan(&results)

	return ctx.JSON(results)
}

// ExportInterventions writes the completed jobs in a date range to an
// Excel workbook. With ?email=someone@shop the workbook is mailed as an
// attachment instead of downloaded.
// GET /api/reports/export?from=...&to=...&email=...
func (c *ReportsController) ExportInterventions(ctx *fiber.Ctx) error {
	from := ctx.Query("from")
	if from == "" {
		from = time.Now().AddDate(0, -1, 0).Format("2006-01-02")
	}
	to := ctx.Query("to")
	if to == "" {
		to = time.Now().Format("2006-01-02")
	}

	var interventions []Models.Intervention
	if err := c.DB.Preload("Zones").
		Where("status = ? AND completed_at BETWEEN ? AND ?",
			Models.InterventionCompleted, from+" 00:00:00", to+" 23:59:59").
		Order("completed_at ASC").
		Find(&interventions).Error; err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch interventions",
			"error":   err.Error(),
		})
	}

	taskIDs := make([]uint, 0, len(interventions))
	for _, intervention := range interventions {
		taskIDs = append(taskIDs, intervention.TaskID)
	}
	tasksByID := make(map[uint]Models.Task)
	if len(taskIDs) > 0 {
		var tasks []Models.Task
		if err := c.DB.Unscoped().Where("id IN ?", taskIDs).Find(&tasks).Error; err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to fetch tasks",
				"error":   err.Error(),
			})
		}
		for _, task := range tasks {
			tasksByID[task.ID] = task
		}
	}

	f := excelize.NewFile()
	sheet := "Interventions"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create sheet",
			"error":   err.Error(),
		})
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Task ID", "Date", "Customer", "Vehicle", "Plate", "Technician",
		"Zones", "Area (m2)", "Avg Score", "Photos", "Started", "Completed",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c%d", 'A'+i, 1)
		f.SetCellValue(sheet, cell, header)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheet, 1, 1, headerStyle)
	}
	f.SetColWidth(sheet, "A", "L", 16)

	for rowIndex, intervention := range interventions {
		row := rowIndex + 2
		task := tasksByID[intervention.TaskID]

		zoneNames := ""
		var totalArea, scoreSum float64
		var scored, photos int
		for _, zone := range intervention.Zones {
			if zoneNames != "" {
				zoneNames += ", "
			}
			zoneNames += zone.Name
			totalArea += zone.Area
			if zone.QualityScore != nil {
				scoreSum += *zone.QualityScore
				scored++
			}
			photos += len(zone.PhotoList())
		}
		avgScore := 0.0
		if scored > 0 {
			avgScore = scoreSum / float64(scored)
		}

		completedAt := ""
		if intervention.CompletedAt != nil {
			completedAt = intervention.CompletedAt.Format("2006-01-02 15:04")
		}

		values := []interface{}{
			task.ID,
			task.ScheduledDate,
			task.CustomerName,
			fmt.Sprintf("%s %s", task.VehicleMake, task.VehicleModel),
			task.VehiclePlate,
			task.TechnicianName,
			zoneNames,
			totalArea,
			avgScore,
			photos,
			intervention.StartedAt.Format("2006-01-02 15:04"),
			completedAt,
		}
		for i, v := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to build workbook",
			"error":   err.Error(),
		})
	}

	filename := fmt.Sprintf("interventions_%s_%s.xlsx", from, to)

	if recipient := ctx.Query("email"); recipient != "" {
		config, ok := Models.LoadEmailConfig()
		if !ok {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"message": "SMTP is not configured",
			})
		}
		message := Models.EmailMessage{
			To:      []string{recipient},
			Subject: fmt.Sprintf("Intervention report %s to %s", from, to),
			Body:    fmt.Sprintf("Attached: %d completed interventions between %s and %s.", len(interventions), from, to),
			Attachments: []Models.Attachment{{
				Filename: filename,
				Data:     buf.Bytes(),
				MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			}},
		}
		if err := email.SendEmail(config, message); err != nil {
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Failed to send report email",
				"error":   err.Error(),
			})
		}
		return ctx.JSON(fiber.Map{
			"message": "Report sent",
			"to":      recipient,
			"rows":    len(interventions),
		})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", "attachment; filename="+filename)
	return ctx.Send(buf.Bytes())
}
