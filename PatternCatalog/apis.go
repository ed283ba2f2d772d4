package PatternCatalog

import (
	"Aegis/Models"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// GetPatterns lists catalog patterns for the plotter screen.
// GET /api/patterns?make=&model=&panel=&search=&page=&limit=
func GetPatterns(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := Models.DB.Model(&Models.PatternEntry{})

	if make := c.Query("make"); make != "" {
		query = query.Where("vehicle_make = ?", make)
	}
	if model := c.Query("model"); model != "" {
		query = query.Where("vehicle_model = ?", model)
	}
	if panel := c.Query("panel"); panel != "" {
		query = query.Where("panel_name = ?", panel)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"vehicle_make LIKE ? OR vehicle_model LIKE ? OR pattern_code LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count patterns",
		})
	}

	var patterns []Models.PatternEntry
	offset := (page - 1) * limit
	if err := query.Order("vehicle_make ASC, vehicle_model ASC, panel_name ASC").
		Offset(offset).Limit(limit).Find(&patterns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch patterns",
		})
	}

	return c.JSON(fiber.Map{
		"data": patterns,
		"meta": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// GetPatternMakes returns the distinct vehicle makes in the catalog, for
// the cascading pickers on the plotter screen.
// GET /api/patterns/makes
func GetPatternMakes(c *fiber.Ctx) error {
	var makes []string
	if err := Models.DB.Model(&Models.PatternEntry{}).
		Distinct("vehicle_make").
		Order("vehicle_make ASC").
		Pluck("vehicle_make", &makes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch makes",
		})
	}

	return c.JSON(fiber.Map{
		"makes": makes,
	})
}

// GetPatternModels returns the models of one make.
// GET /api/patterns/models?make=BMW
func GetPatternModels(c *fiber.Ctx) error {
	make := c.Query("make")
	if make == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "make query parameter is required",
		})
	}

	var models []string
	if err := Models.DB.Model(&Models.PatternEntry{}).
		Where("vehicle_make = ?", make).
		Distinct("vehicle_model").
		Order("vehicle_model ASC").
		Pluck("vehicle_model", &models).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch models",
		})
	}

	return c.JSON(fiber.Map{
		"models": models,
	})
}

// SyncPatternCatalogHandler triggers a catalog import from the supplier
// portal. Runs inline; the portal grid is small enough that the request
// finishes in a few seconds.
// POST /api/SyncPatternCatalog
func SyncPatternCatalogHandler(c *fiber.Ctx) error {
	created, skipped, err := SyncPatternCatalog()
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Pattern catalog sync failed",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "Pattern catalog synced",
		"created": created,
		"skipped": skipped,
	})
}
