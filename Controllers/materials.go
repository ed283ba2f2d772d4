package Controllers

import (
	"Aegis/Models"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type MaterialHandler struct {
	DB *gorm.DB
}

func NewMaterialHandler(db *gorm.DB) *MaterialHandler {
	return &MaterialHandler{DB: db}
}

type CreateMaterialRequest struct {
	Name           string  `json:"name" validate:"required,max=120"`
	Brand          string  `json:"brand"`
	Series         string  `json:"series"`
	RollWidthCM    float64 `json:"roll_width_cm" validate:"omitempty,gt=0"`
	Finish         string  `json:"finish"`
	StockMeters    float64 `json:"stock_meters" validate:"omitempty,gte=0"`
	CostPerMeter   float64 `json:"cost_per_meter" validate:"omitempty,gte=0"`
	MinStockMeters float64 `json:"min_stock_meters" validate:"omitempty,gte=0"`
}

type UpdateMaterialRequest struct {
	Name           *string  `json:"name"`
	Brand          *string  `json:"brand"`
	Series         *string  `json:"series"`
	RollWidthCM    *float64 `json:"roll_width_cm"`
	Finish         *string  `json:"finish"`
	CostPerMeter   *float64 `json:"cost_per_meter"`
	MinStockMeters *float64 `json:"min_stock_meters"`
}

type AdjustStockRequest struct {
	DeltaMeters float64 `json:"delta_meters" validate:"required"`
	Reason      string  `json:"reason"`
}

// GetAllMaterials lists the film inventory.
// GET /api/materials
func (h *MaterialHandler) GetAllMaterials(c *fiber.Ctx) error {
	query := h.DB.Model(&Models.FilmMaterial{})

	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name LIKE ? OR brand LIKE ? OR series LIKE ?", pattern, pattern, pattern)
	}
	if c.Query("low_stock") == "true" {
		query = query.Where("stock_meters <= min_stock_meters")
	}

	var materials []Models.FilmMaterial
	if err := query.Order("brand ASC, name ASC").Find(&materials).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to fetch materials",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"data": materials,
	})
}

// GetMaterial returns one roll spec.
// GET /api/materials/:id
func (h *MaterialHandler) GetMaterial(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid material ID",
		})
	}

	var material Models.FilmMaterial
	if err := h.DB.First(&material, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Material not found",
		})
	}
	return c.JSON(material)
}

// CreateMaterial adds a roll spec to the inventory.
// POST /api/materials
func (h *MaterialHandler) CreateMaterial(c *fiber.Ctx) error {
	var req CreateMaterialRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	material := Models.FilmMaterial{
		Name:           req.Name,
		Brand:          req.Brand,
		Series:         req.Series,
		RollWidthCM:    req.RollWidthCM,
		Finish:         req.Finish,
		StockMeters:    req.StockMeters,
		CostPerMeter:   req.CostPerMeter,
		MinStockMeters: req.MinStockMeters,
	}
	if err := h.DB.Create(&material).Error; err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "A material with this name already exists",
		})
	}

	return c.Status(http.StatusCreated).JSON(material)
}

// UpdateMaterial applies the provided fields. Stock changes go through
// AdjustStock so every movement has a reason attached.
// PUT /api/materials/:id
func (h *MaterialHandler) UpdateMaterial(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid material ID",
		})
	}

	var req UpdateMaterialRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	var material Models.FilmMaterial
	if err := h.DB.First(&material, id).Error; err != nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Material not found",
		})
	}

	if req.Name != nil {
		material.Name = *req.Name
	}
	if req.Brand != nil {
		material.Brand = *req.Brand
	}
	if req.Series != nil {
		material.Series = *req.Series
	}
	if req.RollWidthCM != nil {
		material.RollWidthCM = *req.RollWidthCM
	}
	if req.Finish != nil {
		material.Finish = *req.Finish
	}
	if req.CostPerMeter != nil {
		material.CostPerMeter = *req.CostPerMeter
	}
	if req.MinStockMeters != nil {
		material.MinStockMeters = *req.MinStockMeters
	}

	if err := h.DB.Save(&material).Error; err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to update material",
			"error":   err.Error(),
		})
	}

	return c.JSON(material)
}

// DeleteMaterial removes a roll spec.
// DELETE /api/materials/:id
func (h *MaterialHandler) DeleteMaterial(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid material ID",
		})
	}

	result := h.DB.Delete(&Models.FilmMaterial{}, id)
	if result.Error != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to delete material",
			"error":   result.Error.Error(),
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{
			"message": "Material not found",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Material deleted",
	})
}

// AdjustStock moves inventory in or out. A consumption that would drive
// the stock negative is refused with the current balance, inside a
// transaction so two technicians logging cuts at once can't both drain
// the same meters.
// POST /api/materials/:id/adjust-stock
func (h *MaterialHandler) AdjustStock(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid material ID",
		})
	}

	var req AdjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	var material Models.FilmMaterial
	statusCode := http.StatusInternalServerError
	message := "Failed to adjust stock"

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&material, id).Error; err != nil {
			statusCode = http.StatusNotFound
			message = "Material not found"
			return err
		}
		newStock := material.StockMeters + req.DeltaMeters
		if newStock < 0 {
			statusCode = http.StatusBadRequest
			message = "Insufficient stock"
			return gorm.ErrInvalidData
		}
		material.StockMeters = newStock
		return tx.Save(&material).Error
	})
	if err != nil {
		return c.Status(statusCode).JSON(fiber.Map{
			"message":      message,
			"stock_meters": material.StockMeters,
			"delta_meters": req.DeltaMeters,
		})
	}

	return c.JSON(fiber.Map{
		"material":  material,
		"low_stock": material.IsLowStock(),
	})
}
