package Models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/360EntSecGroup-Skylar/excelize"
	"gorm.io/gorm"
)

// FilmMaterial is one roll spec in the film inventory. StockMeters is
// linear meters on hand; MinStockMeters is the reorder threshold used by
// the low-stock report.
type FilmMaterial struct {
	gorm.Model
	Name           string  `json:"name" gorm:"uniqueIndex;size:120;not null"`
	Brand          string  `json:"brand" gorm:"size:60"`
	Series         string  `json:"series" gorm:"size:60"`
	RollWidthCM    float64 `json:"roll_width_cm"`
	Finish         string  `json:"finish" gorm:"size:40"`
	StockMeters    float64 `json:"stock_meters"`
	CostPerMeter   float64 `json:"cost_per_meter"`
	MinStockMeters float64 `json:"min_stock_meters"`
}

// IsLowStock reports whether the roll is at or below its reorder point.
func (m *FilmMaterial) IsLowStock() bool {
	return m.StockMeters <= m.MinStockMeters
}

// SetupFilmCatalog seeds the material table from FilmCatalog.xlsx on an
// empty database. Expected columns: name, brand, series, roll width (cm),
// finish, stock (m), cost per meter, min stock (m). The file is optional;
// a missing catalog just leaves the table empty.
func SetupFilmCatalog() {
	var materialCount int64
	DB.Model(&FilmMaterial{}).Count(&materialCount)
	if materialCount != 0 {
		return
	}
	xlsx, err := excelize.OpenFile("./FilmCatalog.xlsx")
	if err != nil {
		fmt.Println(err)
		return
	}
	rows := xlsx.GetRows("Sheet1")
	for index, row := range rows {
		if index == 0 {
			continue
		}
		if len(row) < 1 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		material := FilmMaterial{Name: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			material.Brand = strings.TrimSpace(row[1])
		}
		if len(row) > 2 {
			material.Series = strings.TrimSpace(row[2])
		}
		if len(row) > 3 {
			material.RollWidthCM, _ = strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		}
		if len(row) > 4 {
			material.Finish = strings.TrimSpace(row[4])
		}
		if len(row) > 5 {
			material.StockMeters, _ = strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		}
		if len(row) > 6 {
			material.CostPerMeter, _ = strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		}
		if len(row) > 7 {
			material.MinStockMeters, _ = strconv.ParseFloat(strings.TrimSpace(row[7]), 64)
		}
		if err := DB.Create(&material).Error; err != nil {
			fmt.Println(err)
		}
	}
}
