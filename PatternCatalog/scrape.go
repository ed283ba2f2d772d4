package PatternCatalog

import (
	"Aegis/Constants"
	"Aegis/Models"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gocolly/colly"
)

// scrapedPattern is one row of the portal's pattern grid before it is
// persisted.
type scrapedPattern struct {
	VehicleMake  string
	VehicleModel string
	YearRange    string
	PanelName    string
	PatternCode  string
	LengthCM     float64
	WidthCM      float64
}

// parsePatternRow reads one <tr> of the pattern grid. The portal renders
// alternating row classes but the cell layout is identical, so both row
// types funnel through here.
func parsePatternRow(tr *colly.HTMLElement, out *[]scrapedPattern) {
	var current scrapedPattern
	tr.ForEach("td", func(i int, td *colly.HTMLElement) {
		text := strings.TrimSpace(td.Text)
		switch i {
		case 1:
			current.VehicleMake = text
		case 2:
			current.VehicleModel = text
		case 3:
			current.YearRange = text
		case 4:
			current.PanelName = text
		case 5:
			current.PatternCode = text
		case 6:
			length, _ := strconv.ParseFloat(text, 64)
			current.LengthCM = length
		case 7:
			width, _ := strconv.ParseFloat(text, 64)
			current.WidthCM = width
			*out = append(*out, current)
		}
	})
}

// FetchCatalog scrapes the full pattern grid from the supplier portal.
func FetchCatalog(collector *colly.Collector) ([]scrapedPattern, error) {
	var scraped []scrapedPattern

	collector.OnHTML("#ctl00_ContentPlaceHolder1_grd_PatternLibrary_ctl00", func(h *colly.HTMLElement) {
		h.ForEach("tr.rgRow", func(_ int, tr *colly.HTMLElement) {
			parsePatternRow(tr, &scraped)
		})
		h.ForEach("tr.rgAltRow", func(_ int, tr *colly.HTMLElement) {
			parsePatternRow(tr, &scraped)
		})
	})

	err := collector.Request("GET",
		Constants.SupplierPortalURL+"/WebPages/PatternLibrary.aspx",
		nil, nil, http.Header{"Content-Type": []string{"text/html; charset=utf-8"}})
	if err != nil {
		log.Println(err)
		return nil, err
	}

	if len(scraped) == 0 {
		return nil, errors.New("Empty")
	}
	return scraped, nil
}

// SyncPatternCatalog logs into the supplier portal, scrapes the pattern
// grid and imports the rows the database has not seen yet. Returns how
// many rows were created and how many were already present.
func SyncPatternCatalog() (int, int, error) {
	clients, err := GetClients()
	if err != nil {
		log.Println("Supplier portal login failed:", err.Error())
		return 0, 0, err
	}

	scraped, err := FetchCatalog(clients.Collector)
	if err != nil {
		log.Println("Failed to fetch pattern catalog:", err.Error())
		return 0, 0, err
	}

	created := 0
	skipped := 0
	for _, row := range scraped {
		entry := Models.PatternEntry{
			VehicleMake:  row.VehicleMake,
			VehicleModel: row.VehicleModel,
			YearRange:    row.YearRange,
			PanelName:    row.PanelName,
			PatternCode:  row.PatternCode,
			LengthCM:     row.LengthCM,
			WidthCM:      row.WidthCM,
		}

		var count int64
		if err := Models.DB.Model(&Models.PatternEntry{}).
			Where("hash = ?", entry.ComputeHash()).Count(&count).Error; err != nil {
			log.Printf("Error checking pattern %s: %v", row.PatternCode, err)
			continue
		}
		if count > 0 {
			skipped++
			continue
		}

		if err := Models.DB.Create(&entry).Error; err != nil {
			log.Printf("Error importing pattern %s: %v", row.PatternCode, err)
			continue
		}
		created++
	}

	log.Printf("Pattern catalog sync finished - %d imported, %d already present", created, skipped)
	return created, skipped, nil
}
