package MobileRoutes

import (
	"Aegis/Constants"
	"Aegis/Models"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// OptimalRouteHandler solves an ad-hoc route over arbitrary waypoints.
// POST /api/routes/optimal
func OptimalRouteHandler(c *fiber.Ctx) error {
	var req RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	if req.Start == (Point{}) || req.End == (Point{}) {
		return fiber.NewError(fiber.StatusBadRequest, "Start and end points are required")
	}

	if req.TravelMode == "" {
		req.TravelMode = "driving"
	}
	if req.Algorithm == "" {
		req.Algorithm = "2opt"
	}

	allPoints := append([]Point{req.Start}, append(req.Waypoints, req.End)...)
	distMatrix := distanceMatrix(allPoints)

	route, algorithmName := solveRoute(distMatrix, req.Algorithm)
	totalDistance := routeCost(route, distMatrix)

	// Extract the waypoints (excluding start and end)
	var resultRoute []Point
	for i := 1; i < len(route)-1; i++ {
		resultRoute = append(resultRoute, allPoints[route[i]])
	}

	speed := AverageSpeeds[req.TravelMode]
	if speed == 0 {
		speed = AverageSpeeds["driving"]
	}
	estimatedDuration := (totalDistance / speed) * 3600 // Convert hours to seconds

	return c.JSON(RouteResponse{
		OptimalRoute:      append([]Point{req.Start}, append(resultRoute, req.End)...),
		TotalDistance:     math.Round(totalDistance*100) / 100,
		EstimatedDuration: math.Round(estimatedDuration*100) / 100,
		GoogleMapsURL:     generateGoogleMapsURL(req.Start, req.End, resultRoute, req.TravelMode),
		Algorithm:         algorithmName,
	})
}

// DayRouteHandler builds the visiting order for one technician's mobile
// jobs of a day. The loop starts and ends at the shop; jobs without
// coordinates are reported back as skipped rather than silently dropped.
// POST /api/routes/day-plan
func DayRouteHandler(c *fiber.Ctx) error {
	var req DayRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	if req.TechnicianID == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "technician_id is required")
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}
	if req.TravelMode == "" {
		req.TravelMode = "driving"
	}
	if req.Algorithm == "" {
		req.Algorithm = "2opt"
	}

	var tasks []Models.Task
	if err := Models.DB.
		Where("scheduled_date = ? AND technician_id = ? AND mobile_job = ?", req.Date, req.TechnicianID, true).
		Where("status NOT IN ?", []string{
			Models.TaskStatusCancelled,
			Models.TaskStatusArchived,
			Models.TaskStatusCompleted,
		}).
		Order("start_time ASC, id ASC").Find(&tasks).Error; err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to load mobile jobs")
	}

	var stops []DayRouteStop
	var skipped []uint
	for _, task := range tasks {
		if task.Latitude == 0 && task.Longitude == 0 {
			skipped = append(skipped, task.ID)
			continue
		}
		stops = append(stops, DayRouteStop{
			TaskID:       task.ID,
			Title:        task.Title,
			CustomerName: task.CustomerName,
			VehiclePlate: task.VehiclePlate,
			StartTime:    task.StartTime,
			Point:        Point{Lat: task.Latitude, Lng: task.Longitude},
		})
	}

	if len(stops) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "No mobile jobs with coordinates on that date")
	}

	shop := Point{Lat: Constants.Shop.ShopLatitude, Lng: Constants.Shop.ShopLongitude}

	allPoints := make([]Point, 0, len(stops)+2)
	allPoints = append(allPoints, shop)
	for _, stop := range stops {
		allPoints = append(allPoints, stop.Point)
	}
	allPoints = append(allPoints, shop)

	distMatrix := distanceMatrix(allPoints)
	route, algorithmName := solveRoute(distMatrix, req.Algorithm)
	totalDistance := routeCost(route, distMatrix)

	// Map solver indices back to stops; index 0 and n-1 are the shop
	ordered := make([]DayRouteStop, 0, len(stops))
	var waypoints []Point
	for i := 1; i < len(route)-1; i++ {
		stop := stops[route[i]-1]
		ordered = append(ordered, stop)
		waypoints = append(waypoints, stop.Point)
	}

	speed := AverageSpeeds[req.TravelMode]
	if speed == 0 {
		speed = AverageSpeeds["driving"]
	}
	estimatedDuration := (totalDistance / speed) * 3600

	return c.JSON(DayRouteResponse{
		Date:              req.Date,
		TechnicianID:      req.TechnicianID,
		Stops:             ordered,
		Skipped:           skipped,
		TotalDistance:     math.Round(totalDistance*100) / 100,
		EstimatedDuration: math.Round(estimatedDuration*100) / 100,
		GoogleMapsURL:     generateGoogleMapsURL(shop, shop, waypoints, req.TravelMode),
		Algorithm:         algorithmName,
	})
}

// generateGoogleMapsURL creates a Google Maps URL for the route
func generateGoogleMapsURL(start, end Point, waypoints []Point, mode string) string {
	baseURL := "https://www.google.com/maps/dir/?api=1"

	params := url.Values{}
	params.Add("origin", fmt.Sprintf("%.6f,%.6f", start.Lat, start.Lng))
	params.Add("destination", fmt.Sprintf("%.6f,%.6f", end.Lat, end.Lng))

	if len(waypoints) > 0 {
		var waypointStrings []string
		for _, wp := range waypoints {
			waypointStrings = append(waypointStrings, fmt.Sprintf("%.6f,%.6f", wp.Lat, wp.Lng))
		}
		params.Add("waypoints", strings.Join(waypointStrings, "|"))
	}

	params.Add("travelmode", mode)

	return baseURL + "&" + params.Encode()
}
