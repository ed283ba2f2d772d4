package MobileRoutes

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteRequest is the ad-hoc route planner request
type RouteRequest struct {
	Start      Point   `json:"start"`
	End        Point   `json:"end"`
	Waypoints  []Point `json:"waypoints"`
	TravelMode string  `json:"travelMode,omitempty"` // For Google Maps URL generation
	Algorithm  string  `json:"algorithm,omitempty"`  // "nearest", "2opt", "simulated"
}

// RouteResponse is the structure of the API response
type RouteResponse struct {
	OptimalRoute      []Point `json:"optimalRoute"`
	TotalDistance     float64 `json:"totalDistance"`
	EstimatedDuration float64 `json:"estimatedDuration"` // In seconds, based on average speed
	GoogleMapsURL     string  `json:"googleMapsUrl"`
	Algorithm         string  `json:"algorithm"`
}

// DayRouteRequest asks for an ordered visiting plan over one
// technician's mobile jobs of a day. The shop is always the start and
// end of the loop.
type DayRouteRequest struct {
	Date         string `json:"date,omitempty"` // defaults to today
	TechnicianID uint   `json:"technician_id"`
	TravelMode   string `json:"travelMode,omitempty"`
	Algorithm    string `json:"algorithm,omitempty"`
}

// DayRouteStop is one customer visit in the ordered plan.
type DayRouteStop struct {
	TaskID       uint   `json:"task_id"`
	Title        string `json:"title"`
	CustomerName string `json:"customer_name"`
	VehiclePlate string `json:"vehicle_plate"`
	StartTime    string `json:"start_time"`
	Point
}

// DayRouteResponse is the ordered day plan.
type DayRouteResponse struct {
	Date              string         `json:"date"`
	TechnicianID      uint           `json:"technician_id"`
	Stops             []DayRouteStop `json:"stops"`
	Skipped           []uint         `json:"skipped,omitempty"` // jobs without coordinates
	TotalDistance     float64        `json:"totalDistance"`
	EstimatedDuration float64        `json:"estimatedDuration"`
	GoogleMapsURL     string         `json:"googleMapsUrl"`
	Algorithm         string         `json:"algorithm"`
}

// Earth radius in kilometers
const earthRadius = 6371.0

// Average speeds in km/h for different travel modes
var AverageSpeeds = map[string]float64{
	"driving":   60.0,
	"walking":   5.0,
	"bicycling": 15.0,
	"transit":   30.0,
}
