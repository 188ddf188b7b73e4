package models

// RouteStop is one stop of a model-planned day route.
type RouteStop struct {
	LeadID          string `json:"leadId"`
	TravelTimeMins  int    `json:"travelTimeMins"`
	ServiceTimeMins int    `json:"serviceTimeMins"`
	ArrivalTime     string `json:"arrivalTime"`
	Date            string `json:"date"`
}

// RouteSlot is a free time window usable for ad-hoc visits.
type RouteSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Location  string `json:"location"`
}

// RoutePlan is the structured output of the route analysis prompt. When the
// model response does not parse as JSON the raw text is carried in
// EfficiencyTips and every other field stays zero.
type RoutePlan struct {
	Route          []RouteStop `json:"route,omitempty"`
	AvailableSlots []RouteSlot `json:"availableSlots,omitempty"`
	TotalTimeMins  int         `json:"totalTimeMins,omitempty"`
	IsFeasible     bool        `json:"isFeasible,omitempty"`
	Summary        string      `json:"summary,omitempty"`
	EfficiencyTips string      `json:"efficiencyTips,omitempty"`
}

// GeocodeResult is the JSON-mode geocoding response shape.
type GeocodeResult struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Formatted string  `json:"formatted"`
}

type GeocodeRequest struct {
	Address string `json:"address" binding:"required"`
}
