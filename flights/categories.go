package flights

// aircraftCategories decodes the category field of an OpenSky state vector.
// Based on the official OpenSky Network documentation and common ADS-B
// standards.
var aircraftCategories = map[int]string{
	0:  "No information",
	1:  "No ADS-B Emitter Category Information",
	2:  "Light (< 15500 lbs)",
	3:  "Small (15500 to 75000 lbs)",
	4:  "Large (75000 to 300000 lbs)",
	5:  "High-Vortex Large",
	6:  "Heavy (> 300000 lbs)",
	7:  "High-Performance",
	8:  "Rotorcraft",
	9:  "Glider / sailplane",
	10: "Lighter-than-air",
	11: "Parachutist / Skydiver",
	12: "Ultralight / hang-glider / paraglider",
	13: "Reserved",
	14: "Unmanned Aerial Vehicle",
	15: "Space / Trans-atmospheric vehicle",
	16: "Surface Vehicle – Emergency Vehicle",
	17: "Surface Vehicle – Service Vehicle",
	18: "Point Obstacle",
	19: "Cluster Obstacle",
	20: "Line Obstacle",
}

const helicopterCategory = 8

// CategoryName returns the human-readable category for a state vector's
// category code. nil (absent) or unknown codes read as "Unknown Type".
func CategoryName(code *int) string {
	if code == nil {
		return "Unknown Type"
	}
	if name, ok := aircraftCategories[*code]; ok {
		return name
	}
	return "Unknown Type"
}
