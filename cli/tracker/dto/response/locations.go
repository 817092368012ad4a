package response

import "github.com/daniil11ru/geotrack/cli/tracker/types"

type NearbyLocations struct {
	Capability types.Capability         `json:"capability"`
	Locations  []types.LocationDistance `json:"locations"`
}

type BoundingBoxLocations struct {
	Capability types.Capability       `json:"capability"`
	Locations  []types.LocationRecord `json:"locations"`
}

type Distance struct {
	DistanceMeters float64 `json:"distance_meters"`
}
