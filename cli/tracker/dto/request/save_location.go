package request

import "github.com/daniil11ru/geotrack/cli/tracker/types"

type SaveLocation struct {
	Name               string   `json:"name"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	OffsetRadiusMeters float64  `json:"offset_radius_meters"`
	Type               string   `json:"type"`
	IsActive           *bool    `json:"is_active"`
}

func (r SaveLocation) ToRecord() (types.LocationRecord, error) {
	if r.Name == "" {
		return types.LocationRecord{}, types.NewValidationError("name", "обязательное поле")
	}
	if r.Latitude == nil {
		return types.LocationRecord{}, types.NewValidationError("latitude", "обязательное поле")
	}
	if r.Longitude == nil {
		return types.LocationRecord{}, types.NewValidationError("longitude", "обязательное поле")
	}
	if err := types.ValidateCoordinates(*r.Latitude, *r.Longitude); err != nil {
		return types.LocationRecord{}, err
	}
	if r.OffsetRadiusMeters < 0 {
		return types.LocationRecord{}, types.NewValidationError("offset_radius_meters", "значение должно быть неотрицательным")
	}

	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}

	return types.LocationRecord{
		Name:               r.Name,
		Latitude:           *r.Latitude,
		Longitude:          *r.Longitude,
		OffsetRadiusMeters: r.OffsetRadiusMeters,
		Type:               r.Type,
		IsActive:           isActive,
	}, nil
}
