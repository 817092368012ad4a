package request

import (
	"github.com/daniil11ru/geotrack/cli/tracker/types"
	"github.com/google/uuid"
)

type ValidatePosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r ValidatePosition) Coordinates() (latitude, longitude float64, err error) {
	if r.Latitude == nil {
		return 0, 0, types.NewValidationError("latitude", "обязательное поле")
	}
	if r.Longitude == nil {
		return 0, 0, types.NewValidationError("longitude", "обязательное поле")
	}
	return *r.Latitude, *r.Longitude, nil
}

type BatchValidatePosition struct {
	ValidatePosition
	LocationIDs []uuid.UUID `json:"location_ids"`
}
