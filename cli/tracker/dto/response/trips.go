package response

import "github.com/google/uuid"

type Duplicates struct {
	TripID              uuid.UUID `json:"trip_id"`
	DuplicateTimestamps int64     `json:"duplicate_timestamps"`
}

type Error struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
