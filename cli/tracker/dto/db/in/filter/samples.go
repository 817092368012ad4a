package filter

import (
	"time"

	"github.com/google/uuid"
)

type Samples struct {
	TripID *uuid.UUID
	UserID *uuid.UUID
	From   *time.Time
	To     *time.Time
}
