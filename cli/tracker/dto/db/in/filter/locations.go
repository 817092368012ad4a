package filter

import "github.com/daniil11ru/geotrack/cli/tracker/types"

type Locations struct {
	Box  *types.BoundingBox
	Type *string
}
