package request

import "github.com/daniil11ru/geotrack/cli/tracker/types"

type GetRoute struct {
	Window          *types.TimeWindow
	Simplify        bool
	ToleranceMeters *float64
}
