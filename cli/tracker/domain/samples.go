package domain

import (
	"math"
	"sort"
	"time"

	"github.com/daniil11ru/geotrack/cli/tracker/types"
)

// sortByTimestamp порядок отметок для всех вычислений: по времени фиксации, затем по ID
func sortByTimestamp(samples []types.GPSSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		if !samples[i].Timestamp.Equal(samples[j].Timestamp) {
			return samples[i].Timestamp.Before(samples[j].Timestamp)
		}
		return samples[i].ID.String() < samples[j].ID.String()
	})
}

func pathLengthMeters(samples []types.GPSSample) float64 {
	total := 0.0
	for i := 1; i < len(samples); i++ {
		total += samples[i-1].Position().DistanceTo(samples[i].Position())
	}
	return total
}

func durationMinutes(samples []types.GPSSample) int64 {
	if len(samples) < 2 {
		return 0
	}
	return roundMinutes(samples[len(samples)-1].Timestamp.Sub(samples[0].Timestamp))
}

func roundMinutes(d time.Duration) int64 {
	return int64(math.Round(float64(d.Milliseconds()) / 60000))
}
