package collector

import (
	"sort"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// Observation is a single raw price point as reported by a provider.
type Observation struct {
	Time  time.Time
	Price float64
}

// Daily collapses raw observations onto UTC calendar days. When a day has
// several observations the latest one wins. The result is sorted ascending.
func Daily(name string, obs []Observation) core.Series {
	latest := make(map[time.Time]Observation, len(obs))
	for _, o := range obs {
		day := o.Time.UTC().Truncate(24 * time.Hour)
		if prev, ok := latest[day]; !ok || !o.Time.Before(prev.Time) {
			latest[day] = o
		}
	}

	days := make([]time.Time, 0, len(latest))
	for day := range latest {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	values := make([]float64, len(days))
	for i, day := range days {
		values[i] = latest[day].Price
	}
	return core.NewSeries(name, days, values)
}

// Intersect restricts every series to the timestamps present in all of them.
// This is an inner join performed at the provider boundary; the numerical
// packages never reconcile indexes themselves.
func Intersect(series ...core.Series) ([]core.Series, error) {
	if len(series) == 0 {
		return nil, nil
	}

	counts := make(map[int64]int)
	for _, s := range series {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		for _, t := range s.Index {
			counts[t.UnixNano()]++
		}
	}

	out := make([]core.Series, len(series))
	for j, s := range series {
		index := make([]time.Time, 0, len(s.Index))
		values := make([]float64, 0, len(s.Values))
		for i, t := range s.Index {
			if counts[t.UnixNano()] == len(series) {
				index = append(index, t)
				values = append(values, s.Values[i])
			}
		}
		out[j] = core.NewSeries(s.Name, index, values)
	}

	if out[0].Len() == 0 {
		return nil, core.Errorf(core.ErrNoData, "price series share no common timestamps")
	}
	return out, nil
}
