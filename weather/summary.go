package weather

import (
	"math"
	"strconv"
	"time"
)

// Unknown is rendered for any value the forecast did not provide.
const Unknown = "❓"

// Kind is a condition the bot knows how to draw.
type Kind struct {
	// Importance ranks conditions; the day's highest wins.
	Importance int
	Icon       string
}

// Dictionary is the fixed set of known descriptions. Anything else is
// ignored.
var Dictionary = map[string]Kind{
	"clear sky":        {0, "☀️"},
	"few clouds":       {1, "🌤"},
	"scattered clouds": {2, "⛅"},
	"broken clouds":    {3, "🌥"},
	"mist":             {4, "🌫"},
	"shower rain":      {5, "🌦"},
	"rain":             {6, "🌧"},
	"thunderstorm":     {7, "⛈️"},
	"snow":             {8, "☃️"},
}

// Summary is one city's day.
type Summary struct {
	HasTemp bool
	Min     float64
	Max     float64

	// Description is the most important known condition, or "".
	Description string
}

// Summarize folds the entries whose local date in loc equals day's.
func Summarize(f *Forecast, day time.Time, loc *time.Location) Summary {
	var s Summary
	if f == nil {
		return s
	}

	y, m, d := day.In(loc).Date()
	for _, e := range f.List {
		ey, em, ed := e.Time().In(loc).Date()
		if ey != y || em != m || ed != d {
			continue
		}

		if !s.HasTemp {
			s.HasTemp = true
			s.Min = e.Main.TempMin
			s.Max = e.Main.TempMax
		} else {
			s.Min = math.Min(s.Min, e.Main.TempMin)
			s.Max = math.Max(s.Max, e.Main.TempMax)
		}

		for _, c := range e.Weather {
			kind, ok := Dictionary[c.Description]
			if !ok {
				continue
			}
			if s.Description == "" || Dictionary[s.Description].Importance < kind.Importance {
				s.Description = c.Description
			}
		}
	}
	return s
}

// Icon returns the icon of the headline condition.
func (s Summary) Icon() string {
	if kind, ok := Dictionary[s.Description]; ok {
		return kind.Icon
	}
	return Unknown
}

// MaxString returns the rounded maximum temperature.
func (s Summary) MaxString() string {
	if !s.HasTemp {
		return Unknown
	}
	return strconv.Itoa(Round(s.Max))
}

// MinString returns the rounded minimum temperature.
func (s Summary) MinString() string {
	if !s.HasTemp {
		return Unknown
	}
	return strconv.Itoa(Round(s.Min))
}

// Round rounds half up, so -2.5 becomes -2.
func Round(x float64) int {
	return int(math.Floor(x + 0.5))
}
