package entity

// Timeframe identifies a supported history window.
type Timeframe string

const (
	// Timeframe7D covers the last 7 calendar days.
	Timeframe7D Timeframe = "7D"
	// Timeframe30D covers the last 30 calendar days.
	Timeframe30D Timeframe = "30D"
	// Timeframe90D covers the last 90 calendar days.
	Timeframe90D Timeframe = "90D"
)

// DateLayout is the calendar-day format used everywhere in the engine (UTC).
const DateLayout = "2006-01-02"

// Days returns the number of calendar days covered by the timeframe.
// Returns 0 for an unknown timeframe.
func (t Timeframe) Days() int {
	switch t {
	case Timeframe7D:
		return 7
	case Timeframe30D:
		return 30
	case Timeframe90D:
		return 90
	default:
		return 0
	}
}

// IsValid reports whether the timeframe is one of the supported windows.
func (t Timeframe) IsValid() bool {
	return t.Days() > 0
}
