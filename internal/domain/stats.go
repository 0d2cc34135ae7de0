package domain

// FormatCounters is a per-mod bucket of finished-match counts
type FormatCounters struct {
	Total int `json:"total"`
	Bo1   int `json:"bo1"`
	Bo3   int `json:"bo3"`
	Bo5   int `json:"bo5"`
}

// Add increments the bucket for the given format class plus the total
func (f *FormatCounters) Add(formatClass string) {
	f.Total++
	switch formatClass {
	case FormatBo1:
		f.Bo1++
	case FormatBo3:
		f.Bo3++
	case FormatBo5:
		f.Bo5++
	}
}

// DailyCounters holds one day's finished-match counts per mod type.
// Only the aggregator writes these, exactly once per finish event.
type DailyCounters struct {
	Date    string         `json:"date"` // YYYY-MM-DD in the stats timezone
	XKT     FormatCounters `json:"xkt"`
	WTSL    FormatCounters `json:"wtsl"`
	Vanilla FormatCounters `json:"vanilla"`
}

// Bucket returns the counter bucket for a mod type
func (d *DailyCounters) Bucket(modType string) *FormatCounters {
	switch modType {
	case ModXKT:
		return &d.XKT
	case ModWTSL:
		return &d.WTSL
	default:
		return &d.Vanilla
	}
}

// Total returns the day's finished-match count across all mods
func (d *DailyCounters) Total() int {
	return d.XKT.Total + d.WTSL.Total + d.Vanilla.Total
}

// MonthlyRollup is a read-only view computed from a trailing window of
// DailyCounters. It is derived on read and never stored.
type MonthlyRollup struct {
	WindowDays   int            `json:"window_days"`
	DaysWithData int            `json:"days_with_data"`
	XKT          FormatCounters `json:"xkt"`
	WTSL         FormatCounters `json:"wtsl"`
	Vanilla      FormatCounters `json:"vanilla"`
	Total        int            `json:"total"`
	DailyAverage float64        `json:"daily_average"`
}

// TopPlayer is one row of the ranked appearance list
type TopPlayer struct {
	Name        string `json:"name"`
	Appearances int    `json:"appearances"`
	LastSeen    string `json:"last_seen"` // YYYY-MM-DD
}
