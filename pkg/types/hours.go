package types

// DayHours describes one weekday's opening window.
type DayHours struct {
	Open   string `json:"open"`
	Close  string `json:"close"`
	Closed bool   `json:"closed"`
}

// OperatingHours maps weekday (0=Sunday..6=Saturday, as string keys for jsonb
// stability) to the day's window.
type OperatingHours map[string]DayHours
