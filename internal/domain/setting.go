package domain

import "time"

// Well-known setting keys.
const (
	SettingDispatchIntervalHours = "dispatch_interval_hours"
	SettingLastDispatchAt        = "last_dispatch_at"
)

// DefaultSettings are written on initialization without overwriting
// existing values.
var DefaultSettings = map[string]string{
	SettingDispatchIntervalHours: "12",
	SettingLastDispatchAt:        "",
}

// Setting is a single key-value configuration row.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
