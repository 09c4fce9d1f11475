package utils

import (
	"encoding/json"
	"time"
)

// CustomTime wraps time.Time to pin JSON marshaling of snapshot timestamps
// to RFC 3339 in UTC (e.g. "2025-08-25T06:30:00Z"), regardless of the zone
// the process runs in. Snapshot files move between machines, so the
// on-disk form must not depend on the local zone.
type CustomTime time.Time

// MarshalJSON serializes the CustomTime as an RFC 3339 UTC string.
func (d CustomTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).UTC().Format(time.RFC3339))
}

// UnmarshalJSON parses an RFC 3339 formatted string into a CustomTime.
// Fractional seconds are accepted.
func (d *CustomTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*d = CustomTime(t)
	return nil
}

// Time returns the underlying time.Time value of the CustomTime.
func (d CustomTime) Time() time.Time {
	return time.Time(d)
}
