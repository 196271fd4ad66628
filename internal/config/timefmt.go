package config

import "time"

// timeLayout is the on-disk format for ScheduleDoc.NextRunAt/LastRunAt:
// RFC 3339 with offset, the same layout ${X:ISO_TIMESTAMP} placeholder
// expansion produces.
const timeLayout = time.RFC3339

func parseTimeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimeOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
