package verification

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Providers disagree on where the status lives: some report it as a field
// on the payload root, others as a timestamped list of status changes or
// milestones. ExtractStatus tries each shape in priority order and returns
// the first non-empty match, or StatusUnknown.
func ExtractStatus(payload []byte) string {
	var root map[string]interface{}
	if err := json.Unmarshal(payload, &root); err != nil {
		return StatusUnknown
	}

	// 1. Explicit field on the root, checking known aliases.
	if status, ok := root["status"].(map[string]interface{}); ok {
		if code := stringField(status, "code"); code != "" {
			return code
		}
	}
	if s := stringField(root, "current_status"); s != "" {
		return s
	}
	if s := stringField(root, "state"); s != "" {
		return s
	}

	// 2. Most recent entry of the statuses list.
	if s := latestEntryStatus(root, "statuses", []string{"code", "status", "state"}); s != "" {
		return s
	}

	// 3. Most recent milestone, allowing a bare name as last resort.
	if s := latestEntryStatus(root, "milestones", []string{"code", "status", "state", "name"}); s != "" {
		return s
	}

	return StatusUnknown
}

// MapOutcome folds a vendor status string into the three application
// states. Anything unrecognized, including StatusUnknown, stays pending.
func MapOutcome(rawStatus string) OutcomeState {
	switch strings.ToUpper(rawStatus) {
	case "COMPLETED", "COMPLETE", "SUCCESS":
		return StateCompleted
	case "FAILED", "REJECTED", "ERROR":
		return StateFailed
	default:
		return StatePending
	}
}

// Normalize extracts and maps a raw provider payload into an Outcome for
// the given channel.
func Normalize(payload []byte, source OutcomeSource) Outcome {
	raw := ExtractStatus(payload)
	return Outcome{
		State:     MapOutcome(raw),
		RawStatus: raw,
		Source:    source,
	}
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// latestEntryStatus sorts the named list newest-first by parsed timestamp
// (entries with unparseable timestamps sort last) and reads the first
// non-empty field from the newest entry.
func latestEntryStatus(root map[string]interface{}, listKey string, fields []string) string {
	raw, ok := root[listKey].([]interface{})
	if !ok || len(raw) == 0 {
		return ""
	}

	entries := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return ""
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ti, iok := entryTime(entries[i])
		tj, jok := entryTime(entries[j])
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})

	for _, field := range fields {
		if s := stringField(entries[0], field); s != "" {
			return s
		}
	}
	return ""
}

// entryTime parses the entry's timestamp from the known field names.
// Strings are tried as RFC3339 then as a plain datetime; numbers are
// treated as epoch seconds (or milliseconds when large enough).
func entryTime(entry map[string]interface{}) (time.Time, bool) {
	for _, key := range []string{"timestamp", "createdAt", "created_at", "updatedAt"} {
		val, ok := entry[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, v); err == nil {
					return t, true
				}
			}
		case float64:
			if v > 1e12 {
				return time.UnixMilli(int64(v)), true
			}
			return time.Unix(int64(v), 0), true
		}
	}
	return time.Time{}, false
}
