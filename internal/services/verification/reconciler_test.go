package verification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStatus(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "root status object code",
			payload: `{"status":{"code":"COMPLETED"}}`,
			want:    "COMPLETED",
		},
		{
			name:    "root current_status",
			payload: `{"current_status":"IN_REVIEW"}`,
			want:    "IN_REVIEW",
		},
		{
			name:    "root state",
			payload: `{"state":"PROCESSING"}`,
			want:    "PROCESSING",
		},
		{
			name: "root status wins over statuses list",
			payload: `{
				"status":{"code":"PENDING"},
				"statuses":[{"code":"COMPLETED","timestamp":"2024-05-01T10:00:00Z"}]
			}`,
			want: "PENDING",
		},
		{
			name: "newest statuses entry wins",
			payload: `{"statuses":[
				{"code":"SUBMITTED","timestamp":"2024-05-01T10:00:00Z"},
				{"code":"COMPLETED","timestamp":"2024-05-03T10:00:00Z"},
				{"code":"IN_REVIEW","timestamp":"2024-05-02T10:00:00Z"}
			]}`,
			want: "COMPLETED",
		},
		{
			name: "statuses entry status field alias",
			payload: `{"statuses":[
				{"status":"FAILED","createdAt":"2024-05-01 10:00:00"}
			]}`,
			want: "FAILED",
		},
		{
			name: "epoch millisecond timestamps",
			payload: `{"statuses":[
				{"code":"SUBMITTED","timestamp":1714550400000},
				{"code":"COMPLETED","timestamp":1714723200000}
			]}`,
			want: "COMPLETED",
		},
		{
			name: "epoch second timestamps",
			payload: `{"statuses":[
				{"code":"COMPLETED","timestamp":1714723200},
				{"code":"SUBMITTED","timestamp":1714550400}
			]}`,
			want: "COMPLETED",
		},
		{
			name: "unparseable timestamps sort last",
			payload: `{"statuses":[
				{"code":"STALE","timestamp":"not-a-time"},
				{"code":"FRESH","timestamp":"2024-05-01T10:00:00Z"}
			]}`,
			want: "FRESH",
		},
		{
			name: "milestones used when statuses absent",
			payload: `{"milestones":[
				{"name":"documents_received","createdAt":"2024-05-01"},
				{"code":"SUCCESS","createdAt":"2024-05-02"}
			]}`,
			want: "SUCCESS",
		},
		{
			name:    "milestone bare name as last resort",
			payload: `{"milestones":[{"name":"documents_received","timestamp":"2024-05-01T00:00:00Z"}]}`,
			want:    "documents_received",
		},
		{
			name:    "empty payload",
			payload: `{}`,
			want:    StatusUnknown,
		},
		{
			name:    "malformed json",
			payload: `{not json`,
			want:    StatusUnknown,
		},
		{
			name:    "empty statuses list",
			payload: `{"statuses":[]}`,
			want:    StatusUnknown,
		},
		{
			name:    "statuses of wrong shape",
			payload: `{"statuses":["COMPLETED"]}`,
			want:    StatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractStatus([]byte(tt.payload)))
		})
	}
}

func TestMapOutcome(t *testing.T) {
	tests := []struct {
		raw  string
		want OutcomeState
	}{
		{"COMPLETED", StateCompleted},
		{"completed", StateCompleted},
		{"Complete", StateCompleted},
		{"SUCCESS", StateCompleted},
		{"FAILED", StateFailed},
		{"REJECTED", StateFailed},
		{"error", StateFailed},
		{"SUBMITTED", StatePending},
		{"IN_REVIEW", StatePending},
		{StatusUnknown, StatePending},
		{"", StatePending},
		{"something-new", StatePending},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapOutcome(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	outcome := Normalize([]byte(`{"statuses":[{"code":"COMPLETED","timestamp":"2024-05-01T10:00:00Z"}]}`), SourcePoll)
	assert.Equal(t, StateCompleted, outcome.State)
	assert.Equal(t, "COMPLETED", outcome.RawStatus)
	assert.Equal(t, SourcePoll, outcome.Source)

	// An unrecognized payload degrades to pending, never to an error.
	outcome = Normalize([]byte(`{"unexpected":"shape"}`), SourceWebhook)
	assert.Equal(t, StatePending, outcome.State)
	assert.Equal(t, StatusUnknown, outcome.RawStatus)
	assert.Equal(t, SourceWebhook, outcome.Source)
}
