package sumsub

// Applicant is the subset of Sumsub's applicant resource the app reads.
type Applicant struct {
	ID             string `json:"id"`
	ExternalUserID string `json:"externalUserId"`
	InspectionID   string `json:"inspectionId"`
	CreatedAt      string `json:"createdAt"`
}

// AccessToken is a short-lived WebSDK credential bound to one user.
type AccessToken struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// WebhookEvent is the envelope Sumsub posts to the webhook endpoint.
// ReviewResult is only populated on applicantReviewed events.
type WebhookEvent struct {
	Type           string        `json:"type"`
	ApplicantID    string        `json:"applicantId"`
	InspectionID   string        `json:"inspectionId"`
	ExternalUserID string        `json:"externalUserId"`
	ReviewStatus   string        `json:"reviewStatus"`
	ReviewResult   *ReviewResult `json:"reviewResult"`
	CreatedAtMs    string        `json:"createdAtMs"`
}

// ReviewResult carries the reviewer's verdict. "GREEN" is the canonical
// fully-approved answer.
type ReviewResult struct {
	ReviewAnswer     string   `json:"reviewAnswer"`
	RejectLabels     []string `json:"rejectLabels"`
	ReviewRejectType string   `json:"reviewRejectType"`
}
