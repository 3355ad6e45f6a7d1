package truid

// Collection is a TruID bank-verification case. The hosted URL is where the
// user completes the flow; the id is what status polling keys on.
type Collection struct {
	ID        string `json:"id"`
	HostedURL string `json:"websdkUrl"`
	State     string `json:"state"`
}
