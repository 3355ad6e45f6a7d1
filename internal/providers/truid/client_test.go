package truid

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"arvo/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	requests []*http.Request
	status   int
	respBody string
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.requests = append(t.requests, req)
	status := t.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(t.respBody)),
		Header:     make(http.Header),
	}, nil
}

func newTestClient(cfg Config, transport *recordingTransport) *Client {
	c := NewClient(cfg)
	c.http = &http.Client{Transport: transport}
	return c
}

func TestNotConfigured(t *testing.T) {
	transport := &recordingTransport{}

	for _, cfg := range []Config{{}, {APIKey: "key"}, {BaseURL: "https://truid.test"}} {
		c := newTestClient(cfg, transport)
		assert.False(t, c.Configured())

		_, err := c.CreateCollection(context.Background(), "user-1")
		assert.ErrorIs(t, err, providers.ErrNotConfigured)
	}

	assert.Empty(t, transport.requests)
}

func TestCreateCollection(t *testing.T) {
	transport := &recordingTransport{
		respBody: `{"id":"col-1","websdkUrl":"https://truid.test/flow/col-1","state":"CREATED"}`,
	}
	c := newTestClient(Config{APIKey: "key", BaseURL: "https://truid.test"}, transport)

	col, err := c.CreateCollection(context.Background(), "user-42")
	require.NoError(t, err)
	assert.Equal(t, "col-1", col.ID)
	assert.Equal(t, "https://truid.test/flow/col-1", col.HostedURL)
	assert.Equal(t, "CREATED", col.State)

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/collections", req.URL.Path)
	assert.Equal(t, "Bearer key", req.Header.Get("Authorization"))
}

func TestGetCollectionStatusNon2xx(t *testing.T) {
	transport := &recordingTransport{status: http.StatusNotFound, respBody: `{"error":"collection not found"}`}
	c := newTestClient(Config{APIKey: "key", BaseURL: "https://truid.test"}, transport)

	_, err := c.GetCollectionStatus(context.Background(), "missing")
	require.Error(t, err)

	var pe *providers.Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "truid", pe.Provider)
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
}
