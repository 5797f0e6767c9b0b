package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// HTTPChallenger exchanges the browser widget token at a challenge provider
// endpoint that answers POSTs of {"token": "..."} with {"token": "..."}.
type HTTPChallenger struct {
	URL  string
	http *http.Client
}

func NewHTTPChallenger(url string) *HTTPChallenger {
	return &HTTPChallenger{
		URL:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPChallenger) Challenge(ctx context.Context, clientToken string) (string, error) {
	payload, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: clientToken})
	if err != nil {
		return "", errors.Wrap(err, "encode challenge request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "build challenge request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "challenge provider")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("challenge provider returned %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "read challenge response")
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrap(err, "decode challenge response")
	}
	if out.Token == "" {
		return "", fmt.Errorf("challenge provider returned an empty token")
	}
	return out.Token, nil
}

// PassthroughChallenger forwards the token the browser already obtained from
// an invisible widget. Used when the gateway does not run the challenge
// itself. Stateless, so concurrent submits on one session cannot interfere.
type PassthroughChallenger struct{}

func (PassthroughChallenger) Challenge(_ context.Context, clientToken string) (string, error) {
	if clientToken == "" {
		return "", fmt.Errorf("missing bot-challenge token")
	}
	return clientToken, nil
}
