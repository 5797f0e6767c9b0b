package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/models"
)

// DomainError is a 4xx upstream rejection carrying a server-authoritative
// message meant to be shown verbatim.
type DomainError struct {
	Status  int
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// Client is a stateless typed client for the commerce REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given base URL (no trailing slash needed).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ListProducts fetches one page of the catalog and normalizes the response.
func (c *Client) ListProducts(ctx context.Context, params models.QueryParams) (*models.Listing, error) {
	var raw listingPayload
	u := c.baseURL + "/api/products?" + params.Encode().Encode()
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return nil, err
	}
	return normalizeListing(raw), nil
}

// FilterAggregate fetches the filter metadata for the given category context.
func (c *Client) FilterAggregate(ctx context.Context, categories []string) (*models.FilterAggregate, error) {
	u := c.baseURL + "/api/products/filters"
	if len(categories) > 0 {
		q := url.Values{}
		for _, cat := range categories {
			q.Add("category", cat)
		}
		u += "?" + q.Encode()
	}
	var agg models.FilterAggregate
	if err := c.getJSON(ctx, u, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// OTPRequest identifies the delivery channel for an OTP dispatch.
type OTPRequest struct {
	Method models.OtpMethod `json:"otpMethod"`
	Email  string           `json:"email,omitempty"`
	Phone  string           `json:"phone,omitempty"`
}

// VerifyOTPRequest carries the entered code alongside the channel.
type VerifyOTPRequest struct {
	OTPRequest
	OTP string `json:"otp"`
}

// SendOTP dispatches a one-time code over the chosen channel.
func (c *Client) SendOTP(ctx context.Context, req OTPRequest) error {
	return c.postJSON(ctx, "/api/orders/send-otp", req, nil)
}

// ResendOTP re-dispatches the code on the same channel.
func (c *Client) ResendOTP(ctx context.Context, req OTPRequest) error {
	return c.postJSON(ctx, "/api/orders/resend-otp", req, nil)
}

// VerifyOTP checks the entered code.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) error {
	return c.postJSON(ctx, "/api/orders/verify-otp", req, nil)
}

// CreateOrder submits a verified order for creation.
func (c *Client) CreateOrder(ctx context.Context, payload models.OrderPayload) (*models.Order, error) {
	var order models.Order
	if err := c.postJSON(ctx, "/api/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// errorPayload covers the message field names upstream responses use.
type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "upstream %s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrapf(err, "read upstream response for %s", req.URL.Path)
	}
	log.Debugf("upstream %s %s -> %d in %s", req.Method, req.URL.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var ep errorPayload
		_ = json.Unmarshal(body, &ep)
		msg := ep.Message
		if msg == "" {
			msg = ep.Error
		}
		if msg == "" {
			msg = fmt.Sprintf("request rejected (%d)", resp.StatusCode)
		}
		return &DomainError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream %s returned %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "decode upstream response for %s", req.URL.Path)
	}
	return nil
}
