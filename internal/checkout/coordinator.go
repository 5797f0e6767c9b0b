package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"storefront-gateway/internal/models"
	"storefront-gateway/internal/upstream"
)

// State names the stages of the OTP-gated checkout flow. The single primary
// action button is overloaded by state: before an OTP is sent it validates and
// challenges, afterwards it verifies.
type State string

const (
	StateEditing      State = "editing"
	StateChallenged   State = "challenged"
	StateMethodChosen State = "method-chosen"
	StateOtpSent      State = "otp-sent"
	StateVerifying    State = "verifying"
	StateVerified     State = "verified"
	StateOrderCreated State = "order-created"
)

// Challenger executes the invisible bot challenge and returns its one-time
// token. clientToken is the token the browser widget produced, when there is
// one; implementations may exchange it or pass it through.
type Challenger interface {
	Challenge(ctx context.Context, clientToken string) (string, error)
}

// OrderClient is the upstream surface the checkout flow depends on.
// *upstream.Client satisfies it.
type OrderClient interface {
	SendOTP(ctx context.Context, req upstream.OTPRequest) error
	ResendOTP(ctx context.Context, req upstream.OTPRequest) error
	VerifyOTP(ctx context.Context, req upstream.VerifyOTPRequest) error
	CreateOrder(ctx context.Context, payload models.OrderPayload) (*models.Order, error)
}

// CooldownStore persists the resend-cooldown deadline per checkout flow so a
// reload does not reset an active cooldown. A nil store keeps it in memory
// only. The cooldown is advisory UI state either way; the server owns the
// authoritative rate limit.
type CooldownStore interface {
	GetCooldownDeadline(flowID string) (time.Time, error)
	SetCooldownDeadline(flowID string, deadline time.Time) error
}

// Channel is one selectable OTP delivery option.
type Channel struct {
	Method models.OtpMethod `json:"method"`
	Value  string           `json:"value"`
}

var (
	ErrCartEmpty      = errors.New("cart is empty")
	ErrCooldownActive = errors.New("resend cooldown is still running")
	ErrNoOtpSent      = errors.New("no OTP has been sent yet")
	ErrNotChallenged  = errors.New("checkout form has not been submitted yet")
	ErrBadChannel     = errors.New("chosen channel is not available")
	ErrTooManySends   = errors.New("too many OTP dispatch attempts, slow down")
)

// ValidationError carries field-level form errors; no network call was made.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("shipping form invalid (%d fields)", len(e.Fields))
}

const defaultCooldown = 30 * time.Second

// Options tunes a checkout coordinator.
type Options struct {
	Cooldown    time.Duration
	ShippingFee float64
	Now         func() time.Time // test hook; defaults to time.Now
}

// Coordinator drives one checkout flow: shipping validation, bot challenge,
// channel choice, OTP dispatch/cooldown/verification, and the final
// verification-gated order creation.
type Coordinator struct {
	mu         sync.Mutex
	client     OrderClient
	challenger Challenger
	cart       *Cart
	store      CooldownStore
	limiter    *rate.Limiter
	now        func() time.Time

	cooldown    time.Duration
	shippingFee float64

	flowID       string
	state        State
	shipping     models.ShippingInfo
	captchaToken string
	method       models.OtpMethod
	channelValue string
	lastError    string
	deadline     time.Time
	order        *models.Order
}

// New builds a coordinator in the Editing state with a fresh flow id.
func New(client OrderClient, challenger Challenger, cart *Cart, store CooldownStore, opts Options) *Coordinator {
	cooldown := opts.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		client:      client,
		challenger:  challenger,
		cart:        cart,
		store:       store,
		limiter:     rate.NewLimiter(rate.Every(2*time.Second), 3),
		now:         now,
		cooldown:    cooldown,
		shippingFee: opts.ShippingFee,
		flowID:      uuid.NewString(),
		state:       StateEditing,
	}
}

// FlowID identifies this checkout flow (cooldown persistence key).
func (c *Coordinator) FlowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flowID
}

// ResumeFlow adopts an existing flow id and restores its persisted cooldown
// deadline, so a page reload keeps an active countdown.
func (c *Coordinator) ResumeFlow(flowID string) {
	if flowID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flowID = flowID
	if c.store == nil {
		return
	}
	deadline, err := c.store.GetCooldownDeadline(flowID)
	if err != nil {
		log.Debugf("cooldown restore failed for flow %s: %v", flowID, err)
		return
	}
	if deadline.After(c.now()) {
		c.deadline = deadline
	}
}

// SubmitResult is what the primary action returns: either the pruned channel
// list (after a successful validate+challenge) or the created order (after a
// successful verify).
type SubmitResult struct {
	Channels []Channel     `json:"channels,omitempty"`
	Order    *models.Order `json:"order,omitempty"`
}

// Submit is the overloaded primary action. With an OTP already sent it routes
// to verification of the entered code; once verified it retries order creation
// (after a create failure the user stays on the payment step, so the button
// must not restart the flow). Otherwise it validates the form, runs the bot
// challenge and advances to Challenged. captchaToken is the browser-obtained
// widget token, forwarded to the challenger.
func (c *Coordinator) Submit(ctx context.Context, info models.ShippingInfo, code, captchaToken string) (*SubmitResult, error) {
	c.mu.Lock()
	otpPending := c.state == StateOtpSent || c.state == StateVerifying || c.state == StateVerified
	c.mu.Unlock()

	if otpPending {
		order, err := c.Verify(ctx, code)
		if err != nil {
			return nil, err
		}
		return &SubmitResult{Order: order}, nil
	}

	if c.cart.Len() == 0 {
		return nil, ErrCartEmpty
	}
	normalized, fieldErrs := ValidateShipping(info)
	if fieldErrs != nil {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	token, err := c.challenger.Challenge(ctx, captchaToken)
	if err != nil {
		return nil, fmt.Errorf("bot challenge failed: %v", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.shipping = normalized
	c.captchaToken = token
	c.state = StateChallenged
	c.lastError = ""
	log.Infof("checkout flow %s challenged", c.flowID)
	return &SubmitResult{Channels: c.channelsLocked()}, nil
}

// Channels lists the OTP delivery options, pruned to channels for which a
// value exists.
func (c *Coordinator) Channels() []Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channelsLocked()
}

func (c *Coordinator) channelsLocked() []Channel {
	var out []Channel
	if c.shipping.Email != "" {
		out = append(out, Channel{Method: models.OtpEmail, Value: c.shipping.Email})
	}
	if c.shipping.Phone != "" {
		out = append(out, Channel{Method: models.OtpWhatsapp, Value: c.shipping.Phone})
	}
	if c.shipping.Phone2 != "" {
		out = append(out, Channel{Method: models.OtpWhatsapp, Value: c.shipping.Phone2})
	}
	return out
}

// ChooseMethod picks exactly one channel and dispatches the OTP on it. On
// dispatch failure the flow stays in MethodChosen so the user may pick again.
func (c *Coordinator) ChooseMethod(ctx context.Context, method models.OtpMethod, value string) error {
	c.mu.Lock()
	if c.state != StateChallenged && c.state != StateMethodChosen {
		c.mu.Unlock()
		return ErrNotChallenged
	}
	valid := false
	for _, ch := range c.channelsLocked() {
		if ch.Method == method && ch.Value == value {
			valid = true
			break
		}
	}
	if !valid {
		c.mu.Unlock()
		return ErrBadChannel
	}
	// A limited attempt must leave the machine untouched.
	if !c.limiter.Allow() {
		c.mu.Unlock()
		return ErrTooManySends
	}
	c.method = method
	c.channelValue = value
	c.state = StateMethodChosen
	req := c.otpRequestLocked()
	c.mu.Unlock()

	if err := c.client.SendOTP(ctx, req); err != nil {
		log.Warnf("OTP dispatch failed on %s: %v", method, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateOtpSent
	c.startCooldownLocked()
	log.Infof("checkout flow %s OTP sent via %s", c.flowID, method)
	return nil
}

// Resend re-dispatches on the same channel once the cooldown reached zero and
// restarts the countdown. No re-choosing is required.
func (c *Coordinator) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateOtpSent && c.state != StateVerifying {
		c.mu.Unlock()
		return ErrNoOtpSent
	}
	if c.cooldownRemainingLocked() > 0 {
		c.mu.Unlock()
		return ErrCooldownActive
	}
	req := c.otpRequestLocked()
	c.mu.Unlock()

	if !c.limiter.Allow() {
		return ErrTooManySends
	}
	if err := c.client.ResendOTP(ctx, req); err != nil {
		log.Warnf("OTP resend failed: %v", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCooldownLocked()
	return nil
}

// Verify checks the entered code and, on success, submits the order. On
// verification failure the flow returns to OtpSent with lastError set; the
// user may retry without re-requesting an OTP, without a client-side attempt
// limit. On order-creation failure the cart stays intact and no retry is
// attempted.
func (c *Coordinator) Verify(ctx context.Context, code string) (*models.Order, error) {
	c.mu.Lock()
	if c.state != StateOtpSent && c.state != StateVerifying && c.state != StateVerified {
		c.mu.Unlock()
		return nil, ErrNoOtpSent
	}
	alreadyVerified := c.state == StateVerified
	if !alreadyVerified {
		c.state = StateVerifying
	}
	req := upstream.VerifyOTPRequest{OTPRequest: c.otpRequestLocked(), OTP: code}
	c.mu.Unlock()

	if !alreadyVerified {
		if err := c.client.VerifyOTP(ctx, req); err != nil {
			c.mu.Lock()
			c.state = StateOtpSent
			c.lastError = err.Error()
			c.mu.Unlock()
			return nil, err
		}
		c.mu.Lock()
		c.state = StateVerified
		c.lastError = ""
		c.mu.Unlock()
	}

	payload := c.orderPayload()
	order, err := c.client.CreateOrder(ctx, payload)
	if err != nil {
		// Verified but not created: keep the cart and surface the error, the
		// user stays on the payment step.
		c.mu.Lock()
		c.lastError = err.Error()
		c.mu.Unlock()
		log.Warnf("order creation failed for flow %s: %v", c.flowID, err)
		return nil, err
	}

	c.cart.Clear()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateOrderCreated
	c.order = order
	log.Infof("checkout flow %s created order %s", c.flowID, order.ID)
	return order, nil
}

// orderPayload assembles the creation request from the cart, the validated
// shipping info and the computed totals. Payment method is fixed to Cash.
func (c *Coordinator) orderPayload() models.OrderPayload {
	itemsPrice := c.cart.ItemsPrice()
	c.mu.Lock()
	defer c.mu.Unlock()
	shippingPrice := 0.0
	if !c.shipping.Pickup {
		shippingPrice = c.shippingFee
	}
	return models.OrderPayload{
		Items:         c.cart.orderItems(),
		ShippingInfo:  c.shipping,
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TotalPrice:    itemsPrice + shippingPrice,
		PaymentMethod: "Cash",
		Pickup:        c.shipping.Pickup,
		CaptchaToken:  c.captchaToken,
	}
}

func (c *Coordinator) otpRequestLocked() upstream.OTPRequest {
	req := upstream.OTPRequest{Method: c.method}
	switch c.method {
	case models.OtpEmail:
		req.Email = c.channelValue
	case models.OtpWhatsapp:
		req.Phone = c.channelValue
	}
	return req
}

func (c *Coordinator) startCooldownLocked() {
	c.deadline = c.now().Add(c.cooldown)
	if c.store != nil {
		if err := c.store.SetCooldownDeadline(c.flowID, c.deadline); err != nil {
			log.Debugf("cooldown persist failed for flow %s: %v", c.flowID, err)
		}
	}
}

func (c *Coordinator) cooldownRemainingLocked() int {
	rem := c.deadline.Sub(c.now())
	if rem <= 0 {
		return 0
	}
	return int((rem + time.Second - 1) / time.Second)
}

// CooldownRemaining reports the advisory countdown in whole seconds.
func (c *Coordinator) CooldownRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldownRemainingLocked()
}

// Session returns the UI-facing snapshot of the flow.
func (c *Coordinator) Session() models.OtpSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	sent := c.state == StateOtpSent || c.state == StateVerifying ||
		c.state == StateVerified || c.state == StateOrderCreated
	return models.OtpSession{
		State:                    string(c.state),
		Method:                   c.method,
		ChannelValue:             c.channelValue,
		Sent:                     sent,
		CooldownSecondsRemaining: c.cooldownRemainingLocked(),
		Verified:                 c.state == StateVerified || c.state == StateOrderCreated,
		LastError:                c.lastError,
	}
}

// Order returns the created order, if any.
func (c *Coordinator) Order() *models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// Reset returns the flow to Editing with a fresh flow id, used after order
// confirmation or when the user navigates away.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flowID = uuid.NewString()
	c.state = StateEditing
	c.shipping = models.ShippingInfo{}
	c.captchaToken = ""
	c.method = ""
	c.channelValue = ""
	c.lastError = ""
	c.deadline = time.Time{}
	c.order = nil
}
