package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Range is a numeric min/max constraint for range-type filters.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterValue holds the selection for one filter id: either an ordered set of
// chosen options (checkbox filters) or a numeric range (range filters),
// never both.
type FilterValue struct {
	Options []string `json:"options,omitempty"`
	Range   *Range   `json:"range,omitempty"`
}

// FilterSelection maps filter ids to their current selection. Absent keys mean
// "no constraint". Keys are dynamic, driven by server-declared filter metadata.
type FilterSelection map[string]FilterValue

// Clone returns a deep copy so drafts and commits never share backing slices.
func (s FilterSelection) Clone() FilterSelection {
	if s == nil {
		return FilterSelection{}
	}
	out := make(FilterSelection, len(s))
	for id, v := range s {
		cv := FilterValue{}
		if v.Options != nil {
			cv.Options = append([]string(nil), v.Options...)
		}
		if v.Range != nil {
			r := *v.Range
			cv.Range = &r
		}
		out[id] = cv
	}
	return out
}

// IsEmpty reports whether the selection carries no constraint at all.
func (s FilterSelection) IsEmpty() bool {
	for _, v := range s {
		if len(v.Options) > 0 || v.Range != nil {
			return false
		}
	}
	return true
}

// Sort values accepted by the listing endpoint.
const (
	SortAlphaAsc  = "alpha-asc"
	SortAlphaDesc = "alpha-desc"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortDateAsc   = "date-asc"
	SortDateDesc  = "date-desc"
	SortOffers    = "offers"
	SortDefault   = "default"
)

var validSorts = map[string]bool{
	SortAlphaAsc:  true,
	SortAlphaDesc: true,
	SortPriceAsc:  true,
	SortPriceDesc: true,
	SortDateAsc:   true,
	SortDateDesc:  true,
	SortOffers:    true,
	SortDefault:   true,
}

// ValidSort reports whether s is one of the supported sort values.
func ValidSort(s string) bool { return validSorts[s] }

// QueryParams is the full parameter set for one listing request. Callers build
// a fresh value on every filter/sort/page/search change instead of mutating a
// shared one, so Key() stays a deterministic cache key for the request.
type QueryParams struct {
	Page    int
	Limit   int
	Sort    string
	Search  string
	Filters FilterSelection
}

// Encode renders the params as request query values. The price range maps to
// minPrice/maxPrice; any other range filter maps to min<Id>/max<Id>; checkbox
// selections are comma-joined under their filter id.
func (q QueryParams) Encode() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}

	ids := make([]string, 0, len(q.Filters))
	for id := range q.Filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fv := q.Filters[id]
		switch {
		case fv.Range != nil:
			minKey, maxKey := "min"+titleCase(id), "max"+titleCase(id)
			v.Set(minKey, formatFloat(fv.Range.Min))
			v.Set(maxKey, formatFloat(fv.Range.Max))
		case len(fv.Options) > 0:
			v.Set(id, strings.Join(fv.Options, ","))
		}
	}
	return v
}

// Key returns a deterministic string identifying this exact request, suitable
// as a cache key and as a request fingerprint.
func (q QueryParams) Key() string {
	return q.Encode().Encode()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Pagination is the canonical pagination shape every backend variant is
// normalized into. TotalPages may be 0 when there are no results.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// Product is the normalized product shape. FinalPrice is always populated:
// either server-supplied or computed as Price - DiscountPrice. A negative
// FinalPrice is possible when the discount exceeds the price; it is kept as-is
// so the data-quality problem stays visible.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Brand         string    `json:"brand,omitempty"`
	Category      string    `json:"category,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Image         string    `json:"image,omitempty"`
	Price         float64   `json:"price"`
	DiscountPrice float64   `json:"discountPrice"`
	FinalPrice    float64   `json:"finalPrice"`
	InStock       bool      `json:"inStock"`
	IsOffer       bool      `json:"isOffer"`
	IsTopProduct  bool      `json:"isTopProduct"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
}

// Listing is one page of normalized products plus its pagination.
type Listing struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// FilterAggregate is the server-supplied aggregate the filter panel is derived
// from. Specs stays raw so its key order can be preserved during derivation.
type FilterAggregate struct {
	Categories []string        `json:"categories"`
	Brands     []string        `json:"brands"`
	Tags       []string        `json:"tags"`
	Specs      json.RawMessage `json:"specs,omitempty"`
	PriceRange *Range          `json:"priceRange,omitempty"`
}

// OtpMethod is an OTP delivery channel kind.
type OtpMethod string

const (
	OtpEmail    OtpMethod = "email"
	OtpWhatsapp OtpMethod = "whatsapp"
)

// ShippingInfo is the checkout contact/shipping form. Phones are stored with
// one leading "0" stripped (see checkout validation).
type ShippingInfo struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
	Phone2     string `json:"phone2,omitempty"`
	Email      string `json:"email"`
	Pickup     bool   `json:"pickup"`
}

// OrderItem is one cart line inside an order payload.
type OrderItem struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	FinalPrice float64 `json:"finalPrice"`
	Qty        int     `json:"qty"`
}

// OrderPayload is the order-creation request body.
type OrderPayload struct {
	Items         []OrderItem  `json:"items"`
	ShippingInfo  ShippingInfo `json:"shippingInfo"`
	ItemsPrice    float64      `json:"itemsPrice"`
	ShippingPrice float64      `json:"shippingPrice"`
	TotalPrice    float64      `json:"totalPrice"`
	PaymentMethod string       `json:"paymentMethod"`
	Pickup        bool         `json:"pickup"`
	CaptchaToken  string       `json:"captchaToken"`
}

// Order is a created order as returned by the backend.
type Order struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	TotalPrice  float64   `json:"totalPrice"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// OtpSession is the UI-facing snapshot of the checkout OTP flow.
type OtpSession struct {
	State                    string    `json:"state"`
	Method                   OtpMethod `json:"method,omitempty"`
	ChannelValue             string    `json:"channelValue,omitempty"`
	Sent                     bool      `json:"sent"`
	CooldownSecondsRemaining int       `json:"cooldownSecondsRemaining"`
	Verified                 bool      `json:"verified"`
	LastError                string    `json:"lastError,omitempty"`
}

// ErrorResponse is the gateway's JSON error envelope.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e ErrorResponse) String() string {
	return fmt.Sprintf("%s (%d): %s", e.Error, e.Code, e.Message)
}
