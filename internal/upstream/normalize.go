package upstream

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/models"
	"storefront-gateway/pkg/utils"
)

// flexFloat decodes a JSON number or a string-rendered price ("$1,299.00").
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexFloat(utils.ParsePrice(s))
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid price value %s: %v", string(b), err)
	}
	*f = flexFloat(v)
	return nil
}

// PaginationPayload accepts both pagination shapes seen in the wild:
// {page,pages,total} and {currentPage,totalPages,totalItems}.
type PaginationPayload struct {
	Page        *int `json:"page,omitempty"`
	CurrentPage *int `json:"currentPage,omitempty"`
	Pages       *int `json:"pages,omitempty"`
	TotalPages  *int `json:"totalPages,omitempty"`
	Total       *int `json:"total,omitempty"`
	TotalItems  *int `json:"totalItems,omitempty"`
}

// NormalizePagination converts either accepted shape into the canonical one.
// Canonical fields win when both are present, so normalizing an already
// normalized payload is a no-op.
func NormalizePagination(p PaginationPayload) models.Pagination {
	out := models.Pagination{}
	switch {
	case p.CurrentPage != nil:
		out.CurrentPage = *p.CurrentPage
	case p.Page != nil:
		out.CurrentPage = *p.Page
	}
	switch {
	case p.TotalPages != nil:
		out.TotalPages = *p.TotalPages
	case p.Pages != nil:
		out.TotalPages = *p.Pages
	}
	switch {
	case p.TotalItems != nil:
		out.TotalItems = *p.TotalItems
	case p.Total != nil:
		out.TotalItems = *p.Total
	}
	return out
}

// ProductPayload is the raw product shape. The identifier may arrive as "id"
// or "_id"; finalPrice may be pre-computed or absent.
type ProductPayload struct {
	ID            string     `json:"id"`
	MongoID       string     `json:"_id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Brand         string     `json:"brand"`
	Category      string     `json:"category"`
	Tags          []string   `json:"tags"`
	Image         string     `json:"image"`
	Price         flexFloat  `json:"price"`
	DiscountPrice flexFloat  `json:"discountPrice"`
	FinalPrice    *flexFloat `json:"finalPrice"`
	InStock       bool       `json:"inStock"`
	IsOffer       bool       `json:"isOffer"`
	IsTopProduct  bool       `json:"isTopProduct"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NormalizeProduct aliases the identifier and fills FinalPrice. A supplied
// finalPrice is kept untouched; otherwise it is price - discountPrice, even
// when that goes negative (logged, not clamped).
func NormalizeProduct(raw ProductPayload) models.Product {
	p := models.Product{
		ID:            raw.ID,
		Name:          raw.Name,
		Description:   raw.Description,
		Brand:         raw.Brand,
		Category:      raw.Category,
		Tags:          raw.Tags,
		Image:         raw.Image,
		Price:         float64(raw.Price),
		DiscountPrice: float64(raw.DiscountPrice),
		InStock:       raw.InStock,
		IsOffer:       raw.IsOffer,
		IsTopProduct:  raw.IsTopProduct,
		CreatedAt:     raw.CreatedAt,
	}
	if p.ID == "" {
		p.ID = raw.MongoID
	}
	if raw.FinalPrice != nil {
		p.FinalPrice = float64(*raw.FinalPrice)
	} else {
		p.FinalPrice = p.Price - p.DiscountPrice
	}
	if p.FinalPrice < 0 {
		log.Warnf("product %s has negative finalPrice %s (price=%s discount=%s)",
			p.ID, fmtAmount(p.FinalPrice), fmtAmount(p.Price), fmtAmount(p.DiscountPrice))
	}
	return p
}

func fmtAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// listingPayload is the raw listing response.
type listingPayload struct {
	Products   []ProductPayload  `json:"products"`
	Pagination PaginationPayload `json:"pagination"`
}

func normalizeListing(raw listingPayload) *models.Listing {
	out := &models.Listing{
		Products:   make([]models.Product, 0, len(raw.Products)),
		Pagination: NormalizePagination(raw.Pagination),
	}
	for _, rp := range raw.Products {
		out.Products = append(out.Products, NormalizeProduct(rp))
	}
	return out
}
