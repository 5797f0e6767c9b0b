package main

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"storefront-gateway/internal/catalog"
	"storefront-gateway/internal/checkout"
	"storefront-gateway/internal/models"
	"storefront-gateway/internal/upstream"
)

// apiError renders the gateway's error envelope. Upstream domain errors keep
// their server-authoritative message and status.
func apiError(c *gin.Context, status int, kind, message string) {
	c.JSON(status, models.ErrorResponse{Error: kind, Code: status, Message: message})
}

func upstreamError(c *gin.Context, err error) {
	if de, ok := err.(*upstream.DomainError); ok {
		apiError(c, de.Status, "upstream_rejected", de.Message)
		return
	}
	apiError(c, http.StatusBadGateway, "upstream_unavailable", err.Error())
}

// ---- catalog ----

func getListing(c *gin.Context) {
	s := currentSession(c)
	listing, err := s.catalog.Listing()
	if listing == nil {
		if rerr := s.catalog.Refresh(c.Request.Context()); rerr != nil {
			upstreamError(c, rerr)
			return
		}
		listing, err = s.catalog.Listing()
	}
	sort, page, limit := s.catalog.State()
	c.JSON(http.StatusOK, gin.H{
		"listing": listing,
		"sort":    sort,
		"page":    page,
		"limit":   limit,
		"stale":   err != nil,
	})
}

func refreshListing(c *gin.Context) {
	s := currentSession(c)
	if err := s.catalog.Refresh(c.Request.Context()); err != nil {
		upstreamError(c, err)
		return
	}
	listing, _ := s.catalog.Listing()
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

type filtersRequest struct {
	Filters models.FilterSelection `json:"filters"`
}

func putPendingFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	s.catalog.UpdatePendingFilter(req.Filters)
	c.JSON(http.StatusOK, gin.H{"pending": s.catalog.PendingFilters()})
}

func applyFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if err := s.catalog.ApplyFilters(c.Request.Context(), req.Filters); err != nil {
		upstreamError(c, err)
		return
	}
	listing, _ := s.catalog.Listing()
	c.JSON(http.StatusOK, gin.H{"listing": listing, "committed": s.catalog.CommittedFilters()})
}

func clearFilters(c *gin.Context) {
	s := currentSession(c)
	if err := s.catalog.ClearAllFilters(c.Request.Context()); err != nil {
		upstreamError(c, err)
		return
	}
	listing, _ := s.catalog.Listing()
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

func putSort(c *gin.Context) {
	var req struct {
		Sort string `json:"sort"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if err := s.catalog.SetSort(c.Request.Context(), req.Sort); err != nil {
		if _, ok := err.(*catalog.InvalidSortError); ok {
			apiError(c, http.StatusBadRequest, "invalid_sort", err.Error())
			return
		}
		upstreamError(c, err)
		return
	}
	listing, _ := s.catalog.Listing()
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

func putPage(c *gin.Context) {
	var req struct {
		Page int `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if err := s.catalog.SetPage(c.Request.Context(), req.Page); err != nil {
		upstreamError(c, err)
		return
	}
	listing, _ := s.catalog.Listing()
	c.JSON(http.StatusOK, gin.H{"listing": listing})
}

func putSearch(c *gin.Context) {
	var req struct {
		Term    string                 `json:"term"`
		Sort    string                 `json:"sort"`
		Filters models.FilterSelection `json:"filters"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if req.Sort != "" {
		if err := s.catalog.SetSearchSort(req.Sort); err != nil {
			apiError(c, http.StatusBadRequest, "invalid_sort", err.Error())
			return
		}
	}
	if req.Filters != nil {
		s.catalog.SetSearchFilters(req.Filters)
	}
	s.catalog.SetSearchTerm(req.Term)
	c.JSON(http.StatusAccepted, gin.H{"term": req.Term})
}

func getSearchResults(c *gin.Context) {
	s := currentSession(c)
	listing, err := s.catalog.SearchResults()
	c.JSON(http.StatusOK, gin.H{
		"results": listing,
		"stale":   err != nil,
	})
}

func getFilterDescriptors(c *gin.Context) {
	s := currentSession(c)
	categories := c.QueryArray("category")
	descriptors := s.catalog.LoadFilterDescriptors(c.Request.Context(), categories)
	if descriptors == nil {
		descriptors = []models.FilterDescriptor{}
	}
	c.JSON(http.StatusOK, gin.H{"descriptors": descriptors})
}

// ---- cart ----

func getCart(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"items":      s.cart.Items(),
		"itemsPrice": s.cart.ItemsPrice(),
	})
}

func addCartItem(c *gin.Context) {
	var item checkout.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(item.ProductID) == "" {
		apiError(c, http.StatusBadRequest, "bad_request", "productId is required")
		return
	}
	s := currentSession(c)
	s.cart.Add(item)
	c.JSON(http.StatusOK, gin.H{"items": s.cart.Items()})
}

func setCartItemQty(c *gin.Context) {
	var req struct {
		Qty int `json:"qty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	s.cart.SetQty(c.Param("productId"), req.Qty)
	c.JSON(http.StatusOK, gin.H{"items": s.cart.Items()})
}

func removeCartItem(c *gin.Context) {
	s := currentSession(c)
	s.cart.Remove(c.Param("productId"))
	c.JSON(http.StatusOK, gin.H{"items": s.cart.Items()})
}

func clearCart(c *gin.Context) {
	s := currentSession(c)
	s.cart.Clear()
	c.JSON(http.StatusOK, gin.H{"items": s.cart.Items()})
}

// ---- checkout ----

func checkoutSubmit(c *gin.Context) {
	var req struct {
		Shipping     models.ShippingInfo `json:"shippingInfo"`
		Otp          string              `json:"otp"`
		CaptchaToken string              `json:"captchaToken"`
		FlowID       string              `json:"flowId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if req.FlowID != "" {
		s.checkout.ResumeFlow(req.FlowID)
	}

	result, err := s.checkout.Submit(c.Request.Context(), req.Shipping, req.Otp, req.CaptchaToken)
	if err != nil {
		if ve, ok := err.(*checkout.ValidationError); ok {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "validation_failed",
				Code:    http.StatusBadRequest,
				Message: "shipping form is invalid",
				Fields:  ve.Fields,
			})
			return
		}
		if err == checkout.ErrCartEmpty {
			apiError(c, http.StatusBadRequest, "cart_empty", err.Error())
			return
		}
		upstreamError(c, err)
		return
	}
	log.Infof("checkout submit advanced session %s", s.id)
	c.JSON(http.StatusOK, gin.H{
		"result":  result,
		"flowId":  s.checkout.FlowID(),
		"session": s.checkout.Session(),
	})
}

func checkoutChannels(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, gin.H{"channels": s.checkout.Channels()})
}

func checkoutChooseMethod(c *gin.Context) {
	var req struct {
		Method models.OtpMethod `json:"method"`
		Value  string           `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apiError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s := currentSession(c)
	if err := s.checkout.ChooseMethod(c.Request.Context(), req.Method, req.Value); err != nil {
		switch err {
		case checkout.ErrNotChallenged, checkout.ErrBadChannel:
			apiError(c, http.StatusConflict, "invalid_state", err.Error())
		case checkout.ErrTooManySends:
			apiError(c, http.StatusTooManyRequests, "too_many_sends", err.Error())
		default:
			upstreamError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.checkout.Session()})
}

func checkoutResend(c *gin.Context) {
	s := currentSession(c)
	if err := s.checkout.Resend(c.Request.Context()); err != nil {
		switch err {
		case checkout.ErrCooldownActive:
			apiError(c, http.StatusConflict, "cooldown_active", err.Error())
		case checkout.ErrNoOtpSent:
			apiError(c, http.StatusConflict, "invalid_state", err.Error())
		case checkout.ErrTooManySends:
			apiError(c, http.StatusTooManyRequests, "too_many_sends", err.Error())
		default:
			upstreamError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s.checkout.Session()})
}

func checkoutState(c *gin.Context) {
	s := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"session": s.checkout.Session(),
		"flowId":  s.checkout.FlowID(),
		"order":   s.checkout.Order(),
	})
}

func checkoutReset(c *gin.Context) {
	s := currentSession(c)
	s.checkout.Reset()
	c.JSON(http.StatusOK, gin.H{"session": s.checkout.Session()})
}
