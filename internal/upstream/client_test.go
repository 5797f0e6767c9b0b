package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront-gateway/internal/models"
)

func TestListProductsEncodesQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"products":[],"pagination":{"page":1,"pages":0,"total":0}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	params := models.QueryParams{
		Page: 2, Limit: 12, Sort: models.SortPriceAsc, Search: "laptop",
		Filters: models.FilterSelection{
			"brand": {Options: []string{"Asus", "Apple"}},
			"price": {Range: &models.Range{Min: 100, Max: 900}},
		},
	}
	if _, err := c.ListProducts(context.Background(), params); err != nil {
		t.Fatal(err)
	}
	if gotQuery != params.Key() {
		t.Fatalf("query = %q, want %q", gotQuery, params.Key())
	}
}

func TestListProductsDecodesAlternateShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"products":[{"_id":"p1","name":"Laptop","price":1000,"discountPrice":100}],
			"pagination":{"currentPage":1,"totalPages":3,"totalItems":30}
		}`))
	}))
	defer srv.Close()

	l, err := NewClient(srv.URL).ListProducts(context.Background(), models.QueryParams{Page: 1, Limit: 12})
	if err != nil {
		t.Fatal(err)
	}
	if l.Products[0].ID != "p1" || l.Products[0].FinalPrice != 900 {
		t.Fatalf("product = %+v", l.Products[0])
	}
	if l.Pagination.TotalPages != 3 {
		t.Fatalf("pagination = %+v", l.Pagination)
	}
}

func TestDomainErrorKeepsServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"Invalid OTP code"}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).VerifyOTP(context.Background(), VerifyOTPRequest{
		OTPRequest: OTPRequest{Method: models.OtpEmail, Email: "a@b.com"},
		OTP:        "000000",
	})
	de, ok := err.(*DomainError)
	if !ok {
		t.Fatalf("want *DomainError, got %T: %v", err, err)
	}
	if de.Status != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", de.Status)
	}
	if de.Message != "Invalid OTP code" {
		t.Fatalf("message = %q, must be the server text verbatim", de.Message)
	}
}

func TestServerErrorIsNotDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).SendOTP(context.Background(), OTPRequest{Method: models.OtpEmail, Email: "a@b.com"})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*DomainError); ok {
		t.Fatal("5xx must not surface as DomainError")
	}
}

func TestCreateOrderRoundTrip(t *testing.T) {
	var gotBody models.OrderPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ord-1","orderNumber":"1042","totalPrice":250}`))
	}))
	defer srv.Close()

	payload := models.OrderPayload{
		Items:         []models.OrderItem{{ProductID: "p1", Name: "Laptop", FinalPrice: 125, Qty: 2}},
		ItemsPrice:    250,
		TotalPrice:    250,
		PaymentMethod: "Cash",
		CaptchaToken:  "tok",
	}
	order, err := NewClient(srv.URL).CreateOrder(context.Background(), payload)
	if err != nil {
		t.Fatal(err)
	}
	if order.ID != "ord-1" || order.TotalPrice != 250 {
		t.Fatalf("order = %+v", order)
	}
	if gotBody.PaymentMethod != "Cash" || gotBody.CaptchaToken != "tok" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestFilterAggregateCategoryQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"categories":["Laptops"],"brands":["Asus"],"tags":[]}`))
	}))
	defer srv.Close()

	agg, err := NewClient(srv.URL).FilterAggregate(context.Background(), []string{"Laptops"})
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "category=Laptops" {
		t.Fatalf("query = %q", gotQuery)
	}
	if len(agg.Brands) != 1 || agg.Brands[0] != "Asus" {
		t.Fatalf("aggregate = %+v", agg)
	}
}
