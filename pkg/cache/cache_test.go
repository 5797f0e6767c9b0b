package cache

import (
	"testing"

	"storefront-gateway/internal/models"
)

func TestListingKeyIsDeterministic(t *testing.T) {
	params := models.QueryParams{
		Page: 2, Limit: 12, Sort: models.SortPriceAsc,
		Filters: models.FilterSelection{
			"brand": {Options: []string{"Asus"}},
			"price": {Range: &models.Range{Min: 100, Max: 900}},
		},
	}
	a, b := ListingKey(params), ListingKey(params)
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if a[:len(listingPrefix)] != listingPrefix {
		t.Fatalf("key %q missing prefix", a)
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var r *RedisCache

	if r.IsAvailable() {
		t.Fatal("nil cache reported available")
	}
	if _, err := r.GetListing(models.QueryParams{Page: 1, Limit: 12}); err == nil {
		t.Fatal("nil cache get should error")
	}
	if err := r.SetListing(models.QueryParams{Page: 1, Limit: 12}, &models.Listing{}); err == nil {
		t.Fatal("nil cache set should error")
	}
	if _, err := r.GetCooldownDeadline("flow"); err == nil {
		t.Fatal("nil cache cooldown get should error")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("nil cache close: %v", err)
	}
	if keys := r.GetAllKeys(); len(keys) != 0 {
		t.Fatalf("keys = %v", keys)
	}
	if stats := r.GetStats(); stats["status"] != "unavailable" {
		t.Fatalf("stats = %v", stats)
	}
}
