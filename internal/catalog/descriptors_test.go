package catalog

import (
	"encoding/json"
	"testing"

	"storefront-gateway/internal/models"
)

func TestDeriveFilterDescriptorsOrder(t *testing.T) {
	agg := &models.FilterAggregate{
		Categories: []string{"Laptops", "Phones"},
		Brands:     []string{"Asus", "Apple"},
		Tags:       []string{"gaming"},
		Specs:      json.RawMessage(`{"RAM":["8GB","16GB"],"Storage":["256GB"],"CPU":["i5","i7"]}`),
		PriceRange: &models.Range{Min: 100, Max: 5000},
	}
	got := DeriveFilterDescriptors(agg)

	wantIDs := []string{"category", "brand", "tags", "RAM", "Storage", "CPU", "price"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d descriptors, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("descriptor %d = %q, want %q (order must be fixed)", i, got[i].ID, id)
		}
	}
	last := got[len(got)-1]
	if last.Type != models.FilterRange || last.Min != 100 || last.Max != 5000 || last.Step != 1 {
		t.Fatalf("price descriptor = %+v", last)
	}
}

func TestDeriveFilterDescriptorsPreservesSpecKeyOrder(t *testing.T) {
	// Key order deliberately non-alphabetical; a map decode would lose it.
	agg := &models.FilterAggregate{
		Specs: json.RawMessage(`{"Zeta":["a"],"Alpha":["b"],"Mid":["c"]}`),
	}
	got := DeriveFilterDescriptors(agg)
	want := []string{"Zeta", "Alpha", "Mid"}
	if len(got) != 3 {
		t.Fatalf("got %d descriptors", len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("descriptor %d = %q, want %q", i, got[i].ID, id)
		}
	}
}

func TestDeriveFilterDescriptorsOmitsEmptySections(t *testing.T) {
	agg := &models.FilterAggregate{
		Brands: []string{"Asus"},
		Specs:  json.RawMessage(`{"RAM":[],"Empty":{"Group":[]}}`),
	}
	got := DeriveFilterDescriptors(agg)
	if len(got) != 1 || got[0].ID != "brand" {
		t.Fatalf("descriptors = %+v, empty sections must be omitted", got)
	}

	if d := DeriveFilterDescriptors(nil); d != nil {
		t.Fatalf("nil aggregate should yield nil, got %+v", d)
	}
}

func TestDeriveFilterDescriptorsNestedGroups(t *testing.T) {
	agg := &models.FilterAggregate{
		Specs: json.RawMessage(`{"Connectivity":{"Wireless":["WiFi 6","Bluetooth"],"Wired":{"USB":["USB-C"]}}}`),
	}
	got := DeriveFilterDescriptors(agg)
	if len(got) != 1 {
		t.Fatalf("got %d descriptors", len(got))
	}
	nodes := got[0].Options
	if len(nodes) != 2 || nodes[0].Label != "Wireless" || nodes[1].Label != "Wired" {
		t.Fatalf("nodes = %+v", nodes)
	}
	if !nodes[0].IsGroup() || len(nodes[0].Children) != 1 || len(nodes[0].Children[0].Options) != 2 {
		t.Fatalf("Wireless group = %+v", nodes[0])
	}
	usb := nodes[1].Children[0]
	if usb.Label != "USB" || usb.Children[0].Options[0] != "USB-C" {
		t.Fatalf("Wired group = %+v", nodes[1])
	}
	if got[0].Options[0].OptionCount() != 2 {
		t.Fatalf("OptionCount = %d", got[0].Options[0].OptionCount())
	}
}

func TestDeriveFilterDescriptorsMalformedSpecs(t *testing.T) {
	agg := &models.FilterAggregate{
		Brands: []string{"Asus"},
		Specs:  json.RawMessage(`["not","an","object"]`),
	}
	got := DeriveFilterDescriptors(agg)
	if len(got) != 1 || got[0].ID != "brand" {
		t.Fatalf("malformed specs must be skipped, got %+v", got)
	}
}

func TestDeriveFilterDescriptorsZeroWidthPriceRange(t *testing.T) {
	agg := &models.FilterAggregate{
		PriceRange: &models.Range{Min: 50, Max: 50},
	}
	if got := DeriveFilterDescriptors(agg); len(got) != 0 {
		t.Fatalf("degenerate price range must be omitted, got %+v", got)
	}
}
