package models

import (
	"testing"
)

func TestQueryParamsKeyDeterministic(t *testing.T) {
	a := QueryParams{
		Page: 2, Limit: 12, Sort: SortPriceAsc,
		Filters: FilterSelection{
			"brand": {Options: []string{"Asus", "Apple"}},
			"price": {Range: &Range{Min: 100, Max: 900}},
			"tags":  {Options: []string{"gaming"}},
		},
	}
	b := QueryParams{
		Page: 2, Limit: 12, Sort: SortPriceAsc,
		Filters: FilterSelection{
			"tags":  {Options: []string{"gaming"}},
			"price": {Range: &Range{Min: 100, Max: 900}},
			"brand": {Options: []string{"Asus", "Apple"}},
		},
	}
	if a.Key() != b.Key() {
		t.Fatalf("same params produced different keys:\n%s\n%s", a.Key(), b.Key())
	}

	c := a
	c.Page = 3
	if a.Key() == c.Key() {
		t.Fatal("different pages produced the same key")
	}
}

func TestQueryParamsEncode(t *testing.T) {
	q := QueryParams{
		Page: 1, Limit: 24, Sort: SortDateDesc, Search: "laptop",
		Filters: FilterSelection{
			"brand": {Options: []string{"Asus", "Apple"}},
			"price": {Range: &Range{Min: 99.5, Max: 1500}},
		},
	}
	v := q.Encode()
	if got := v.Get("brand"); got != "Asus,Apple" {
		t.Fatalf("brand = %q", got)
	}
	if got := v.Get("minPrice"); got != "99.5" {
		t.Fatalf("minPrice = %q", got)
	}
	if got := v.Get("maxPrice"); got != "1500" {
		t.Fatalf("maxPrice = %q", got)
	}
	if got := v.Get("search"); got != "laptop" {
		t.Fatalf("search = %q", got)
	}
	if got := v.Get("sort"); got != "date-desc" {
		t.Fatalf("sort = %q", got)
	}
	if got := v.Get("page"); got != "1" {
		t.Fatalf("page = %q", got)
	}

	empty := QueryParams{Page: 1, Limit: 12}
	if empty.Encode().Has("search") {
		t.Fatal("empty search term must be omitted")
	}
}

func TestValidSort(t *testing.T) {
	for _, s := range []string{
		SortAlphaAsc, SortAlphaDesc, SortPriceAsc, SortPriceDesc,
		SortDateAsc, SortDateDesc, SortOffers, SortDefault,
	} {
		if !ValidSort(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "cheapest", "price", "DATE-ASC"} {
		if ValidSort(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestFilterSelectionCloneIsDeep(t *testing.T) {
	orig := FilterSelection{
		"brand": {Options: []string{"Asus"}},
		"price": {Range: &Range{Min: 1, Max: 2}},
	}
	cl := orig.Clone()
	cl["brand"].Options[0] = "Apple"
	cl["price"].Range.Max = 99

	if orig["brand"].Options[0] != "Asus" {
		t.Fatal("clone shares option slice with original")
	}
	if orig["price"].Range.Max != 2 {
		t.Fatal("clone shares range pointer with original")
	}

	var nilSel FilterSelection
	if got := nilSel.Clone(); got == nil || len(got) != 0 {
		t.Fatalf("nil selection should clone to empty, got %v", got)
	}
}

func TestFilterSelectionIsEmpty(t *testing.T) {
	if !(FilterSelection{}).IsEmpty() {
		t.Fatal("empty map should be empty")
	}
	if !(FilterSelection{"brand": {}}).IsEmpty() {
		t.Fatal("valueless entry should still count as empty")
	}
	if (FilterSelection{"brand": {Options: []string{"Asus"}}}).IsEmpty() {
		t.Fatal("selection with options is not empty")
	}
	if (FilterSelection{"price": {Range: &Range{Min: 0, Max: 10}}}).IsEmpty() {
		t.Fatal("selection with range is not empty")
	}
}
