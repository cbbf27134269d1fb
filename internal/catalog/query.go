package catalog

import (
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AllCategories is the filter sentinel that matches every product.
const AllCategories = "all"

type SortKey string

const (
	SortPriceLow  SortKey = "priceLow"
	SortPriceHigh SortKey = "priceHigh"
	SortName      SortKey = "name"
	SortLatest    SortKey = "latest"
)

// Match returns the products whose name, brand or category contains query,
// case-insensitively. A blank query matches everything.
func Match(products []Product, query string) []Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(products)
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if containsFold(p.Name, q) || containsFold(p.BrandName, q) || containsFold(p.Category, q) {
			out = append(out, p)
		}
	}
	return out
}

func containsFold(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}

// InCategory keeps products whose category equals category exactly.
// "" and "all" keep everything.
func InCategory(products []Product, category string) []Product {
	if category == "" || category == AllCategories {
		return slices.Clone(products)
	}
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a sorted copy; the input is never reordered. Ties keep their
// original relative order. Unknown keys return an unsorted copy.
func Sort(products []Product, key SortKey) []Product {
	out := slices.Clone(products)
	if out == nil {
		out = []Product{}
	}

	switch key {
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	case SortName:
		// Collator keeps scratch buffers; one per call.
		col := collate.New(language.English)
		sort.SliceStable(out, func(i, j int) bool { return col.CompareString(out[i].Name, out[j].Name) < 0 })
	case SortLatest:
		slices.Reverse(out)
	}
	return out
}
