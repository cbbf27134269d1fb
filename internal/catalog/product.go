package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrNameRequired = errors.New("product name is required")

type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BrandName string  `json:"brandName,omitempty"`
	Category  string  `json:"category,omitempty"`
	Price     float64 `json:"price"`
	OldPrice  float64 `json:"oldPrice,omitempty"`
	Image     string  `json:"image,omitempty"`
	HasImage  bool    `json:"hasImage,omitempty"`
}

// DefaultProducts seeds an empty catalog on first run.
var DefaultProducts = []Product{
	{BrandName: "Nike", Name: "Nike Air Sneakers", Category: "men", Price: 120, Image: "nike1.jpeg"},
	{BrandName: "Adidas", Name: "Adidas Ultraboost", Category: "men", Price: 140, Image: "adidas.jpeg"},
	{BrandName: "Puma", Name: "Puma Classic", Category: "women", Price: 100, Image: "puma1.jpg"},
	{BrandName: "New Balance", Name: "New Balance 550", Category: "men", Price: 110, Image: "newBalance.jpeg"},
	{BrandName: "Converse", Name: "Converse All Star", Category: "unisex", Price: 100, Image: "ConverseAllStar.jpeg"},
	{BrandName: "Nike", Name: "Nike Stack", Category: "men", Price: 130, Image: "nikestack.jpeg"},
}

// Ingest turns a loosely shaped product document (seller form, legacy store
// entry, backend API payload) into the canonical Product.
func Ingest(raw map[string]any) (Product, error) {
	p := Product{
		ID:        firstString(raw, "id", "_id"),
		Name:      strings.TrimSpace(firstString(raw, "name")),
		BrandName: firstString(raw, "brandName", "brand"),
		Category:  category(raw["category"]),
		Price:     NormalizePrice(raw["price"]),
		OldPrice:  NormalizePrice(raw["oldPrice"]),
		Image:     image(raw),
	}
	if b, ok := raw["hasImage"].(bool); ok {
		p.HasImage = b
	}
	if p.Name == "" {
		return Product{}, ErrNameRequired
	}
	return Normalize(p), nil
}

// Normalize derives a missing id from the name and clamps prices at zero.
func Normalize(p Product) Product {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = Slugify(p.Name)
	}
	p.Price = nonNegative(p.Price)
	p.OldPrice = nonNegative(p.OldPrice)
	return p
}

func firstString(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// category accepts either a plain name or a populated category reference.
func category(v any) string {
	switch c := v.(type) {
	case string:
		return c
	case map[string]any:
		return firstString(c, "slug", "name")
	}
	return ""
}

func image(raw map[string]any) string {
	if s := firstString(raw, "image"); s != "" {
		return s
	}
	if imgs, ok := raw["images"].([]any); ok {
		for _, img := range imgs {
			switch v := img.(type) {
			case string:
				return v
			case map[string]any:
				if s := firstString(v, "url"); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}

// NormalizePrice coerces a price given as a number or as display text
// ("₦1,200.50", "1200.50abc") to a float. Everything that does not parse is 0.
func NormalizePrice(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		f = parsePriceText(x.String())
	case string:
		f = parsePriceText(x)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parsePriceText keeps digits, dots and minus signs, then reads the longest
// leading decimal literal, so "1.2.3" is 1.2 and "5-3" is 5.
func parsePriceText(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	lit := leadingDecimal(b.String())
	if lit == "" {
		return 0
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0
	}
	return f
}

func leadingDecimal(s string) string {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			frac++
		}
		if frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	return s[:i]
}

var (
	spaceRun = regexp.MustCompile(`\s+`)
	nonWord  = regexp.MustCompile(`[^\w-]`)
)

// Slugify builds the stable id used for products saved without one.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = spaceRun.ReplaceAllString(s, "-")
	return nonWord.ReplaceAllString(s, "")
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders two decimals with thousands separators: 1,200.50.
func FormatPrice(v float64) string {
	return pricePrinter.Sprintf("%.2f", v)
}
