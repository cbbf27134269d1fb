package order

import (
	"github.com/shopspring/decimal"

	"NetShop/internal/catalog"
)

type ReceiptLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Amount   string `json:"amount"`
}

// Receipt is an order with its money fields rendered for display.
type Receipt struct {
	Order       Order         `json:"order"`
	Lines       []ReceiptLine `json:"lines"`
	Subtotal    string        `json:"subtotal"`
	DeliveryFee string        `json:"deliveryFee"`
	Total       string        `json:"total"`
}

// ReceiptOf formats o. Orders saved without a total get one recomputed from
// the items, with the default delivery fee when none was recorded.
func ReceiptOf(o Order) Receipt {
	lines := make([]ReceiptLine, 0, len(o.Items))
	sub := decimal.Zero
	for _, it := range o.Items {
		amount := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sub = sub.Add(amount)
		lines = append(lines, ReceiptLine{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    catalog.FormatPrice(it.Price),
			Amount:   catalog.FormatPrice(amount.InexactFloat64()),
		})
	}

	subtotal, fee, total := o.Subtotal, o.DeliveryFee, o.Total
	if total == 0 {
		if subtotal == 0 {
			subtotal = sub.InexactFloat64()
		}
		if fee == 0 {
			fee = DefaultDeliveryFee
		}
		total = decimal.NewFromFloat(subtotal).Add(decimal.NewFromFloat(fee)).InexactFloat64()
	}

	return Receipt{
		Order:       o,
		Lines:       lines,
		Subtotal:    catalog.FormatPrice(subtotal),
		DeliveryFee: catalog.FormatPrice(fee),
		Total:       catalog.FormatPrice(total),
	}
}
