package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is one (product, variant selection) entry in a user's cart.
// SelectedAttributes is an opaque fingerprint of the chosen variant;
// at most one item exists per (user, product, fingerprint).
type CartItem struct {
	ID                 int64     `db:"id" json:"id"`
	UserID             int64     `db:"user_id" json:"user_id"`
	ProductID          int64     `db:"product_id" json:"product_id"`
	Quantity           int32     `db:"quantity" json:"quantity"`
	SelectedAttributes string    `db:"selected_attributes" json:"selected_attributes"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// CartLine is a cart item with its product resolved and the current
// effective price applied.
type CartLine struct {
	Item      CartItem        `json:"item"`
	Product   Product         `json:"product"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Available bool            `json:"available"`
}

func NewCartLine(item CartItem, product Product) CartLine {
	price := product.EffectivePrice()
	return CartLine{
		Item:      item,
		Product:   product,
		UnitPrice: price,
		Subtotal:  price.Mul(decimal.NewFromInt32(item.Quantity)),
		Available: product.IsActive && product.InStock() && product.StockQuantity >= int64(item.Quantity),
	}
}

type CartSummary struct {
	Lines         []CartLine      `json:"lines"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ItemCount     int             `json:"item_count"`
	TotalQuantity int32           `json:"total_quantity"`
}
