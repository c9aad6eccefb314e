package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64               `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	DiscountPrice decimal.NullDecimal `db:"discount_price" json:"discount_price"`
	StockQuantity int64               `db:"stock_quantity" json:"stock_quantity"`
	IsActive      bool                `db:"is_active" json:"is_active"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

func (p *Product) OnSale() bool {
	return p.DiscountPrice.Valid && p.DiscountPrice.Decimal.LessThan(p.Price)
}

// EffectivePrice is the lower of the list price and an active discount.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}

func (p *Product) InStock() bool {
	return p.StockQuantity > 0
}
