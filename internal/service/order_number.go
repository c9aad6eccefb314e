package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

type orderNumberStore interface {
	NumberExists(ctx context.Context, orderNumber string) (bool, error)
}

const defaultNumberAttempts = 25

// OrderNumberGenerator produces human-readable order numbers of the
// form ORD<yyyyMMddHHmmss><3 random digits>. Candidates are checked
// against existing orders; the unique index on orders.order_number is
// the real guarantee, this pre-check just keeps collisions rare.
type OrderNumberGenerator struct {
	store       orderNumberStore
	maxAttempts int
	now         func() time.Time
	randDigits  func() int
}

func NewOrderNumberGenerator(store orderNumberStore) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		store:       store,
		maxAttempts: defaultNumberAttempts,
		now:         time.Now,
		randDigits:  func() int { return rand.IntN(1000) },
	}
}

func (g *OrderNumberGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		candidate := fmt.Sprintf("ORD%s%03d", g.now().Format("20060102150405"), g.randDigits())

		exists, err := g.store.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("error checking order number candidate: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}

	return "", ErrOrderNumbersExhausted
}
