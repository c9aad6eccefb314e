package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNumberStore struct {
	taken  map[string]bool
	checks int
}

func (f *fakeNumberStore) NumberExists(_ context.Context, orderNumber string) (bool, error) {
	f.checks++
	return f.taken[orderNumber], nil
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	gen := NewOrderNumberGenerator(&fakeNumberStore{})
	gen.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC)
	}
	gen.randDigits = func() int { return 7 }

	number, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD20260830123456007", number)
	assert.Regexp(t, regexp.MustCompile(`^ORD\d{17}$`), number)
}

func TestGenerateRetriesOnCollision(t *testing.T) {
	store := &fakeNumberStore{taken: map[string]bool{
		"ORD20260830123456000": true,
		"ORD20260830123456001": true,
	}}

	gen := NewOrderNumberGenerator(store)
	gen.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC)
	}

	next := 0
	gen.randDigits = func() int {
		n := next
		next++
		return n
	}

	number, err := gen.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ORD20260830123456002", number)
	assert.Equal(t, 3, store.checks)
}

func TestGenerateGivesUpAfterMaxAttempts(t *testing.T) {
	gen := NewOrderNumberGenerator(&fakeNumberStore{taken: map[string]bool{
		"ORD20260830123456042": true,
	}})
	gen.now = func() time.Time {
		return time.Date(2026, 8, 30, 12, 34, 56, 0, time.UTC)
	}
	gen.randDigits = func() int { return 42 }

	_, err := gen.Generate(context.Background())
	require.ErrorIs(t, err, ErrOrderNumbersExhausted)
}
