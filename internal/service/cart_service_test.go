package service_test

import (
	"github.com/Sanandrew123/AICommerce/internal/repository"
)

func (s *IntegrationTestSuite) TestAddToCart_MergesSameVariant() {
	s.seedUser(100, "merge@example.com")
	p := s.seedProduct("Shirt", "25.00", "", 50, true)

	first, err := s.CartService.AddToCart(s.Ctx, 100, p, 2, `{"size":"M"}`)
	s.Require().NoError(err)

	second, err := s.CartService.AddToCart(s.Ctx, 100, p, 3, `{"size":"M"}`)
	s.Require().NoError(err)

	s.Equal(first.ID, second.ID, "same variant must merge into one line")
	s.EqualValues(5, second.Quantity)
	s.Equal(1, s.cartSize(100))
}

func (s *IntegrationTestSuite) TestAddToCart_DifferentVariantsStaySeparate() {
	s.seedUser(101, "variants@example.com")
	p := s.seedProduct("Shirt", "25.00", "", 50, true)

	_, err := s.CartService.AddToCart(s.Ctx, 101, p, 1, `{"size":"M"}`)
	s.Require().NoError(err)
	_, err = s.CartService.AddToCart(s.Ctx, 101, p, 1, `{"size":"L"}`)
	s.Require().NoError(err)

	s.Equal(2, s.cartSize(101))
}

func (s *IntegrationTestSuite) TestAddToCart_InactiveProduct() {
	s.seedUser(102, "inactive@example.com")
	p := s.seedProduct("Retired", "10.00", "", 50, false)

	_, err := s.CartService.AddToCart(s.Ctx, 102, p, 1, "")
	s.Require().ErrorIs(err, repository.ErrProductNotFound)
}

func (s *IntegrationTestSuite) TestUpdateItemQuantity_ZeroRemovesLine() {
	s.seedUser(103, "zero@example.com")
	p := s.seedProduct("Disposable", "5.00", "", 10, true)

	item, err := s.CartService.AddToCart(s.Ctx, 103, p, 2, "")
	s.Require().NoError(err)

	s.Require().NoError(s.CartService.UpdateItemQuantity(s.Ctx, 103, item.ID, 0))
	s.Zero(s.cartSize(103))
}

func (s *IntegrationTestSuite) TestUpdateItemQuantity_OtherUsersLine() {
	s.seedUser(104, "owner@example.com")
	s.seedUser(105, "other@example.com")
	p := s.seedProduct("Guarded", "5.00", "", 10, true)

	item, err := s.CartService.AddToCart(s.Ctx, 104, p, 2, "")
	s.Require().NoError(err)

	err = s.CartService.UpdateItemQuantity(s.Ctx, 105, item.ID, 7)
	s.Require().ErrorIs(err, repository.ErrCartItemNotFound)

	err = s.CartService.RemoveFromCart(s.Ctx, 105, item.ID)
	s.Require().ErrorIs(err, repository.ErrCartItemNotFound)

	s.Equal(1, s.cartSize(104))
}

func (s *IntegrationTestSuite) TestSummary_PricesAndAvailability() {
	s.seedUser(106, "summary@example.com")
	cheap := s.seedProduct("Cheap", "10.00", "7.50", 100, true)
	scarce := s.seedProduct("Scarce", "50.00", "", 1, true)

	s.addToCart(106, cheap, 2)
	s.addToCart(106, scarce, 3)

	summary, err := s.CartService.Summary(s.Ctx, 106)
	s.Require().NoError(err)
	s.Len(summary.Lines, 2)
	s.Equal(2, summary.ItemCount)
	s.EqualValues(5, summary.TotalQuantity)

	// Only the available line counts: 2 * 7.50.
	s.True(summary.TotalAmount.Equal(mustDecimal("15.00")), "got total %s", summary.TotalAmount)

	for _, line := range summary.Lines {
		switch line.Item.ProductID {
		case cheap:
			s.True(line.Available)
			s.True(line.UnitPrice.Equal(mustDecimal("7.50")))
		case scarce:
			s.False(line.Available, "quantity above stock must flag the line")
		}
	}
}

func (s *IntegrationTestSuite) TestValidate() {
	s.seedUser(108, "validate@example.com")
	ok := s.seedProduct("Plenty", "5.00", "", 100, true)
	gone := s.seedProduct("Sold Out", "5.00", "", 0, true)

	s.addToCart(108, ok, 2)

	valid, unavailable, err := s.CartService.Validate(s.Ctx, 108)
	s.Require().NoError(err)
	s.True(valid)
	s.Empty(unavailable)

	s.addToCart(108, gone, 1)

	valid, unavailable, err = s.CartService.Validate(s.Ctx, 108)
	s.Require().NoError(err)
	s.False(valid)
	s.Equal([]int64{gone}, unavailable)
}

func (s *IntegrationTestSuite) TestClearCart() {
	s.seedUser(107, "clear@example.com")
	p := s.seedProduct("Stuff", "5.00", "", 10, true)

	s.addToCart(107, p, 1)
	s.Require().NoError(s.CartService.ClearCart(s.Ctx, 107))
	s.Zero(s.cartSize(107))
}
