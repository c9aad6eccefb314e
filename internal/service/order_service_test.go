package service_test

import (
	"sync"
	"time"

	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/service"
)

func (s *IntegrationTestSuite) TestCreateOrderFromCart_Success() {
	s.seedUser(1, "buyer@example.com")
	book := s.seedProduct("Kuronami No Yaiba", "53.50", "", 10, true)
	pen := s.seedProduct("Fountain Pen", "12.00", "9.50", 5, true)

	s.addToCart(1, book, 2)
	s.addToCart(1, pen, 1)

	order := s.createOrder(1)

	s.Equal(domain.OrderStatusPending, order.Status)
	s.Equal(domain.PaymentStatusPending, order.PaymentStatus)
	s.Regexp(`^ORD\d{17}$`, order.OrderNumber)
	s.Len(order.Items, 2)

	// 2 * 53.50 + discounted 9.50
	s.True(order.TotalAmount.Equal(mustDecimal("116.50")), "got total %s", order.TotalAmount)

	s.EqualValues(8, s.stockOf(book))
	s.EqualValues(4, s.stockOf(pen))
	s.Zero(s.cartSize(1), "checkout must clear the cart")
}

func (s *IntegrationTestSuite) TestCreateOrderFromCart_PublishesOutboxEvent() {
	s.seedUser(2, "events@example.com")
	p := s.seedProduct("Widget", "5.00", "", 3, true)
	s.addToCart(2, p, 1)

	order := s.createOrder(2)

	var eventType string
	err := s.DbPool.QueryRow(
		s.Ctx,
		`SELECT event_type FROM outbox WHERE aggregate_id = $1::text`,
		order.ID,
	).Scan(&eventType)
	s.Require().NoError(err)
	s.Equal(service.EventOrderCreated, eventType)

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time
		if err := s.DbPool.QueryRow(
			s.Ctx,
			`SELECT published_at FROM outbox WHERE aggregate_id = $1::text`,
			order.ID,
		).Scan(&publishedAt); err != nil {
			return false
		}
		return publishedAt != nil
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestCreateOrderFromCart_EmptyCart() {
	s.seedUser(3, "empty@example.com")

	_, err := s.OrderService.CreateOrderFromCart(s.Ctx, 3, s.checkoutInput())
	s.Require().ErrorIs(err, service.ErrEmptyCart)
}

func (s *IntegrationTestSuite) TestCreateOrderFromCart_UnavailableLine() {
	s.seedUser(4, "greedy@example.com")
	p := s.seedProduct("Rare Item", "99.99", "", 2, true)
	s.addToCart(4, p, 5)

	_, err := s.OrderService.CreateOrderFromCart(s.Ctx, 4, s.checkoutInput())
	s.Require().ErrorIs(err, service.ErrCartUnavailable)

	s.EqualValues(2, s.stockOf(p))
	s.Equal(1, s.cartSize(4), "failed checkout must keep the cart")
}

func (s *IntegrationTestSuite) TestCreateOrderFromCart_ConcurrentCheckoutsCannotOversell() {
	s.seedUser(10, "alice@example.com")
	s.seedUser(11, "bob@example.com")

	contested := s.seedProduct("Last Units", "20.00", "", 3, true)
	fillerA := s.seedProduct("Filler A", "1.00", "", 100, true)
	fillerB := s.seedProduct("Filler B", "1.00", "", 100, true)

	s.addToCart(10, fillerA, 1)
	s.addToCart(10, contested, 2)
	s.addToCart(11, fillerB, 1)
	s.addToCart(11, contested, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	users := []int64{10, 11}

	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid int64) {
			defer wg.Done()
			_, errs[i] = s.OrderService.CreateOrderFromCart(s.Ctx, uid, s.checkoutInput())
		}(i, uid)
	}
	wg.Wait()

	var failures int
	for i := range errs {
		if errs[i] != nil {
			failures++

			var stockErr *domain.InsufficientStockError
			s.Require().ErrorAs(errs[i], &stockErr)

			// The loser's whole transaction rolled back: filler stock
			// untouched, cart intact.
			loser := users[i]
			s.Equal(2, s.cartSize(loser))
		}
	}

	s.Equal(1, failures, "exactly one checkout must lose the race")
	s.EqualValues(1, s.stockOf(contested))
	s.EqualValues(199, s.stockOf(fillerA)+s.stockOf(fillerB))
}

func (s *IntegrationTestSuite) TestCancelOrder_RestoresStock() {
	s.seedUser(20, "cancel@example.com")
	p := s.seedProduct("Returnable", "15.00", "", 6, true)
	s.addToCart(20, p, 4)

	order := s.createOrder(20)
	s.EqualValues(2, s.stockOf(p))

	cancelled, err := s.OrderService.CancelOrder(s.Ctx, order.ID, 20)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusCancelled, cancelled.Status)
	s.EqualValues(6, s.stockOf(p))

	var count int
	err = s.DbPool.QueryRow(
		s.Ctx,
		`SELECT COUNT(*) FROM outbox WHERE aggregate_id = $1::text AND event_type = $2`,
		order.ID,
		service.EventOrderCancelled,
	).Scan(&count)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *IntegrationTestSuite) TestCancelOrder_WrongUser() {
	s.seedUser(21, "owner@example.com")
	s.seedUser(22, "intruder@example.com")
	p := s.seedProduct("Private", "10.00", "", 5, true)
	s.addToCart(21, p, 1)

	order := s.createOrder(21)

	_, err := s.OrderService.CancelOrder(s.Ctx, order.ID, 22)
	s.Require().Error(err)

	current, err := s.OrderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, current.Status)
}

func (s *IntegrationTestSuite) TestCancelOrder_ShippedOrderRejected() {
	s.seedUser(23, "late@example.com")
	p := s.seedProduct("Shipped Goods", "30.00", "", 5, true)
	s.addToCart(23, p, 1)

	order := s.createOrder(23)

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusPaid)
	s.Require().NoError(err)
	_, err = s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusShipped)
	s.Require().NoError(err)

	_, err = s.OrderService.CancelOrder(s.Ctx, order.ID, 23)

	var transitionErr *domain.IllegalTransitionError
	s.Require().ErrorAs(err, &transitionErr)
	s.Equal(domain.OrderStatusShipped, transitionErr.From)

	s.EqualValues(4, s.stockOf(p), "rejected cancellation must not release stock")
}

func (s *IntegrationTestSuite) TestUpdateStatus_IllegalTransition() {
	s.seedUser(24, "status@example.com")
	p := s.seedProduct("Gadget", "8.00", "", 5, true)
	s.addToCart(24, p, 1)

	order := s.createOrder(24)

	_, err := s.OrderService.UpdateStatus(s.Ctx, order.ID, domain.OrderStatusDelivered)

	var transitionErr *domain.IllegalTransitionError
	s.Require().ErrorAs(err, &transitionErr)

	current, err := s.OrderRepo.GetByID(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusPending, current.Status)
}

func (s *IntegrationTestSuite) TestUpdatePaymentStatus_PaidCascades() {
	s.seedUser(25, "payer@example.com")
	p := s.seedProduct("Paid Item", "42.00", "", 5, true)
	s.addToCart(25, p, 1)

	order := s.createOrder(25)

	updated, err := s.OrderService.UpdatePaymentStatus(s.Ctx, order.ID, domain.PaymentStatusPaid)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusPaid, updated.PaymentStatus)
	s.Equal(domain.OrderStatusPaid, updated.Status)
}

func (s *IntegrationTestSuite) TestUpdatePaymentStatus_FailedDoesNotCascade() {
	s.seedUser(26, "declined@example.com")
	p := s.seedProduct("Declined Item", "42.00", "", 5, true)
	s.addToCart(26, p, 1)

	order := s.createOrder(26)

	updated, err := s.OrderService.UpdatePaymentStatus(s.Ctx, order.ID, domain.PaymentStatusFailed)
	s.Require().NoError(err)
	s.Equal(domain.PaymentStatusFailed, updated.PaymentStatus)
	s.Equal(domain.OrderStatusPending, updated.Status)
}

func (s *IntegrationTestSuite) TestOrderPricesFrozenAfterCheckout() {
	s.seedUser(27, "frozen@example.com")
	p := s.seedProduct("Volatile", "100.00", "", 5, true)
	s.addToCart(27, p, 1)

	order := s.createOrder(27)

	_, err := s.DbPool.Exec(s.Ctx, `UPDATE products SET price = 999.99 WHERE id = $1`, p)
	s.Require().NoError(err)

	reloaded, err := s.OrderService.GetOrder(s.Ctx, order.ID, 27)
	s.Require().NoError(err)
	s.True(reloaded.TotalAmount.Equal(mustDecimal("100.00")))
	s.Require().Len(reloaded.Items, 1)
	s.True(reloaded.Items[0].UnitPrice.Equal(mustDecimal("100.00")))
}

func (s *IntegrationTestSuite) TestOrderNumbersAreDistinct() {
	p := s.seedProduct("Bulk", "2.00", "", 100, true)

	seen := map[string]bool{}
	for i := int64(30); i < 35; i++ {
		s.seedUser(i, "bulk@example.com")
		s.addToCart(i, p, 1)

		order := s.createOrder(i)
		s.False(seen[order.OrderNumber], "duplicate order number %s", order.OrderNumber)
		seen[order.OrderNumber] = true
	}
}

func (s *IntegrationTestSuite) TestListOrders_Pagination() {
	s.seedUser(40, "pager@example.com")
	p := s.seedProduct("Paged", "3.00", "", 100, true)

	for i := 0; i < 5; i++ {
		s.addToCart(40, p, 1)
		s.createOrder(40)
	}

	page, err := s.OrderService.ListOrders(s.Ctx, 40, 1, 2)
	s.Require().NoError(err)
	s.Len(page.Orders, 2)
	s.EqualValues(5, page.Total)

	last, err := s.OrderService.ListOrders(s.Ctx, 40, 3, 2)
	s.Require().NoError(err)
	s.Len(last.Orders, 1)
}
