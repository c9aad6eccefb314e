package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/Sanandrew123/AICommerce/internal/domain"
	"github.com/Sanandrew123/AICommerce/internal/repository"
	"github.com/Sanandrew123/AICommerce/internal/service"
	"github.com/Sanandrew123/AICommerce/pkg/kafka"
	outboxrepo "github.com/Sanandrew123/AICommerce/pkg/outbox/repository"
	"github.com/Sanandrew123/AICommerce/pkg/outbox/worker"
	"github.com/Sanandrew123/AICommerce/pkg/testsuite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const testOrderTopic = "order_events"

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	CartService  *service.CartService
	OrderService *service.OrderService
	ProductRepo  repository.ProductRepository
	OrderRepo    repository.OrderRepository

	TestProducer    kafka.Producer
	OutboxProcessor *worker.OutboxProcessor
	workerCancel    context.CancelFunc
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure("../../migrations", true)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.BaseSuite.TruncateTable("outbox")
	s.BaseSuite.TruncateTable("order_items")
	s.BaseSuite.TruncateTable("orders")
	s.BaseSuite.TruncateTable("cart_items")
	s.BaseSuite.TruncateTable("products")
	s.BaseSuite.TruncateTable("users")

	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(s.DbPool, logger)
	s.ProductRepo = repository.NewProductRepository(s.DbPool, logger)
	cartRepo := repository.NewCartRepository(s.DbPool, logger)
	s.OrderRepo = repository.NewOrderRepository(s.DbPool, logger)
	outboxRepo := outboxrepo.NewOutboxRepository(s.DbPool, logger)

	s.CartService = service.NewCartService(s.DbPool, cartRepo, s.ProductRepo, logger)
	numbers := service.NewOrderNumberGenerator(s.OrderRepo)
	s.OrderService = service.NewOrderService(
		s.DbPool,
		s.OrderRepo,
		s.ProductRepo,
		cartRepo,
		userRepo,
		s.CartService,
		outboxRepo,
		numbers,
		testOrderTopic,
		logger,
	)

	var err error
	s.TestProducer, err = kafka.NewProducer(s.KafkaBrokers)
	s.Require().NoError(err, "failed to create kafka producer")

	s.OutboxProcessor = worker.NewOutboxProcessor(s.DbPool, outboxRepo, s.TestProducer, logger, 50, 100*time.Millisecond)

	workerCtx, cancel := context.WithCancel(s.Ctx)
	s.workerCancel = cancel

	go s.OutboxProcessor.Start(workerCtx)
}

func (s *IntegrationTestSuite) TearDownTest() {
	if s.workerCancel != nil {
		s.workerCancel()
	}
	if s.TestProducer != nil {
		_ = s.TestProducer.Close()
	}
}

func (s *IntegrationTestSuite) seedUser(id int64, email string) {
	_, err := s.DbPool.Exec(
		s.Ctx,
		`INSERT INTO users (id, email) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		id,
		email,
	)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) seedProduct(name, price, discount string, stock int64, active bool) int64 {
	var discountVal *string
	if discount != "" {
		discountVal = &discount
	}

	var id int64
	err := s.DbPool.QueryRow(
		s.Ctx,
		`INSERT INTO products (name, price, discount_price, stock_quantity, is_active)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		name,
		price,
		discountVal,
		stock,
		active,
	).Scan(&id)
	s.Require().NoError(err)

	return id
}

func (s *IntegrationTestSuite) stockOf(productID int64) int64 {
	var stock int64
	err := s.DbPool.QueryRow(s.Ctx, `SELECT stock_quantity FROM products WHERE id = $1`, productID).
		Scan(&stock)
	s.Require().NoError(err)
	return stock
}

func (s *IntegrationTestSuite) cartSize(userID int64) int {
	var count int
	err := s.DbPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID).
		Scan(&count)
	s.Require().NoError(err)
	return count
}

func (s *IntegrationTestSuite) addToCart(userID, productID int64, qty int32) {
	_, err := s.CartService.AddToCart(s.Ctx, userID, productID, qty, "")
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) checkoutInput() service.CreateOrderInput {
	return service.CreateOrderInput{
		ShippingAddress: json.RawMessage(`{"city":"Berlin","street":"Unter den Linden 1"}`),
		PaymentMethod:   "CARD",
	}
}

func (s *IntegrationTestSuite) createOrder(userID int64) *domain.Order {
	order, err := s.OrderService.CreateOrderFromCart(s.Ctx, userID, s.checkoutInput())
	s.Require().NoError(err)
	s.Require().NotNil(order)
	return order
}

func mustDecimal(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
