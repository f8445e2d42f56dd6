package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pharmacart/internal/catalog"
	"pharmacart/internal/domain"
	"pharmacart/internal/dto"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/order/service"
	"pharmacart/internal/storage/memory"
)

// Mock implementations

type mockCatalogChecker struct {
	CheckOrderableFunc func(ctx context.Context, ids []int) error
}

func (m *mockCatalogChecker) CheckOrderable(ctx context.Context, ids []int) error {
	if m.CheckOrderableFunc == nil {
		return nil
	}
	return m.CheckOrderableFunc(ctx, ids)
}

type mockOrderFinder struct {
	FindByIdempotencyKeyFunc func(ctx context.Context, userID int, key string) (*domain.Order, error)
}

func (m *mockOrderFinder) FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error) {
	return m.FindByIdempotencyKeyFunc(ctx, userID, key)
}

type mockOrderPlacer struct {
	PlaceFunc func(ctx context.Context, order *domain.Order) error
}

func (m *mockOrderPlacer) Place(ctx context.Context, order *domain.Order) error {
	return m.PlaceFunc(ctx, order)
}

// Helpers

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createDeadlockError() error {
	return &gomysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
}

func notFound(ctx context.Context, userID int, key string) (*domain.Order, error) {
	return nil, apperrors.NewNotFoundError("order not found")
}

func validInput() dto.PlaceOrderInput {
	return dto.PlaceOrderInput{
		UserID:         7,
		IdempotencyKey: "checkout-1",
		Items: []dto.PlaceOrderItem{
			{MedicineID: 1, Quantity: 2, Price: dec("10.00")},
			{MedicineID: 2, Quantity: 1, Price: dec("5.00")},
		},
		Subtotal:      dec("25.00"),
		ServiceFee:    dec("5.00"),
		TotalAmount:   dec("30.00"),
		PaymentMethod: "wallet",
	}
}

func storedOrder(in dto.PlaceOrderInput, id uint) *domain.Order {
	order := buildOrder(in)
	order.ID = id
	order.Status = domain.OrderStatusPending
	return order
}

func newTestPlaceOrderUseCase(catalog CatalogChecker, orders OrderFinder, placer OrderPlacer, m *metrics.Metrics) *PlaceOrderUseCase {
	return NewPlaceOrderUseCase(catalog, orders, placer, m, zap.NewNop(), 3, 100)
}

// Validation

func TestPlaceOrder_EmptyCart(t *testing.T) {
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		t.Fatal("store must not be touched")
		return nil
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{}, placer, nil)

	in := validInput()
	in.Items = nil
	_, err := uc.PlaceOrder(context.Background(), in)

	_, ok := apperrors.IsEmptyCartError(err)
	assert.True(t, ok)
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(in *dto.PlaceOrderInput)
		field  string
	}{
		{"zero quantity", func(in *dto.PlaceOrderInput) { in.Items[0].Quantity = 0 }, "items[0].quantity"},
		{"quantity too large", func(in *dto.PlaceOrderInput) { in.Items[1].Quantity = 10001 }, "items[1].quantity"},
		{"negative price", func(in *dto.PlaceOrderInput) { in.Items[0].Price = dec("-1") }, "items[0].price"},
		{"sub cent price", func(in *dto.PlaceOrderInput) { in.Items[0].Price = dec("1.005") }, "items[0].price"},
		{"bad medicine id", func(in *dto.PlaceOrderInput) { in.Items[0].MedicineID = 0 }, "items[0].medicine_id"},
		{"duplicate medicine", func(in *dto.PlaceOrderInput) { in.Items[1].MedicineID = 1 }, "items[1].medicine_id"},
		{"negative fee", func(in *dto.PlaceOrderInput) {
			in.ServiceFee = dec("-5")
			in.TotalAmount = dec("20")
		}, "service_fee"},
		{"total mismatch", func(in *dto.PlaceOrderInput) { in.TotalAmount = dec("31.00") }, "total_amount"},
		{"price beyond column range", func(in *dto.PlaceOrderInput) { in.Items[0].Price = dec("10000000000.00") }, "items[0].price"},
		{"total beyond column range", func(in *dto.PlaceOrderInput) {
			in.PaymentMethod = "other"
			in.Subtotal = dec("99999999999995.00")
			in.TotalAmount = dec("100000000000000.00")
		}, "total_amount"},
		{"unknown payment method", func(in *dto.PlaceOrderInput) { in.PaymentMethod = "card" }, "payment_method"},
		{"zero wallet total", func(in *dto.PlaceOrderInput) {
			in.Subtotal = decimal.Zero
			in.ServiceFee = decimal.Zero
			in.TotalAmount = decimal.Zero
		}, "total_amount"},
		{"missing user", func(in *dto.PlaceOrderInput) { in.UserID = 0 }, "user_id"},
		{"long idempotency key", func(in *dto.PlaceOrderInput) {
			key := make([]byte, 129)
			for i := range key {
				key[i] = 'k'
			}
			in.IdempotencyKey = string(key)
		}, "idempotency_key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{}, &mockOrderPlacer{}, nil)
			in := validInput()
			tt.modify(&in)

			_, err := uc.PlaceOrder(context.Background(), in)

			ve, ok := apperrors.IsValidationError(err)
			require.True(t, ok, "expected validation error, got %v", err)
			fields := make([]string, len(ve.Details))
			for i, d := range ve.Details {
				fields[i] = d.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestPlaceOrder_TooManyItems(t *testing.T) {
	uc := NewPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{}, &mockOrderPlacer{}, nil, zap.NewNop(), 3, 1)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestPlaceOrder_OtherPaymentAllowsZeroTotal(t *testing.T) {
	var placed *domain.Order
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		order.ID = 1
		placed = order
		return nil
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, nil)

	in := validInput()
	in.PaymentMethod = "other"
	in.Items[0].Price = decimal.Zero
	in.Items[1].Price = decimal.Zero
	in.Subtotal, in.ServiceFee, in.TotalAmount = decimal.Zero, decimal.Zero, decimal.Zero

	_, err := uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodOther, placed.PaymentMethod)
}

// Catalog

func TestPlaceOrder_CatalogRejects(t *testing.T) {
	catalog := &mockCatalogChecker{CheckOrderableFunc: func(ctx context.Context, ids []int) error {
		assert.Equal(t, []int{1, 2}, ids)
		return apperrors.NewValidationError("cart references unavailable medicines")
	}}
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		t.Fatal("store must not be touched")
		return nil
	}}
	uc := newTestPlaceOrderUseCase(catalog, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, nil)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsValidationError(err)
	assert.True(t, ok)
}

func TestPlaceOrder_CatalogUnavailable(t *testing.T) {
	catalog := &mockCatalogChecker{CheckOrderableFunc: func(ctx context.Context, ids []int) error {
		return errors.New("connection refused")
	}}
	uc := newTestPlaceOrderUseCase(catalog, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, &mockOrderPlacer{}, nil)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsStoreUnavailableError(err)
	assert.True(t, ok)
}

// Idempotency

func TestPlaceOrder_GeneratesIdempotencyKey(t *testing.T) {
	var key string
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		key = order.IdempotencyKey
		order.ID = 1
		return nil
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, nil)

	in := validInput()
	in.IdempotencyKey = ""
	_, err := uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, key, 36)
}

func TestPlaceOrder_ReplaysSamePayload(t *testing.T) {
	in := validInput()
	existing := storedOrder(in, 42)
	// Reordered items are still the same cart.
	existing.Items[0], existing.Items[1] = existing.Items[1], existing.Items[0]

	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		assert.Equal(t, 7, userID)
		assert.Equal(t, "checkout-1", key)
		return existing, nil
	}}
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		t.Fatal("replay must not place a new order")
		return nil
	}}
	m := metrics.New(prometheus.NewRegistry())
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, placer, m)

	result, err := uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, uint(42), result.Order.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("wallet", metrics.ResultReplayed)))
}

func TestPlaceOrder_KeyReusedWithDifferentPayload(t *testing.T) {
	in := validInput()
	existing := storedOrder(in, 42)
	existing.Items[0].Quantity = 3

	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		return existing, nil
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, &mockOrderPlacer{}, nil)

	_, err := uc.PlaceOrder(context.Background(), in)

	_, ok := apperrors.IsConflictError(err)
	assert.True(t, ok)
}

func TestPlaceOrder_LookupFailure(t *testing.T) {
	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		return nil, errors.New("connection refused")
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, &mockOrderPlacer{}, nil)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsStoreUnavailableError(err)
	assert.True(t, ok)
}

func TestPlaceOrder_ConcurrentDuplicateReplays(t *testing.T) {
	in := validInput()
	calls := 0
	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		calls++
		if calls == 1 {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return storedOrder(in, 42), nil
	}}
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		return apperrors.NewConflictError("order with idempotency key already exists")
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, placer, nil)

	result, err := uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, result.Replayed)
	assert.Equal(t, uint(42), result.Order.ID)
}

// Retry and recovery

func TestPlaceOrder_RetriesDeadlock(t *testing.T) {
	attempts := 0
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		attempts++
		if attempts < 3 {
			return createDeadlockError()
		}
		order.ID = 9
		return nil
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, nil)

	result, err := uc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, uint(9), result.Order.ID)
	assert.False(t, result.Replayed)
}

func TestPlaceOrder_DeadlockRetriesExhausted(t *testing.T) {
	attempts := 0
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		attempts++
		return createDeadlockError()
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, nil)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsStoreUnavailableError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, attempts)
}

func TestPlaceOrder_BusinessErrorsAreNotRetried(t *testing.T) {
	attempts := 0
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		attempts++
		return apperrors.NewInsufficientFundsError(7, dec("10"), dec("30"))
	}}
	m := metrics.New(prometheus.NewRegistry())
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, m)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	_, ok := apperrors.IsInsufficientFundsError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("wallet", metrics.ResultRejected)))
}

func TestPlaceOrder_AmbiguousFailureCommitted(t *testing.T) {
	in := validInput()
	lookups := 0
	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return storedOrder(in, 11), nil
	}}
	attempts := 0
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		attempts++
		return errors.New("committing transaction: invalid connection")
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, placer, nil)

	result, err := uc.PlaceOrder(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, attempts)
	assert.Equal(t, uint(11), result.Order.ID)
	assert.False(t, result.Replayed)
}

func TestPlaceOrder_AmbiguousFailureNotCommitted(t *testing.T) {
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		return context.DeadlineExceeded
	}}
	m := metrics.New(prometheus.NewRegistry())
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, &mockOrderFinder{FindByIdempotencyKeyFunc: notFound}, placer, m)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	sue, ok := apperrors.IsStoreUnavailableError(err)
	require.True(t, ok)
	assert.ErrorIs(t, sue, context.DeadlineExceeded)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("wallet", metrics.ResultFailed)))
}

func TestPlaceOrder_AmbiguousFailureLookupFails(t *testing.T) {
	lookups := 0
	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, errors.New("connection refused")
	}}
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		return errors.New("invalid connection")
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, placer, nil)

	_, err := uc.PlaceOrder(context.Background(), validInput())

	sue, ok := apperrors.IsStoreUnavailableError(err)
	require.True(t, ok)
	assert.Contains(t, sue.Message, "outcome unknown")
}

func TestPlaceOrder_RequeryIgnoresCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := validInput()
	lookups := 0
	orders := &mockOrderFinder{FindByIdempotencyKeyFunc: func(ctx context.Context, userID int, key string) (*domain.Order, error) {
		lookups++
		if lookups == 1 {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		require.NoError(t, ctx.Err())
		return storedOrder(in, 5), nil
	}}
	placer := &mockOrderPlacer{PlaceFunc: func(ctx context.Context, order *domain.Order) error {
		cancel()
		return context.Canceled
	}}
	uc := newTestPlaceOrderUseCase(&mockCatalogChecker{}, orders, placer, nil)

	result, err := uc.PlaceOrder(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, uint(5), result.Order.ID)
}

// Scenarios against the in-memory store

type scenario struct {
	store      *memory.Store
	uc         *PlaceOrderUseCase
	medicineID int
}

func setupScenario(t *testing.T) scenario {
	t.Helper()

	store := memory.NewStore()
	placer := service.NewPlacementService(store, store.Ledger(), store.Orders(), nil, zap.NewNop(), time.Second)
	uc := NewPlaceOrderUseCase(
		catalog.NewService(store.Medicines()),
		store.Orders(),
		placer,
		nil,
		zap.NewNop(),
		3,
		100,
	)

	return scenario{
		store:      store,
		uc:         uc,
		medicineID: store.AddMedicine("Paracetamol 500mg", dec("30.00"), true),
	}
}

func (s scenario) input(userID int, total, key string) dto.PlaceOrderInput {
	return dto.PlaceOrderInput{
		UserID:         userID,
		IdempotencyKey: key,
		Items:          []dto.PlaceOrderItem{{MedicineID: s.medicineID, Quantity: 1, Price: dec(total)}},
		Subtotal:       dec(total),
		ServiceFee:     decimal.Zero,
		TotalAmount:    dec(total),
		PaymentMethod:  "wallet",
	}
}

func (s scenario) balance(t *testing.T, userID int) decimal.Decimal {
	t.Helper()

	balance, err := s.store.Ledger().GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func TestScenario_WalletCheckoutSucceeds(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("50.00"))

	result, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "30.00", "k1"))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, result.Order.Status)
	assert.True(t, dec("20.00").Equal(s.balance(t, userID)))
}

func TestScenario_InsufficientFundsLeavesNothing(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("10.00"))

	_, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "30.00", "k1"))

	_, ok := apperrors.IsInsufficientFundsError(err)
	require.True(t, ok)
	assert.True(t, dec("10.00").Equal(s.balance(t, userID)))

	orders, err := s.store.Orders().List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestScenario_RetrySameKeyChargesOnce(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("100.00"))

	first, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "30.00", "k1"))
	require.NoError(t, err)
	second, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "30.00", "k1"))
	require.NoError(t, err)

	assert.True(t, second.Replayed)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.True(t, dec("70.00").Equal(s.balance(t, userID)))
}

func TestScenario_ConcurrentCheckouts(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("100.00"))

	var succeeded, insufficient atomic.Int32
	var g errgroup.Group
	for _, key := range []string{"a", "b"} {
		g.Go(func() error {
			_, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "80.00", key))
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			if _, ok := apperrors.IsInsufficientFundsError(err); ok {
				insufficient.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), insufficient.Load())
	assert.True(t, dec("20.00").Equal(s.balance(t, userID)))
}

func TestScenario_ConcurrentSameKeyChargesOnce(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("100.00"))

	var replayed atomic.Int32
	var g errgroup.Group
	for range 5 {
		g.Go(func() error {
			result, err := s.uc.PlaceOrder(context.Background(), s.input(userID, "30.00", "same-key"))
			if err != nil {
				return err
			}
			if result.Replayed {
				replayed.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(4), replayed.Load())
	assert.True(t, dec("70.00").Equal(s.balance(t, userID)))
}

func TestScenario_InactiveMedicineRejected(t *testing.T) {
	s := setupScenario(t)
	userID := s.store.AddUser("Amina Yusuf", domain.RoleUser, dec("100.00"))
	inactive := s.store.AddMedicine("Recalled syrup", dec("30.00"), false)

	in := s.input(userID, "30.00", "k1")
	in.Items[0].MedicineID = inactive
	_, err := s.uc.PlaceOrder(context.Background(), in)

	_, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	assert.True(t, dec("100.00").Equal(s.balance(t, userID)))
}
