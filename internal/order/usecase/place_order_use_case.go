package usecase

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacart/internal/domain"
	"pharmacart/internal/dto"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/infrastructure/mysql"
)

const (
	maxQuantity          = 10000
	maxIdempotencyKeyLen = 128
	requeryTimeout       = 3 * time.Second
	backoffBase          = 50 * time.Millisecond
)

type CatalogChecker interface {
	CheckOrderable(ctx context.Context, ids []int) error
}

type OrderFinder interface {
	FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error)
}

type OrderPlacer interface {
	Place(ctx context.Context, order *domain.Order) error
}

type PlaceOrderUseCase struct {
	catalog          CatalogChecker
	orders           OrderFinder
	placer           OrderPlacer
	metrics          *metrics.Metrics
	logger           *zap.Logger
	maxRetryAttempts int
	maxItems         int
}

func NewPlaceOrderUseCase(
	catalog CatalogChecker,
	orders OrderFinder,
	placer OrderPlacer,
	metrics *metrics.Metrics,
	logger *zap.Logger,
	maxRetryAttempts int,
	maxItems int,
) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		catalog:          catalog,
		orders:           orders,
		placer:           placer,
		metrics:          metrics,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		maxItems:         maxItems,
	}
}

// PlaceOrder validates the cart, then debits the wallet and records the order as one
// unit. A request whose idempotency key already produced an order returns that order
// instead of charging again.
func (uc *PlaceOrderUseCase) PlaceOrder(ctx context.Context, in dto.PlaceOrderInput) (*dto.PlaceOrderResult, error) {
	start := time.Now()
	result, err := uc.placeOrder(ctx, in)
	uc.metrics.ObserveCheckout(paymentMethodLabel(in.PaymentMethod), checkoutResult(result, err), time.Since(start))
	return result, err
}

func (uc *PlaceOrderUseCase) placeOrder(ctx context.Context, in dto.PlaceOrderInput) (*dto.PlaceOrderResult, error) {
	logger := uc.logger.With(zap.Int("userId", in.UserID), zap.String("paymentMethod", in.PaymentMethod))
	logger.Info("checkout started", zap.Int("itemCount", len(in.Items)), zap.String("totalAmount", in.TotalAmount.StringFixed(2)))

	if err := uc.validate(in); err != nil {
		logger.Warn("checkout validation failed", zap.Error(err))
		return nil, err
	}

	if in.IdempotencyKey == "" {
		in.IdempotencyKey = uuid.NewString()
	}
	logger = logger.With(zap.String("idempotencyKey", in.IdempotencyKey))

	existing, err := uc.findExisting(ctx, in)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Info("idempotency key already used", zap.Uint("orderId", existing.ID))
		return replay(existing, in)
	}

	ids := make([]int, len(in.Items))
	for i, item := range in.Items {
		ids[i] = item.MedicineID
	}
	if err := uc.catalog.CheckOrderable(ctx, ids); err != nil {
		if apperrors.IsBusinessError(err) {
			logger.Warn("cart rejected by catalog", zap.Error(err))
			return nil, err
		}
		return nil, apperrors.NewStoreUnavailableError("catalog unavailable", err)
	}

	return uc.placeWithRetry(ctx, in, logger)
}

func (uc *PlaceOrderUseCase) placeWithRetry(ctx context.Context, in dto.PlaceOrderInput, logger *zap.Logger) (*dto.PlaceOrderResult, error) {
	for attempt := 1; ; attempt++ {
		order := buildOrder(in)
		err := uc.placer.Place(ctx, order)
		if err == nil {
			logger.Info("checkout completed", zap.Uint("orderId", order.ID), zap.Int("attempt", attempt))
			return &dto.PlaceOrderResult{Order: order}, nil
		}

		// A concurrent request with the same key committed first.
		if _, ok := apperrors.IsConflictError(err); ok {
			return uc.resolveDuplicate(ctx, in)
		}

		if apperrors.IsBusinessError(err) {
			return nil, err
		}

		// InnoDB rolled back the whole victim transaction, so running it again cannot
		// charge twice.
		if mysql.IsDeadlock(err) {
			if attempt >= uc.maxRetryAttempts {
				return nil, apperrors.NewStoreUnavailableError("checkout aborted after repeated deadlocks", err)
			}
			logger.Warn("deadlock detected, retrying", zap.Int("attempt", attempt), zap.Int("maxAttempts", uc.maxRetryAttempts))
			if waitErr := backoff(ctx, attempt); waitErr != nil {
				return nil, apperrors.NewStoreUnavailableError("checkout cancelled while retrying", waitErr)
			}
			continue
		}

		return uc.recoverOutcome(ctx, in, err, logger)
	}
}

// recoverOutcome answers a checkout whose transaction failed without a business
// reason. The commit may or may not have happened, so the store is asked instead of
// guessing.
func (uc *PlaceOrderUseCase) recoverOutcome(ctx context.Context, in dto.PlaceOrderInput, cause error, logger *zap.Logger) (*dto.PlaceOrderResult, error) {
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeryTimeout)
	defer cancel()

	existing, err := uc.orders.FindByIdempotencyKey(lookupCtx, in.UserID, in.IdempotencyKey)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			logger.Error("checkout not committed", zap.Error(cause))
			return nil, apperrors.NewStoreUnavailableError("checkout failed, retry with the same idempotency key", cause)
		}
		logger.Error("checkout outcome unknown", zap.Error(cause), zap.NamedError("lookupError", err))
		return nil, apperrors.NewStoreUnavailableError("checkout outcome unknown, retry with the same idempotency key", cause)
	}

	if !samePayload(existing, in) {
		return nil, idempotencyConflict(in.IdempotencyKey)
	}

	logger.Warn("checkout committed despite transaction error", zap.Uint("orderId", existing.ID), zap.Error(cause))
	return &dto.PlaceOrderResult{Order: existing}, nil
}

func (uc *PlaceOrderUseCase) resolveDuplicate(ctx context.Context, in dto.PlaceOrderInput) (*dto.PlaceOrderResult, error) {
	existing, err := uc.findExisting(ctx, in)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, idempotencyConflict(in.IdempotencyKey)
	}
	return replay(existing, in)
}

func (uc *PlaceOrderUseCase) findExisting(ctx context.Context, in dto.PlaceOrderInput) (*domain.Order, error) {
	existing, err := uc.orders.FindByIdempotencyKey(ctx, in.UserID, in.IdempotencyKey)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, nil
		}
		return nil, apperrors.NewStoreUnavailableError("order store unavailable", err)
	}
	return existing, nil
}

func (uc *PlaceOrderUseCase) validate(in dto.PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return apperrors.NewEmptyCartError()
	}

	var details []apperrors.ValidationDetail
	add := func(field, message string) {
		details = append(details, apperrors.ValidationDetail{Field: field, Message: message})
	}

	if in.UserID <= 0 {
		add("user_id", "user_id must be a positive integer")
	}

	if len(in.IdempotencyKey) > maxIdempotencyKeyLen {
		add("idempotency_key", "idempotency key must be at most "+strconv.Itoa(maxIdempotencyKeyLen)+" characters")
	}

	if len(in.Items) > uc.maxItems {
		add("items", "items exceeds maximum of "+strconv.Itoa(uc.maxItems))
	}

	seen := make(map[int]bool, len(in.Items))
	for idx, item := range in.Items {
		prefix := "items[" + strconv.Itoa(idx) + "]"

		if item.MedicineID <= 0 {
			add(prefix+".medicine_id", "medicine_id must be a positive integer")
		}
		if seen[item.MedicineID] {
			add(prefix+".medicine_id", "medicine_id must not be duplicated")
		}
		seen[item.MedicineID] = true

		if item.Quantity < 1 || item.Quantity > maxQuantity {
			add(prefix+".quantity", "quantity must be between 1 and "+strconv.Itoa(maxQuantity))
		}
		if item.Price.IsNegative() {
			add(prefix+".price", "price must be non-negative")
		} else if !domain.AmountInRange(item.Price) {
			add(prefix+".price", "price must not exceed "+domain.MaxAmount.StringFixed(2))
		} else if !isCents(item.Price) {
			add(prefix+".price", "price must have at most 2 decimal places")
		}
	}

	checkAmount := func(field string, amount decimal.Decimal) {
		if amount.IsNegative() {
			add(field, field+" must be non-negative")
		} else if !domain.AmountInRange(amount) {
			add(field, field+" must not exceed "+domain.MaxAmount.StringFixed(2))
		} else if !isCents(amount) {
			add(field, field+" must have at most 2 decimal places")
		}
	}
	checkAmount("subtotal", in.Subtotal)
	checkAmount("service_fee", in.ServiceFee)
	checkAmount("total_amount", in.TotalAmount)

	totals := domain.Order{Subtotal: in.Subtotal, ServiceFee: in.ServiceFee, TotalAmount: in.TotalAmount}
	if !totals.TotalMatches() {
		add("total_amount", "total_amount must equal subtotal + service_fee")
	}

	method := domain.PaymentMethod(in.PaymentMethod)
	if !method.IsValid() {
		add("payment_method", "payment_method must be one of wallet, other")
	} else if method == domain.PaymentMethodWallet && !in.TotalAmount.IsPositive() {
		add("total_amount", "total_amount must be greater than 0 for wallet payments")
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func buildOrder(in dto.PlaceOrderInput) *domain.Order {
	items := make([]domain.OrderItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = domain.OrderItem{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}

	return &domain.Order{
		UserID:         in.UserID,
		Subtotal:       in.Subtotal,
		ServiceFee:     in.ServiceFee,
		TotalAmount:    in.TotalAmount,
		PaymentMethod:  domain.PaymentMethod(in.PaymentMethod),
		IdempotencyKey: in.IdempotencyKey,
		Items:          items,
	}
}

func replay(existing *domain.Order, in dto.PlaceOrderInput) (*dto.PlaceOrderResult, error) {
	if !samePayload(existing, in) {
		return nil, idempotencyConflict(in.IdempotencyKey)
	}
	return &dto.PlaceOrderResult{Order: existing, Replayed: true}, nil
}

// samePayload reports whether order was created from the same cart as in. Item order
// does not matter.
func samePayload(order *domain.Order, in dto.PlaceOrderInput) bool {
	if order.UserID != in.UserID ||
		string(order.PaymentMethod) != in.PaymentMethod ||
		!order.Subtotal.Equal(in.Subtotal) ||
		!order.ServiceFee.Equal(in.ServiceFee) ||
		!order.TotalAmount.Equal(in.TotalAmount) ||
		len(order.Items) != len(in.Items) {
		return false
	}

	byMedicine := make(map[int]domain.OrderItem, len(order.Items))
	for _, item := range order.Items {
		byMedicine[item.MedicineID] = item
	}
	for _, item := range in.Items {
		stored, ok := byMedicine[item.MedicineID]
		if !ok || stored.Quantity != item.Quantity || !stored.Price.Equal(item.Price) {
			return false
		}
	}
	return true
}

func idempotencyConflict(key string) error {
	return apperrors.NewConflictError(fmt.Sprintf("idempotency key %q was already used for a different order", key))
}

func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// backoff waits attempt*50ms plus up to 50% jitter.
func backoff(ctx context.Context, attempt int) error {
	base := time.Duration(attempt) * backoffBase
	jitter := time.Duration(rand.Int64N(int64(base)/2 + 1))

	timer := time.NewTimer(base + jitter)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func paymentMethodLabel(method string) string {
	if domain.PaymentMethod(method).IsValid() {
		return method
	}
	return "invalid"
}

func checkoutResult(result *dto.PlaceOrderResult, err error) string {
	switch {
	case err == nil && result.Replayed:
		return metrics.ResultReplayed
	case err == nil:
		return metrics.ResultSuccess
	case apperrors.IsBusinessError(err):
		return metrics.ResultRejected
	default:
		return metrics.ResultFailed
	}
}
