package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/domain"
	"pharmacart/internal/dto"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/web"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type PlaceOrderUseCase interface {
	PlaceOrder(ctx context.Context, in dto.PlaceOrderInput) (*dto.PlaceOrderResult, error)
}

type OrderQueryUseCase interface {
	GetOrder(ctx context.Context, principal auth.Principal, orderID uint) (*domain.Order, error)
	ListOrders(ctx context.Context, principal auth.Principal, limit, offset int) ([]domain.Order, int, error)
}

type StatusService interface {
	UpdateStatus(ctx context.Context, principal auth.Principal, orderID uint, status string) (*domain.Order, error)
}

type OrderController struct {
	placeOrder PlaceOrderUseCase
	queries    OrderQueryUseCase
	status     StatusService
	logger     *zap.Logger
}

func NewOrderController(placeOrder PlaceOrderUseCase, queries OrderQueryUseCase, status StatusService, logger *zap.Logger) *OrderController {
	return &OrderController{
		placeOrder: placeOrder,
		queries:    queries,
		status:     status,
		logger:     logger,
	}
}

// PlaceOrder handles POST /orders. A replayed checkout answers 200 with the original
// order, a new one 201.
func (c *OrderController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		web.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	items := make([]dto.PlaceOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = dto.PlaceOrderItem{
			MedicineID: item.MedicineID,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}

	result, err := c.placeOrder.PlaceOrder(r.Context(), dto.PlaceOrderInput{
		UserID:         principal.UserID,
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
		Items:          items,
		Subtotal:       req.Subtotal,
		ServiceFee:     req.ServiceFee,
		TotalAmount:    req.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	statusCode := http.StatusCreated
	if result.Replayed {
		statusCode = http.StatusOK
	}

	w.Header().Set(HeaderIdempotencyKey, result.Order.IdempotencyKey)
	web.WriteJSON(w, statusCode, dto.PlaceOrderResponse{
		TraceID:  traceID,
		Replayed: result.Replayed,
		Order:    dto.NewOrderResponse(result.Order),
	}, logger)
}

// GetOrder handles GET /orders/{orderId} and GET /admin/orders/{orderId}.
func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, r, traceID, logger)
	if !ok {
		return
	}

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	order, err := c.queries.GetOrder(r.Context(), principal, orderID)
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	web.WriteJSON(w, http.StatusOK, dto.GetOrderResponse{
		TraceID: traceID,
		Order:   dto.NewOrderResponse(order),
	}, logger)
}

// ListOrders handles GET /admin/orders?limit=&offset=.
func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, r, traceID, logger)
	if !ok {
		return
	}

	var details []apperrors.ValidationDetail
	limit, err := queryInt(r, "limit")
	if err != nil {
		details = append(details, apperrors.ValidationDetail{Field: "limit", Message: "limit must be a non-negative integer"})
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		details = append(details, apperrors.ValidationDetail{Field: "offset", Message: "offset must be a non-negative integer"})
	}
	if len(details) > 0 {
		web.WriteValidationError(w, traceID, "invalid pagination", logger, details...)
		return
	}

	orders, limit, err := c.queries.ListOrders(r.Context(), principal, limit, offset)
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	response := dto.ListOrdersResponse{
		TraceID: traceID,
		Orders:  make([]dto.OrderResponse, len(orders)),
		Limit:   limit,
		Offset:  offset,
	}
	for i := range orders {
		response.Orders[i] = dto.NewOrderResponse(&orders[i])
	}

	web.WriteJSON(w, http.StatusOK, response, logger)
}

// UpdateStatus handles PUT /admin/orders/{orderId}.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := c.principal(w, r, traceID, logger)
	if !ok {
		return
	}

	orderID, ok := c.orderID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.UpdateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		web.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if req.Status == "" {
		web.WriteValidationError(w, traceID, "status is required", logger, apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is required",
		})
		return
	}

	order, err := c.status.UpdateStatus(r.Context(), principal, orderID, req.Status)
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	web.WriteJSON(w, http.StatusOK, dto.UpdateOrderStatusResponse{
		TraceID:   traceID,
		OrderID:   order.ID,
		Status:    string(order.Status),
		UpdatedAt: order.UpdatedAt,
	}, logger)
}

func (c *OrderController) principal(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (auth.Principal, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		logger.Error("request reached order controller without a principal")
		web.WriteError(w, traceID, apperrors.NewForbiddenError("caller identity missing"), logger)
		return auth.Principal{}, false
	}
	return principal, true
}

func (c *OrderController) orderID(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (uint, bool) {
	orderID, err := strconv.ParseUint(chi.URLParam(r, "orderId"), 10, 32)
	if err != nil || orderID == 0 {
		logger.Warn("invalid orderId in path", zap.String("orderId", chi.URLParam(r, "orderId")))
		web.WriteValidationError(w, traceID, "invalid orderId", logger, apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return 0, false
	}
	return uint(orderID), true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
