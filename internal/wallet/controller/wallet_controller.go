package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/dto"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/web"
)

type WalletUseCase interface {
	GetBalance(ctx context.Context, principal auth.Principal) (decimal.Decimal, error)
	Credit(ctx context.Context, principal auth.Principal, userID int, amount decimal.Decimal) (decimal.Decimal, error)
}

type WalletController struct {
	useCase WalletUseCase
	logger  *zap.Logger
}

func NewWalletController(useCase WalletUseCase, logger *zap.Logger) *WalletController {
	return &WalletController{
		useCase: useCase,
		logger:  logger,
	}
}

// GetBalance handles GET /wallet.
func (c *WalletController) GetBalance(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := auth.FromContext(r.Context())
	if !ok {
		web.WriteError(w, traceID, apperrors.NewForbiddenError("caller identity missing"), logger)
		return
	}

	balance, err := c.useCase.GetBalance(r.Context(), principal)
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	web.WriteJSON(w, http.StatusOK, dto.NewWalletResponse(traceID, principal.UserID, balance), logger)
}

// Credit handles POST /admin/users/{userId}/wallet/credit.
func (c *WalletController) Credit(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	principal, ok := auth.FromContext(r.Context())
	if !ok {
		web.WriteError(w, traceID, apperrors.NewForbiddenError("caller identity missing"), logger)
		return
	}

	userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil || userID <= 0 {
		web.WriteValidationError(w, traceID, "invalid userId", logger, apperrors.ValidationDetail{
			Field:   "userId",
			Message: "userId must be a positive integer",
		})
		return
	}

	var req dto.CreditWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		web.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	balance, err := c.useCase.Credit(r.Context(), principal, userID, req.Amount)
	if err != nil {
		web.WriteError(w, traceID, err, logger)
		return
	}

	web.WriteJSON(w, http.StatusOK, dto.NewWalletResponse(traceID, userID, balance), logger)
}
