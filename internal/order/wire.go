package order

import (
	"go.uber.org/zap"

	"pharmacart/internal/catalog"
	"pharmacart/internal/config"
	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/order/controller"
	"pharmacart/internal/order/service"
	"pharmacart/internal/order/usecase"
	"pharmacart/internal/storage"
)

func NewModule(backend *storage.Backend, catalogSvc *catalog.Service, cfg config.OrderConfig, m *metrics.Metrics, logger *zap.Logger) *controller.OrderController {
	placementSvc := service.NewPlacementService(
		backend.Tx,
		backend.Ledger,
		backend.Orders,
		m,
		logger,
		cfg.TxTimeout,
	)

	statusSvc := service.NewStatusService(
		backend.Tx,
		backend.Orders,
		backend.Ledger,
		m,
		logger,
		cfg.RefundOnCancel,
	)

	placeOrder := usecase.NewPlaceOrderUseCase(
		catalogSvc,
		backend.Orders,
		placementSvc,
		m,
		logger,
		cfg.MaxRetryAttempts,
		cfg.MaxItems,
	)

	queries := usecase.NewOrderQueryUseCase(backend.Orders, logger)

	return controller.NewOrderController(placeOrder, queries, statusSvc, logger)
}
