package wallet

import (
	"go.uber.org/zap"

	"pharmacart/internal/infrastructure/metrics"
	"pharmacart/internal/storage"
	"pharmacart/internal/wallet/controller"
	"pharmacart/internal/wallet/usecase"
)

func NewModule(backend *storage.Backend, m *metrics.Metrics, logger *zap.Logger) *controller.WalletController {
	uc := usecase.NewWalletUseCase(backend.Ledger, m, logger)
	return controller.NewWalletController(uc, logger)
}
