// Package storage selects the persistence backend and exposes it through the
// contracts the modules depend on.
package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalogrepo "pharmacart/internal/catalog/repository"
	"pharmacart/internal/config"
	"pharmacart/internal/domain"
	"pharmacart/internal/infrastructure/mysql"
	orderrepo "pharmacart/internal/order/repository"
	"pharmacart/internal/storage/memory"
	walletrepo "pharmacart/internal/wallet/repository"
)

// Transactor runs fn in one transaction. Stores called with the ctx handed to fn
// join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type LedgerStore interface {
	GetBalance(ctx context.Context, userID int) (decimal.Decimal, error)
	Debit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error)
}

type OrderStore interface {
	CreateWithItems(ctx context.Context, order *domain.Order) error
	UpdateStatus(ctx context.Context, id uint, next domain.OrderStatus) (*domain.Order, error)
	GetByID(ctx context.Context, id uint) (*domain.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
}

type MedicineStore interface {
	FindByIDs(ctx context.Context, ids []int) ([]domain.Medicine, error)
}

type Backend struct {
	Tx        Transactor
	Ledger    LedgerStore
	Orders    OrderStore
	Medicines MedicineStore

	ping  func(ctx context.Context) error
	close func() error
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// New opens the backend named by cfg.Store.Driver.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMySQL:
		return NewMySQL(ctx, cfg.Database, logger)
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		return NewMemory(memory.NewStore()), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func NewMySQL(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Backend, error) {
	db, err := mysql.NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("database connected", zap.String("host", cfg.Host), zap.String("database", cfg.Name))

	if cfg.Migrate {
		if err := mysql.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	txm := mysql.NewTxManager(db)
	return &Backend{
		Tx:        txm,
		Ledger:    walletrepo.NewMySQLLedgerRepository(txm),
		Orders:    orderrepo.NewMySQLOrderRepository(txm, orderrepo.NewMySQLOrderItemRepository(txm)),
		Medicines: catalogrepo.NewMySQLMedicineRepository(txm),
		ping:      txm.PingContext,
		close:     db.Close,
	}, nil
}

func NewMemory(store *memory.Store) *Backend {
	return &Backend{
		Tx:        store,
		Ledger:    store.Ledger(),
		Orders:    store.Orders(),
		Medicines: store.Medicines(),
		ping:      store.Ping,
	}
}
