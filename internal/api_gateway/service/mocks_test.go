package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/statement"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) Create(ctx context.Context, acc *account.Account) error {
	return m.Called(ctx, acc).Error(0)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountStore) ListByOwner(ctx context.Context, ownerID string) ([]*account.Account, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountStore) GetBalance(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountStore) AdjustBalance(ctx context.Context, id uuid.UUID, delta, floor decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, id, delta, floor)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccountStore) WithTx(tx pgx.Tx) account.Store {
	return m.Called(tx).Get(0).(account.Store)
}

type MockTransactionLog struct {
	mock.Mock
}

func (m *MockTransactionLog) Record(ctx context.Context, tx *transaction.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionLog) Settle(ctx context.Context, id uuid.UUID, to transaction.Status) error {
	return m.Called(ctx, id, to).Error(0)
}

func (m *MockTransactionLog) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionLog) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionLog) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionLog) ListByReference(ctx context.Context, reference string) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionLog) WithTx(tx pgx.Tx) transaction.Log {
	return m.Called(tx).Get(0).(transaction.Log)
}

type MockStatementRepo struct {
	mock.Mock
}

func (m *MockStatementRepo) Upsert(ctx context.Context, entry *statement.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStatementRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*statement.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Entry), args.Error(1)
}

func (m *MockStatementRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*statement.Entry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Entry), args.Error(1)
}

func (m *MockStatementRepo) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatementRepo) GetByTimeRange(ctx context.Context, accountID uuid.UUID, startTime, endTime time.Time, limit, offset int) ([]*statement.Entry, error) {
	args := m.Called(ctx, accountID, startTime, endTime, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*statement.Entry), args.Error(1)
}

type MockCryptoRepo struct {
	mock.Mock
}

func (m *MockCryptoRepo) GetPortfolio(ctx context.Context, userID string) (*crypto.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crypto.Portfolio), args.Error(1)
}

func (m *MockCryptoRepo) EnsurePortfolio(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockCryptoRepo) AdjustPortfolio(ctx context.Context, userID string, d crypto.Delta) (*crypto.Portfolio, error) {
	args := m.Called(ctx, userID, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crypto.Portfolio), args.Error(1)
}

func (m *MockCryptoRepo) CreateTrade(ctx context.Context, trade *crypto.Trade) error {
	return m.Called(ctx, trade).Error(0)
}

func (m *MockCryptoRepo) GetTrade(ctx context.Context, id uuid.UUID) (*crypto.Trade, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crypto.Trade), args.Error(1)
}

func (m *MockCryptoRepo) ListTrades(ctx context.Context, userID string, limit, offset int) ([]*crypto.Trade, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crypto.Trade), args.Error(1)
}

func (m *MockCryptoRepo) SettleTrade(ctx context.Context, id uuid.UUID, status crypto.TradeStatus) (*crypto.Trade, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crypto.Trade), args.Error(1)
}

func (m *MockCryptoRepo) WithTx(tx pgx.Tx) crypto.Repository {
	return m.Called(tx).Get(0).(crypto.Repository)
}

type MockDepositRepo struct {
	mock.Mock
}

func (m *MockDepositRepo) Create(ctx context.Context, d *deposit.MobileDeposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDepositRepo) GetByID(ctx context.Context, id uuid.UUID) (*deposit.MobileDeposit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.MobileDeposit), args.Error(1)
}

func (m *MockDepositRepo) ListPending(ctx context.Context, limit, offset int) ([]*deposit.MobileDeposit, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deposit.MobileDeposit), args.Error(1)
}

func (m *MockDepositRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*deposit.MobileDeposit, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deposit.MobileDeposit), args.Error(1)
}

func (m *MockDepositRepo) SaveReview(ctx context.Context, d *deposit.MobileDeposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDepositRepo) WithTx(tx pgx.Tx) deposit.Repository {
	return m.Called(tx).Get(0).(deposit.Repository)
}

type MockReconciliationRepo struct {
	mock.Mock
}

func (m *MockReconciliationRepo) Create(ctx context.Context, item *reconciliation.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockReconciliationRepo) ListOpen(ctx context.Context, limit, offset int) ([]*reconciliation.Item, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconciliation.Item), args.Error(1)
}

func (m *MockReconciliationRepo) Resolve(ctx context.Context, id uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	args := m.Called(ctx, id, resolvedBy, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Item), args.Error(1)
}

func (m *MockReconciliationRepo) WithTx(tx pgx.Tx) reconciliation.Repository {
	return m.Called(tx).Get(0).(reconciliation.Repository)
}
