package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/retail-banking-ledger/internal/api_gateway/middleware"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/statement"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	banking "github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.RequireUser(), middleware.RequireAdmin())
	return r
}

// serve sends body (marshalled when not nil) as the test user.
func serve(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.UserIDHeader, testUserID)
	req.Header.Set(middleware.AdminIDHeader, "ops-1")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

type MockBankingService struct {
	mock.Mock
}

func (m *MockBankingService) OpenAccount(ctx context.Context, cmd banking.OpenAccountCommand) (*account.Account, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockBankingService) Transfer(ctx context.Context, intent *transfer.Intent) (*transfer.Result, error) {
	args := m.Called(ctx, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Result), args.Error(1)
}

func (m *MockBankingService) PayBill(ctx context.Context, payment *transfer.BillPayment) (*transfer.Result, error) {
	args := m.Called(ctx, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Result), args.Error(1)
}

func (m *MockBankingService) tradeResult(args mock.Arguments) (*banking.TradeResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*banking.TradeResult), args.Error(1)
}

func (m *MockBankingService) FundCrypto(ctx context.Context, cmd banking.FundCommand) (*banking.TradeResult, error) {
	return m.tradeResult(m.Called(ctx, cmd))
}

func (m *MockBankingService) BuyCrypto(ctx context.Context, userID string, fiatAmount decimal.Decimal) (*banking.TradeResult, error) {
	return m.tradeResult(m.Called(ctx, userID, fiatAmount))
}

func (m *MockBankingService) SellCrypto(ctx context.Context, userID string, assetAmount decimal.Decimal) (*banking.TradeResult, error) {
	return m.tradeResult(m.Called(ctx, userID, assetAmount))
}

func (m *MockBankingService) ApproveSell(ctx context.Context, tradeID uuid.UUID, reviewer string) (*banking.TradeResult, error) {
	return m.tradeResult(m.Called(ctx, tradeID, reviewer))
}

func (m *MockBankingService) RejectSell(ctx context.Context, tradeID uuid.UUID, reviewer, reason string) (*banking.TradeResult, error) {
	return m.tradeResult(m.Called(ctx, tradeID, reviewer, reason))
}

func (m *MockBankingService) deposit(args mock.Arguments) (*deposit.MobileDeposit, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.MobileDeposit), args.Error(1)
}

func (m *MockBankingService) SubmitDeposit(ctx context.Context, cmd banking.DepositCommand) (*deposit.MobileDeposit, error) {
	return m.deposit(m.Called(ctx, cmd))
}

func (m *MockBankingService) ApproveDeposit(ctx context.Context, depositID uuid.UUID, reviewer string) (*deposit.MobileDeposit, error) {
	return m.deposit(m.Called(ctx, depositID, reviewer))
}

func (m *MockBankingService) RejectDeposit(ctx context.Context, depositID uuid.UUID, reviewer, reason string) (*deposit.MobileDeposit, error) {
	return m.deposit(m.Called(ctx, depositID, reviewer, reason))
}

func (m *MockBankingService) ResolveReconciliation(ctx context.Context, itemID uuid.UUID, resolvedBy, note string) (*reconciliation.Item, error) {
	args := m.Called(ctx, itemID, resolvedBy, note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Item), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) ListAccounts(ctx context.Context, userID string) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountService) GetAccount(ctx context.Context, userID string, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error) {
	args := m.Called(ctx, userID, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*transaction.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionService) Statement(ctx context.Context, userID string, accountID uuid.UUID, page, perPage int) ([]*statement.Entry, int64, error) {
	args := m.Called(ctx, userID, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*statement.Entry), args.Get(1).(int64), args.Error(2)
}

type MockPortfolioService struct {
	mock.Mock
}

func (m *MockPortfolioService) Portfolio(ctx context.Context, userID string) (*crypto.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*crypto.Portfolio), args.Error(1)
}

func (m *MockPortfolioService) Trades(ctx context.Context, userID string, page, perPage int) ([]*crypto.Trade, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*crypto.Trade), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) PendingDeposits(ctx context.Context, page, perPage int) ([]*deposit.MobileDeposit, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*deposit.MobileDeposit), args.Error(1)
}

func (m *MockAdminService) OpenReconciliationItems(ctx context.Context, page, perPage int) ([]*reconciliation.Item, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconciliation.Item), args.Error(1)
}
