package components

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/retail-banking-ledger/internal/domain/account"
	"github.com/retail-banking-ledger/internal/domain/crypto"
	"github.com/retail-banking-ledger/internal/domain/deposit"
	"github.com/retail-banking-ledger/internal/domain/directory"
	"github.com/retail-banking-ledger/internal/domain/notification"
	"github.com/retail-banking-ledger/internal/domain/outbox"
	"github.com/retail-banking-ledger/internal/domain/reconciliation"
	"github.com/retail-banking-ledger/internal/domain/shared"
	"github.com/retail-banking-ledger/internal/domain/transaction"
	"github.com/retail-banking-ledger/internal/domain/transfer"
	"github.com/retail-banking-ledger/internal/funds_movement/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeBank is an in-memory database. ExecuteTx serializes transactions and
// restores a snapshot when fn fails, so rollbacks behave like Postgres.
type fakeBank struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts     map[uuid.UUID]*account.Account
	transactions []*transaction.Transaction
	messages     []*outbox.Message
	steps        []*transfer.SagaStep
	portfolios   map[string]*crypto.Portfolio
	trades       map[uuid.UUID]*crypto.Trade
	deposits     map[uuid.UUID]*deposit.MobileDeposit
	items        []*reconciliation.Item

	// adjustHook runs before every balance change; a non-nil error fails it.
	adjustHook func(id uuid.UUID, delta decimal.Decimal) error
	// commitErrOnce is reported by the next successful ExecuteTx after committing.
	commitErrOnce error
	sagaListErr   error
	itemCreateErr error
}

func newFakeBank() *fakeBank {
	return &fakeBank{
		accounts:   make(map[uuid.UUID]*account.Account),
		portfolios: make(map[string]*crypto.Portfolio),
		trades:     make(map[uuid.UUID]*crypto.Trade),
		deposits:   make(map[uuid.UUID]*deposit.MobileDeposit),
	}
}

type bankSnapshot struct {
	accounts     map[uuid.UUID]account.Account
	transactions []transaction.Transaction
	messages     int
	steps        int
	portfolios   map[string]crypto.Portfolio
	trades       map[uuid.UUID]crypto.Trade
	deposits     map[uuid.UUID]deposit.MobileDeposit
	items        int
}

func (b *fakeBank) snapshot() bankSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := bankSnapshot{
		accounts:   make(map[uuid.UUID]account.Account, len(b.accounts)),
		messages:   len(b.messages),
		steps:      len(b.steps),
		portfolios: make(map[string]crypto.Portfolio, len(b.portfolios)),
		trades:     make(map[uuid.UUID]crypto.Trade, len(b.trades)),
		deposits:   make(map[uuid.UUID]deposit.MobileDeposit, len(b.deposits)),
		items:      len(b.items),
	}
	for id, acc := range b.accounts {
		s.accounts[id] = *acc
	}
	for _, tx := range b.transactions {
		s.transactions = append(s.transactions, *tx)
	}
	for id, p := range b.portfolios {
		s.portfolios[id] = *p
	}
	for id, t := range b.trades {
		s.trades[id] = *t
	}
	for id, d := range b.deposits {
		s.deposits[id] = *d
	}
	return s
}

func (b *fakeBank) restore(s bankSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.accounts = make(map[uuid.UUID]*account.Account, len(s.accounts))
	for id, acc := range s.accounts {
		acc := acc
		b.accounts[id] = &acc
	}
	b.transactions = nil
	for _, tx := range s.transactions {
		tx := tx
		b.transactions = append(b.transactions, &tx)
	}
	b.messages = b.messages[:s.messages]
	b.steps = b.steps[:s.steps]
	b.portfolios = make(map[string]*crypto.Portfolio, len(s.portfolios))
	for id, p := range s.portfolios {
		p := p
		b.portfolios[id] = &p
	}
	b.trades = make(map[uuid.UUID]*crypto.Trade, len(s.trades))
	for id, t := range s.trades {
		t := t
		b.trades[id] = &t
	}
	b.deposits = make(map[uuid.UUID]*deposit.MobileDeposit, len(s.deposits))
	for id, d := range s.deposits {
		d := d
		b.deposits[id] = &d
	}
	b.items = b.items[:s.items]
}

func (b *fakeBank) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	b.txMu.Lock()
	defer b.txMu.Unlock()

	snap := b.snapshot()
	if err := fn(nil); err != nil {
		b.restore(snap)
		return err
	}
	if err := b.commitErrOnce; err != nil {
		b.commitErrOnce = nil
		return err
	}
	return nil
}

// writeLock serializes writes made outside ExecuteTx with running transactions.
func (b *fakeBank) writeLock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	b.txMu.Lock()
	return b.txMu.Unlock
}

func (b *fakeBank) addAccount(t *testing.T, owner string, typ account.Type, balance string) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(owner, typ, dec(balance))
	require.NoError(t, err)
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := *acc
	b.accounts[acc.ID] = &copied
	return acc
}

func (b *fakeBank) balance(id uuid.UUID) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[id].Balance
}

func (b *fakeBank) setStatus(id uuid.UUID, status account.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[id].Status = status
}

func (b *fakeBank) recorded() []transaction.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]transaction.Transaction, 0, len(b.transactions))
	for _, tx := range b.transactions {
		out = append(out, *tx)
	}
	return out
}

func (b *fakeBank) sagaSteps() []transfer.Step {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []transfer.Step
	for _, s := range b.steps {
		out = append(out, s.Step)
	}
	return out
}

func (b *fakeBank) sagaDetails() map[transfer.Step]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[transfer.Step]string, len(b.steps))
	for _, s := range b.steps {
		out[s.Step] = s.Detail
	}
	return out
}

// lostCreditAck reports a lost commit acknowledgement for the first credit to
// id after the credit has been applied.
func (b *fakeBank) lostCreditAck(id uuid.UUID) func(uuid.UUID, decimal.Decimal) error {
	fired := false
	return func(target uuid.UUID, delta decimal.Decimal) error {
		if target == id && delta.IsPositive() && !fired {
			fired = true
			b.commitErrOnce = errors.New("commit acknowledgement lost")
		}
		return nil
	}
}

func (b *fakeBank) statementMessages() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.messages {
		if m.Kind == outbox.KindStatement {
			n++
		}
	}
	return n
}

func (b *fakeBank) openItems() []reconciliation.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []reconciliation.Item
	for _, item := range b.items {
		out = append(out, *item)
	}
	return out
}

func (b *fakeBank) portfolio(userID string) crypto.Portfolio {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.portfolios[userID]; ok {
		return *p
	}
	return *crypto.EmptyPortfolio(userID)
}

func (b *fakeBank) setPortfolio(p crypto.Portfolio) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.portfolios[p.UserID] = &p
}

func (b *fakeBank) totalBalance() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := decimal.Zero
	for _, acc := range b.accounts {
		total = total.Add(acc.Balance)
	}
	return total
}

// account.Store

type fakeAccounts struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeAccounts) WithTx(pgx.Tx) account.Store {
	return &fakeAccounts{bank: s.bank, inTx: true}
}

func (s *fakeAccounts) Create(_ context.Context, acc *account.Account) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	copied := *acc
	s.bank.accounts[acc.ID] = &copied
	return nil
}

func (s *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	acc, ok := s.bank.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	copied := *acc
	return &copied, nil
}

func (s *fakeAccounts) ListByOwner(_ context.Context, ownerID string) ([]*account.Account, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	var out []*account.Account
	for _, acc := range s.bank.accounts {
		if acc.OwnerID == ownerID {
			copied := *acc
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeAccounts) GetBalance(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	acc, ok := s.bank.accounts[id]
	if !ok {
		return decimal.Zero, account.ErrAccountNotFound{AccountID: id}
	}
	return acc.Balance, nil
}

func (s *fakeAccounts) AdjustBalance(_ context.Context, id uuid.UUID, delta, floor decimal.Decimal) (decimal.Decimal, error) {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()

	if hook := s.bank.adjustHook; hook != nil {
		if err := hook(id, delta); err != nil {
			return decimal.Zero, err
		}
	}
	acc, ok := s.bank.accounts[id]
	if !ok {
		return decimal.Zero, account.ErrAccountNotFound{AccountID: id}
	}
	if !acc.IsActive() {
		return decimal.Zero, account.ErrAccountInactive
	}
	next := acc.Balance.Add(delta)
	if next.LessThan(floor) {
		return decimal.Zero, account.ErrInsufficientFunds
	}
	acc.Balance = next
	acc.UpdatedAt = time.Now().UTC()
	return next, nil
}

// transaction.Log

type fakeTransactions struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeTransactions) WithTx(pgx.Tx) transaction.Log {
	return &fakeTransactions{bank: s.bank, inTx: true}
}

func (s *fakeTransactions) Record(_ context.Context, tx *transaction.Transaction) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	copied := *tx
	s.bank.transactions = append(s.bank.transactions, &copied)
	return nil
}

func (s *fakeTransactions) Settle(_ context.Context, id uuid.UUID, to transaction.Status) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	for _, tx := range s.bank.transactions {
		if tx.ID == id && tx.Status == transaction.StatusPending {
			if !tx.CanSettle(to) {
				return transaction.ErrInvalidTransition
			}
			tx.Status = to
			return nil
		}
	}
	return transaction.ErrTransactionNotFound{TransactionID: id}
}

func (s *fakeTransactions) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	for _, tx := range s.bank.transactions {
		if tx.ID == id {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, transaction.ErrTransactionNotFound{TransactionID: id}
}

func (s *fakeTransactions) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	var out []*transaction.Transaction
	for _, tx := range s.bank.transactions {
		if tx.AccountID == accountID {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeTransactions) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	txs, _ := s.ListByAccount(ctx, accountID, 0, 0)
	return int64(len(txs)), nil
}

func (s *fakeTransactions) ListByReference(_ context.Context, ref string) ([]*transaction.Transaction, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	var out []*transaction.Transaction
	for _, tx := range s.bank.transactions {
		if tx.Reference == ref {
			copied := *tx
			out = append(out, &copied)
		}
	}
	return out, nil
}

// outbox.Repository

type fakeOutbox struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeOutbox) WithTx(pgx.Tx) outbox.Repository {
	return &fakeOutbox{bank: s.bank, inTx: true}
}

func (s *fakeOutbox) Create(_ context.Context, msg *outbox.Message) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	msg.ID = int64(len(s.bank.messages) + 1)
	copied := *msg
	s.bank.messages = append(s.bank.messages, &copied)
	return nil
}

func (s *fakeOutbox) GetPending(context.Context, int) ([]*outbox.Message, error) {
	return nil, errors.New("not used")
}

func (s *fakeOutbox) UpdateStatus(context.Context, int64, shared.OutboxStatus) error {
	return errors.New("not used")
}

func (s *fakeOutbox) IncrementAttempts(context.Context, int64) error {
	return errors.New("not used")
}

func (s *fakeOutbox) GetByEventID(context.Context, string) (*outbox.Message, error) {
	return nil, errors.New("not used")
}

// transfer.SagaLog

type fakeSagas struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeSagas) WithTx(pgx.Tx) transfer.SagaLog {
	return &fakeSagas{bank: s.bank, inTx: true}
}

func (s *fakeSagas) Append(_ context.Context, step *transfer.SagaStep) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	copied := *step
	s.bank.steps = append(s.bank.steps, &copied)
	return nil
}

func (s *fakeSagas) ListByReference(_ context.Context, ref string) ([]*transfer.SagaStep, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	if s.bank.sagaListErr != nil {
		return nil, s.bank.sagaListErr
	}
	var out []*transfer.SagaStep
	for _, step := range s.bank.steps {
		if step.Reference == ref {
			copied := *step
			out = append(out, &copied)
		}
	}
	return out, nil
}

// crypto.Repository

type fakePortfolios struct {
	bank *fakeBank
	inTx bool
}

func (s *fakePortfolios) WithTx(pgx.Tx) crypto.Repository {
	return &fakePortfolios{bank: s.bank, inTx: true}
}

func (s *fakePortfolios) GetPortfolio(_ context.Context, userID string) (*crypto.Portfolio, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	if p, ok := s.bank.portfolios[userID]; ok {
		copied := *p
		return &copied, nil
	}
	return crypto.EmptyPortfolio(userID), nil
}

func (s *fakePortfolios) EnsurePortfolio(_ context.Context, userID string) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	if _, ok := s.bank.portfolios[userID]; !ok {
		s.bank.portfolios[userID] = crypto.EmptyPortfolio(userID)
	}
	return nil
}

func (s *fakePortfolios) AdjustPortfolio(_ context.Context, userID string, d crypto.Delta) (*crypto.Portfolio, error) {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	p, ok := s.bank.portfolios[userID]
	if !ok {
		return nil, errors.New("portfolio missing")
	}
	next, err := p.Apply(d)
	if err != nil {
		return nil, err
	}
	s.bank.portfolios[userID] = next
	copied := *next
	return &copied, nil
}

func (s *fakePortfolios) CreateTrade(_ context.Context, trade *crypto.Trade) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	copied := *trade
	s.bank.trades[trade.ID] = &copied
	return nil
}

func (s *fakePortfolios) GetTrade(_ context.Context, id uuid.UUID) (*crypto.Trade, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	t, ok := s.bank.trades[id]
	if !ok {
		return nil, crypto.ErrTradeNotFound{TradeID: id}
	}
	copied := *t
	return &copied, nil
}

func (s *fakePortfolios) ListTrades(_ context.Context, userID string, limit, offset int) ([]*crypto.Trade, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	var out []*crypto.Trade
	for _, t := range s.bank.trades {
		if t.UserID == userID {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakePortfolios) SettleTrade(_ context.Context, id uuid.UUID, status crypto.TradeStatus) (*crypto.Trade, error) {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	t, ok := s.bank.trades[id]
	if !ok {
		return nil, crypto.ErrTradeNotFound{TradeID: id}
	}
	if t.Status != crypto.TradeStatusPending {
		return nil, crypto.ErrTradeNotPending
	}
	now := time.Now().UTC()
	t.Status = status
	t.SettledAt = &now
	copied := *t
	return &copied, nil
}

// deposit.Repository

type fakeDeposits struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeDeposits) WithTx(pgx.Tx) deposit.Repository {
	return &fakeDeposits{bank: s.bank, inTx: true}
}

func (s *fakeDeposits) Create(_ context.Context, d *deposit.MobileDeposit) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	copied := *d
	s.bank.deposits[d.ID] = &copied
	return nil
}

func (s *fakeDeposits) GetByID(_ context.Context, id uuid.UUID) (*deposit.MobileDeposit, error) {
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	d, ok := s.bank.deposits[id]
	if !ok {
		return nil, deposit.ErrDepositNotFound{DepositID: id}
	}
	copied := *d
	return &copied, nil
}

func (s *fakeDeposits) ListPending(context.Context, int, int) ([]*deposit.MobileDeposit, error) {
	return nil, errors.New("not used")
}

func (s *fakeDeposits) ListByUser(context.Context, string, int, int) ([]*deposit.MobileDeposit, error) {
	return nil, errors.New("not used")
}

func (s *fakeDeposits) SaveReview(_ context.Context, d *deposit.MobileDeposit) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	stored, ok := s.bank.deposits[d.ID]
	if !ok {
		return deposit.ErrDepositNotFound{DepositID: d.ID}
	}
	if stored.Status != deposit.StatusPending {
		return deposit.ErrAlreadyReviewed
	}
	copied := *d
	s.bank.deposits[d.ID] = &copied
	return nil
}

// reconciliation.Repository

type fakeReconciliation struct {
	bank *fakeBank
	inTx bool
}

func (s *fakeReconciliation) WithTx(pgx.Tx) reconciliation.Repository {
	return &fakeReconciliation{bank: s.bank, inTx: true}
}

func (s *fakeReconciliation) Create(_ context.Context, item *reconciliation.Item) error {
	defer s.bank.writeLock(s.inTx)()
	s.bank.mu.Lock()
	defer s.bank.mu.Unlock()
	if s.bank.itemCreateErr != nil {
		return s.bank.itemCreateErr
	}
	copied := *item
	s.bank.items = append(s.bank.items, &copied)
	return nil
}

func (s *fakeReconciliation) ListOpen(context.Context, int, int) ([]*reconciliation.Item, error) {
	return nil, errors.New("not used")
}

func (s *fakeReconciliation) Resolve(context.Context, uuid.UUID, string, string) (*reconciliation.Item, error) {
	return nil, errors.New("not used")
}

// fakeReferences issues sequential references and remembers every one.
type fakeReferences struct {
	mu     sync.Mutex
	n      int
	issued map[string]bool
	err    error
}

func newFakeReferences() *fakeReferences {
	return &fakeReferences{issued: make(map[string]bool)}
}

func (r *fakeReferences) next(format func(n int) string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.n++
	ref := format(r.n)
	if r.issued[ref] {
		return "", fmt.Errorf("reference %s issued twice", ref)
	}
	r.issued[ref] = true
	return ref, nil
}

func (r *fakeReferences) Next(context.Context) (string, error) {
	return r.next(func(n int) string { return fmt.Sprintf("REF%06d", n) })
}

func (r *fakeReferences) NextDeposit(context.Context) (string, error) {
	day := time.Now().UTC().Format("20060102")
	return r.next(func(n int) string { return fmt.Sprintf("MD-%s-%06d", day, n) })
}

func (r *fakeReferences) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.issued)
}

// fakeDirectory resolves contacts from the bank's accounts.
type fakeDirectory struct {
	bank     *fakeBank
	contacts map[string]string
	err      error
}

func (d *fakeDirectory) ResolveByContact(ctx context.Context, identifier string) (*directory.Recipient, error) {
	if d.err != nil {
		return nil, d.err
	}
	userID, ok := d.contacts[directory.NormalizeContact(identifier)]
	if !ok {
		return nil, directory.ErrRecipientNotFound
	}
	accounts, _ := (&fakeAccounts{bank: d.bank}).ListByOwner(ctx, userID)
	return &directory.Recipient{UserID: userID, Accounts: accounts}, nil
}

type sentNotification struct {
	UserID  string
	Kind    notification.Kind
	Payload map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID string, kind notification.Kind, payload map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Payload: payload})
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Kind
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

// harness wires the real components onto the fakes.
type harness struct {
	bank         *fakeBank
	refs         *fakeReferences
	dir          *fakeDirectory
	notes        *recordingNotifier
	orchestrator service.TransferOrchestrator
	engine       service.TradingEngine
	intake       service.DepositIntake
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bank := newFakeBank()
	refs := newFakeReferences()
	dir := &fakeDirectory{bank: bank, contacts: make(map[string]string)}
	notes := &recordingNotifier{}
	logger := testLogger()

	accounts := &fakeAccounts{bank: bank}
	sagas := &fakeSagas{bank: bank}
	ledger := NewLedgerWriter(accounts, &fakeTransactions{bank: bank}, &fakeOutbox{bank: bank}, sagas, logger)

	recorder := NewReconciliationRecorder(&fakeReconciliation{bank: bank}, 2, logger).(*ReconciliationRecorderImpl)
	recorder.delay = 0

	return &harness{
		bank:  bank,
		refs:  refs,
		dir:   dir,
		notes: notes,
		orchestrator: NewTransferOrchestrator(bank, accounts, ledger, sagas, refs, dir,
			PrimaryRecipientSelector{}, recorder, notes, logger),
		engine: NewTradingEngine(bank, accounts, ledger, &fakePortfolios{bank: bank}, refs,
			NewStaticPriceSource("BTC", dec("50000.00")), "BTC", dec("0.025"), notes, logger),
		intake: NewDepositIntake(bank, accounts, ledger, &fakeDeposits{bank: bank}, refs, notes, logger),
	}
}

// failCredit makes every credit to id fail with err.
func failCredit(id uuid.UUID, err error) func(uuid.UUID, decimal.Decimal) error {
	return func(target uuid.UUID, delta decimal.Decimal) error {
		if target == id && delta.IsPositive() {
			return err
		}
		return nil
	}
}

func requireOperationError(t *testing.T, err error, kind shared.ErrorKind) *shared.OperationError {
	t.Helper()
	require.Error(t, err)
	opErr, ok := shared.AsOperationError(err)
	require.True(t, ok, "expected an OperationError, got %v", err)
	require.Equal(t, kind, opErr.Kind, "error: %v", err)
	return opErr
}
