// Package trust implements the client trust-fund ledger: an append-only
// transaction log per (firm, account, client) with running balances and a
// hard non-negative guarantee on every client balance.
package trust

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/events"
	"github.com/mfortin/barbooks/internal/logging"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/mfortin/barbooks/internal/repository"
)

type firmRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Firm, error)
}

type clientRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
}

type matterRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Matter, error)
}

type trustAccountRepo interface {
	Create(ctx context.Context, account *domain.TrustAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TrustAccount, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.TrustAccount, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance decimal.Decimal) error
	ListByFirm(ctx context.Context, firmID uuid.UUID) ([]domain.TrustAccount, error)
}

type trustTransactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, t *domain.TrustTransaction) error
	ClientBalanceTx(ctx context.Context, tx *sql.Tx, firmID, accountID, clientID uuid.UUID) (decimal.Decimal, error)
	ClientBalance(ctx context.Context, firmID, accountID, clientID uuid.UUID) (decimal.Decimal, error)
	ClientBalanceAllAccounts(ctx context.Context, firmID, clientID uuid.UUID) (decimal.Decimal, error)
	AccountBalance(ctx context.Context, firmID, accountID uuid.UUID) (decimal.Decimal, error)
	ClientBalancesForAccount(ctx context.Context, firmID, accountID uuid.UUID) ([]repository.ClientBalanceRow, error)
	ListByAccount(ctx context.Context, firmID, accountID uuid.UUID, limit, offset int) ([]domain.TrustTransaction, error)
	ListByClient(ctx context.Context, firmID, accountID, clientID uuid.UUID) ([]domain.TrustTransaction, error)
}

type Service struct {
	firms    firmRepo
	clients  clientRepo
	matters  matterRepo
	accounts trustAccountRepo
	txns     trustTransactionRepo
	db       *sql.DB
	events   events.Publisher
}

func NewService(
	firms firmRepo,
	clients clientRepo,
	matters matterRepo,
	accounts trustAccountRepo,
	txns trustTransactionRepo,
	db *sql.DB,
	publisher events.Publisher,
) *Service {
	return &Service{
		firms:    firms,
		clients:  clients,
		matters:  matters,
		accounts: accounts,
		txns:     txns,
		db:       db,
		events:   publisher,
	}
}

type CreateAccountRequest struct {
	FirmID      uuid.UUID
	AccountName string
	Currency    string
}

func (s *Service) CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.TrustAccount, error) {
	if _, err := s.firms.GetByID(ctx, req.FirmID); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}

	currency := req.Currency
	if currency == "" {
		currency = "CAD"
	}

	account := &domain.TrustAccount{
		ID:             uuid.New(),
		FirmID:         req.FirmID,
		AccountName:    req.AccountName,
		Currency:       currency,
		CurrentBalance: decimal.Zero,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return account, nil
}

type RecordTransactionRequest struct {
	FirmID           uuid.UUID
	AccountID        uuid.UUID
	ClientID         uuid.UUID
	MatterID         *uuid.UUID
	Type             domain.TransactionType
	Amount           decimal.Decimal
	Date             time.Time
	ActorID          uuid.UUID
	Description      *string
	RelatedInvoiceID *uuid.UUID
}

// RecordTransaction appends one ledger entry. The balance check, the
// insert and the denormalized account balance update run in a single
// transaction with the account row locked, so two concurrent debits
// against the same client cannot both pass the check.
func (s *Service) RecordTransaction(ctx context.Context, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecordTransaction: begin tx: %w", err)
	}
	defer tx.Rollback()

	txn, err := s.RecordTransactionTx(ctx, tx, req)
	if err != nil {
		return nil, fmt.Errorf("RecordTransaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecordTransaction: commit: %w", err)
	}

	s.publishRecorded(ctx, txn)
	return txn, nil
}

// RecordTransactionTx runs the full validate-lock-check-write sequence
// inside the caller's transaction. The billing coordinator uses it for
// trust-to-fees transfers so the ledger write and the invoice update
// share one unit of work; the caller owns commit, rollback and fact
// publication.
func (s *Service) RecordTransactionTx(ctx context.Context, tx *sql.Tx, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("RecordTransactionTx: type %q: %w", req.Type, domain.ErrInvalidState)
	}
	if !money.IsPositive(req.Amount) {
		return nil, fmt.Errorf("RecordTransactionTx: %w", domain.ErrInvalidAmount)
	}

	if err := s.verifyOwnership(ctx, req.FirmID, req.ClientID, req.MatterID); err != nil {
		return nil, fmt.Errorf("RecordTransactionTx: %w", err)
	}

	return s.appendEntry(ctx, tx, req)
}

func (s *Service) appendEntry(ctx context.Context, tx *sql.Tx, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("appendEntry: %w", err)
	}
	if account.FirmID != req.FirmID {
		return nil, fmt.Errorf("appendEntry: account firm mismatch: %w", domain.ErrNotFound)
	}

	balance, err := s.txns.ClientBalanceTx(ctx, tx, req.FirmID, req.AccountID, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("appendEntry: %w", err)
	}

	amount := money.RoundCents(req.Amount)
	if req.Type.IsDebit() && amount.GreaterThan(balance) {
		return nil, fmt.Errorf("appendEntry: %s exceeds client balance %s: %w",
			amount, balance, domain.ErrInsufficientFunds)
	}

	signed := req.Type.SignedAmount(amount)
	now := time.Now().UTC()
	txn := &domain.TrustTransaction{
		ID:               uuid.New(),
		FirmID:           req.FirmID,
		TrustAccountID:   req.AccountID,
		ClientID:         req.ClientID,
		MatterID:         req.MatterID,
		Type:             req.Type,
		Amount:           amount,
		BalanceAfter:     balance.Add(signed),
		RelatedInvoiceID: req.RelatedInvoiceID,
		Description:      req.Description,
		TransactionDate:  req.Date,
		CreatedBy:        req.ActorID,
		CreatedAt:        now,
	}
	if err := s.txns.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("appendEntry: create: %w", err)
	}

	if err := s.accounts.UpdateBalance(ctx, tx, account.ID, account.CurrentBalance.Add(signed)); err != nil {
		return nil, fmt.Errorf("appendEntry: update balance: %w", err)
	}

	return txn, nil
}

func (s *Service) verifyOwnership(ctx context.Context, firmID, clientID uuid.UUID, matterID *uuid.UUID) error {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("verifyOwnership: %w", err)
	}
	if client.FirmID != firmID {
		return fmt.Errorf("verifyOwnership: client firm mismatch: %w", domain.ErrNotFound)
	}

	if matterID == nil {
		return nil
	}
	matter, err := s.matters.GetByID(ctx, *matterID)
	if err != nil {
		return fmt.Errorf("verifyOwnership: %w", err)
	}
	if matter.FirmID != firmID || matter.ClientID != clientID {
		return fmt.Errorf("verifyOwnership: matter mismatch: %w", domain.ErrNotFound)
	}
	return nil
}

func (s *Service) RecordDeposit(ctx context.Context, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	req.Type = domain.TransactionTypeDeposit
	req.RelatedInvoiceID = nil
	return s.RecordTransaction(ctx, req)
}

func (s *Service) RecordInterest(ctx context.Context, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	req.Type = domain.TransactionTypeInterest
	req.RelatedInvoiceID = nil
	return s.RecordTransaction(ctx, req)
}

func (s *Service) RecordBankCharge(ctx context.Context, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	req.Type = domain.TransactionTypeBankCharge
	req.RelatedInvoiceID = nil
	return s.RecordTransaction(ctx, req)
}

// RecordRefund returns client funds out of trust. Same guard as any other
// debit: the refund may not exceed the client's balance.
func (s *Service) RecordRefund(ctx context.Context, req RecordTransactionRequest) (*domain.TrustTransaction, error) {
	req.Type = domain.TransactionTypeRefund
	req.RelatedInvoiceID = nil
	return s.RecordTransaction(ctx, req)
}

func (s *Service) GetClientBalance(ctx context.Context, firmID, accountID, clientID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetClientBalance: %w", err)
	}
	if account.FirmID != firmID {
		return decimal.Zero, fmt.Errorf("GetClientBalance: %w", domain.ErrNotFound)
	}

	balance, err := s.txns.ClientBalance(ctx, firmID, accountID, clientID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetClientBalance: %w", err)
	}
	return balance, nil
}

// GetClientTotalBalance sums the client's trust funds across every
// account of the firm.
func (s *Service) GetClientTotalBalance(ctx context.Context, firmID, clientID uuid.UUID) (decimal.Decimal, error) {
	if err := s.verifyOwnership(ctx, firmID, clientID, nil); err != nil {
		return decimal.Zero, fmt.Errorf("GetClientTotalBalance: %w", err)
	}

	balance, err := s.txns.ClientBalanceAllAccounts(ctx, firmID, clientID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("GetClientTotalBalance: %w", err)
	}
	return balance, nil
}

func (s *Service) ListAccountTransactions(ctx context.Context, firmID, accountID uuid.UUID, limit, offset int) ([]domain.TrustTransaction, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListAccountTransactions: %w", err)
	}
	if account.FirmID != firmID {
		return nil, fmt.Errorf("ListAccountTransactions: %w", domain.ErrNotFound)
	}

	txns, err := s.txns.ListByAccount(ctx, firmID, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ListAccountTransactions: %w", err)
	}
	return txns, nil
}

func (s *Service) ListAccounts(ctx context.Context, firmID uuid.UUID) ([]domain.TrustAccount, error) {
	accounts, err := s.accounts.ListByFirm(ctx, firmID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// ListClientTransactions returns the client's full ledger on one account
// in insertion order, suitable for a client trust statement.
func (s *Service) ListClientTransactions(ctx context.Context, firmID, accountID, clientID uuid.UUID) ([]domain.TrustTransaction, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListClientTransactions: %w", err)
	}
	if account.FirmID != firmID {
		return nil, fmt.Errorf("ListClientTransactions: %w", domain.ErrNotFound)
	}

	txns, err := s.txns.ListByClient(ctx, firmID, accountID, clientID)
	if err != nil {
		return nil, fmt.Errorf("ListClientTransactions: %w", err)
	}
	return txns, nil
}

func (s *Service) publishRecorded(ctx context.Context, txn *domain.TrustTransaction) {
	fact := events.TrustTransactionRecorded{
		Kind:           events.KindTrustTransactionRecorded,
		TransactionID:  txn.ID,
		FirmID:         txn.FirmID,
		TrustAccountID: txn.TrustAccountID,
		ClientID:       txn.ClientID,
		Type:           string(txn.Type),
		Amount:         txn.Amount,
		BalanceAfter:   txn.BalanceAfter,
		OccurredAt:     txn.CreatedAt,
	}
	if err := s.events.Publish(ctx, fact); err != nil {
		logging.FromContext(ctx).Error("publish trust transaction fact", "error", err, "transaction_id", txn.ID)
	}
}
