package billing

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/events"
	"github.com/mfortin/barbooks/internal/money"
	"github.com/mfortin/barbooks/internal/tax"
)

type ManualLine struct {
	LineType    domain.LineType
	Description string
	Quantity    decimal.Decimal
	Rate        decimal.Decimal
	Taxable     *bool
}

type CreateInvoiceRequest struct {
	FirmID        uuid.UUID
	ClientID      uuid.UUID
	TimeEntryIDs  []uuid.UUID
	ExpenseIDs    []uuid.UUID
	ManualLines   []ManualLine
	InvoiceNumber string
	InvoiceDate   *time.Time
	DueDays       int
	Province      string
	Notes         *string
}

// CreateInvoice builds an invoice from unbilled time entries, expenses and
// manual lines, computes province tax, and marks every consumed entry as
// billed. Persistence and billed-flag marking share one transaction; a
// failure anywhere leaves no entry consumed and no invoice behind. Invoice
// numbering serializes on the firm row lock, with the unique index on
// (firm_id, invoice_number) as backstop.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*domain.Invoice, error) {
	if len(req.TimeEntryIDs) == 0 && len(req.ExpenseIDs) == 0 && len(req.ManualLines) == 0 {
		return nil, fmt.Errorf("CreateInvoice: no line sources: %w", domain.ErrInvalidState)
	}

	client, err := s.clients.GetByID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	if client.FirmID != req.FirmID {
		return nil, fmt.Errorf("CreateInvoice: client firm mismatch: %w", domain.ErrNotFound)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: begin tx: %w", err)
	}
	defer tx.Rollback()

	firm, err := s.firms.GetForUpdate(ctx, tx, req.FirmID)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}

	province := resolveProvince(req.Province, firm.Province, s.defaults.Province)
	rates, err := tax.RatesFor(province)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}

	invoiceDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.InvoiceDate != nil {
		invoiceDate = *req.InvoiceDate
	}
	dueDays := req.DueDays
	if dueDays <= 0 {
		dueDays = s.defaults.DueDays
	}

	number := req.InvoiceNumber
	if number == "" {
		number, err = s.nextInvoiceNumber(ctx, tx, req.FirmID, invoiceDate.Year())
		if err != nil {
			return nil, fmt.Errorf("CreateInvoice: %w", err)
		}
	}

	invoiceID := uuid.New()
	items, timeIDs, expenseIDs, err := s.buildLineItems(ctx, tx, invoiceID, req)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}

	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:            invoiceID,
		FirmID:        req.FirmID,
		ClientID:      req.ClientID,
		InvoiceNumber: number,
		InvoiceDate:   invoiceDate,
		DueDate:       invoiceDate.AddDate(0, 0, dueDays),
		Status:        domain.InvoiceStatusDraft,
		Province:      province,
		AmountPaid:    decimal.Zero,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
		LineItems:     items,
	}
	applyTotals(inv, rates)

	if err := s.invoices.Create(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	if err := s.lines.CreateBatch(ctx, tx, items); err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	if err := s.timeEnts.MarkBilled(ctx, tx, timeIDs, invoiceID); err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	if err := s.expenses.MarkBilled(ctx, tx, expenseIDs, invoiceID); err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateInvoice: commit: %w", err)
	}

	s.publish(ctx, events.InvoiceCreated{
		Kind:          events.KindInvoiceCreated,
		InvoiceID:     inv.ID,
		FirmID:        inv.FirmID,
		ClientID:      inv.ClientID,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         inv.Total,
		OccurredAt:    now,
	})
	return inv, nil
}

func (s *Service) buildLineItems(ctx context.Context, tx *sql.Tx, invoiceID uuid.UUID, req CreateInvoiceRequest) ([]domain.InvoiceLineItem, []uuid.UUID, []uuid.UUID, error) {
	var items []domain.InvoiceLineItem
	sortOrder := 0

	var timeIDs []uuid.UUID
	if len(req.TimeEntryIDs) > 0 {
		entries, err := s.timeEnts.GetForUpdate(ctx, tx, req.FirmID, req.TimeEntryIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("buildLineItems: %w", err)
		}
		for _, e := range entries {
			if err := checkBillableSource(e.ClientID, req.ClientID, e.Billable, e.Billed); err != nil {
				return nil, nil, nil, fmt.Errorf("buildLineItems: time entry %s: %w", e.ID, err)
			}
			id := e.ID
			items = append(items, domain.InvoiceLineItem{
				ID:          uuid.New(),
				InvoiceID:   invoiceID,
				LineType:    domain.LineTypeTime,
				Description: fmt.Sprintf("%s: %s", e.StaffName, e.Description),
				Quantity:    e.Hours,
				Rate:        e.HourlyRate,
				Amount:      money.RoundCents(e.Hours.Mul(e.HourlyRate)),
				Taxable:     true,
				TimeEntryID: &id,
				SortOrder:   sortOrder,
			})
			sortOrder++
			timeIDs = append(timeIDs, e.ID)
		}
	}

	var expenseIDs []uuid.UUID
	if len(req.ExpenseIDs) > 0 {
		expenses, err := s.expenses.GetForUpdate(ctx, tx, req.FirmID, req.ExpenseIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("buildLineItems: %w", err)
		}
		for _, e := range expenses {
			if err := checkBillableSource(e.ClientID, req.ClientID, e.Billable, e.Billed); err != nil {
				return nil, nil, nil, fmt.Errorf("buildLineItems: expense %s: %w", e.ID, err)
			}
			id := e.ID
			items = append(items, domain.InvoiceLineItem{
				ID:          uuid.New(),
				InvoiceID:   invoiceID,
				LineType:    domain.LineTypeExpense,
				Description: e.Description,
				Quantity:    decimal.NewFromInt(1),
				Rate:        e.Amount,
				Amount:      money.RoundCents(e.Amount),
				Taxable:     e.TaxTreatment == domain.TaxTreatmentTaxable,
				ExpenseID:   &id,
				SortOrder:   sortOrder,
			})
			sortOrder++
			expenseIDs = append(expenseIDs, e.ID)
		}
	}

	// Manual lines follow the auto-generated ones, in caller order.
	for _, m := range req.ManualLines {
		lineType := m.LineType
		if lineType == "" {
			lineType = domain.LineTypeCustom
		}
		if !lineType.IsValid() {
			return nil, nil, nil, fmt.Errorf("buildLineItems: line type %q: %w", m.LineType, domain.ErrInvalidState)
		}
		taxable := true
		if m.Taxable != nil {
			taxable = *m.Taxable
		}
		items = append(items, domain.InvoiceLineItem{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			LineType:    lineType,
			Description: m.Description,
			Quantity:    m.Quantity,
			Rate:        m.Rate,
			Amount:      money.RoundCents(m.Quantity.Mul(m.Rate)),
			Taxable:     taxable,
			SortOrder:   sortOrder,
		})
		sortOrder++
	}

	return items, timeIDs, expenseIDs, nil
}

func checkBillableSource(entryClientID, invoiceClientID uuid.UUID, billable, billed bool) error {
	if entryClientID != invoiceClientID {
		return fmt.Errorf("belongs to a different client: %w", domain.ErrInvalidState)
	}
	if !billable {
		return domain.ErrEntryNotBillable
	}
	if billed {
		return domain.ErrEntryAlreadyBilled
	}
	return nil
}

// applyTotals recomputes subtotal, taxes and derived fields from the line
// items. Recomputing on an unchanged item set is idempotent.
func applyTotals(inv *domain.Invoice, rates tax.Rates) {
	subtotal := decimal.Zero
	taxable := decimal.Zero
	for _, item := range inv.LineItems {
		subtotal = subtotal.Add(item.Amount)
		if item.Taxable {
			taxable = taxable.Add(item.Amount)
		}
	}

	b := tax.Compute(taxable, rates)
	inv.Subtotal = money.RoundCents(subtotal)
	inv.TaxGST = b.GST
	inv.TaxPST = b.PST
	inv.TaxHST = b.HST
	inv.TaxQST = b.QST
	inv.Total = money.RoundCents(inv.Subtotal.Add(b.Total()))
	inv.BalanceDue = money.RoundCents(inv.Total.Sub(inv.AmountPaid))
}

// RecalculateTotals re-runs the tax computation over the invoice's stored
// line items. Paid invoices are immutable.
func (s *Service) RecalculateTotals(ctx context.Context, firmID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("RecalculateTotals: begin tx: %w", err)
	}
	defer tx.Rollback()

	inv, err := s.invoices.GetForUpdate(ctx, tx, firmID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("RecalculateTotals: %w", err)
	}
	if inv.Status == domain.InvoiceStatusPaid {
		return nil, fmt.Errorf("RecalculateTotals: %w", domain.ErrInvoiceAlreadyPaid)
	}

	rates, err := tax.RatesFor(inv.Province)
	if err != nil {
		return nil, fmt.Errorf("RecalculateTotals: %w", err)
	}

	items, err := s.lines.GetByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("RecalculateTotals: %w", err)
	}
	inv.LineItems = items
	applyTotals(inv, rates)

	now := time.Now().UTC()
	if err := s.invoices.UpdateTotals(ctx, tx, inv, now); err != nil {
		return nil, fmt.Errorf("RecalculateTotals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("RecalculateTotals: commit: %w", err)
	}

	inv.UpdatedAt = now
	return inv, nil
}

// GenerateInvoiceNumber previews the next number for the firm and current
// year without reserving it.
func (s *Service) GenerateInvoiceNumber(ctx context.Context, firmID uuid.UUID) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("GenerateInvoiceNumber: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.firms.GetForUpdate(ctx, tx, firmID); err != nil {
		return "", fmt.Errorf("GenerateInvoiceNumber: %w", err)
	}

	number, err := s.nextInvoiceNumber(ctx, tx, firmID, time.Now().UTC().Year())
	if err != nil {
		return "", fmt.Errorf("GenerateInvoiceNumber: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("GenerateInvoiceNumber: commit: %w", err)
	}
	return number, nil
}

// nextInvoiceNumber scans the firm's numbers for the year, takes the max
// numeric suffix and increments. Callers must hold the firm row lock.
func (s *Service) nextInvoiceNumber(ctx context.Context, tx *sql.Tx, firmID uuid.UUID, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)

	numbers, err := s.invoices.NumbersWithPrefix(ctx, tx, firmID, prefix)
	if err != nil {
		return "", fmt.Errorf("nextInvoiceNumber: %w", err)
	}

	max := 0
	for _, n := range numbers {
		suffix := strings.TrimPrefix(n, prefix)
		v, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if v > max {
			max = v
		}
	}

	return fmt.Sprintf("%s%04d", prefix, max+1), nil
}

func resolveProvince(override, firmProvince, fallback string) string {
	if override != "" {
		return override
	}
	if firmProvince != "" {
		return firmProvince
	}
	return fallback
}
