package handler

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortin/barbooks/internal/domain"
	"github.com/mfortin/barbooks/internal/service/trust"
)

type lineItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineType    string          `json:"line_type"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
	Taxable     bool            `json:"taxable"`
	SortOrder   int             `json:"sort_order"`
}

type invoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	ClientID      uuid.UUID          `json:"client_id"`
	InvoiceNumber string             `json:"invoice_number"`
	InvoiceDate   string             `json:"invoice_date"`
	DueDate       string             `json:"due_date"`
	Status        string             `json:"status"`
	Province      string             `json:"province"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	TaxGST        decimal.Decimal    `json:"tax_gst"`
	TaxPST        decimal.Decimal    `json:"tax_pst"`
	TaxHST        decimal.Decimal    `json:"tax_hst"`
	TaxQST        decimal.Decimal    `json:"tax_qst"`
	Total         decimal.Decimal    `json:"total"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	BalanceDue    decimal.Decimal    `json:"balance_due"`
	Notes         *string            `json:"notes,omitempty"`
	LineItems     []lineItemResponse `json:"line_items"`
}

func toInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	items := make([]lineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, lineItemResponse{
			ID:          item.ID,
			LineType:    string(item.LineType),
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      item.Amount,
			Taxable:     item.Taxable,
			SortOrder:   item.SortOrder,
		})
	}

	return invoiceResponse{
		ID:            inv.ID,
		ClientID:      inv.ClientID,
		InvoiceNumber: inv.InvoiceNumber,
		InvoiceDate:   inv.InvoiceDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		Status:        string(inv.Status),
		Province:      inv.Province,
		Subtotal:      inv.Subtotal,
		TaxGST:        inv.TaxGST,
		TaxPST:        inv.TaxPST,
		TaxHST:        inv.TaxHST,
		TaxQST:        inv.TaxQST,
		Total:         inv.Total,
		AmountPaid:    inv.AmountPaid,
		BalanceDue:    inv.BalanceDue,
		Notes:         inv.Notes,
		LineItems:     items,
	}
}

type paymentResponse struct {
	ID                 uuid.UUID       `json:"id"`
	InvoiceID          uuid.UUID       `json:"invoice_id"`
	PaymentDate        string          `json:"payment_date"`
	Amount             decimal.Decimal `json:"amount"`
	Method             string          `json:"method"`
	Source             string          `json:"source"`
	TrustTransactionID *uuid.UUID      `json:"trust_transaction_id,omitempty"`
}

func toPaymentResponse(p *domain.Payment) paymentResponse {
	return paymentResponse{
		ID:                 p.ID,
		InvoiceID:          p.InvoiceID,
		PaymentDate:        p.PaymentDate.Format(dateLayout),
		Amount:             p.Amount,
		Method:             p.Method,
		Source:             string(p.Source),
		TrustTransactionID: p.TrustTransactionID,
	}
}

type trustAccountResponse struct {
	ID             uuid.UUID       `json:"id"`
	AccountName    string          `json:"account_name"`
	Currency       string          `json:"currency"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
}

func toTrustAccountResponse(a *domain.TrustAccount) trustAccountResponse {
	return trustAccountResponse{
		ID:             a.ID,
		AccountName:    a.AccountName,
		Currency:       a.Currency,
		CurrentBalance: a.CurrentBalance,
	}
}

type trustTransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	TrustAccountID  uuid.UUID       `json:"trust_account_id"`
	ClientID        uuid.UUID       `json:"client_id"`
	MatterID        *uuid.UUID      `json:"matter_id,omitempty"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	RelatedInvoice  *uuid.UUID      `json:"related_invoice_id,omitempty"`
	Description     *string         `json:"description,omitempty"`
	TransactionDate string          `json:"transaction_date"`
}

func toTrustTransactionResponse(t *domain.TrustTransaction) trustTransactionResponse {
	return trustTransactionResponse{
		ID:              t.ID,
		TrustAccountID:  t.TrustAccountID,
		ClientID:        t.ClientID,
		MatterID:        t.MatterID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		BalanceAfter:    t.BalanceAfter,
		RelatedInvoice:  t.RelatedInvoiceID,
		Description:     t.Description,
		TransactionDate: t.TransactionDate.Format(dateLayout),
	}
}

type clientBalanceResponse struct {
	ClientID uuid.UUID       `json:"client_id"`
	Balance  decimal.Decimal `json:"balance"`
}

type reconciliationResponse struct {
	AccountID          uuid.UUID               `json:"account_id"`
	BankBalance        decimal.Decimal         `json:"bank_balance"`
	LedgerBalance      decimal.Decimal         `json:"ledger_balance"`
	ClientTotalBalance decimal.Decimal         `json:"client_total_balance"`
	IsBalanced         bool                    `json:"is_balanced"`
	Difference         decimal.Decimal         `json:"difference"`
	ClientBalances     []clientBalanceResponse `json:"client_balances"`
	PreparedAt         string                  `json:"prepared_at"`
}

func toReconciliationResponse(r *trust.Reconciliation) reconciliationResponse {
	balances := make([]clientBalanceResponse, 0, len(r.ClientBalances))
	for _, b := range r.ClientBalances {
		balances = append(balances, clientBalanceResponse{ClientID: b.ClientID, Balance: b.Balance})
	}
	return reconciliationResponse{
		AccountID:          r.AccountID,
		BankBalance:        r.BankBalance,
		LedgerBalance:      r.LedgerBalance,
		ClientTotalBalance: r.ClientTotalBalance,
		IsBalanced:         r.IsBalanced,
		Difference:         r.Difference,
		ClientBalances:     balances,
		PreparedAt:         r.PreparedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
