package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finlense-server/src/models"
	"finlense-server/src/recurrence"

	"github.com/google/uuid"
)

const recurringSuffix = " (Recurring)"

type OccurrenceRequest struct {
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`
}

func (r OccurrenceRequest) Validate() error {
	if r.TransactionID == "" || r.UserID == "" {
		return fmt.Errorf("%w: transaction id and user id are required", ErrInvalidRequest)
	}
	return nil
}

type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeProcessed
)

func (o Outcome) String() string {
	if o == OutcomeProcessed {
		return "processed"
	}
	return "skipped"
}

// Processor materializes one occurrence of a recurring template.
type Processor struct {
	store Store
	now   func() time.Time
}

func NewProcessor(store Store, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{store: store, now: now}
}

// ProcessOccurrence inserts the occurrence, moves the account balance and advances the
// template cursor in one store transaction. A template that is missing or no longer due
// when re-read under lock is skipped without error.
func (p *Processor) ProcessOccurrence(ctx context.Context, req OccurrenceRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return OutcomeSkipped, err
	}

	now := p.now()
	outcome := OutcomeSkipped
	err := p.store.WithTx(ctx, func(tx Tx) error {
		tmpl, err := tx.GetTransactionForUpdate(ctx, req.TransactionID, req.UserID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load template %s: %w", req.TransactionID, err)
		}
		if !IsDue(*tmpl, now) {
			return nil
		}

		next, err := recurrence.NextDate(now, tmpl.RecurringInterval)
		if err != nil {
			return err
		}

		occurrence := &models.Transaction{
			ID:          uuid.New().String(),
			UserID:      tmpl.UserID,
			AccountID:   tmpl.AccountID,
			Type:        tmpl.Type,
			Amount:      tmpl.Amount,
			Description: tmpl.Description + recurringSuffix,
			Category:    tmpl.Category,
			Date:        now,
			Status:      models.StatusCompleted,
		}
		if err := tx.InsertTransaction(ctx, occurrence); err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		if err := tx.IncrementBalance(ctx, tmpl.AccountID, tmpl.SignedAmount()); err != nil {
			return fmt.Errorf("adjust balance of account %s: %w", tmpl.AccountID, err)
		}
		if err := tx.AdvanceRecurrence(ctx, tmpl.ID, now, next); err != nil {
			return fmt.Errorf("advance template %s: %w", tmpl.ID, err)
		}
		outcome = OutcomeProcessed
		return nil
	})
	if err != nil {
		return OutcomeSkipped, err
	}
	return outcome, nil
}
