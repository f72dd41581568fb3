// Package memory is an in-memory ledger store. A single mutex serializes every
// operation, and WithTx snapshots state so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finlense-server/src/ledger"
	"finlense-server/src/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu           sync.Mutex
	users        map[string]models.User
	accounts     map[string]models.Account
	transactions map[string]models.Transaction
	budgets      map[string]models.Budget
}

func NewStore() *Store {
	return &Store{
		users:        make(map[string]models.User),
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		budgets:      make(map[string]models.Budget),
	}
}

// AddUser, AddAccount, AddTransaction and AddBudget seed state directly, bypassing the
// balance bookkeeping. They exist for fixtures.
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) AddAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
}

func (s *Store) AddTransaction(t models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.Status == "" {
		t.Status = models.StatusCompleted
	}
	s.transactions[t.ID] = t
}

func (s *Store) AddBudget(b models.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[b.ID] = b
}

// Transactions returns every entry ordered by date then id.
func (s *Store) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transactions[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListDueRecurring(ctx context.Context, now time.Time, afterID string, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []models.Transaction
	for _, t := range s.transactions {
		if t.ID > afterID && ledger.IsDue(t, now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// ListTransactions returns the owner's entries dated in [from, to).
func (s *Store) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID && !t.Date.Before(from) && t.Date.Before(to) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SumExpenses totals EXPENSE entries on the account dated in [from, to].
func (s *Store) SumExpenses(ctx context.Context, userID, accountID string, from, to time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, t := range s.transactions {
		if t.UserID != userID || t.AccountID != accountID || t.Type != models.Expense {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		total = total.Add(t.Amount)
	}
	return total, nil
}

func (s *Store) ListUsers(ctx context.Context, afterID string, limit int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.User
	for _, u := range s.users {
		if u.ID > afterID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.IsDefault {
			return &a, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (s *Store) ListBudgets(ctx context.Context, afterID string, limit int) ([]models.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Budget
	for _, b := range s.budgets {
		if b.ID > afterID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetBudgetByUser(ctx context.Context, userID string) (*models.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.UserID == userID {
			return &b, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (s *Store) UpsertBudget(ctx context.Context, userID string, amount decimal.Decimal) (*models.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, b := range s.budgets {
		if b.UserID == userID {
			b.Amount = amount
			b.UpdatedAt = now
			s.budgets[id] = b
			return &b, nil
		}
	}
	b := models.Budget{ID: uuid.New().String(), UserID: userID, Amount: amount, CreatedAt: now, UpdatedAt: now}
	s.budgets[b.ID] = b
	return &b, nil
}

func (s *Store) ClaimBudgetAlert(ctx context.Context, budgetID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok {
		return false, ledger.ErrNotFound
	}
	if b.LastAlertSent != nil {
		last := b.LastAlertSent.In(at.Location())
		if last.Year() == at.Year() && last.Month() == at.Month() {
			return false, nil
		}
	}
	b.LastAlertSent = &at
	s.budgets[budgetID] = b
	return true, nil
}

func (s *Store) ReleaseBudgetAlert(ctx context.Context, budgetID string, claimed time.Time, previous *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok {
		return ledger.ErrNotFound
	}
	if b.LastAlertSent == nil || !b.LastAlertSent.Equal(claimed) {
		return nil
	}
	b.LastAlertSent = previous
	s.budgets[budgetID] = b
	return nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts := cloneMap(s.accounts)
	transactions := cloneMap(s.transactions)
	if err := fn(&memTx{s: s}); err != nil {
		s.accounts = accounts
		s.transactions = transactions
		return err
	}
	return nil
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx runs with s.mu held by WithTx.
type memTx struct {
	s *Store
}

func (tx *memTx) GetTransactionForUpdate(ctx context.Context, id, userID string) (*models.Transaction, error) {
	t, ok := tx.s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, ledger.ErrNotFound
	}
	return &t, nil
}

func (tx *memTx) GetTransactionsByIDs(ctx context.Context, userID string, ids []string) ([]models.Transaction, error) {
	var out []models.Transaction
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		t, ok := tx.s.transactions[id]
		if !ok || t.UserID != userID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, t)
	}
	return out, nil
}

func (tx *memTx) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	if _, exists := tx.s.transactions[t.ID]; exists {
		return fmt.Errorf("transaction %s already exists", t.ID)
	}
	if _, ok := tx.s.accounts[t.AccountID]; !ok {
		return fmt.Errorf("account %s: %w", t.AccountID, ledger.ErrNotFound)
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	tx.s.transactions[t.ID] = *t
	return nil
}

func (tx *memTx) DeleteTransactions(ctx context.Context, userID string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if t, ok := tx.s.transactions[id]; ok && t.UserID == userID {
			delete(tx.s.transactions, id)
			deleted++
		}
	}
	return deleted, nil
}

func (tx *memTx) AdvanceRecurrence(ctx context.Context, id string, lastProcessed, next time.Time) error {
	t, ok := tx.s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}
	t.LastProcessed = &lastProcessed
	t.NextRecurringDate = &next
	t.UpdatedAt = time.Now()
	tx.s.transactions[id] = t
	return nil
}

func (tx *memTx) GetAccountForUpdate(ctx context.Context, userID, accountID string) (*models.Account, error) {
	a, ok := tx.s.accounts[accountID]
	if !ok || a.UserID != userID {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (tx *memTx) CountAccounts(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, a := range tx.s.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (tx *memTx) InsertAccount(ctx context.Context, a *models.Account) error {
	if _, exists := tx.s.accounts[a.ID]; exists {
		return fmt.Errorf("account %s already exists", a.ID)
	}
	tx.s.accounts[a.ID] = *a
	return nil
}

func (tx *memTx) ClearDefaultAccount(ctx context.Context, userID string) error {
	for id, a := range tx.s.accounts {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
			tx.s.accounts[id] = a
		}
	}
	return nil
}

func (tx *memTx) MarkDefaultAccount(ctx context.Context, userID, accountID string) error {
	a, ok := tx.s.accounts[accountID]
	if !ok || a.UserID != userID {
		return ledger.ErrNotFound
	}
	a.IsDefault = true
	tx.s.accounts[accountID] = a
	return nil
}

func (tx *memTx) IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) error {
	a, ok := tx.s.accounts[accountID]
	if !ok {
		return fmt.Errorf("account %s: %w", accountID, ledger.ErrNotFound)
	}
	a.Balance = a.Balance.Add(delta)
	a.UpdatedAt = time.Now()
	tx.s.accounts[accountID] = a
	return nil
}

// Compile-time check: ensure Store implements the ledger store.
var _ ledger.Store = (*Store)(nil)
