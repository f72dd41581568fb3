package db

import (
	"context"
	"errors"
	"testing"

	"finlense-server/src/models"
)

type countingSource struct {
	calls   int
	account *models.Account
}

func (s *countingSource) GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error) {
	s.calls++
	if s.account == nil {
		return nil, errors.New("no default account")
	}
	a := *s.account
	return &a, nil
}

func TestCachedDefaultAccounts(t *testing.T) {
	InitCache()
	t.Cleanup(func() {
		ClearAllAccountCaches()
		Cache.Close()
		Cache = nil
	})

	source := &countingSource{account: &models.Account{ID: "acc-1", UserID: "user-1", IsDefault: true}}
	accounts := NewCachedDefaultAccounts(source)
	ctx := context.Background()

	got, err := accounts.GetDefaultAccount(ctx, "user-1")
	if err != nil || got.ID != "acc-1" {
		t.Fatalf("GetDefaultAccount = %+v, %v", got, err)
	}
	Cache.Wait()

	if _, err := accounts.GetDefaultAccount(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	if source.calls != 1 {
		t.Fatalf("source called %d times, want 1", source.calls)
	}

	source.account = &models.Account{ID: "acc-2", UserID: "user-1", IsDefault: true}
	InvalidateDefaultAccount("user-1")
	got, err = accounts.GetDefaultAccount(ctx, "user-1")
	if err != nil || got.ID != "acc-2" {
		t.Fatalf("after invalidation got %+v, %v", got, err)
	}
	if source.calls != 2 {
		t.Fatalf("source called %d times, want 2", source.calls)
	}
}

func TestCachedDefaultAccountsWithoutCache(t *testing.T) {
	source := &countingSource{account: &models.Account{ID: "acc-1"}}
	accounts := NewCachedDefaultAccounts(source)

	for i := 0; i < 3; i++ {
		if _, err := accounts.GetDefaultAccount(context.Background(), "user-1"); err != nil {
			t.Fatal(err)
		}
	}
	if source.calls != 3 {
		t.Fatalf("source called %d times, want 3", source.calls)
	}

	source.account = nil
	if _, err := accounts.GetDefaultAccount(context.Background(), "user-1"); err == nil {
		t.Fatal("expected the source error to pass through")
	}
}
