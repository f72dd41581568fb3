package db

import (
	"context"
	"log"
	"sync"
	"time"

	"finlense-server/src/models"

	"github.com/dgraph-io/ristretto"
)

const defaultAccountTTL = 10 * time.Minute

// Cache keys are also tracked in a registry so every cached account can be dropped at once.
var (
	Cache            *ristretto.Cache
	AccountCacheKeys = struct {
		sync.RWMutex
		m map[string]struct{}
	}{m: make(map[string]struct{})}
)

func InitCache() {
	var err error
	Cache, err = ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of
		MaxCost:     10000,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		log.Fatalf("failed to initialize cache: %v", err)
	}
}

func DefaultAccountKey(userID string) string {
	return "default-account:" + userID
}

// Account Cache Functions
func SetAccountCache(cacheKey string, value interface{}) {
	if Cache == nil {
		return
	}
	AccountCacheKeys.Lock()
	AccountCacheKeys.m[cacheKey] = struct{}{}
	AccountCacheKeys.Unlock()
	Cache.SetWithTTL(cacheKey, value, 1, defaultAccountTTL)
}

func GetAccountCache(cacheKey string) (interface{}, bool) {
	if Cache == nil {
		return nil, false
	}
	return Cache.Get(cacheKey)
}

func DelAccountCache(cacheKey string) {
	if Cache == nil {
		return
	}
	AccountCacheKeys.Lock()
	delete(AccountCacheKeys.m, cacheKey)
	AccountCacheKeys.Unlock()
	Cache.Del(cacheKey)
}

func ClearAllAccountCaches() {
	if Cache == nil {
		return
	}
	AccountCacheKeys.Lock()
	for key := range AccountCacheKeys.m {
		Cache.Del(key)
	}
	AccountCacheKeys.m = make(map[string]struct{})
	AccountCacheKeys.Unlock()
}

// InvalidateDefaultAccount must be called whenever the owner's default account changes.
func InvalidateDefaultAccount(userID string) {
	DelAccountCache(DefaultAccountKey(userID))
}

type DefaultAccountSource interface {
	GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error)
}

// CachedDefaultAccounts resolves default accounts through the shared cache. Balances in
// the cached copy go stale; callers only rely on the account id.
type CachedDefaultAccounts struct {
	source DefaultAccountSource
}

func NewCachedDefaultAccounts(source DefaultAccountSource) *CachedDefaultAccounts {
	return &CachedDefaultAccounts{source: source}
}

func (c *CachedDefaultAccounts) GetDefaultAccount(ctx context.Context, userID string) (*models.Account, error) {
	key := DefaultAccountKey(userID)
	if cached, ok := GetAccountCache(key); ok {
		if account, ok := cached.(models.Account); ok {
			return &account, nil
		}
	}

	account, err := c.source.GetDefaultAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	SetAccountCache(key, *account)
	return account, nil
}
