package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/log/level"
	"github.com/mintbay/go-mintbay-server/global"
	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
)

const keyCacheTTL = 5 * time.Minute

// CryptoKeyService resolves versioned encryption keys for the secret codec.
// The key set lives in CouchDB and is cached in memory for keyCacheTTL; an
// environment master key acts as the version 0 fallback. The service never
// writes keys, rotation happens through the keyctl CLI.
type CryptoKeyService struct {
	keyRepo repository.Repository
	envKey  string

	mu       sync.RWMutex
	cached   []types.CryptoKey // version descending
	cachedAt time.Time

	refreshMu sync.Mutex
	now       func() time.Time
}

func NewCryptoKeyService(dbSelector repository.DBSelector, envKey string) *CryptoKeyService {
	keyRepo, err := dbSelector.ChooseDB(repository.CryptoKeys)
	if err != nil {
		panic(err)
	}
	return &CryptoKeyService{
		keyRepo: keyRepo,
		envKey:  envKey,
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests only)
func (ks *CryptoKeyService) SetClock(now func() time.Time) {
	ks.now = now
}

// resolveKeys merges store-provisioned keys with the environment master key.
// The env key is spliced in as version 0 only when the store doesn't already
// hold a version 0, and it is active only when the store set is otherwise
// empty, so a provisioned key set always takes precedence. Pure function.
func resolveKeys(storeKeys []types.CryptoKey, envKey string) []types.CryptoKey {
	keys := make([]types.CryptoKey, len(storeKeys))
	copy(keys, storeKeys)

	if envKey != "" {
		hasVersionZero := false
		for _, k := range keys {
			if k.Version == 0 {
				hasVersionZero = true
				break
			}
		}
		if !hasVersionZero {
			status := types.KeyStatusArchived
			if len(keys) == 0 {
				status = types.KeyStatusActive
			}
			keys = append(keys, types.CryptoKey{
				Version:  0,
				Material: envKey,
				Status:   status,
			})
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Version > keys[j].Version })
	return keys
}

// ListKeys returns the resolved key set, version descending
func (ks *CryptoKeyService) ListKeys() ([]types.CryptoKey, error) {
	ks.mu.RLock()
	if ks.cached != nil && ks.now().Sub(ks.cachedAt) < keyCacheTTL {
		keys := ks.cached
		ks.mu.RUnlock()
		return keys, nil
	}
	ks.mu.RUnlock()

	return ks.Refresh()
}

// ActiveKey returns the key used for new encryptions: the one flagged active,
// or the highest version if none is flagged
func (ks *CryptoKeyService) ActiveKey() (*types.CryptoKey, error) {
	keys, err := ks.ListKeys()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, types.ErrNoActiveKey
	}
	for i := range keys {
		if keys[i].Status == types.KeyStatusActive {
			return &keys[i], nil
		}
	}
	// defensive state: no key flagged, highest version wins
	return &keys[0], nil
}

// KeyByVersion returns the exact key version. It never falls back to another
// version, since that would silently corrupt decryption.
func (ks *CryptoKeyService) KeyByVersion(version int) (*types.CryptoKey, error) {
	keys, err := ks.ListKeys()
	if err != nil {
		return nil, err
	}
	for i := range keys {
		if keys[i].Version == version {
			return &keys[i], nil
		}
	}
	return nil, fmt.Errorf("%w: version %d", types.ErrKeyVersionNotFound, version)
}

// Refresh refetches the key set from the store and swaps the cache. On fetch
// failure the stale cache is served if present, then the env key, then the
// failure propagates. Readers of the still-valid cache are never blocked by a
// refresh in progress.
func (ks *CryptoKeyService) Refresh() ([]types.CryptoKey, error) {
	ks.refreshMu.Lock()
	defer ks.refreshMu.Unlock()

	// another refresh may have landed while waiting
	ks.mu.RLock()
	if ks.cached != nil && ks.now().Sub(ks.cachedAt) < keyCacheTTL {
		keys := ks.cached
		ks.mu.RUnlock()
		return keys, nil
	}
	ks.mu.RUnlock()

	storeKeys, fetchErr := ks.fetchStoreKeys()
	if fetchErr != nil {
		level.Error(global.Logger).Log("msg", "failed to fetch encryption keys", "err", fetchErr.Error())

		ks.mu.RLock()
		stale := ks.cached
		ks.mu.RUnlock()
		if stale != nil {
			return stale, nil
		}
		if ks.envKey != "" {
			return resolveKeys(nil, ks.envKey), nil
		}
		return nil, fmt.Errorf("%w: %s", types.ErrKeySourceUnavailable, fetchErr.Error())
	}

	keys := resolveKeys(storeKeys, ks.envKey)
	if len(keys) == 0 {
		return nil, types.ErrKeySourceUnavailable
	}

	ks.mu.Lock()
	ks.cached = keys
	ks.cachedAt = ks.now()
	ks.mu.Unlock()
	return keys, nil
}

// Invalidate drops the cache so the next read refetches
func (ks *CryptoKeyService) Invalidate() {
	ks.mu.Lock()
	ks.cached = nil
	ks.mu.Unlock()
}

func (ks *CryptoKeyService) fetchStoreKeys() ([]types.CryptoKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	response, err := ks.keyRepo.Find(ctx, map[string]interface{}{
		"selector": map[string]interface{}{
			"version": map[string]interface{}{
				"$gte": 0,
			},
		},
		"limit": 100,
	})
	if err != nil {
		return nil, err
	}
	var keys []types.CryptoKey
	if mErr := repository.MapToFindResults(response, &keys); mErr != nil {
		return nil, mErr
	}
	return keys, nil
}
