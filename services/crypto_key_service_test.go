package services

import (
	"errors"
	"testing"
	"time"

	"github.com/mintbay/go-mintbay-server/repository"
	"github.com/mintbay/go-mintbay-server/types"
	"github.com/stretchr/testify/assert"
)

func TestResolveKeysEnvOnly(t *testing.T) {
	keys := resolveKeys(nil, "ZW52LWtleQ==")
	assert.Len(t, keys, 1)
	assert.Equal(t, 0, keys[0].Version)
	assert.Equal(t, types.KeyStatusActive, keys[0].Status)
}

func TestResolveKeysStoreTakesPrecedence(t *testing.T) {
	store := []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusArchived},
		{Version: 2, Material: "djI=", Status: types.KeyStatusActive},
	}
	keys := resolveKeys(store, "ZW52LWtleQ==")
	assert.Len(t, keys, 3)
	// version descending, env key spliced in as archived version 0
	assert.Equal(t, 2, keys[0].Version)
	assert.Equal(t, 1, keys[1].Version)
	assert.Equal(t, 0, keys[2].Version)
	assert.Equal(t, types.KeyStatusArchived, keys[2].Status)
}

func TestResolveKeysStoreOwnsVersionZero(t *testing.T) {
	store := []types.CryptoKey{
		{Version: 0, Material: "c3RvcmUtdjA=", Status: types.KeyStatusActive},
	}
	keys := resolveKeys(store, "ZW52LWtleQ==")
	assert.Len(t, keys, 1)
	assert.Equal(t, "c3RvcmUtdjA=", keys[0].Material)
}

func TestActiveKeyFlagged(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusArchived},
		{Version: 2, Material: "djI=", Status: types.KeyStatusActive},
	})

	ks := NewCryptoKeyService(selector, "")
	key, err := ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, key.Version)
}

func TestActiveKeyHighestVersionWhenNoneFlagged(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 3, Material: "djM=", Status: types.KeyStatusArchived},
		{Version: 7, Material: "djc=", Status: types.KeyStatusArchived},
	})

	ks := NewCryptoKeyService(selector, "")
	key, err := ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 7, key.Version)
}

func TestKeyByVersionExactMatchOnly(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusActive},
	})

	ks := NewCryptoKeyService(selector, "")
	key, err := ks.KeyByVersion(1)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, key.Version)

	_, err = ks.KeyByVersion(5)
	assert.True(t, errors.Is(err, types.ErrKeyVersionNotFound))
}

func TestEnvFallbackWhenStoreEmpty(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{})

	ks := NewCryptoKeyService(selector, "ZW52LWtleQ==")
	key, err := ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 0, key.Version)
	assert.Equal(t, types.KeyStatusActive, key.Status)
}

func TestKeySourceUnavailable(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindError(repository.CryptoKeys)

	ks := NewCryptoKeyService(selector, "")
	_, err := ks.ListKeys()
	assert.True(t, errors.Is(err, types.ErrKeySourceUnavailable))

	_, err = ks.ActiveKey()
	assert.Error(t, err)
}

func TestStaleCacheServedOnRefreshFailure(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusActive},
	})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ks := NewCryptoKeyService(selector, "")
	ks.SetClock(func() time.Time { return now })

	key, err := ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, key.Version)

	// store goes down, cache expires: the stale set keeps serving
	registerFindError(repository.CryptoKeys)
	now = now.Add(keyCacheTTL + time.Minute)

	key, err = ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, key.Version)
}

func TestCronRefreshWarmsCacheForReaders(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusActive},
	})

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ks := NewCryptoKeyService(selector, "")
	ks.SetClock(func() time.Time { return now })

	key, err := ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, key.Version)

	// rotation lands in the store, cache expires, the cron refresh fires
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusArchived},
		{Version: 2, Material: "djI=", Status: types.KeyStatusActive},
	})
	now = now.Add(keyCacheTTL + time.Minute)
	if _, rErr := ks.Refresh(); rErr != nil {
		t.Fatal(rErr)
	}

	// readers of the same instance see the rotation from the warmed cache,
	// without touching the store themselves
	registerFindError(repository.CryptoKeys)
	key, err = ks.ActiveKey()
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, key.Version)
}

func TestInvalidateForcesRefetch(t *testing.T) {
	selector := newMockSelector(t, repository.CryptoKeys)
	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusActive},
	})

	ks := NewCryptoKeyService(selector, "")
	_, err := ks.ListKeys()
	if err != nil {
		t.Fatal(err)
	}

	registerFindDocs(repository.CryptoKeys, []types.CryptoKey{
		{Version: 1, Material: "djE=", Status: types.KeyStatusArchived},
		{Version: 2, Material: "djI=", Status: types.KeyStatusActive},
	})
	ks.Invalidate()

	key, aErr := ks.ActiveKey()
	if aErr != nil {
		t.Fatal(aErr)
	}
	assert.Equal(t, 2, key.Version)
}
