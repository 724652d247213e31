package credentials_test

import (
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

// flakyKV wraps a KV and fails every call once broken is set.
type flakyKV struct {
	credentials.KV
	mu     sync.Mutex
	broken bool
}

var errDisk = stderrors.New("disk full")

func (f *flakyKV) breakIt() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = true
}

func (f *flakyKV) isBroken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken
}

func (f *flakyKV) Get(key string) (string, bool, error) {
	if f.isBroken() {
		return "", false, errDisk
	}
	return f.KV.Get(key)
}

func (f *flakyKV) Put(values map[string]string) error {
	if f.isBroken() {
		return errDisk
	}
	return f.KV.Put(values)
}

func (f *flakyKV) Delete(keys ...string) error {
	if f.isBroken() {
		return errDisk
	}
	return f.KV.Delete(keys...)
}

func TestVault_SaveLoadClear(t *testing.T) {
	kv := credentials.NewMemoryKV()
	v := credentials.NewVault(kv)

	_, ok, err := v.Load()
	require.NoError(t, err)
	require.False(t, ok)

	pair := credentials.Pair{AccessToken: "a1", RefreshToken: "r1"}
	require.NoError(t, v.Save(pair))

	got, ok, err := v.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pair, got)

	stored, ok, err := kv.Get(credentials.AccessTokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a1", stored)

	require.NoError(t, v.Clear())
	_, ok, err = v.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVault_ExternalClear(t *testing.T) {
	kv := credentials.NewMemoryKV()
	v := credentials.NewVault(kv)
	require.NoError(t, v.Save(credentials.Pair{AccessToken: "a1", RefreshToken: "r1"}))

	require.NoError(t, kv.Delete(credentials.AccessTokenKey, credentials.RefreshTokenKey))

	_, ok, err := v.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVault_DegradesOnSaveFailure(t *testing.T) {
	kv := &flakyKV{KV: credentials.NewMemoryKV()}
	v := credentials.NewVault(kv)
	kv.breakIt()

	err := v.Save(credentials.Pair{AccessToken: "a1", RefreshToken: "r1"})
	require.True(t, errors.Is(err, errors.ErrNotPersisted))
	require.True(t, errors.Is(err, errDisk))
	require.True(t, v.Degraded())

	got, ok, err := v.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a1", got.AccessToken)

	require.NoError(t, v.Clear())
	_, ok, err = v.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVault_LoadFailureServesMirror(t *testing.T) {
	kv := &flakyKV{KV: credentials.NewMemoryKV()}
	v := credentials.NewVault(kv)
	require.NoError(t, v.Save(credentials.Pair{AccessToken: "a1", RefreshToken: "r1"}))

	kv.breakIt()
	got, ok, err := v.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "r1", got.RefreshToken)
	require.True(t, v.Degraded())
}

func TestVault_ClearFailureStillForgets(t *testing.T) {
	kv := &flakyKV{KV: credentials.NewMemoryKV()}
	v := credentials.NewVault(kv)
	require.NoError(t, v.Save(credentials.Pair{AccessToken: "a1", RefreshToken: "r1"}))

	kv.breakIt()
	err := v.Clear()
	require.True(t, errors.Is(err, errors.ErrNotPersisted))

	_, ok, err := v.Load()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.db")

	kv, err := credentials.OpenSQLite(path)
	require.NoError(t, err)
	v := credentials.NewVault(kv)
	require.NoError(t, v.Save(credentials.Pair{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, v.Save(credentials.Pair{AccessToken: "a2", RefreshToken: "r2"}))
	require.NoError(t, kv.Close())

	kv, err = credentials.OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	got, ok, err := credentials.NewVault(kv).Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, credentials.Pair{AccessToken: "a2", RefreshToken: "r2"}, got)

	require.NoError(t, kv.Delete(credentials.AccessTokenKey))
	_, ok, err = kv.Get(credentials.AccessTokenKey)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":       "ada@example.com",
		"user_id":   "u-1",
		"tenant_id": "t-1",
		"exp":       exp.Unix(),
	})
	signed, err := token.SignedString([]byte("any-key"))
	require.NoError(t, err)

	c, err := credentials.Inspect(signed)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", c.Subject)
	require.Equal(t, "u-1", c.UserID)
	require.Equal(t, "t-1", c.TenantID)
	require.True(t, c.ExpiresAt.Equal(exp))
	require.False(t, c.Expired(time.Now()))
	require.True(t, c.Expired(exp.Add(time.Second)))

	_, err = credentials.Inspect("opaque-token")
	require.Error(t, err)
}
