package credentials

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ Store = (*Vault)(nil)

type VaultOption func(*Vault)

func WithLogger(l zerolog.Logger) VaultOption {
	return func(v *Vault) {
		v.logger = l
	}
}

// Vault is the Store used by the session machine. It writes through to a
// KV backend and keeps an in-memory mirror of the last written pair. After
// the first backend failure the vault is degraded: the mirror becomes the
// only source of truth for the rest of the process lifetime.
type Vault struct {
	kv       KV
	mirror   Pair
	degraded bool
	lock     sync.Mutex
	logger   zerolog.Logger
}

func NewVault(kv KV, opts ...VaultOption) *Vault {
	v := &Vault{
		kv:     kv,
		logger: log.Logger.With().Str("component", "credentials").Logger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Save records p. A backend failure is reported as ErrNotPersisted; the
// pair is still served from memory afterwards.
func (v *Vault) Save(p Pair) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.mirror = p
	if v.degraded {
		return fmt.Errorf("%w: store degraded to memory", errors.ErrNotPersisted)
	}

	err := v.kv.Put(map[string]string{
		AccessTokenKey:  p.AccessToken,
		RefreshTokenKey: p.RefreshToken,
	})
	if err != nil {
		v.degrade(err, "save")
		return fmt.Errorf("%w: %w", errors.ErrNotPersisted, err)
	}
	return nil
}

// Load returns the stored pair. An access token missing from a healthy
// backend means the store was cleared from outside, and the mirror is
// dropped to match.
func (v *Vault) Load() (Pair, bool, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if v.degraded {
		return v.mirror, !v.mirror.Empty(), nil
	}

	access, ok, err := v.kv.Get(AccessTokenKey)
	if err != nil {
		v.degrade(err, "load")
		return v.mirror, !v.mirror.Empty(), nil
	}
	if !ok || access == "" {
		v.mirror = Pair{}
		return Pair{}, false, nil
	}

	refresh, _, err := v.kv.Get(RefreshTokenKey)
	if err != nil {
		v.degrade(err, "load")
		return v.mirror, !v.mirror.Empty(), nil
	}

	v.mirror = Pair{AccessToken: access, RefreshToken: refresh}
	return v.mirror, true, nil
}

// Clear erases both tokens. The in-memory copy is always dropped, even when
// the backend delete fails.
func (v *Vault) Clear() error {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.mirror = Pair{}
	if v.degraded {
		return nil
	}
	if err := v.kv.Delete(AccessTokenKey, RefreshTokenKey); err != nil {
		v.degrade(err, "clear")
		return fmt.Errorf("%w: %w", errors.ErrNotPersisted, err)
	}
	return nil
}

// Degraded reports whether the vault has fallen back to memory only.
func (v *Vault) Degraded() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.degraded
}

func (v *Vault) degrade(err error, op string) {
	if !v.degraded {
		v.logger.Warn().Err(err).Str("op", op).Msg("credential backend failed, keeping credentials in memory only")
	}
	v.degraded = true
}
