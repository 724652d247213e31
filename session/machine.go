// Package session owns the user's authenticated identity: it establishes
// it, keeps its credentials fresh, and publishes every change to
// subscribers.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/go-session-gateway/credentials"
	"github.com/jrsteele09/go-session-gateway/gateway"
	"github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/jrsteele09/go-session-gateway/internal/metrics"
	"github.com/jrsteele09/go-session-gateway/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Transport is the subset of *gateway.Gateway the machine relies on.
type Transport interface {
	Do(ctx context.Context, req gateway.Request) (*gateway.Response, error)
	Get(ctx context.Context, path string) (*gateway.Response, error)
	URL(path string) string
	HTTPClient() *http.Client
	Timeout() time.Duration
	Bind(a gateway.Authority)
}

var (
	_ Transport         = (*gateway.Gateway)(nil)
	_ gateway.Authority = (*Machine)(nil)
)

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithLogger sets the logger. Defaults to the global zerolog logger.
func WithLogger(l zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.logger = l
	}
}

// WithMetrics records refresh results and transitions on mt.
func WithMetrics(mt *metrics.Metrics) MachineOption {
	return func(m *Machine) {
		m.metrics = mt
	}
}

// WithEndpoints overrides DefaultEndpoints, e.g. with the result of Discover.
func WithEndpoints(ep Endpoints) MachineOption {
	return func(m *Machine) {
		m.endpoints = ep
	}
}

// WithTimeout bounds the token grants. Defaults to the gateway's timeout.
func WithTimeout(d time.Duration) MachineOption {
	return func(m *Machine) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithClientID sets the OAuth2 client_id sent with token grants.
func WithClientID(id string) MachineOption {
	return func(m *Machine) {
		m.clientID = id
	}
}

type subscriber struct {
	id int
	fn Listener
}

// Machine is the session state machine. It is the only writer of the
// credential store. Create one per process and share it.
type Machine struct {
	gw        Transport
	store     credentials.Store
	endpoints Endpoints
	clientID  string
	timeout   time.Duration
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	lock         sync.Mutex
	state        State
	epoch        uint64 // bumped whenever the session is replaced or ended
	bootstrapped bool
	pending      []State
	draining     bool
	subscribers  []subscriber
	nextID       int

	flight singleflight.Group
}

// New creates a machine in the Unauthenticated state and binds it to gw as
// the authority for token refresh.
func New(gw Transport, store credentials.Store, opts ...MachineOption) (*Machine, error) {
	if gw == nil {
		return nil, errors.New("[session.New] gateway is required")
	}
	if store == nil {
		return nil, errors.New("[session.New] credential store is required")
	}

	m := &Machine{
		gw:        gw,
		store:     store,
		endpoints: DefaultEndpoints(),
		timeout:   gw.Timeout(),
		logger:    log.Logger.With().Str("component", "session").Logger(),
		state:     State{Status: Unauthenticated},
	}
	for _, opt := range opts {
		opt(m)
	}
	gw.Bind(m)
	return m, nil
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.clone()
}

// Subscribe registers l for every state published from now on and returns
// a function that removes it. Listeners run on the goroutine that caused
// the change, one state at a time and in publication order.
func (m *Machine) Subscribe(l Listener) func() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.nextID++
	id := m.nextID
	m.subscribers = append(m.subscribers, subscriber{id: id, fn: l})

	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		for i, s := range m.subscribers {
			if s.id == id {
				m.subscribers = append(m.subscribers[:i:i], m.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Bootstrap resolves the stored credentials into a session. It may be
// called once per process.
func (m *Machine) Bootstrap(ctx context.Context) error {
	var (
		epoch    uint64
		hasToken bool
		already  bool
	)
	m.update(func() {
		if m.bootstrapped {
			already = true
			return
		}
		m.bootstrapped = true
		epoch = m.epoch

		_, hasToken, _ = m.store.Load()
		if !hasToken {
			m.publishLocked(State{Status: Unauthenticated})
			return
		}
		m.publishLocked(State{Status: Loading})
	})
	if already {
		return ErrAlreadyBootstrapped
	}
	if !hasToken {
		m.logger.Debug().Msg("no stored credentials")
		return nil
	}

	user, err := m.fetchIdentity(ctx)

	var result error
	m.update(func() {
		if m.epoch != epoch {
			result = staleError(OpBootstrap, err)
			return
		}
		if err != nil {
			result = opError(OpBootstrap, identityKind(err), err)
			m.failLocked(result)
			return
		}
		m.publishLocked(State{Status: Authenticated, User: user})
	})
	if result != nil {
		m.logger.Info().Err(result).Msg("stored session could not be restored")
	}
	return result
}

// Login exchanges email and password for a credential pair, stores it and
// resolves the identity. A rejected login while already signed in leaves
// the existing session untouched; an accepted one swaps the user without
// passing through Loading.
func (m *Machine) Login(ctx context.Context, email, password string) (*users.User, error) {
	var (
		epoch            uint64
		wasAuthenticated bool
		stale            bool
	)
	m.update(func() {
		epoch = m.epoch
		wasAuthenticated = m.state.Status == Authenticated
		if !wasAuthenticated && m.state.Status != Loading {
			m.publishLocked(State{Status: Loading})
		}
	})

	tok, err := m.passwordGrant(ctx, email, password)
	if err != nil {
		kind := ErrBackendUnavailable
		if rejectedByServer(err) {
			kind = ErrCredentialsRejected
		}
		result := opError(OpLogin, kind, err)
		m.update(func() {
			if m.epoch != epoch {
				stale = true
				return
			}
			if !wasAuthenticated {
				m.publishLocked(State{Status: Failed, Reason: result})
				m.publishLocked(State{Status: Unauthenticated, Reason: result})
			}
		})
		if stale {
			return nil, opError(OpLogin, ErrSessionEnded, nil)
		}
		m.logger.Info().Err(err).Str("email", email).Msg("login failed")
		return nil, result
	}

	pair := credentials.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	m.update(func() {
		if m.epoch != epoch {
			stale = true
			return
		}
		if err := m.store.Save(pair); err != nil {
			m.logger.Warn().Err(err).Msg("credentials kept in memory only")
		}
		m.epoch++
		epoch = m.epoch
		// A signed-in user stays visible until the new identity replaces it.
		if !wasAuthenticated && m.state.Status != Loading {
			m.publishLocked(State{Status: Loading})
		}
	})
	if stale {
		return nil, opError(OpLogin, ErrSessionEnded, nil)
	}

	user, err := m.fetchIdentity(ctx)

	var (
		out    *users.User
		result error
	)
	m.update(func() {
		if m.epoch != epoch {
			result = staleError(OpLogin, err)
			return
		}
		if err != nil {
			result = opError(OpLogin, identityKind(err), err)
			m.failLocked(result)
			return
		}
		m.publishLocked(State{Status: Authenticated, User: user})
		out = user.Clone()
	})
	if result == nil {
		m.logger.Info().Str("user_id", out.ID).Str("role", out.Role.String()).Msg("signed in")
	}
	return out, result
}

// Logout ends the session immediately. Work started before the call
// discards its result.
func (m *Machine) Logout() {
	m.update(func() {
		if err := m.store.Clear(); err != nil {
			m.logger.Warn().Err(err).Msg("clearing stored credentials failed")
		}
		m.epoch++
		if m.state.Status != Unauthenticated || m.state.User != nil || m.state.Reason != nil {
			m.publishLocked(State{Status: Unauthenticated})
		}
	})
	m.logger.Info().Msg("signed out")
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account and, when that succeeds, signs in with the
// same credentials.
func (m *Machine) Register(ctx context.Context, name, email, password string) (*users.User, error) {
	resp, err := m.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   m.endpoints.RegisterPath,
		Body:   registerRequest{Name: name, Email: email, Password: password},
	})
	if err != nil {
		return nil, opError(OpRegister, ErrBackendUnavailable, err)
	}
	switch {
	case resp.OK():
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, opError(OpRegister, ErrRegistrationRejected, backendDetail(resp))
	default:
		return nil, opError(OpRegister, ErrBackendUnavailable, resp.Err())
	}

	m.logger.Info().Str("email", email).Msg("registered")
	return m.Login(ctx, email, password)
}

// CheckStatus re-resolves the identity behind the stored token. While
// signed in the current user stays visible until the new one arrives, and
// a backend outage keeps the session.
func (m *Machine) CheckStatus(ctx context.Context) error {
	var (
		epoch uint64
		prev  Status
		skip  bool
	)
	m.update(func() {
		epoch = m.epoch
		prev = m.state.Status
		if prev == Loading {
			skip = true
			return
		}
		if _, ok, _ := m.store.Load(); !ok {
			skip = true
			if prev == Authenticated {
				m.expireLocked(ErrStoreCleared)
			}
			return
		}
		if prev != Authenticated {
			m.publishLocked(State{Status: Loading})
		}
	})
	if skip {
		return nil
	}

	user, err := m.fetchIdentity(ctx)

	var result error
	m.update(func() {
		if m.epoch != epoch {
			result = staleError(OpCheck, err)
			return
		}
		if err != nil {
			kind := identityKind(err)
			result = opError(OpCheck, kind, err)
			if prev == Authenticated && kind == ErrBackendUnavailable {
				return
			}
			m.failLocked(result)
			return
		}
		m.publishLocked(State{Status: Authenticated, User: user})
	})
	return result
}

// Refresh replaces the rejected access token. Concurrent callers with the
// same rejected token share one exchange. A caller whose token was already
// replaced gets the current one without a new exchange.
func (m *Machine) Refresh(ctx context.Context, rejected string) (string, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, _ := m.flight.Do(rejected, func() (any, error) {
		return m.refresh(ctx, rejected)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Machine) refresh(ctx context.Context, rejected string) (string, error) {
	var (
		epoch   uint64
		pair    credentials.Pair
		current string
		result  error
	)
	m.update(func() {
		epoch = m.epoch
		p, ok, _ := m.store.Load()
		switch {
		case !ok:
			result = opError(OpRefresh, ErrNotAuthenticated, nil)
		case p.AccessToken != rejected:
			current = p.AccessToken
		case p.RefreshToken == "":
			result = opError(OpRefresh, ErrRefreshFailed, ErrNoRefreshToken)
			if m.state.Status == Authenticated {
				m.expireLocked(result)
			}
		default:
			pair = p
		}
	})
	if result != nil {
		m.metrics.Refresh(metrics.RefreshFailed)
		return "", result
	}
	if current != "" {
		m.metrics.Refresh(metrics.RefreshSkipped)
		return current, nil
	}

	tok, err := m.refreshGrant(ctx, pair.RefreshToken)

	var fresh string
	m.update(func() {
		if m.epoch != epoch {
			result = opError(OpRefresh, ErrSessionEnded, nil)
			return
		}
		if err != nil {
			result = opError(OpRefresh, ErrRefreshFailed, err)
			if m.state.Status == Authenticated {
				m.expireLocked(result)
			}
			return
		}

		next := credentials.Pair{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
		if next.RefreshToken == "" {
			next.RefreshToken = pair.RefreshToken
		}
		if err := m.store.Save(next); err != nil {
			m.logger.Warn().Err(err).Msg("refreshed credentials kept in memory only")
		}
		fresh = next.AccessToken
	})

	switch {
	case errors.Is(result, ErrSessionEnded):
		m.metrics.Refresh(metrics.RefreshStale)
		m.logger.Debug().Msg("session ended during refresh, result discarded")
		return "", result
	case result != nil:
		m.metrics.Refresh(metrics.RefreshFailed)
		m.logger.Info().Err(err).Msg("token refresh failed, session ended")
		return "", result
	}
	m.metrics.Refresh(metrics.RefreshSucceeded)
	m.logger.Debug().Msg("access token refreshed")
	return fresh, nil
}

// Expire ends the session whose access token was refused even after a
// refresh. Tokens that are no longer current are ignored.
func (m *Machine) Expire(rejected string, reason error) {
	m.update(func() {
		if m.state.Status != Authenticated {
			return
		}
		if p, ok, _ := m.store.Load(); ok && p.AccessToken != rejected {
			return
		}
		m.logger.Info().Err(reason).Msg("session expired")
		m.expireLocked(opError(OpRefresh, ErrSessionExpired, reason))
	})
}

// Reconcile ends a signed-in session whose credentials have disappeared
// from the store without a logout.
func (m *Machine) Reconcile(hasToken bool) {
	if hasToken {
		return
	}
	m.update(func() {
		if m.state.Status != Authenticated {
			return
		}
		if _, ok, _ := m.store.Load(); ok {
			return
		}
		m.logger.Info().Msg("stored credentials were cleared externally")
		m.expireLocked(ErrStoreCleared)
	})
}

// update runs fn under the state lock, then delivers whatever fn published.
func (m *Machine) update(fn func()) {
	m.lock.Lock()
	fn()
	m.lock.Unlock()
	m.flush()
}

func (m *Machine) publishLocked(st State) {
	m.state = st
	m.pending = append(m.pending, st.clone())
	m.metrics.Transition(st.Status.String())
}

// expireLocked is the forced logout: credentials dropped, in-flight work
// made stale, state settled to Unauthenticated with a reason.
func (m *Machine) expireLocked(reason error) {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("clearing stored credentials failed")
	}
	m.epoch++
	m.publishLocked(State{Status: Unauthenticated, Reason: reason})
}

// failLocked settles a failed identity resolution. Failed is published for
// observers that want to show the reason, then Unauthenticated.
func (m *Machine) failLocked(reason error) {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("clearing stored credentials failed")
	}
	m.epoch++
	m.publishLocked(State{Status: Failed, Reason: reason})
	m.publishLocked(State{Status: Unauthenticated, Reason: reason})
}

// flush delivers pending states in publication order. Only one goroutine
// drains at a time; a listener that causes a transition has its state
// queued and delivered by the same drain loop.
func (m *Machine) flush() {
	m.lock.Lock()
	if m.draining {
		m.lock.Unlock()
		return
	}
	m.draining = true
	for len(m.pending) > 0 {
		st := m.pending[0]
		m.pending = m.pending[1:]
		subs := append([]subscriber(nil), m.subscribers...)
		m.lock.Unlock()
		for _, s := range subs {
			s.fn(st)
		}
		m.lock.Lock()
	}
	m.draining = false
	m.lock.Unlock()
}

func staleError(op Op, err error) error {
	if err != nil && errors.Is(err, ErrSessionExpired) {
		return opError(op, ErrSessionExpired, err)
	}
	return opError(op, ErrSessionEnded, nil)
}

// backendDetail extracts the human readable reason from an error body.
func backendDetail(resp *gateway.Response) error {
	var body struct {
		Detail           string `json:"detail"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(resp.Body, &body) == nil {
		for _, s := range []string{body.Detail, body.ErrorDescription, body.Error} {
			if s != "" {
				return errors.New(s)
			}
		}
	}
	return resp.Err()
}
