package session

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-gateway/internal/errors"
	"github.com/jrsteele09/go-session-gateway/users"
	"golang.org/x/oauth2"
)

func (m *Machine) oauthConfig(tokenPath string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: m.clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.gw.URL(tokenPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// grantContext routes the oauth2 package through the gateway's HTTP client
// and bounds the exchange by the shared request timeout.
func (m *Machine) grantContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.gw.HTTPClient())
	return context.WithTimeout(ctx, m.timeout)
}

func (m *Machine) passwordGrant(ctx context.Context, email, password string) (*oauth2.Token, error) {
	ctx, cancel := m.grantContext(ctx)
	defer cancel()
	return m.oauthConfig(m.endpoints.TokenPath).PasswordCredentialsToken(ctx, email, password)
}

func (m *Machine) refreshGrant(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ctx, cancel := m.grantContext(ctx)
	defer cancel()
	src := m.oauthConfig(m.endpoints.RefreshPath).TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

// rejectedByServer reports a token endpoint that answered with a 4xx, i.e.
// the grant itself was refused rather than the backend being unreachable.
func rejectedByServer(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re) && re.Response != nil &&
		re.Response.StatusCode >= 400 && re.Response.StatusCode < 500
}

func (m *Machine) fetchIdentity(ctx context.Context) (*users.User, error) {
	resp, err := m.gw.Get(ctx, m.endpoints.IdentityPath)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrUnexpectedResponse, err)
	}

	var u users.User
	if err := resp.DecodeJSON(&u); err != nil {
		return nil, err
	}
	if u.ID == "" && u.Email == "" {
		return nil, fmt.Errorf("%w: identity response carries no user", errors.ErrUnexpectedResponse)
	}
	return &u, nil
}

// identityKind maps an identity check failure onto the error kinds callers
// act on.
func identityKind(err error) error {
	if errors.Is(err, ErrSessionExpired) {
		return ErrSessionExpired
	}
	return ErrBackendUnavailable
}
