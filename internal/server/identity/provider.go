// Package identity talks to the external OpenID Connect provider used for
// "log in with Google" style sign-in.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

// ErrEmailNotVerified means the provider authenticated the user but could not
// vouch for an e-mail address.
var ErrEmailNotVerified = errors.New("user email not available or not verified by provider")

// Claims is what the service keeps from the provider's userinfo response.
type Claims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Picture       string `json:"picture"`
	GivenName     string `json:"given_name"`
	Name          string `json:"name"`
}

// Provider is the authorization-code flow seen from the service.
type Provider interface {
	AuthCodeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (*Claims, error)
}

type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// OIDCProvider reads endpoints from the provider's discovery document once
// and caches them for the life of the process.
type OIDCProvider struct {
	clientID     string
	clientSecret string
	discoveryURL string
	redirectURL  string
	httpClient   *http.Client

	mu  sync.Mutex
	doc *discoveryDocument
}

func NewOIDCProvider(clientID, clientSecret, discoveryURL, redirectURL string, httpClient *http.Client) *OIDCProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OIDCProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		discoveryURL: discoveryURL,
		redirectURL:  redirectURL,
		httpClient:   httpClient,
	}
}

func (p *OIDCProvider) AuthCodeURL(ctx context.Context, state string) (string, error) {
	cfg, _, err := p.oauthConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state), nil
}

// Exchange trades code for a token and fetches the userinfo claims with it.
func (p *OIDCProvider) Exchange(ctx context.Context, code string) (*Claims, error) {
	cfg, doc, err := p.oauthConfig(ctx)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, doc.UserinfoEndpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo: unexpected status %d", resp.StatusCode)
	}

	claims := &Claims{}
	if err := json.NewDecoder(resp.Body).Decode(claims); err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}
	if !claims.EmailVerified || claims.Email == "" {
		return nil, ErrEmailNotVerified
	}
	if claims.Subject == "" {
		return nil, errors.New("userinfo: missing subject")
	}
	return claims, nil
}

func (p *OIDCProvider) oauthConfig(ctx context.Context) (*oauth2.Config, *discoveryDocument, error) {
	doc, err := p.discover(ctx)
	if err != nil {
		return nil, nil, err
	}
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		RedirectURL:  p.redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  doc.AuthorizationEndpoint,
			TokenURL: doc.TokenEndpoint,
		},
	}, doc, nil
}

func (p *OIDCProvider) discover(ctx context.Context) (*discoveryDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.doc != nil {
		return p.doc, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.discoveryURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery: unexpected status %d", resp.StatusCode)
	}

	doc := &discoveryDocument{}
	if err := json.NewDecoder(resp.Body).Decode(doc); err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" || doc.UserinfoEndpoint == "" {
		return nil, errors.New("discovery: incomplete document")
	}

	p.doc = doc
	return doc, nil
}
