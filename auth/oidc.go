package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
)

// ErrUnknownProvider is returned for tokens of a provider that is not configured.
var ErrUnknownProvider = errors.New("unknown oidc provider")

// Identity is the verified subject of an ID token. UserId is the token's subject claim, which is stable and
// free of the characters store paths reserve.
type Identity struct {
	UserId  string
	Name    string
	Picture string
	Expiry  time.Time
}

type verifyFunc func(ctx context.Context, idToken string) (Identity, error)

type provider struct {
	cfg   config.OIDCConfig
	cache *lru.ARCCache

	mu     sync.Mutex
	verify verifyFunc
}

// verifier returns the provider's verifier, running discovery until it succeeds once.
func (p *provider) verifier(discover func(config.OIDCConfig) (verifyFunc, error)) (verifyFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verify != nil {
		return p.verify, nil
	}
	verify, err := discover(p.cfg)
	if err != nil {
		return nil, err
	}
	p.verify = verify
	return verify, nil
}

// Authenticator verifies OIDC ID tokens against the configured providers. Verified tokens are kept in an ARC
// cache per provider until they expire, so repeated logins with the same token do not hit the provider.
type Authenticator struct {
	providers map[string]*provider
	discover  func(config.OIDCConfig) (verifyFunc, error)
	now       func() time.Time
	logger    hclog.Logger
}

func NewAuthenticator(cfgs []config.OIDCConfig) (*Authenticator, error) {
	a := &Authenticator{
		providers: make(map[string]*provider, len(cfgs)),
		discover:  remoteVerifier,
		now:       time.Now,
		logger:    globals.AppLogger.Named("auth"),
	}
	for _, cfg := range cfgs {
		if cfg.Name == "" {
			return nil, errors.New("oidc provider without a name")
		}
		if _, ok := a.providers[cfg.Name]; ok {
			return nil, fmt.Errorf("oidc provider %q configured twice", cfg.Name)
		}
		size := cfg.TokenCacheSize
		if size <= 0 {
			size = 1
		}
		cache, err := lru.NewARC(size)
		if err != nil {
			return nil, err
		}
		a.providers[cfg.Name] = &provider{cfg: cfg, cache: cache}
	}
	return a, nil
}

// Enabled reports whether any provider is configured.
func (a *Authenticator) Enabled() bool {
	return len(a.providers) > 0
}

// Authenticate verifies idToken with the named provider. An empty token yields an empty identity and no error,
// the caller treats that as a guest.
func (a *Authenticator) Authenticate(ctx context.Context, idToken, providerName string) (Identity, error) {
	if idToken == "" {
		return Identity{}, nil
	}
	p, ok := a.providers[providerName]
	if !ok {
		a.logger.Debug("no oidc config found for provider", "provider", providerName)
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}
	if cached, ok := p.cache.Get(idToken); ok {
		id := cached.(Identity)
		if id.Expiry.IsZero() || a.now().Before(id.Expiry) {
			return id, nil
		}
		p.cache.Remove(idToken)
	}
	verify, err := p.verifier(a.discover)
	if err != nil {
		a.logger.Warn("oidc discovery failed", "provider", providerName, "error", err)
		return Identity{}, err
	}
	id, err := verify(ctx, idToken)
	if err != nil {
		a.logger.Info("could not verify id token", "provider", providerName, "error", err)
		return Identity{}, err
	}
	if id.UserId == "" {
		return Identity{}, errors.New("id token has no subject")
	}
	p.cache.Add(idToken, id)
	return id, nil
}

// remoteVerifier discovers the provider and returns a verifier using its published keys.
func remoteVerifier(cfg config.OIDCConfig) (verifyFunc, error) {
	prov, err := oidc.NewProvider(context.Background(), cfg.ProviderUrl)
	if err != nil {
		return nil, fmt.Errorf("could not discover oidc provider %s: %w", cfg.Name, err)
	}
	conf := oidc.Config{}
	if cfg.ClientId == "" {
		conf.SkipClientIDCheck = true
	} else {
		conf.ClientID = cfg.ClientId
	}
	verifier := prov.Verifier(&conf)
	return func(ctx context.Context, idToken string) (Identity, error) {
		verified, err := verifier.Verify(ctx, idToken)
		if err != nil {
			return Identity{}, err
		}
		claims := struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture string `json:"picture"`
		}{}
		if err := verified.Claims(&claims); err != nil {
			return Identity{}, err
		}
		name := claims.Name
		if name == "" {
			name = claims.Email
		}
		return Identity{UserId: verified.Subject, Name: name, Picture: claims.Picture, Expiry: verified.Expiry}, nil
	}, nil
}
