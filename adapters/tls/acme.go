// Package tls serves the introspection API over HTTPS with certificates
// obtained from Let's Encrypt.
package tls

import (
	"context"
	cryptotls "crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/acme"
	"golang.org/x/crypto/acme/autocert"

	"github.com/artpar/vizprops/config"
)

const letsEncryptStaging = "https://acme-staging-v02.api.letsencrypt.org/directory"

// Provider issues and renews certificates for the configured domains.
// Certificates and the account key are cached in a directory, so restarts
// do not re-issue.
type Provider struct {
	mu      sync.RWMutex
	domains []string

	manager *autocert.Manager
	logger  zerolog.Logger
}

// NewProvider creates a provider from cfg. At least one domain is required.
func NewProvider(cfg config.TLSConfig, logger zerolog.Logger) (*Provider, error) {
	if len(cfg.Domains) == 0 {
		return nil, fmt.Errorf("tls: at least one domain is required")
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("tls: cache dir is required")
	}

	p := &Provider{
		domains: normalize(cfg.Domains),
		logger:  logger.With().Str("component", "acme").Logger(),
	}
	p.manager = &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: p.hostPolicy,
		Cache:      autocert.DirCache(cfg.CacheDir),
		Email:      cfg.Email,
	}
	if cfg.Staging {
		p.manager.Client = &acme.Client{DirectoryURL: letsEncryptStaging}
	}

	p.logger.Info().
		Strs("domains", p.domains).
		Str("cache_dir", cfg.CacheDir).
		Bool("staging", cfg.Staging).
		Msg("acme provider ready")
	return p, nil
}

// TLSConfig returns a server configuration that obtains certificates on
// demand.
func (p *Provider) TLSConfig() *cryptotls.Config {
	return p.manager.TLSConfig()
}

// HTTPHandler answers ACME http-01 challenges and passes other requests to
// fallback. A nil fallback redirects to HTTPS.
func (p *Provider) HTTPHandler(fallback http.Handler) http.Handler {
	return p.manager.HTTPHandler(fallback)
}

// UpdateDomains replaces the allowed domains.
func (p *Provider) UpdateDomains(domains []string) {
	next := normalize(domains)

	p.mu.Lock()
	prev := p.domains
	p.domains = next
	p.mu.Unlock()

	p.logger.Info().Strs("old_domains", prev).Strs("new_domains", next).Msg("allowed domains updated")
}

// Domains returns the allowed domains.
func (p *Provider) Domains() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.domains...)
}

// hostPolicy allows exact matches and "*.example.com" wildcards, which
// cover one or more leading labels.
func (p *Provider) hostPolicy(_ context.Context, host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	p.mu.RLock()
	domains := p.domains
	p.mu.RUnlock()

	for _, d := range domains {
		if d == host {
			return nil
		}
		if suffix, ok := strings.CutPrefix(d, "*"); ok && strings.HasPrefix(suffix, ".") {
			if len(host) > len(suffix) && strings.HasSuffix(host, suffix) {
				return nil
			}
		}
	}

	p.logger.Warn().Str("host", host).Strs("allowed_domains", domains).Msg("host not in allowed domains")
	return fmt.Errorf("host %q not in allowed domains", host)
}

func normalize(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(d, ".")))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
