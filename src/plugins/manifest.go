// Package plugins turns external tool descriptions into catalog groups:
// ai-plugin.json manifests, OpenAPI documents, and UTCP providers.
package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	reagent "github.com/Protocol-Lattice/go-reagent"
)

const (
	defaultUserAgent   = "go-reagent-plugins/1.0"
	defaultHTTPTimeout = 30 * time.Second
	// maxBodyBytes bounds manifest, spec, and tool response reads.
	maxBodyBytes = 1 << 20
)

// Option configures plugin loading.
type Option func(*config)

type config struct {
	httpClient *http.Client
	userAgent  string
}

func newConfig(opts ...Option) *config {
	c := &config{
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets the client used for manifest, document, and tool calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithUserAgent overrides the User-Agent header on outgoing requests.
func WithUserAgent(userAgent string) Option {
	return func(c *config) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// Manifest is the ai-plugin.json descriptor a remote plugin advertises. The
// model-facing name and description become the catalog group's identity, so
// they are what the retrieval index ranks.
type Manifest struct {
	SchemaVersion       string      `json:"schema_version"`
	NameForModel        string      `json:"name_for_model"`
	NameForHuman        string      `json:"name_for_human"`
	DescriptionForModel string      `json:"description_for_model"`
	DescriptionForHuman string      `json:"description_for_human"`
	API                 ManifestAPI `json:"api"`
}

// ManifestAPI locates the plugin's API document.
type ManifestAPI struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Validate reports the first missing required field.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.NameForModel) == "" {
		return errors.New("manifest: name_for_model is empty")
	}
	if strings.TrimSpace(m.DescriptionForModel) == "" {
		return errors.New("manifest: description_for_model is empty")
	}
	if strings.TrimSpace(m.API.URL) == "" {
		return errors.New("manifest: api.url is empty")
	}
	return nil
}

// FetchManifest downloads and validates a plugin manifest.
func FetchManifest(ctx context.Context, manifestURL string, opts ...Option) (*Manifest, error) {
	return fetchManifest(ctx, newConfig(opts...), manifestURL)
}

func fetchManifest(ctx context.Context, cfg *config, manifestURL string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", cfg.userAgent)

	resp, err := cfg.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", manifestURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("manifest GET %s -> http %d: %s",
			manifestURL, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var manifest Manifest
	if err := json.Unmarshal(payload, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// FromManifest fetches a manifest and loads the OpenAPI document it points
// to, yielding one ready-to-register group. A relative api.url is resolved
// against the manifest location.
func FromManifest(ctx context.Context, manifestURL string, opts ...Option) (reagent.Group, error) {
	cfg := newConfig(opts...)

	manifest, err := fetchManifest(ctx, cfg, manifestURL)
	if err != nil {
		return reagent.Group{}, err
	}
	specURL, err := resolveRef(manifestURL, manifest.API.URL)
	if err != nil {
		return reagent.Group{}, err
	}
	return fromOpenAPIURL(ctx, cfg, manifest.NameForModel, manifest.DescriptionForModel, specURL)
}

// resolveRef resolves ref against base, so manifests may point at their spec
// with a relative path.
func resolveRef(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse manifest url %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse api url %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
