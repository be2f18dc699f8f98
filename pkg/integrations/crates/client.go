package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/matzehuels/wsbump/pkg/cache"
	"github.com/matzehuels/wsbump/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// UserAgent identifies the client to crates.io, which rejects anonymous
// requests.
const UserAgent = "wsbump (https://github.com/matzehuels/wsbump)"

// CrateInfo holds the registry state of a published crate.
type CrateInfo struct {
	Name             string `json:"name"`
	MaxVersion       string `json:"max_version"`                  // Highest published version, prereleases included
	MaxStableVersion string `json:"max_stable_version,omitempty"` // Empty if only prereleases exist
	Description      string `json:"description,omitempty"`
	Repository       string `json:"repository,omitempty"`
}

// Client provides access to the crates.io API.
// It is safe for concurrent use.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a crates.io client caching responses in backend for
// cacheTTL. A nil backend disables caching.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	return NewClientWithBaseURL(backend, cacheTTL, DefaultBaseURL)
}

// NewClientWithBaseURL is like [NewClient] against a different API root,
// such as a registry mirror.
func NewClientWithBaseURL(backend cache.Cache, cacheTTL time.Duration, baseURL string) *Client {
	headers := map[string]string{"User-Agent": UserAgent}
	return &Client{
		Client:  integrations.NewClient(backend, "crates:", cacheTTL, headers),
		baseURL: baseURL,
	}
}

// FetchCrate retrieves the registry state of crate.
//
// If refresh is true, the cache is bypassed.
//
// Returns [integrations.ErrNotFound] if the crate was never published and
// [integrations.ErrNetwork] for HTTP failures.
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, crate, refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}
	if data.Crate.MaxVersion == "" {
		return fmt.Errorf("crate %s: registry response has no max_version", crate)
	}

	*info = CrateInfo{
		Name:             data.Crate.Name,
		MaxVersion:       data.Crate.MaxVersion,
		MaxStableVersion: data.Crate.MaxStableVersion,
		Description:      data.Crate.Description,
		Repository:       data.Crate.Repository,
	}
	return nil
}

type crateResponse struct {
	Crate struct {
		Name             string `json:"name"`
		MaxVersion       string `json:"max_version"`
		MaxStableVersion string `json:"max_stable_version"`
		Description      string `json:"description"`
		Repository       string `json:"repository"`
	} `json:"crate"`
}
