// Package integrations provides the shared HTTP client used by registry API
// clients.
//
// [Client] combines three concerns:
//   - JSON GET requests with default headers
//   - retries with backoff for network errors, 5xx and 429 responses
//   - caching of decoded responses in any [cache.Cache] backend
//
// Registry-specific clients embed it, e.g. [crates.Client]:
//
//	c := crates.NewClient(backend, time.Hour)
//	info, err := c.FetchCrate(ctx, "serde", false) // false = use cache
//
// [cache.Cache]: github.com/matzehuels/wsbump/pkg/cache.Cache
// [crates.Client]: github.com/matzehuels/wsbump/pkg/integrations/crates.Client
package integrations
