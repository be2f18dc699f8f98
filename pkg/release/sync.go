package release

import (
	"context"
	stderrors "errors"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/wsbump/pkg/errors"
	"github.com/matzehuels/wsbump/pkg/integrations"
	"github.com/matzehuels/wsbump/pkg/integrations/crates"
	"github.com/matzehuels/wsbump/pkg/observability"
	"github.com/matzehuels/wsbump/pkg/version"
	"github.com/matzehuels/wsbump/pkg/workspace"
)

// Outcome is the result of syncing one package with the registry.
type Outcome int

const (
	AlreadySynced Outcome = iota
	Updated
	PublishFalse
	Failed
)

func (o Outcome) String() string {
	switch o {
	case AlreadySynced:
		return "already-synced"
	case Updated:
		return "updated"
	case PublishFalse:
		return "publish-false"
	default:
		return "failed"
	}
}

// Registry looks up published crate versions.
type Registry interface {
	FetchCrate(ctx context.Context, crate string, refresh bool) (*crates.CrateInfo, error)
}

// SyncOptions configures Sync.
type SyncOptions struct {
	Refresh     bool // Bypass the registry cache
	DryRun      bool // Report changes without writing manifests
	Concurrency int  // Parallel registry lookups (default 8)
}

// WithDefaults returns a copy of SyncOptions with zero values replaced by defaults.
func (o SyncOptions) WithDefaults() SyncOptions {
	opts := o
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return opts
}

// SyncResult records what Sync did to one package.
type SyncResult struct {
	Package  string
	Outcome  Outcome
	Previous *semver.Version
	Current  *semver.Version // Registry version for Updated, unchanged otherwise
	Err      error
}

// Sync sets the manifest version of every publishable package to the
// highest version published on the registry. Packages with publish = false
// are skipped. A failed lookup or write is recorded on that package's
// result and does not stop the others. Results are in package name order.
func Sync(ctx context.Context, ws *workspace.Workspace, reg Registry, opts SyncOptions) ([]SyncResult, error) {
	opts = opts.WithDefaults()
	pkgs := ws.Packages()
	results := make([]SyncResult, len(pkgs))
	published := make([]*semver.Version, len(pkgs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, p := range pkgs {
		results[i] = SyncResult{Package: p.Name(), Previous: p.Version(), Current: p.Version()}
		if !p.Publish() {
			results[i].Outcome = PublishFalse
			continue
		}
		g.Go(func() error {
			v, err := registryVersion(gctx, reg, p.Name(), opts.Refresh)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i].Outcome, results[i].Err = Failed, err
				return nil
			}
			published[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hooks := observability.Release()
	for i, p := range pkgs {
		if v := published[i]; v != nil {
			switch {
			case v.Equal(p.Version()):
				results[i].Outcome = AlreadySynced
			case opts.DryRun:
				results[i].Outcome, results[i].Current = Updated, v
			default:
				if err := p.SetVersion(v); err != nil {
					results[i].Outcome, results[i].Err = Failed, err
				} else {
					results[i].Outcome, results[i].Current = Updated, v
				}
			}
		}
		hooks.OnSyncPackage(ctx, p.Name(), results[i].Outcome.String())
	}
	return results, nil
}

func registryVersion(ctx context.Context, reg Registry, name string, refresh bool) (*semver.Version, error) {
	info, err := reg.FetchCrate(ctx, name, refresh)
	switch {
	case stderrors.Is(err, integrations.ErrNotFound):
		return nil, errors.Wrap(errors.ErrCodePackageNotFound, err, "%s is not published", name)
	case stderrors.Is(err, integrations.ErrRateLimited):
		return nil, errors.Wrap(errors.ErrCodeRateLimited, err, "registry lookup of %s", name)
	case err != nil:
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "registry lookup of %s", name)
	}
	v, err := version.Parse(info.MaxVersion)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "registry version of %s", name)
	}
	return v, nil
}
