package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/drunkod/crayon-chat/pkg/util"
)

// Provider identifiers used across dispatch.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// DefaultCooldownTTL is how long a rate-limited model stays excluded.
const DefaultCooldownTTL = 5 * time.Minute

// Candidate is one model a provider may be asked to serve. Slice order
// encodes preference: first is most preferred.
type Candidate struct {
	Provider string
	Model    string
}

// CooldownStore persists model failure timestamps. Implementations must
// tolerate concurrent callers.
type CooldownStore interface {
	MarkFailed(ctx context.Context, modelID string, at time.Time) error
	FailedAt(ctx context.Context, modelID string) (time.Time, bool, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) error
	Reset(ctx context.Context) error
}

// Registry holds the ordered candidate models and excludes the ones on a
// live cooldown.
type Registry struct {
	candidates []Candidate
	store      CooldownStore
	ttl        time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// New constructs a registry over the static candidate list.
func New(candidates []Candidate, store CooldownStore, ttl time.Duration, logger *slog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultCooldownTTL
	}
	return &Registry{
		candidates: candidates,
		store:      store,
		ttl:        ttl,
		now:        util.NowUTC,
		logger:     logger.With("component", "registry"),
	}
}

// ListAvailable returns the provider's candidates in preference order,
// excluding models with a live cooldown entry. When every candidate is
// cooling down the whole table is cleared and the full list returned, so
// dispatch always has something to try.
func (r *Registry) ListAvailable(ctx context.Context, providerID string) []Candidate {
	cutoff := r.now().Add(-r.ttl)
	if err := r.store.PurgeBefore(ctx, cutoff); err != nil {
		r.logger.Warn("cooldown purge failed", "error", err)
	}

	all := r.forProvider(providerID)
	available := make([]Candidate, 0, len(all))
	for _, candidate := range all {
		failedAt, found, err := r.store.FailedAt(ctx, candidate.Model)
		if err != nil {
			r.logger.Warn("cooldown lookup failed, treating model as available", "model", candidate.Model, "error", err)
			available = append(available, candidate)
			continue
		}
		if found && failedAt.After(cutoff) {
			continue
		}
		available = append(available, candidate)
	}

	if len(available) == 0 && len(all) > 0 {
		r.logger.Warn("every candidate is cooling down, resetting cooldown table", "provider", providerID)
		if err := r.store.Reset(ctx); err != nil {
			r.logger.Error("cooldown reset failed", "error", err)
		}
		return all
	}
	return available
}

// MarkFailed records a rate-limit style failure for the model at the
// current time, overwriting any earlier entry.
func (r *Registry) MarkFailed(ctx context.Context, modelID string) {
	if err := r.store.MarkFailed(ctx, modelID, r.now()); err != nil {
		r.logger.Error("failed to mark model cooldown", "model", modelID, "error", err)
		return
	}
	r.logger.Info("model placed on cooldown", "model", modelID, "ttl", r.ttl)
}

func (r *Registry) forProvider(providerID string) []Candidate {
	matched := make([]Candidate, 0, len(r.candidates))
	for _, candidate := range r.candidates {
		if candidate.Provider == providerID {
			matched = append(matched, candidate)
		}
	}
	return matched
}
