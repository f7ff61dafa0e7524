package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/metrics"
	"github.com/example/dispo/internal/ports/secondary"
)

// Options tunes the services. Zero values select defaults.
type Options struct {
	// SnapshotRetries is how many times a missing snapshot is re-fetched.
	SnapshotRetries int
	RetryDelay      time.Duration
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Clock           func() time.Time
	NewID           func() string
}

func (o Options) withDefaults() Options {
	if o.RetryDelay <= 0 {
		o.RetryDelay = 200 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// loaded is one consistent view of a letter and the acting user.
type loaded struct {
	record *secondary.LetterSnapshotRecord
	letter *letter.Letter
	actor  identity.Identity
}

// snapshotLoader fetches a letter snapshot and the acting identity
// concurrently, then builds the immutable core letter.
type snapshotLoader struct {
	letters  secondary.LetterRepository
	identity secondary.IdentityProvider
	opts     Options
}

func newSnapshotLoader(letters secondary.LetterRepository, identityProvider secondary.IdentityProvider, opts Options) *snapshotLoader {
	return &snapshotLoader{letters: letters, identity: identityProvider, opts: opts}
}

func (s *snapshotLoader) load(ctx context.Context, letterID string) (*loaded, error) {
	start := time.Now()

	var (
		record *secondary.LetterSnapshotRecord
		actor  identity.Identity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		record, err = s.fetchSnapshot(gctx, letterID)
		return err
	})
	g.Go(func() error {
		var err error
		actor, err = s.currentIdentity(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.opts.Metrics.ObserveFetchLatency(time.Since(start))

	l, err := s.build(ctx, record)
	if err != nil {
		return nil, err
	}
	return &loaded{record: record, letter: l, actor: actor}, nil
}

// build converts a record, reporting structural violations.
func (s *snapshotLoader) build(ctx context.Context, record *secondary.LetterSnapshotRecord) (*letter.Letter, error) {
	l, err := buildLetter(record)
	if err != nil {
		if errors.Is(err, disposition.ErrStructuralViolation) {
			s.opts.Metrics.IncrementStructuralViolation()
			s.opts.Logger.ErrorContext(ctx, "rejected disposition tree",
				append(ctxutil.LogAttrs(ctx), "letter_id", record.Letter.ID, "error", err)...)
		}
		return nil, err
	}
	return l, nil
}

// fetchSnapshot re-fetches while the gateway has no snapshot yet.
func (s *snapshotLoader) fetchSnapshot(ctx context.Context, letterID string) (*secondary.LetterSnapshotRecord, error) {
	var record *secondary.LetterSnapshotRecord
	operation := func() error {
		rec, err := s.letters.GetSnapshot(ctx, letterID)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to fetch letter %s: %w", letterID, err))
		}
		if rec == nil {
			return fmt.Errorf("letter %s: %w", letterID, letter.ErrMissingSnapshot)
		}
		record = rec
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.opts.RetryDelay), uint64(max(s.opts.SnapshotRetries, 0))),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		s.opts.Metrics.IncrementSnapshotRetry()
		s.opts.Logger.DebugContext(ctx, "snapshot not available, retrying", "letter_id", letterID, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *snapshotLoader) currentIdentity(ctx context.Context) (identity.Identity, error) {
	rec, err := s.identity.CurrentIdentity(ctx)
	if err != nil {
		return identity.Identity{}, err
	}
	role, err := identity.ParseRole(rec.Role)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("acting user %s: %w", rec.UserID, err)
	}
	return identity.Identity{UserID: rec.UserID, Role: role, SupervisorID: rec.SupervisorID}, nil
}
