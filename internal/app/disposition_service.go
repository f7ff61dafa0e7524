package app

import (
	"context"
	"fmt"

	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/permission"
	"github.com/example/dispo/internal/ports/primary"
	"github.com/example/dispo/internal/ports/secondary"
)

// DispositionServiceImpl implements the DispositionService interface.
type DispositionServiceImpl struct {
	users    secondary.UserRepository
	tags     secondary.ContentTagRepository
	executor EffectExecutor
	loader   *snapshotLoader
	opts     Options
}

// NewDispositionService creates a new DispositionService with injected dependencies.
func NewDispositionService(
	letters secondary.LetterRepository,
	users secondary.UserRepository,
	tags secondary.ContentTagRepository,
	identityProvider secondary.IdentityProvider,
	executor EffectExecutor,
	opts Options,
) *DispositionServiceImpl {
	opts = opts.withDefaults()
	return &DispositionServiceImpl{
		users:    users,
		tags:     tags,
		executor: executor,
		loader:   newSnapshotLoader(letters, identityProvider, opts),
		opts:     opts,
	}
}

// CheckDisposition reports whether the acting user may dispose the letter,
// and where the new node would attach.
func (s *DispositionServiceImpl) CheckDisposition(ctx context.Context, letterID string) (*primary.DispositionCheck, error) {
	ld, err := s.loader.load(ctx, letterID)
	if err != nil {
		return nil, err
	}
	decision := permission.CanDispose(ld.letter, ld.actor)
	recordDecision(s.opts.Metrics, "dispose", decision)
	return toDispositionCheck(decision), nil
}

// CreateDisposition forwards the letter to recipients on behalf of the acting officer.
func (s *DispositionServiceImpl) CreateDisposition(ctx context.Context, req primary.CreateDispositionRequest) (*primary.CreateDispositionResponse, error) {
	ld, err := s.loader.load(ctx, req.LetterID)
	if err != nil {
		return nil, err
	}

	users := make(map[string]identity.User, len(req.RecipientIDs))
	for _, id := range req.RecipientIDs {
		u, err := lookupUser(ctx, s.users, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users[u.ID] = *u
		}
	}
	known, err := s.ListContentTags(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := permission.PlanDisposition(permission.DispositionPlanInput{
		Letter: ld.letter,
		Actor:  ld.actor,
		Request: permission.DispositionRequest{
			Note:         req.Note,
			ContentTags:  req.ContentTags,
			RecipientIDs: req.RecipientIDs,
			SignatureRef: req.SignatureRef,
		},
		Users:     users,
		KnownTags: known,
		Now:       s.opts.Clock(),
		NewID:     s.opts.NewID,
	})
	recordDecision(s.opts.Metrics, "dispose", plan.Decision)
	if err != nil {
		return nil, err
	}

	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}

	d := plan.Disposition
	resp := &primary.CreateDispositionResponse{
		DispositionID: d.DispositionID,
		Level:         d.Level,
		LevelLabel:    plan.Decision.Level().Label(),
	}
	for _, r := range d.Recipients {
		resp.Recipients = append(resp.Recipients, r.UserID)
	}
	return resp, nil
}

// ListContentTags returns the catalogue phrases in display order.
func (s *DispositionServiceImpl) ListContentTags(ctx context.Context) ([]string, error) {
	records, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list content tags: %w", err)
	}
	phrases := make([]string, len(records))
	for i, r := range records {
		phrases[i] = r.Phrase
	}
	return phrases, nil
}

var _ primary.DispositionService = (*DispositionServiceImpl)(nil)
