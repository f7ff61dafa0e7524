package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/dispo/internal/core/activity"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
	"github.com/example/dispo/internal/core/permission"
	"github.com/example/dispo/internal/core/status"
	"github.com/example/dispo/internal/core/timeline"
	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/metrics"
	"github.com/example/dispo/internal/ports/primary"
	"github.com/example/dispo/internal/ports/secondary"
)

// listConcurrency bounds the parallel snapshot fetches of list-style reads.
const listConcurrency = 4

// LetterServiceImpl implements the LetterService interface.
type LetterServiceImpl struct {
	letters  secondary.LetterRepository
	users    secondary.UserRepository
	executor EffectExecutor
	loader   *snapshotLoader
	opts     Options
}

// NewLetterService creates a new LetterService with injected dependencies.
func NewLetterService(
	letters secondary.LetterRepository,
	users secondary.UserRepository,
	identityProvider secondary.IdentityProvider,
	executor EffectExecutor,
	opts Options,
) *LetterServiceImpl {
	opts = opts.withDefaults()
	return &LetterServiceImpl{
		letters:  letters,
		users:    users,
		executor: executor,
		loader:   newSnapshotLoader(letters, identityProvider, opts),
		opts:     opts,
	}
}

// CreateLetter registers an incoming letter and delivers it to the addressee.
func (s *LetterServiceImpl) CreateLetter(ctx context.Context, req primary.CreateLetterRequest) (*primary.CreateLetterResponse, error) {
	actor, err := s.loader.currentIdentity(ctx)
	if err != nil {
		return nil, err
	}

	var letterDate time.Time
	if req.LetterDate != "" {
		if letterDate, err = time.Parse(dateLayout, req.LetterDate); err != nil {
			return nil, fmt.Errorf("%w: letter date %q is not YYYY-MM-DD", permission.ErrInvalidRequest, req.LetterDate)
		}
	}

	addressee, err := lookupUser(ctx, s.users, req.AddresseeID)
	if err != nil {
		return nil, err
	}

	plan, err := permission.PlanLetter(permission.LetterPlanInput{
		Actor: actor,
		Request: permission.LetterRequest{
			Number:         req.Number,
			Classification: req.Classification,
			Subject:        req.Subject,
			Sender:         req.Sender,
			AddresseeID:    req.AddresseeID,
			FileRef:        req.FileRef,
			LetterDate:     letterDate,
		},
		Addressee: addressee,
		Now:       s.opts.Clock(),
		NewID:     s.opts.NewID,
	})
	s.recordDecision("create_letter", decisionFromError(err))
	if err != nil {
		return nil, err
	}

	if err := s.executor.Execute(ctx, plan.Effects()); err != nil {
		return nil, err
	}

	created, err := s.letters.GetLetter(ctx, plan.Letter.LetterID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch created letter: %w", err)
	}
	return &primary.CreateLetterResponse{
		LetterID: created.ID,
		Letter:   recordToLetterInfo(created),
	}, nil
}

// GetLetter returns the derived view of a letter for the acting user.
func (s *LetterServiceImpl) GetLetter(ctx context.Context, letterID string) (*primary.LetterView, error) {
	ld, err := s.loader.load(ctx, letterID)
	if err != nil {
		return nil, err
	}
	view, decision, err := buildView(ld.letter, ld.actor)
	if err != nil {
		return nil, err
	}
	s.recordDecision("view", decision)
	return view, nil
}

// ListLetters returns the letters that reached the acting user, newest first.
// A letter whose disposition tree is invalid stays in the list, flagged with
// the violation.
func (s *LetterServiceImpl) ListLetters(ctx context.Context) ([]*primary.LetterSummary, error) {
	actor, err := s.loader.currentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	loaded, err := s.loadForUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*primary.LetterSummary, 0, len(loaded.all))
	for _, entry := range loaded.all {
		if entry.err != nil {
			rec := entry.record
			summaries = append(summaries, &primary.LetterSummary{
				ID:             rec.ID,
				Number:         rec.Number,
				Classification: rec.Classification,
				Subject:        rec.Subject,
				Sender:         rec.Sender,
				CreatedAt:      rec.CreatedAt,
				Invalid:        true,
				Error:          entry.err.Error(),
			})
			continue
		}
		l := entry.letter
		st, err := status.Derive(l, actor.UserID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &primary.LetterSummary{
			ID:             l.ID,
			Number:         l.Number,
			Classification: string(l.Classification),
			Subject:        l.Subject,
			Sender:         l.Sender,
			Status:         string(st),
			Disposed:       l.Disposed(),
			CreatedAt:      formatTime(l.CreatedAt),
		})
	}
	return summaries, nil
}

// MarkRead records that the acting user opened the letter.
func (s *LetterServiceImpl) MarkRead(ctx context.Context, letterID string) error {
	ld, err := s.loader.load(ctx, letterID)
	if err != nil {
		return err
	}
	effs, err := permission.PlanMarkRead(ld.letter, ld.actor, s.opts.Clock())
	s.recordDecision("read", decisionFromError(err))
	if err != nil {
		return err
	}
	return s.executor.Execute(ctx, effs)
}

// MarkExecuted records that the acting operative carried out the letter.
func (s *LetterServiceImpl) MarkExecuted(ctx context.Context, letterID string) error {
	ld, err := s.loader.load(ctx, letterID)
	if err != nil {
		return err
	}
	effs, err := permission.PlanMarkExecuted(ld.letter, ld.actor, s.opts.Clock())
	s.recordDecision("execute", decisionFromError(err))
	if err != nil {
		return err
	}
	return s.executor.Execute(ctx, effs)
}

// GetTimeline reconstructs the audit history of a letter.
func (s *LetterServiceImpl) GetTimeline(ctx context.Context, req primary.TimelineRequest) ([]*primary.TimelineEntry, error) {
	ld, err := s.loader.load(ctx, req.LetterID)
	if err != nil {
		return nil, err
	}
	var opts []timeline.Option
	if req.Events {
		opts = append(opts, timeline.WithParticipantEvents())
	}
	tl, err := timeline.Build(ld.letter, opts...)
	if err != nil {
		return nil, err
	}
	if req.ParticipantID != "" {
		tl = tl.ByParticipant(req.ParticipantID)
	}
	return toTimelineEntries(tl), nil
}

// ActivityReport lists a user's actions across the letters that reached them.
func (s *LetterServiceImpl) ActivityReport(ctx context.Context, req primary.ActivityRequest) (*primary.ActivityReport, error) {
	actor, err := s.loader.currentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	period := activity.Period{Year: req.Year, Month: time.Month(req.Month)}
	if err := period.Validate(); err != nil {
		return nil, err
	}

	subjectID := req.UserID
	if subjectID == "" {
		subjectID = actor.UserID
	}
	subject, err := lookupUser(ctx, s.users, subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("user %s: %w", subjectID, secondary.ErrNotFound)
	}
	decision := permission.CanViewActivity(actor, *subject)
	s.recordDecision("view_activity", decision)
	if !decision.Allowed() {
		return nil, decision.Err()
	}

	loaded, err := s.loadForUser(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	letters := loaded.valid()
	events, err := activity.Report(subjectID, letters, period)
	if err != nil {
		return nil, err
	}
	levels := activity.Levels(letters, events)

	report := &primary.ActivityReport{
		UserID: subjectID,
		Period: period.String(),
		Counts: make(map[string]int),
		Events: make([]*primary.ActivityEvent, 0, len(events)),
	}
	for _, entry := range loaded.all {
		if entry.err != nil {
			report.InvalidLetters++
			report.InvalidLetterIDs = append(report.InvalidLetterIDs, entry.record.ID)
		}
	}
	for kind, n := range activity.Count(events) {
		report.Counts[string(kind)] = n
	}
	for _, e := range events {
		ev := &primary.ActivityEvent{
			Kind:          string(e.Kind),
			At:            formatTime(e.At),
			LetterID:      e.LetterID,
			LetterNumber:  e.LetterNumber,
			Subject:       e.Subject,
			DispositionID: e.DispositionID,
		}
		if level, ok := levels[e.DispositionID]; ok && e.DispositionID != "" {
			ev.LevelLabel = level.Label()
		}
		report.Events = append(report.Events, ev)
	}
	return report, nil
}

// ImportSnapshot validates and persists a complete letter graph.
func (s *LetterServiceImpl) ImportSnapshot(ctx context.Context, snapshot *primary.Snapshot) (string, error) {
	if snapshot == nil {
		return "", letter.ErrMissingSnapshot
	}
	actor, err := s.loader.currentIdentity(ctx)
	if err != nil {
		return "", err
	}
	decision := permission.CanImportSnapshot(actor)
	s.recordDecision("import", decision)
	if !decision.Allowed() {
		return "", decision.Err()
	}

	record, err := fromSnapshot(snapshot, formatTime(s.opts.Clock()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", permission.ErrInvalidRequest, err)
	}
	if _, err := s.loader.build(ctx, record); err != nil {
		return "", err
	}
	if err := s.letters.ImportSnapshot(ctx, record); err != nil {
		return "", fmt.Errorf("failed to import letter %s: %w", record.Letter.ID, err)
	}

	s.opts.Logger.InfoContext(ctx, "letter imported",
		append(ctxutil.LogAttrs(ctx),
			"letter_id", record.Letter.ID,
			"dispositions", len(record.Dispositions),
			"participants", len(record.Participants))...)
	return record.Letter.ID, nil
}

// ExportSnapshot returns the complete letter graph.
func (s *LetterServiceImpl) ExportSnapshot(ctx context.Context, letterID string) (*primary.Snapshot, error) {
	ld, err := s.loader.load(ctx, letterID)
	if err != nil {
		return nil, err
	}
	return toSnapshot(ld.record), nil
}

// userLetter is one entry of a user's letter list. err is set, and letter
// is nil, when the stored graph failed validation.
type userLetter struct {
	record *secondary.LetterRecord
	letter *letter.Letter
	err    error
}

type userLetters struct {
	all []userLetter
}

// valid returns the letters whose graph passed validation, in list order.
func (u userLetters) valid() []*letter.Letter {
	result := make([]*letter.Letter, 0, len(u.all))
	for _, entry := range u.all {
		if entry.err == nil {
			result = append(result, entry.letter)
		}
	}
	return result
}

// loadForUser loads every letter that reached userID, in list order.
// Missing snapshots are skipped. Invalid trees are kept with their error.
func (s *LetterServiceImpl) loadForUser(ctx context.Context, userID string) (userLetters, error) {
	records, err := s.letters.ListLetters(ctx, secondary.LetterFilters{ParticipantID: userID})
	if err != nil {
		return userLetters{}, fmt.Errorf("failed to list letters: %w", err)
	}

	entries := make([]*userLetter, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, rec := range records {
		g.Go(func() error {
			snap, err := s.letters.GetSnapshot(gctx, rec.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch letter %s: %w", rec.ID, err)
			}
			if snap == nil {
				s.opts.Logger.WarnContext(gctx, "letter snapshot not available", "letter_id", rec.ID)
				return nil
			}
			l, err := s.loader.build(gctx, snap)
			if err != nil {
				entries[i] = &userLetter{record: rec, err: err}
				return nil
			}
			entries[i] = &userLetter{record: rec, letter: l}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return userLetters{}, err
	}

	var result userLetters
	for _, entry := range entries {
		if entry != nil {
			result.all = append(result.all, *entry)
		}
	}
	return result, nil
}

func (s *LetterServiceImpl) recordDecision(action string, d permission.Decision) {
	recordDecision(s.opts.Metrics, action, d)
}

func recordDecision(m *metrics.Metrics, action string, d permission.Decision) {
	m.IncrementDecision(action, string(d.Outcome), string(d.Reason))
}

// decisionFromError recovers the decision behind a planner error. Validation
// failures happen after an allowed decision.
func decisionFromError(err error) permission.Decision {
	var denied *permission.DeniedError
	if errors.As(err, &denied) {
		return permission.Decision{Outcome: permission.OutcomeForbidden, Reason: denied.Reason, Message: denied.Msg}
	}
	return permission.Decision{Outcome: permission.OutcomeAllowed}
}

// lookupUser resolves a directory entry. Unknown ids return nil without error.
func lookupUser(ctx context.Context, users secondary.UserRepository, id string) (*identity.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	rec, err := users.GetByID(ctx, id)
	if errors.Is(err, secondary.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}
	u, err := toUser(*rec)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func recordToLetterInfo(r *secondary.LetterRecord) *primary.LetterInfo {
	return &primary.LetterInfo{
		ID:             r.ID,
		Number:         r.Number,
		Classification: r.Classification,
		Subject:        r.Subject,
		Sender:         r.Sender,
		CreatorID:      r.CreatorID,
		AddresseeID:    r.AddresseeID,
		FileRef:        r.FileRef,
		LetterDate:     r.LetterDate,
		CreatedAt:      r.CreatedAt,
	}
}

var _ primary.LetterService = (*LetterServiceImpl)(nil)
