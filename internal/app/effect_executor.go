// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/example/dispo/internal/core/effects"
	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/metrics"
	"github.com/example/dispo/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place writes happen.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) error
}

// DefaultEffectExecutor implements EffectExecutor against the letter repository.
type DefaultEffectExecutor struct {
	letters secondary.LetterRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(letters secondary.LetterRepository, logger *slog.Logger, m *metrics.Metrics) *DefaultEffectExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultEffectExecutor{letters: letters, logger: logger, metrics: m}
}

// Execute processes a slice of effects, executing each in sequence.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) error {
	for _, eff := range effs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.executeOne(ctx, eff); err != nil {
			return fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) error {
	var err error
	switch typed := eff.(type) {
	case effects.CreateLetterEffect:
		err = e.executeCreateLetter(ctx, typed)
	case effects.CreateDispositionEffect:
		err = e.executeCreateDisposition(ctx, typed)
	case effects.MarkReadEffect:
		err = e.letters.MarkRead(ctx, typed.LetterID, typed.UserID, formatTime(typed.At))
	case effects.MarkExecutedEffect:
		err = e.letters.MarkExecuted(ctx, typed.LetterID, typed.UserID, formatTime(typed.At))
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return nil
	case effects.LogEffect:
		e.executeLog(ctx, typed)
	default:
		return fmt.Errorf("unknown effect type: %T", eff)
	}
	if err != nil {
		return err
	}
	e.metrics.IncrementEffect(eff.EffectType())
	return nil
}

func (e *DefaultEffectExecutor) executeCreateLetter(ctx context.Context, eff effects.CreateLetterEffect) error {
	at := formatTime(eff.At)
	var addressee *secondary.ParticipantRecord
	if eff.Arrival.UserID != "" {
		p := arrivalRecord(eff.LetterID, eff.Arrival, at)
		addressee = &p
	}
	return e.letters.CreateLetter(ctx, &secondary.LetterRecord{
		ID:             eff.LetterID,
		Number:         eff.Number,
		Classification: eff.Classification,
		Subject:        eff.Subject,
		Sender:         eff.Sender,
		CreatorID:      eff.CreatorID,
		AddresseeID:    eff.AddresseeID,
		FileRef:        eff.FileRef,
		LetterDate:     eff.LetterDate.Format(dateLayout),
		CreatedAt:      at,
	}, addressee)
}

func (e *DefaultEffectExecutor) executeCreateDisposition(ctx context.Context, eff effects.CreateDispositionEffect) error {
	at := formatTime(eff.At)
	record := &secondary.DispositionRecord{
		ID:           eff.DispositionID,
		LetterID:     eff.LetterID,
		ParentID:     eff.ParentID,
		CreatorID:    eff.CreatorID,
		Note:         eff.Note,
		ContentTags:  eff.ContentTags,
		SignatureRef: eff.SignatureRef,
		CreatedAt:    at,
	}
	for _, r := range eff.Recipients {
		record.Recipients = append(record.Recipients, secondary.RecipientRecord{
			ID:            r.ID,
			DispositionID: eff.DispositionID,
			UserID:        r.UserID,
			CreatedAt:     at,
		})
	}
	arrivals := make([]secondary.ParticipantRecord, 0, len(eff.Arrivals))
	for _, a := range eff.Arrivals {
		arrivals = append(arrivals, arrivalRecord(eff.LetterID, a, at))
	}
	return e.letters.CreateDisposition(ctx, record, arrivals)
}

func arrivalRecord(letterID string, a effects.Arrival, at string) secondary.ParticipantRecord {
	return secondary.ParticipantRecord{
		ID:        a.ParticipantID,
		LetterID:  letterID,
		UserID:    a.UserID,
		CreatedAt: at,
	}
}

func (e *DefaultEffectExecutor) executeLog(ctx context.Context, eff effects.LogEffect) {
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(eff.Level))

	args := ctxutil.LogAttrs(ctx)
	for _, k := range slices.Sorted(maps.Keys(eff.Fields)) {
		args = append(args, k, eff.Fields[k])
	}
	e.logger.Log(ctx, level, eff.Message, args...)
}

var _ EffectExecutor = (*DefaultEffectExecutor)(nil)
