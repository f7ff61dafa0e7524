// Package permission contains the pure business logic deciding who may act on a letter.
// This file contains pure planner functions that generate effects.
package permission

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/dispo/internal/core/effects"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
)

// ErrInvalidRequest marks a malformed write request.
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// DispositionRequest is what the acting officer submits.
type DispositionRequest struct {
	Note         string
	ContentTags  []string
	RecipientIDs []string
	SignatureRef string
}

// DispositionPlanInput contains the inputs needed to plan a disposition.
// All values are pre-fetched by the caller - no I/O in the planner.
type DispositionPlanInput struct {
	Letter  *letter.Letter
	Actor   identity.Identity
	Request DispositionRequest
	// Users resolves recipients; unknown ids are rejected.
	Users map[string]identity.User
	// KnownTags is the content-tag catalogue. Empty disables the check.
	KnownTags []string
	Now       time.Time
	NewID     func() string
}

// DispositionPlan represents the planned effects for one disposition.
type DispositionPlan struct {
	Decision    Decision
	Disposition effects.CreateDispositionEffect
}

// Effects returns all effects as a flat slice for execution.
// The disposition and the arrivals it causes form a single write.
func (p DispositionPlan) Effects() []effects.Effect {
	return []effects.Effect{
		p.Disposition,
		effects.LogEffect{
			Level:   "info",
			Message: "disposition planned",
			Fields: map[string]any{
				"letter_id":      p.Disposition.LetterID,
				"disposition_id": p.Disposition.DispositionID,
				"level":          p.Disposition.Level,
				"recipients":     len(p.Disposition.Recipients),
				"arrivals":       len(p.Disposition.Arrivals),
			},
		},
	}
}

// PlanDisposition authorizes and plans a new disposition node.
// A refused decision is returned together with its DeniedError.
func PlanDisposition(input DispositionPlanInput) (DispositionPlan, error) {
	decision := CanDispose(input.Letter, input.Actor)
	plan := DispositionPlan{Decision: decision}
	if !decision.Allowed() {
		return plan, decision.Err()
	}

	recipients, err := validateDisposition(input)
	if err != nil {
		return plan, err
	}

	l := input.Letter
	dispositionID := input.NewID()
	entries := make([]effects.RecipientEntry, len(recipients))
	var arrivals []effects.Arrival
	for i, userID := range recipients {
		entries[i] = effects.RecipientEntry{ID: input.NewID(), UserID: userID}
		if _, reached := l.Participant(userID); !reached {
			arrivals = append(arrivals, effects.Arrival{ParticipantID: input.NewID(), UserID: userID})
		}
	}

	parentID := ""
	if decision.Node != nil {
		parentID = decision.Node.ID
	}
	plan.Disposition = effects.CreateDispositionEffect{
		DispositionID: dispositionID,
		LetterID:      l.ID,
		ParentID:      parentID,
		Level:         int(decision.Level()),
		CreatorID:     input.Actor.UserID,
		Note:          strings.TrimSpace(input.Request.Note),
		ContentTags:   dedupeAndTrim(input.Request.ContentTags),
		SignatureRef:  input.Request.SignatureRef,
		Recipients:    entries,
		Arrivals:      arrivals,
		At:            input.Now,
	}
	return plan, nil
}

func validateDisposition(input DispositionPlanInput) ([]string, error) {
	req := input.Request
	recipients := dedupeAndTrim(req.RecipientIDs)
	if len(recipients) == 0 {
		return nil, invalidf("at least one recipient is required")
	}

	tags := dedupeAndTrim(req.ContentTags)
	if len(tags) == 0 {
		return nil, invalidf("at least one content tag is required")
	}
	if len(input.KnownTags) > 0 {
		for _, tag := range tags {
			if !slices.Contains(input.KnownTags, tag) {
				return nil, invalidf("unknown content tag %q", tag)
			}
		}
	}

	for _, id := range recipients {
		if id == input.Actor.UserID {
			return nil, invalidf("cannot dispose a letter to yourself")
		}
		u, ok := input.Users[id]
		if !ok {
			return nil, invalidf("recipient %s not found", id)
		}
		if !u.Role.Participates() {
			return nil, invalidf("recipient %s has role %s and cannot receive dispositions", id, u.Role)
		}
	}
	return recipients, nil
}

// PlanMarkRead authorizes and plans a read transition. Reading twice plans nothing.
func PlanMarkRead(l *letter.Letter, actor identity.Identity, now time.Time) ([]effects.Effect, error) {
	decision := CanMarkRead(l, actor)
	if !decision.Allowed() {
		return nil, decision.Err()
	}
	p, _ := l.Participant(actor.UserID)
	if p.ReadAt != nil {
		return []effects.Effect{effects.NoEffect{}}, nil
	}
	return []effects.Effect{effects.MarkReadEffect{LetterID: l.ID, UserID: actor.UserID, At: now}}, nil
}

// PlanMarkExecuted authorizes and plans an execution transition.
// An unread letter is marked read at the same instant so that execution
// never precedes reading in newly written data.
func PlanMarkExecuted(l *letter.Letter, actor identity.Identity, now time.Time) ([]effects.Effect, error) {
	decision := CanMarkExecuted(l, actor)
	if !decision.Allowed() {
		return nil, decision.Err()
	}
	var result []effects.Effect
	p, _ := l.Participant(actor.UserID)
	if p.ReadAt == nil {
		result = append(result, effects.MarkReadEffect{LetterID: l.ID, UserID: actor.UserID, At: now})
	}
	result = append(result, effects.MarkExecutedEffect{LetterID: l.ID, UserID: actor.UserID, At: now})
	return result, nil
}

// LetterRequest is what a clerk submits to register a letter.
type LetterRequest struct {
	Number         string
	Classification string
	Subject        string
	Sender         string
	AddresseeID    string
	FileRef        string
	LetterDate     time.Time
}

// LetterPlanInput contains the inputs needed to plan a letter registration.
type LetterPlanInput struct {
	Actor     identity.Identity
	Request   LetterRequest
	Addressee *identity.User // nil when the addressee id is unknown
	Now       time.Time
	NewID     func() string
}

// LetterPlan represents the planned effects for registering a letter.
type LetterPlan struct {
	Letter effects.CreateLetterEffect
}

// Effects returns all effects as a flat slice for execution.
func (p LetterPlan) Effects() []effects.Effect {
	return []effects.Effect{p.Letter}
}

// PlanLetter authorizes and plans a letter registration. The letter reaches
// its addressee at ingestion time.
func PlanLetter(input LetterPlanInput) (LetterPlan, error) {
	if d := CanCreateLetter(input.Actor); !d.Allowed() {
		return LetterPlan{}, d.Err()
	}

	req := input.Request
	classification, err := letter.ParseClassification(req.Classification)
	if err != nil {
		return LetterPlan{}, invalidf("%v", err)
	}
	if strings.TrimSpace(req.Subject) == "" {
		return LetterPlan{}, invalidf("subject is required")
	}
	if strings.TrimSpace(req.Sender) == "" {
		return LetterPlan{}, invalidf("sender is required")
	}
	if input.Addressee == nil {
		return LetterPlan{}, invalidf("addressee %s not found", req.AddresseeID)
	}
	if !input.Addressee.Role.Participates() {
		return LetterPlan{}, invalidf("addressee %s has role %s and cannot receive letters", input.Addressee.ID, input.Addressee.Role)
	}

	letterDate := req.LetterDate
	if letterDate.IsZero() {
		letterDate = input.Now
	}

	letterID := input.NewID()
	return LetterPlan{
		Letter: effects.CreateLetterEffect{
			LetterID:       letterID,
			Number:         strings.TrimSpace(req.Number),
			Classification: string(classification),
			Subject:        strings.TrimSpace(req.Subject),
			Sender:         strings.TrimSpace(req.Sender),
			CreatorID:      input.Actor.UserID,
			AddresseeID:    input.Addressee.ID,
			FileRef:        req.FileRef,
			LetterDate:     letterDate,
			Arrival:        effects.Arrival{ParticipantID: input.NewID(), UserID: input.Addressee.ID},
			At:             input.Now,
		},
	}, nil
}

// dedupeAndTrim removes duplicates and empty strings, preserving order.
func dedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
