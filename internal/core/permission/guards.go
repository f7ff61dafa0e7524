// Package permission contains the pure business logic deciding who may act on a letter.
// Guards are pure functions that evaluate preconditions without side effects.
package permission

import (
	"errors"
	"fmt"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
)

// ErrPermissionDenied marks an expected, user-facing refusal.
var ErrPermissionDenied = errors.New("permission denied")

// Outcome is the kind of decision.
type Outcome string

const (
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeAllowed         Outcome = "allowed"
	OutcomeAlreadyDisposed Outcome = "already_disposed"
)

// Reason explains a refusal.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonWrongRole       Reason = "wrong_role"
	ReasonAlreadyDisposed Reason = "already_disposed"
	ReasonNotRelated      Reason = "not_related"
	ReasonMaxDepth        Reason = "max_depth_reached"
	ReasonAlreadyExecuted Reason = "already_executed"
	ReasonMissingSnapshot Reason = "missing_snapshot"
)

// Decision represents the outcome of a guard evaluation.
type Decision struct {
	Outcome Outcome
	Reason  Reason
	// Node is the parent of the disposition to create; nil means the root.
	// Only set on an allowed disposition decision.
	Node    *disposition.Node
	Message string
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeAllowed
}

// Level returns the level the new disposition would get.
func (d Decision) Level() disposition.Level {
	if d.Node == nil {
		return disposition.Level1
	}
	return d.Node.Level() + 1
}

// Err converts the decision to an error if not allowed.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return &DeniedError{Reason: d.Reason, Msg: d.Message}
}

// DeniedError carries the refusal reason.
type DeniedError struct {
	Reason Reason
	Msg    string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPermissionDenied.Error(), e.Msg)
}

func (e *DeniedError) Unwrap() error { return ErrPermissionDenied }

func allowed(node *disposition.Node) Decision {
	return Decision{Outcome: OutcomeAllowed, Node: node}
}

func forbidden(reason Reason, format string, args ...any) Decision {
	return Decision{Outcome: OutcomeForbidden, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func missingSnapshot() Decision {
	return forbidden(ReasonMissingSnapshot, "%s", letter.ErrMissingSnapshot.Error())
}

// CanDispose evaluates whether the actor may create a disposition on the letter.
// Rules (in order):
// - Only officers dispose at all
// - An officer disposes at most once per letter
// - The addressee creates the root of an undisposed letter
// - A recipient creates a child of the node that reached them, below level 3
// - Anyone else is not related to the letter
func CanDispose(l *letter.Letter, actor identity.Identity) Decision {
	if l == nil {
		return missingSnapshot()
	}

	// Rule 0: role gate
	if !actor.Role.CanDispose() {
		return forbidden(ReasonWrongRole, "role %s cannot create dispositions (officers only)", roleName(actor.Role))
	}

	// Rule 1: already disposed by this user
	if mine := l.Tree.FindByCreator(actor.UserID); len(mine) > 0 {
		return Decision{
			Outcome: OutcomeAlreadyDisposed,
			Reason:  ReasonAlreadyDisposed,
			Message: fmt.Sprintf("user %s already disposed letter %s (disposition %s)", actor.UserID, l.ID, mine[0].ID),
		}
	}

	// Rule 2: addressee creates the root
	if l.Tree.Empty() && l.AddresseeID == actor.UserID {
		return allowed(nil)
	}

	// Rule 3: recipient creates a child, unless every node reaching them is terminal
	if reached := l.Tree.FindByRecipient(actor.UserID); len(reached) > 0 {
		for _, n := range reached {
			if !n.Level().Terminal() {
				return allowed(n)
			}
		}
		return forbidden(ReasonMaxDepth,
			"disposition %s is at level %d; no further disposition is allowed", reached[0].ID, int(disposition.MaxLevel))
	}

	// Rule 4: unrelated
	return forbidden(ReasonNotRelated, "user %s is not related to letter %s", actor.UserID, l.ID)
}

// CanMarkExecuted evaluates whether the actor may mark their own participation executed.
// Rules:
// - Only operatives execute
// - The letter must have reached the actor
// - Execution happens once
func CanMarkExecuted(l *letter.Letter, actor identity.Identity) Decision {
	if l == nil {
		return missingSnapshot()
	}
	if !actor.Role.CanExecute() {
		return forbidden(ReasonWrongRole, "role %s cannot mark letters executed (operatives only)", roleName(actor.Role))
	}
	p, ok := l.Participant(actor.UserID)
	if !ok {
		return forbidden(ReasonNotRelated, "user %s is not related to letter %s", actor.UserID, l.ID)
	}
	if p.ExecutedAt != nil {
		return forbidden(ReasonAlreadyExecuted, "user %s already executed letter %s", actor.UserID, l.ID)
	}
	return allowed(nil)
}

// CanMarkRead evaluates whether the actor may mark the letter read.
// Rules:
// - Only officers and operatives take part in routing
// - The letter must have reached the actor
func CanMarkRead(l *letter.Letter, actor identity.Identity) Decision {
	if l == nil {
		return missingSnapshot()
	}
	if !actor.Role.Participates() {
		return forbidden(ReasonWrongRole, "role %s does not take part in letter routing", roleName(actor.Role))
	}
	if _, ok := l.Participant(actor.UserID); !ok {
		return forbidden(ReasonNotRelated, "user %s is not related to letter %s", actor.UserID, l.ID)
	}
	return allowed(nil)
}

// CanCreateLetter evaluates whether the actor may register a letter.
// Rules:
// - Only clerks register letters
func CanCreateLetter(actor identity.Identity) Decision {
	if !actor.Role.CanCreateLetter() {
		return forbidden(ReasonWrongRole, "role %s cannot register letters (clerks only)", roleName(actor.Role))
	}
	return allowed(nil)
}

// CanViewActivity evaluates whether the actor may see userID's activity report.
// Rules:
// - Everyone sees their own activity
// - Administrators see everyone's
// - Officers see the activity of users they supervise
func CanViewActivity(actor identity.Identity, subject identity.User) Decision {
	switch {
	case actor.UserID == subject.ID:
		return allowed(nil)
	case actor.Role == identity.RoleAdministrator:
		return allowed(nil)
	case actor.Role == identity.RoleOfficer && subject.SupervisorID == actor.UserID:
		return allowed(nil)
	}
	return forbidden(ReasonNotRelated, "user %s may not view the activity of %s", actor.UserID, subject.ID)
}

// CanImportSnapshot evaluates whether the actor may import historical letters.
// Rules:
// - Only clerks and administrators import
func CanImportSnapshot(actor identity.Identity) Decision {
	if actor.Role != identity.RoleClerk && actor.Role != identity.RoleAdministrator {
		return forbidden(ReasonWrongRole, "role %s cannot import letters (clerks and administrators only)", roleName(actor.Role))
	}
	return allowed(nil)
}

// CanManageUsers evaluates whether the actor may add users to the directory.
// Rules:
// - An empty directory accepts its first user from anyone
// - Otherwise only administrators add users
func CanManageUsers(actor identity.Identity, directoryEmpty bool) Decision {
	if directoryEmpty || actor.Role == identity.RoleAdministrator {
		return allowed(nil)
	}
	return forbidden(ReasonWrongRole, "role %s cannot manage users (administrators only)", roleName(actor.Role))
}

func roleName(r identity.Role) string {
	if r == "" {
		return "(none)"
	}
	return string(r)
}
