package app

import (
	"fmt"
	"time"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
	"github.com/example/dispo/internal/core/permission"
	"github.com/example/dispo/internal/core/status"
	"github.com/example/dispo/internal/core/timeline"
	"github.com/example/dispo/internal/ports/primary"
	"github.com/example/dispo/internal/ports/secondary"
)

// Stored timestamps use a fixed width so that they sort as text.
const (
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
	dateLayout = "2006-01-02"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}

func parseOptional(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func toUser(rec secondary.UserRecord) (identity.User, error) {
	role, err := identity.ParseRole(rec.Role)
	if err != nil {
		return identity.User{}, fmt.Errorf("user %s: %w", rec.ID, err)
	}
	return identity.User{ID: rec.ID, Name: rec.Name, Role: role, SupervisorID: rec.SupervisorID}, nil
}

// buildLetter converts a flat snapshot record into the immutable core letter,
// validating the disposition tree on the way.
func buildLetter(rec *secondary.LetterSnapshotRecord) (*letter.Letter, error) {
	if rec == nil {
		return nil, letter.ErrMissingSnapshot
	}
	lr := rec.Letter

	classification, err := letter.ParseClassification(lr.Classification)
	if err != nil {
		return nil, fmt.Errorf("letter %s: %w", lr.ID, err)
	}
	letterDate, err := parseTime(lr.LetterDate)
	if err != nil {
		return nil, fmt.Errorf("letter %s letter date: %w", lr.ID, err)
	}
	createdAt, err := parseTime(lr.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("letter %s created at: %w", lr.ID, err)
	}

	specs := make([]disposition.Spec, 0, len(rec.Dispositions))
	for _, d := range rec.Dispositions {
		at, err := parseTime(d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("disposition %s: %w", d.ID, err)
		}
		recipients := make([]disposition.Recipient, 0, len(d.Recipients))
		for _, r := range d.Recipients {
			rat := at
			if r.CreatedAt != "" {
				if rat, err = parseTime(r.CreatedAt); err != nil {
					return nil, fmt.Errorf("recipient %s: %w", r.ID, err)
				}
			}
			recipients = append(recipients, disposition.Recipient{
				ID:            r.ID,
				UserID:        r.UserID,
				DispositionID: r.DispositionID,
				CreatedAt:     rat,
			})
		}
		specs = append(specs, disposition.Spec{
			ID:           d.ID,
			ParentID:     d.ParentID,
			CreatorID:    d.CreatorID,
			Note:         d.Note,
			SignatureRef: d.SignatureRef,
			ContentTags:  d.ContentTags,
			Recipients:   recipients,
			CreatedAt:    at,
		})
	}

	tree, err := disposition.Build(lr.AddresseeID, specs)
	if err != nil {
		return nil, fmt.Errorf("letter %s: %w", lr.ID, err)
	}

	participants := make(map[string]letter.ParticipantStatus, len(rec.Participants))
	for _, p := range rec.Participants {
		ps := letter.ParticipantStatus{UserID: p.UserID}
		if ps.CreatedAt, err = parseTime(p.CreatedAt); err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.UserID, err)
		}
		if ps.ReadAt, err = parseOptional(p.ReadAt); err != nil {
			return nil, fmt.Errorf("participant %s read at: %w", p.UserID, err)
		}
		if ps.ExecutedAt, err = parseOptional(p.ExecutedAt); err != nil {
			return nil, fmt.Errorf("participant %s executed at: %w", p.UserID, err)
		}
		participants[p.UserID] = ps
	}

	people := make(map[string]identity.User, len(rec.People))
	for _, u := range rec.People {
		user, err := toUser(u)
		if err != nil {
			return nil, err
		}
		people[u.ID] = user
	}

	return &letter.Letter{
		ID:             lr.ID,
		Number:         lr.Number,
		Classification: classification,
		Subject:        lr.Subject,
		Sender:         lr.Sender,
		CreatorID:      lr.CreatorID,
		AddresseeID:    lr.AddresseeID,
		FileRef:        lr.FileRef,
		LetterDate:     letterDate,
		CreatedAt:      createdAt,
		Tree:           tree,
		Participants:   participants,
		People:         people,
	}, nil
}

func toLetterInfo(l *letter.Letter) primary.LetterInfo {
	return primary.LetterInfo{
		ID:             l.ID,
		Number:         l.Number,
		Classification: string(l.Classification),
		Subject:        l.Subject,
		Sender:         l.Sender,
		CreatorID:      l.CreatorID,
		AddresseeID:    l.AddresseeID,
		FileRef:        l.FileRef,
		LetterDate:     l.LetterDate.Format(dateLayout),
		CreatedAt:      formatTime(l.CreatedAt),
	}
}

func toDispositionCheck(d permission.Decision) *primary.DispositionCheck {
	check := &primary.DispositionCheck{
		Outcome: string(d.Outcome),
		Reason:  string(d.Reason),
		Message: d.Message,
	}
	if d.Allowed() {
		level := d.Level()
		check.Level = int(level)
		check.LevelLabel = level.Label()
		if d.Node != nil {
			check.ParentID = d.Node.ID
		}
	}
	return check
}

func toDispositionNode(l *letter.Letter, n *disposition.Node) *primary.DispositionNode {
	node := &primary.DispositionNode{
		ID:           n.ID,
		Level:        int(n.Level()),
		LevelLabel:   n.Level().Label(),
		CreatorID:    n.CreatorID,
		CreatorName:  l.Name(n.CreatorID),
		Note:         n.Note,
		ContentTags:  n.ContentTags,
		SignatureRef: n.SignatureRef,
		CreatedAt:    formatTime(n.CreatedAt),
	}
	for _, r := range n.Recipients {
		st, _ := status.Derive(l, r.UserID)
		node.Recipients = append(node.Recipients, &primary.RecipientView{
			UserID: r.UserID,
			Name:   l.Name(r.UserID),
			Status: string(st),
		})
	}
	for _, child := range n.Children() {
		node.Children = append(node.Children, toDispositionNode(l, child))
	}
	return node
}

func toParticipantViews(l *letter.Letter) []*primary.ParticipantView {
	var views []*primary.ParticipantView
	for _, id := range l.ParticipantIDs() {
		p := l.Participants[id]
		views = append(views, &primary.ParticipantView{
			UserID:     id,
			Name:       l.Name(id),
			Status:     string(status.FromParticipant(p)),
			ReadAt:     formatOptional(p.ReadAt),
			ExecutedAt: formatOptional(p.ExecutedAt),
			CreatedAt:  formatTime(p.CreatedAt),
		})
	}
	return views
}

func toTimelineEntries(tl timeline.Timeline) []*primary.TimelineEntry {
	entries := make([]*primary.TimelineEntry, 0, tl.Len())
	for e := range tl.All() {
		entries = append(entries, &primary.TimelineEntry{
			Kind:         string(e.Kind),
			At:           formatTime(e.At),
			LevelLabel:   e.LevelLabel,
			Description:  e.Description,
			ActorID:      e.ActorID,
			Recipients:   e.Recipients,
			SourceNodeID: e.SourceNodeID,
		})
	}
	return entries
}

// buildView derives everything the sink shows to actor.
func buildView(l *letter.Letter, actor identity.Identity) (*primary.LetterView, permission.Decision, error) {
	st, err := status.Derive(l, actor.UserID)
	if err != nil {
		return nil, permission.Decision{}, err
	}
	summary, err := status.Summarize(l)
	if err != nil {
		return nil, permission.Decision{}, err
	}
	tl, err := timeline.Build(l)
	if err != nil {
		return nil, permission.Decision{}, err
	}

	decision := permission.CanDispose(l, actor)
	view := &primary.LetterView{
		Letter:     toLetterInfo(l),
		ViewerID:   actor.UserID,
		Status:     string(st),
		Decision:   toDispositionCheck(decision),
		CanRead:    permission.CanMarkRead(l, actor).Allowed() && st == status.StatusUnread,
		CanExecute: permission.CanMarkExecuted(l, actor).Allowed(),
		Progress: primary.Progress{
			Participants:     summary.Participants,
			Unread:           summary.Unread,
			Read:             summary.Read,
			Executed:         summary.Executed,
			ExecutionPercent: summary.ExecutionPercent(),
		},
		Participants: toParticipantViews(l),
		Timeline:     toTimelineEntries(tl),
	}
	if root := l.Tree.Root(); root != nil {
		view.Dispositions = []*primary.DispositionNode{toDispositionNode(l, root)}
	}
	return view, decision, nil
}

// toSnapshot converts a stored graph to the port representation.
func toSnapshot(rec *secondary.LetterSnapshotRecord) *primary.Snapshot {
	lr := rec.Letter
	snap := &primary.Snapshot{
		Letter: primary.LetterInfo{
			ID:             lr.ID,
			Number:         lr.Number,
			Classification: lr.Classification,
			Subject:        lr.Subject,
			Sender:         lr.Sender,
			CreatorID:      lr.CreatorID,
			AddresseeID:    lr.AddresseeID,
			FileRef:        lr.FileRef,
			LetterDate:     lr.LetterDate,
			CreatedAt:      lr.CreatedAt,
		},
	}
	for _, d := range rec.Dispositions {
		sd := primary.SnapshotDisposition{
			ID:           d.ID,
			ParentID:     d.ParentID,
			CreatorID:    d.CreatorID,
			Note:         d.Note,
			ContentTags:  d.ContentTags,
			SignatureRef: d.SignatureRef,
			CreatedAt:    d.CreatedAt,
		}
		for _, r := range d.Recipients {
			sd.Recipients = append(sd.Recipients, primary.SnapshotRecipient{ID: r.ID, UserID: r.UserID, CreatedAt: r.CreatedAt})
		}
		snap.Dispositions = append(snap.Dispositions, sd)
	}
	for _, p := range rec.Participants {
		snap.Participants = append(snap.Participants, primary.SnapshotParticipant{
			ID: p.ID, UserID: p.UserID, ReadAt: p.ReadAt, ExecutedAt: p.ExecutedAt, CreatedAt: p.CreatedAt,
		})
	}
	for _, u := range rec.People {
		snap.People = append(snap.People, primary.User{ID: u.ID, Name: u.Name, Role: u.Role, SupervisorID: u.SupervisorID})
	}
	return snap
}

// fromSnapshot converts an imported graph to records, normalizing legacy
// role and classification labels.
func fromSnapshot(snap *primary.Snapshot, importedAt string) (*secondary.LetterSnapshotRecord, error) {
	li := snap.Letter
	classification, err := letter.ParseClassification(li.Classification)
	if err != nil {
		return nil, fmt.Errorf("letter %s: %w", li.ID, err)
	}
	rec := &secondary.LetterSnapshotRecord{
		Letter: secondary.LetterRecord{
			ID:             li.ID,
			Number:         li.Number,
			Classification: string(classification),
			Subject:        li.Subject,
			Sender:         li.Sender,
			CreatorID:      li.CreatorID,
			AddresseeID:    li.AddresseeID,
			FileRef:        li.FileRef,
			LetterDate:     li.LetterDate,
			CreatedAt:      li.CreatedAt,
		},
	}
	for _, d := range snap.Dispositions {
		dr := secondary.DispositionRecord{
			ID:           d.ID,
			LetterID:     li.ID,
			ParentID:     d.ParentID,
			CreatorID:    d.CreatorID,
			Note:         d.Note,
			ContentTags:  d.ContentTags,
			SignatureRef: d.SignatureRef,
			CreatedAt:    d.CreatedAt,
		}
		for _, r := range d.Recipients {
			dr.Recipients = append(dr.Recipients, secondary.RecipientRecord{
				ID: r.ID, DispositionID: d.ID, UserID: r.UserID, CreatedAt: r.CreatedAt,
			})
		}
		rec.Dispositions = append(rec.Dispositions, dr)
	}
	for _, p := range snap.Participants {
		rec.Participants = append(rec.Participants, secondary.ParticipantRecord{
			ID: p.ID, LetterID: li.ID, UserID: p.UserID, ReadAt: p.ReadAt, ExecutedAt: p.ExecutedAt, CreatedAt: p.CreatedAt,
		})
	}
	for _, u := range snap.People {
		role, err := identity.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
		rec.People = append(rec.People, secondary.UserRecord{
			ID: u.ID, Name: u.Name, Role: string(role), SupervisorID: u.SupervisorID, CreatedAt: importedAt,
		})
	}
	return rec, nil
}
