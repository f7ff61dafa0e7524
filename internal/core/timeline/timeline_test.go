package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/letter"
)

var (
	t0 = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(2 * time.Hour)
)

func recipients(nodeID string, userIDs ...string) []disposition.Recipient {
	out := make([]disposition.Recipient, len(userIDs))
	for i, u := range userIDs {
		out[i] = disposition.Recipient{ID: nodeID + "-" + u, UserID: u, DispositionID: nodeID}
	}
	return out
}

func newLetter(t *testing.T, specs []disposition.Spec, participants ...letter.ParticipantStatus) *letter.Letter {
	t.Helper()
	tree, err := disposition.Build("U1", specs)
	require.NoError(t, err)
	l := &letter.Letter{
		ID:           "L1",
		Number:       "005/UND/2024",
		Sender:       "Provincial office",
		CreatorID:    "C1",
		AddresseeID:  "U1",
		CreatedAt:    t0,
		Tree:         tree,
		Participants: map[string]letter.ParticipantStatus{},
		People: map[string]identity.User{
			"U1": {ID: "U1", Name: "Head of Office"},
			"U2": {ID: "U2", Name: "Section Head"},
		},
	}
	for _, p := range participants {
		l.Participants[p.UserID] = p
	}
	return l
}

func kinds(tl Timeline) []string {
	var out []string
	for e := range tl.All() {
		label := string(e.Kind)
		if e.SourceNodeID != "" {
			label += ":" + e.SourceNodeID
		}
		out = append(out, label)
	}
	return out
}

func TestBuild_EqualTimestampsKeepTraversalOrder(t *testing.T) {
	// Root and child share T1; the child must never precede its parent.
	specs := []disposition.Spec{
		{ID: "child", ParentID: "root", CreatorID: "U2", Recipients: recipients("child", "U3"), CreatedAt: t1},
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2"), CreatedAt: t1},
	}

	tl, err := Build(newLetter(t, specs))
	require.NoError(t, err)

	assert.Equal(t, []string{"created", "disposed:root", "disposed:child"}, kinds(tl))
	entries := tl.Entries()
	assert.Equal(t, t0, entries[0].At)
	assert.Equal(t, "Disposition 1", entries[1].LevelLabel)
	assert.Equal(t, "Disposition 2", entries[2].LevelLabel)
}

func TestBuild_Entries(t *testing.T) {
	specs := []disposition.Spec{
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2", "U3"), CreatedAt: t1},
	}

	tl, err := Build(newLetter(t, specs))
	require.NoError(t, err)
	require.Equal(t, 2, tl.Len())

	created := tl.Entries()[0]
	assert.Equal(t, KindCreated, created.Kind)
	assert.Equal(t, "Letter 005/UND/2024 received from Provincial office", created.Description)
	assert.Equal(t, []string{"U1"}, created.Recipients)
	assert.Equal(t, "C1", created.ActorID)

	disposed := tl.Entries()[1]
	assert.Equal(t, "Head of Office disposed to 2 recipients", disposed.Description)
	assert.Equal(t, []string{"U2", "U3"}, disposed.Recipients)
	assert.Equal(t, "root", disposed.SourceNodeID)
}

func TestBuild_EmptyTree(t *testing.T) {
	tl, err := Build(newLetter(t, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"created"}, kinds(tl))
}

func TestBuild_MissingSnapshot(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, letter.ErrMissingSnapshot)
}

func TestBuild_SortsByTimestamp(t *testing.T) {
	// The second child of the root was created before the first child's own child.
	specs := []disposition.Spec{
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2", "U3"), CreatedAt: t1},
		{ID: "a", ParentID: "root", CreatorID: "U2", Recipients: recipients("a", "U4"), CreatedAt: t1.Add(time.Hour)},
		{ID: "a1", ParentID: "a", CreatorID: "U4", Recipients: recipients("a1", "U5"), CreatedAt: t1.Add(3 * time.Hour)},
		{ID: "b", ParentID: "root", CreatorID: "U3", Recipients: recipients("b", "U6"), CreatedAt: t1.Add(2 * time.Hour)},
	}

	tl, err := Build(newLetter(t, specs))
	require.NoError(t, err)
	assert.Equal(t, []string{"created", "disposed:root", "disposed:a", "disposed:b", "disposed:a1"}, kinds(tl))
}

func TestByParticipant_IsSubsequence(t *testing.T) {
	specs := []disposition.Spec{
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2", "U3"), CreatedAt: t1},
		{ID: "a", ParentID: "root", CreatorID: "U2", Recipients: recipients("a", "U3"), CreatedAt: t1.Add(time.Hour)},
		{ID: "b", ParentID: "root", CreatorID: "U3", Recipients: recipients("b", "U4"), CreatedAt: t1.Add(2 * time.Hour)},
	}
	tl, err := Build(newLetter(t, specs))
	require.NoError(t, err)

	for _, user := range []string{"U1", "U2", "U3", "U4", "U9"} {
		filtered := tl.ByParticipant(user)

		// Every filtered entry appears in the full timeline in the same relative order.
		full := tl.Entries()
		i := 0
		for e := range filtered.All() {
			assert.True(t, e.HasRecipient(user))
			for i < len(full) && full[i].SourceNodeID != e.SourceNodeID {
				i++
			}
			require.Less(t, i, len(full), "entry %s out of order for %s", e.SourceNodeID, user)
			i++
		}
	}

	assert.Equal(t, []string{"disposed:root", "disposed:a"}, kinds(tl.ByParticipant("U3")))
	assert.Equal(t, 0, tl.ByParticipant("U9").Len())
}

func TestBuild_DeterministicAcrossRebuilds(t *testing.T) {
	specs := []disposition.Spec{
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2", "U3"), CreatedAt: t1},
		{ID: "a", ParentID: "root", CreatorID: "U2", Recipients: recipients("a", "U4"), CreatedAt: t1},
		{ID: "b", ParentID: "root", CreatorID: "U3", Recipients: recipients("b", "U5"), CreatedAt: t1},
	}
	first, err := Build(newLetter(t, specs))
	require.NoError(t, err)

	// Rebuilding from the flattened tree reproduces the same sequence.
	tree, err := disposition.Build("U1", newLetter(t, specs).Tree.Specs())
	require.NoError(t, err)
	l := newLetter(t, nil)
	l.Tree = tree
	second, err := Build(l)
	require.NoError(t, err)

	assert.Equal(t, first.Entries(), second.Entries())
}

func TestBuild_WithParticipantEvents(t *testing.T) {
	read := t1.Add(time.Hour)
	done := t1.Add(2 * time.Hour)
	specs := []disposition.Spec{
		{ID: "root", CreatorID: "U1", Recipients: recipients("root", "U2"), CreatedAt: t1},
	}
	l := newLetter(t, specs,
		letter.ParticipantStatus{UserID: "U1", CreatedAt: t0, ReadAt: &t1},
		letter.ParticipantStatus{UserID: "U2", CreatedAt: t1, ReadAt: &read, ExecutedAt: &done},
	)

	tl, err := Build(l, WithParticipantEvents())
	require.NoError(t, err)
	assert.Equal(t, []string{"created", "disposed:root", "read", "read", "executed"}, kinds(tl))

	u2 := tl.ByParticipant("U2").Entries()
	require.Len(t, u2, 3)
	assert.Equal(t, "Read by Section Head", u2[1].Description)
	assert.Equal(t, KindExecuted, u2[2].Kind)

	plain, err := Build(l)
	require.NoError(t, err)
	assert.Equal(t, 2, plain.Len())
}

func TestAll_Restartable(t *testing.T) {
	tl, err := Build(newLetter(t, nil))
	require.NoError(t, err)

	seq := tl.All()
	count := 0
	for range seq {
		count++
	}
	for range seq {
		count++
	}
	assert.Equal(t, 2, count)

	for range seq {
		break
	}
}
