package disposition

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func recipients(nodeID string, users ...string) []Recipient {
	out := make([]Recipient, len(users))
	for i, u := range users {
		out[i] = Recipient{ID: nodeID + "-" + u, UserID: u, DispositionID: nodeID, CreatedAt: t0}
	}
	return out
}

// chain returns root(U1 -> U2,U3), child(U2 -> U4), grandchild(U4 -> U5).
func chain() []Spec {
	return []Spec{
		{ID: "D1", CreatorID: "U1", Recipients: recipients("D1", "U2", "U3"), CreatedAt: t0},
		{ID: "D2", ParentID: "D1", CreatorID: "U2", Recipients: recipients("D2", "U4"), CreatedAt: t0.Add(time.Hour)},
		{ID: "D3", ParentID: "D2", CreatorID: "U4", Recipients: recipients("D3", "U5"), CreatedAt: t0.Add(2 * time.Hour)},
	}
}

func TestBuild_Empty(t *testing.T) {
	tree, err := Build("U1", nil)
	require.NoError(t, err)

	assert.True(t, tree.Empty())
	assert.Nil(t, tree.Root())
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.FindByRecipient("U1"))
	assert.Empty(t, tree.FindByCreator("U1"))
}

func TestNilTreeIsEmpty(t *testing.T) {
	var tree *Tree

	assert.True(t, tree.Empty())
	assert.Empty(t, tree.Nodes())
	assert.Empty(t, tree.FindByRecipient("U1"))
	_, ok := tree.Node("D1")
	assert.False(t, ok)
}

func TestBuild_ThreeLevelChain(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	root := tree.Root()
	require.NotNil(t, root)
	assert.Equal(t, Level1, root.Level())
	assert.Nil(t, root.Parent())

	d2, ok := tree.Node("D2")
	require.True(t, ok)
	assert.Equal(t, Level2, d2.Level())
	assert.Equal(t, "D1", d2.ParentID())

	d3, ok := tree.Node("D3")
	require.True(t, ok)
	assert.Equal(t, Level3, d3.Level())
	assert.Empty(t, d3.Children())
	assert.True(t, d3.Level().Terminal())
}

func TestTreeShapeInvariant(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	tree.Walk(func(n *Node) bool {
		assert.GreaterOrEqual(t, n.Level(), Level1)
		assert.LessOrEqual(t, n.Level(), Level3)
		if n.Level() == Level3 {
			assert.Empty(t, n.Children(), "level 3 node %s has children", n.ID)
		}
		return true
	})
}

func TestBuild_PreOrderIsCreationOrdered(t *testing.T) {
	specs := []Spec{
		{ID: "R", CreatorID: "A", Recipients: recipients("R", "B", "C"), CreatedAt: t0},
		// C's branch is listed first but created later.
		{ID: "C1", ParentID: "R", CreatorID: "C", Recipients: recipients("C1", "E"), CreatedAt: t0.Add(3 * time.Hour)},
		{ID: "B1", ParentID: "R", CreatorID: "B", Recipients: recipients("B1", "D"), CreatedAt: t0.Add(time.Hour)},
		{ID: "B2", ParentID: "B1", CreatorID: "D", Recipients: recipients("B2", "F"), CreatedAt: t0.Add(4 * time.Hour)},
	}

	tree, err := Build("A", specs)
	require.NoError(t, err)

	var ids []string
	for _, n := range tree.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"R", "B1", "B2", "C1"}, ids)
}

func TestBuild_EqualTimestampsKeepInputOrder(t *testing.T) {
	specs := []Spec{
		{ID: "R", CreatorID: "A", Recipients: recipients("R", "B", "C"), CreatedAt: t0},
		{ID: "X", ParentID: "R", CreatorID: "C", Recipients: recipients("X", "E"), CreatedAt: t0},
		{ID: "Y", ParentID: "R", CreatorID: "B", Recipients: recipients("Y", "D"), CreatedAt: t0},
	}

	tree, err := Build("A", specs)
	require.NoError(t, err)

	children := tree.Root().Children()
	require.Len(t, children, 2)
	assert.Equal(t, "X", children[0].ID)
	assert.Equal(t, "Y", children[1].ID)
}

func TestBuild_Violations(t *testing.T) {
	tests := []struct {
		name      string
		addressee string
		specs     func() []Spec
		wantNode  string
		wantMsg   string
	}{
		{
			name:      "depth four",
			addressee: "U1",
			specs: func() []Spec {
				return append(chain(), Spec{ID: "D4", ParentID: "D3", CreatorID: "U5", Recipients: recipients("D4", "U6"), CreatedAt: t0.Add(3 * time.Hour)})
			},
			wantNode: "D4",
			wantMsg:  "depth 4 exceeds maximum of 3",
		},
		{
			name:      "creator not among parent recipients",
			addressee: "U1",
			specs: func() []Spec {
				s := chain()
				s[1].CreatorID = "U9"
				return s
			},
			wantNode: "D2",
			wantMsg:  "creator U9 is not a recipient of parent D1",
		},
		{
			name:      "root not created by addressee",
			addressee: "U7",
			specs:     chain,
			wantNode:  "D1",
			wantMsg:   "root created by U1, not by the addressee U7",
		},
		{
			name:      "two roots",
			addressee: "U1",
			specs: func() []Spec {
				return append(chain(), Spec{ID: "DX", CreatorID: "U1", Recipients: recipients("DX", "U2"), CreatedAt: t0})
			},
			wantNode: "DX",
			wantMsg:  "second root disposition (root is D1)",
		},
		{
			name:      "unknown parent",
			addressee: "U1",
			specs: func() []Spec {
				s := chain()
				s[2].ParentID = "NOPE"
				return s
			},
			wantNode: "D3",
			wantMsg:  "parent NOPE does not exist",
		},
		{
			name:      "no root",
			addressee: "U1",
			specs: func() []Spec {
				return chain()[1:]
			},
			wantMsg: "no root disposition among 2 nodes",
		},
		{
			name:      "duplicate ids",
			addressee: "U1",
			specs: func() []Spec {
				s := chain()
				s[2].ID = "D2"
				return s
			},
			wantNode: "D2",
			wantMsg:  "duplicate node id",
		},
		{
			name:      "recipient listed twice",
			addressee: "U1",
			specs: func() []Spec {
				s := chain()
				s[0].Recipients = append(s[0].Recipients, Recipient{ID: "again", UserID: "U2"})
				return s
			},
			wantNode: "D1",
			wantMsg:  "recipient U2 listed twice",
		},
		{
			name:      "creator disposes twice",
			addressee: "U1",
			specs: func() []Spec {
				return []Spec{
					{ID: "D1", CreatorID: "U1", Recipients: recipients("D1", "U2"), CreatedAt: t0},
					{ID: "D2", ParentID: "D1", CreatorID: "U2", Recipients: recipients("D2", "U1"), CreatedAt: t0.Add(time.Hour)},
					{ID: "D3", ParentID: "D2", CreatorID: "U1", Recipients: recipients("D3", "U5"), CreatedAt: t0.Add(2 * time.Hour)},
				}
			},
			wantNode: "D3",
			wantMsg:  "creator U1 already disposed at D1",
		},
		{
			name:      "siblings by the same creator",
			addressee: "U1",
			specs: func() []Spec {
				return append(chain(), Spec{ID: "D2b", ParentID: "D1", CreatorID: "U2", Recipients: recipients("D2b", "U3"), CreatedAt: t0.Add(3 * time.Hour)})
			},
			wantNode: "D2b",
			wantMsg:  "creator U2 already disposed at D2",
		},
		{
			name:      "cycle detached from root",
			addressee: "U1",
			specs: func() []Spec {
				return append(chain(),
					Spec{ID: "P", ParentID: "Q", CreatorID: "U2", CreatedAt: t0},
					Spec{ID: "Q", ParentID: "P", CreatorID: "U2", CreatedAt: t0},
				)
			},
			wantNode: "P",
			wantMsg:  "node is not reachable from the root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := Build(tt.addressee, tt.specs())
			require.Error(t, err)
			assert.Nil(t, tree)
			assert.True(t, errors.Is(err, ErrStructuralViolation))

			var ve *ViolationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantNode, ve.NodeID)
			assert.Equal(t, tt.wantMsg, ve.Msg)
		})
	}
}

func TestFindByRecipientAndCreator(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	byRecipient := tree.FindByRecipient("U2")
	require.Len(t, byRecipient, 1)
	assert.Equal(t, "D1", byRecipient[0].ID)

	byCreator := tree.FindByCreator("U4")
	require.Len(t, byCreator, 1)
	assert.Equal(t, "D3", byCreator[0].ID)

	assert.Empty(t, tree.FindByRecipient("U1"))
	assert.Empty(t, tree.FindByCreator("U5"))
}

func TestSingleCreatorPerTree(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	for _, user := range []string{"U1", "U2", "U3", "U4", "U5"} {
		assert.LessOrEqual(t, len(tree.FindByCreator(user)), 1, "user %s", user)
	}

	// The addressee got the letter back and disposed it a second time.
	_, err = Build("U1", []Spec{
		{ID: "D1", CreatorID: "U1", Recipients: recipients("D1", "U2"), CreatedAt: t0},
		{ID: "D2", ParentID: "D1", CreatorID: "U2", Recipients: recipients("D2", "U1"), CreatedAt: t0.Add(time.Hour)},
		{ID: "D3", ParentID: "D2", CreatorID: "U1", Recipients: recipients("D3", "U5"), CreatedAt: t0.Add(2 * time.Hour)},
	})
	var ve *ViolationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "D3", ve.NodeID)
}

func TestWalkStopsEarly(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	visited := 0
	tree.Walk(func(n *Node) bool {
		visited++
		return n.ID != "D2"
	})
	assert.Equal(t, 2, visited)
}

func TestSpecsRoundTrip(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	rebuilt, err := Build("U1", tree.Specs())
	require.NoError(t, err)
	assert.Equal(t, tree.Specs(), rebuilt.Specs())
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "Disposition 1", Level1.Label())
	assert.Equal(t, "Disposition 3", Level3.Label())
	assert.False(t, Level2.Terminal())
}

func TestChildrenReturnsCopy(t *testing.T) {
	tree, err := Build("U1", chain())
	require.NoError(t, err)

	kids := tree.Root().Children()
	kids[0] = nil
	assert.NotNil(t, tree.Root().Children()[0])
}
