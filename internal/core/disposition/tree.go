// Package disposition contains the disposition tree model.
// This is part of the Functional Core - no I/O, only pure functions.
//
// A letter owns at most one tree. The root is a level 1 disposition created by
// the letter's addressee; every other node is created by a recipient of its
// parent. Trees are at most three levels deep.
package disposition

import (
	"fmt"
	"slices"
	"time"
)

// Level is the depth of a node in the forwarding chain.
type Level int

const (
	Level1 Level = 1
	Level2 Level = 2
	Level3 Level = 3

	// MaxLevel is terminal: a level 3 node never has children.
	MaxLevel = Level3
)

// Label returns the display tag for the level, e.g. "Disposition 2".
func (l Level) Label() string {
	return fmt.Sprintf("Disposition %d", int(l))
}

// Terminal reports whether no further disposition may be created beneath this level.
func (l Level) Terminal() bool {
	return l >= MaxLevel
}

// Recipient records that a disposition reached a specific user.
type Recipient struct {
	ID            string
	UserID        string
	DispositionID string
	CreatedAt     time.Time
}

// Spec is a flat node description as delivered by the data gateway.
// An empty ParentID marks the root.
type Spec struct {
	ID           string
	ParentID     string
	CreatorID    string
	Note         string
	SignatureRef string
	ContentTags  []string
	Recipients   []Recipient
	CreatedAt    time.Time
}

// Node is one immutable disposition in a tree.
// Callers must treat the exported fields as read-only.
type Node struct {
	ID           string
	CreatorID    string
	Note         string
	SignatureRef string
	ContentTags  []string
	Recipients   []Recipient
	CreatedAt    time.Time

	level    Level
	parent   *Node
	children []*Node
}

// Level returns the node depth (root = 1).
func (n *Node) Level() Level { return n.level }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// ParentID returns the parent id, or "" for the root.
func (n *Node) ParentID() string {
	if n.parent == nil {
		return ""
	}
	return n.parent.ID
}

// Children returns the child nodes in creation order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// HasRecipient reports whether userID is among the node's recipients.
func (n *Node) HasRecipient(userID string) bool {
	for _, r := range n.Recipients {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// RecipientIDs returns the recipient user ids in log order.
func (n *Node) RecipientIDs() []string {
	ids := make([]string, len(n.Recipients))
	for i, r := range n.Recipients {
		ids[i] = r.UserID
	}
	return ids
}

// Tree is an immutable disposition tree snapshot. The zero value and a nil
// *Tree are both valid empty trees.
type Tree struct {
	root  *Node
	byID  map[string]*Node
	order []*Node // pre-order
}

// Build assembles flat node specs into a validated tree.
// addresseeID is the letter's addressed recipient, the only user allowed to
// create the root. An empty specs slice yields an empty tree.
func Build(addresseeID string, specs []Spec) (*Tree, error) {
	t := &Tree{byID: make(map[string]*Node, len(specs))}
	if len(specs) == 0 {
		return t, nil
	}

	byID := make(map[string]int, len(specs))
	rootIdx := -1
	for i, s := range specs {
		if s.ID == "" {
			return nil, violationf("", "node at position %d has no id", i)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, violationf(s.ID, "duplicate node id")
		}
		byID[s.ID] = i
		if s.ParentID == "" {
			if rootIdx >= 0 {
				return nil, violationf(s.ID, "second root disposition (root is %s)", specs[rootIdx].ID)
			}
			rootIdx = i
		}
	}
	if rootIdx < 0 {
		return nil, violationf("", "no root disposition among %d nodes", len(specs))
	}

	childIdx := make(map[string][]int, len(specs))
	for i, s := range specs {
		if s.ParentID == "" {
			continue
		}
		if _, ok := byID[s.ParentID]; !ok {
			return nil, violationf(s.ID, "parent %s does not exist", s.ParentID)
		}
		childIdx[s.ParentID] = append(childIdx[s.ParentID], i)
	}
	for parentID, idx := range childIdx {
		slices.SortStableFunc(idx, func(a, b int) int {
			return specs[a].CreatedAt.Compare(specs[b].CreatedAt)
		})
		childIdx[parentID] = idx
	}

	root := specs[rootIdx]
	if root.CreatorID != addresseeID {
		return nil, violationf(root.ID, "root created by %s, not by the addressee %s", root.CreatorID, addresseeID)
	}

	// creator id -> the one node that user created
	creators := make(map[string]string, len(specs))

	var build func(idx int, parent *Node, level Level) (*Node, error)
	build = func(idx int, parent *Node, level Level) (*Node, error) {
		s := specs[idx]
		if level > MaxLevel {
			return nil, violationf(s.ID, "depth %d exceeds maximum of %d", int(level), int(MaxLevel))
		}
		if parent != nil && !parent.HasRecipient(s.CreatorID) {
			return nil, violationf(s.ID, "creator %s is not a recipient of parent %s", s.CreatorID, parent.ID)
		}
		if prev, dup := creators[s.CreatorID]; dup {
			return nil, violationf(s.ID, "creator %s already disposed at %s", s.CreatorID, prev)
		}
		creators[s.CreatorID] = s.ID
		if err := checkRecipients(s); err != nil {
			return nil, err
		}

		n := &Node{
			ID:           s.ID,
			CreatorID:    s.CreatorID,
			Note:         s.Note,
			SignatureRef: s.SignatureRef,
			ContentTags:  slices.Clone(s.ContentTags),
			Recipients:   slices.Clone(s.Recipients),
			CreatedAt:    s.CreatedAt,
			level:        level,
			parent:       parent,
		}
		t.byID[n.ID] = n
		t.order = append(t.order, n)

		for _, ci := range childIdx[s.ID] {
			child, err := build(ci, n, level+1)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
		return n, nil
	}

	r, err := build(rootIdx, nil, Level1)
	if err != nil {
		return nil, err
	}
	t.root = r

	if len(t.order) != len(specs) {
		for _, s := range specs {
			if _, ok := t.byID[s.ID]; !ok {
				return nil, violationf(s.ID, "node is not reachable from the root")
			}
		}
	}
	return t, nil
}

func checkRecipients(s Spec) error {
	seen := make(map[string]struct{}, len(s.Recipients))
	for _, r := range s.Recipients {
		if r.UserID == "" {
			return violationf(s.ID, "recipient entry %s has no user", r.ID)
		}
		if r.DispositionID != "" && r.DispositionID != s.ID {
			return violationf(s.ID, "recipient entry %s belongs to disposition %s", r.ID, r.DispositionID)
		}
		if _, dup := seen[r.UserID]; dup {
			return violationf(s.ID, "recipient %s listed twice", r.UserID)
		}
		seen[r.UserID] = struct{}{}
	}
	return nil
}

// Empty reports whether the letter has not been disposed yet.
func (t *Tree) Empty() bool {
	return t == nil || t.root == nil
}

// Root returns the level 1 node, or nil for an empty tree.
func (t *Tree) Root() *Node {
	if t == nil {
		return nil
	}
	return t.root
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Node looks up a node by id.
func (t *Tree) Node(id string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.byID[id]
	return n, ok
}

// Walk visits nodes in pre-order (root, then each child subtree in creation
// order) until fn returns false.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil {
		return
	}
	for _, n := range t.order {
		if !fn(n) {
			return
		}
	}
}

// Nodes returns all nodes in pre-order.
func (t *Tree) Nodes() []*Node {
	if t == nil {
		return nil
	}
	return slices.Clone(t.order)
}

// FindByRecipient returns every node whose recipient log contains userID.
func (t *Tree) FindByRecipient(userID string) []*Node {
	var found []*Node
	t.Walk(func(n *Node) bool {
		if n.HasRecipient(userID) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// FindByCreator returns every node authored by userID.
func (t *Tree) FindByCreator(userID string) []*Node {
	var found []*Node
	t.Walk(func(n *Node) bool {
		if n.CreatorID == userID {
			found = append(found, n)
		}
		return true
	})
	return found
}

// Specs flattens the tree back into specs in pre-order.
func (t *Tree) Specs() []Spec {
	if t == nil {
		return nil
	}
	specs := make([]Spec, 0, len(t.order))
	for _, n := range t.order {
		specs = append(specs, Spec{
			ID:           n.ID,
			ParentID:     n.ParentID(),
			CreatorID:    n.CreatorID,
			Note:         n.Note,
			SignatureRef: n.SignatureRef,
			ContentTags:  slices.Clone(n.ContentTags),
			Recipients:   slices.Clone(n.Recipients),
			CreatedAt:    n.CreatedAt,
		})
	}
	return specs
}
