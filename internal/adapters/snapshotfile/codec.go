// Package snapshotfile reads and writes letter snapshots as nested JSON or
// YAML documents.
package snapshotfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/dispo/internal/ports/primary"
)

// Format is a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s (expected .json, .yaml or .yml)", ErrUnknownFormat, path)
}

// Document is the on-disk shape of a snapshot. Dispositions nest through
// children; participants are keyed by user id.
type Document struct {
	Letter       LetterDoc                 `json:"letter" yaml:"letter"`
	Dispositions []*DispositionDoc         `json:"dispositions,omitempty" yaml:"dispositions,omitempty"`
	Participants map[string]ParticipantDoc `json:"participants,omitempty" yaml:"participants,omitempty"`
	People       []primary.User            `json:"people,omitempty" yaml:"people,omitempty"`
}

// LetterDoc is the letter header.
type LetterDoc struct {
	ID             string `json:"id" yaml:"id"`
	Number         string `json:"number" yaml:"number"`
	Classification string `json:"classification" yaml:"classification"`
	Subject        string `json:"subject" yaml:"subject"`
	Sender         string `json:"sender" yaml:"sender"`
	CreatorID      string `json:"creator_id" yaml:"creator_id"`
	AddresseeID    string `json:"addressee_id" yaml:"addressee_id"`
	FileRef        string `json:"file_ref,omitempty" yaml:"file_ref,omitempty"`
	LetterDate     string `json:"letter_date" yaml:"letter_date"`
	CreatedAt      string `json:"created_at" yaml:"created_at"`
}

// DispositionDoc is one disposition with its children.
type DispositionDoc struct {
	ID           string            `json:"id" yaml:"id"`
	CreatorID    string            `json:"creator_id" yaml:"creator_id"`
	Note         string            `json:"note,omitempty" yaml:"note,omitempty"`
	ContentTags  []string          `json:"content_tags" yaml:"content_tags"`
	SignatureRef string            `json:"signature_ref,omitempty" yaml:"signature_ref,omitempty"`
	CreatedAt    string            `json:"created_at" yaml:"created_at"`
	Recipients   []RecipientDoc    `json:"recipients" yaml:"recipients"`
	Children     []*DispositionDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// RecipientDoc is one recipient log entry.
type RecipientDoc struct {
	ID        string `json:"id" yaml:"id"`
	UserID    string `json:"user_id" yaml:"user_id"`
	CreatedAt string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// ParticipantDoc is the read/execution record of one user.
type ParticipantDoc struct {
	ID         string `json:"id" yaml:"id"`
	ReadAt     string `json:"read_at,omitempty" yaml:"read_at,omitempty"`
	ExecutedAt string `json:"executed_at,omitempty" yaml:"executed_at,omitempty"`
	CreatedAt  string `json:"created_at" yaml:"created_at"`
}

// Decode reads a document and flattens it into a snapshot.
func Decode(r io.Reader, format Format) (*primary.Snapshot, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode JSON snapshot: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode YAML snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return Flatten(&doc), nil
}

// Encode nests a snapshot and writes it as a document.
func Encode(w io.Writer, format Format, snap *primary.Snapshot) error {
	doc, err := Nest(snap)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*primary.Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, format)
}

// WriteFile encodes snap to path, choosing the format from the extension.
func WriteFile(path string, snap *primary.Snapshot) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, format, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Flatten converts a nested document to a flat snapshot. Dispositions come
// out in pre-order; participants are ordered by user id.
func Flatten(doc *Document) *primary.Snapshot {
	l := doc.Letter
	snap := &primary.Snapshot{
		Letter: primary.LetterInfo{
			ID:             l.ID,
			Number:         l.Number,
			Classification: l.Classification,
			Subject:        l.Subject,
			Sender:         l.Sender,
			CreatorID:      l.CreatorID,
			AddresseeID:    l.AddresseeID,
			FileRef:        l.FileRef,
			LetterDate:     l.LetterDate,
			CreatedAt:      l.CreatedAt,
		},
		People: slices.Clone(doc.People),
	}

	var walk func(d *DispositionDoc, parentID string)
	walk = func(d *DispositionDoc, parentID string) {
		sd := primary.SnapshotDisposition{
			ID:           d.ID,
			ParentID:     parentID,
			CreatorID:    d.CreatorID,
			Note:         d.Note,
			ContentTags:  slices.Clone(d.ContentTags),
			SignatureRef: d.SignatureRef,
			CreatedAt:    d.CreatedAt,
		}
		for _, r := range d.Recipients {
			sd.Recipients = append(sd.Recipients, primary.SnapshotRecipient(r))
		}
		snap.Dispositions = append(snap.Dispositions, sd)
		for _, child := range d.Children {
			walk(child, d.ID)
		}
	}
	for _, root := range doc.Dispositions {
		walk(root, "")
	}

	userIDs := make([]string, 0, len(doc.Participants))
	for id := range doc.Participants {
		userIDs = append(userIDs, id)
	}
	slices.Sort(userIDs)
	for _, id := range userIDs {
		p := doc.Participants[id]
		snap.Participants = append(snap.Participants, primary.SnapshotParticipant{
			ID:         p.ID,
			UserID:     id,
			ReadAt:     p.ReadAt,
			ExecutedAt: p.ExecutedAt,
			CreatedAt:  p.CreatedAt,
		})
	}
	return snap
}

// Nest converts a flat snapshot to a document. Children keep their order in
// the flat list. A node whose parent is missing is an error.
func Nest(snap *primary.Snapshot) (*Document, error) {
	l := snap.Letter
	doc := &Document{
		Letter: LetterDoc{
			ID:             l.ID,
			Number:         l.Number,
			Classification: l.Classification,
			Subject:        l.Subject,
			Sender:         l.Sender,
			CreatorID:      l.CreatorID,
			AddresseeID:    l.AddresseeID,
			FileRef:        l.FileRef,
			LetterDate:     l.LetterDate,
			CreatedAt:      l.CreatedAt,
		},
		People: slices.Clone(snap.People),
	}

	byID := make(map[string]*DispositionDoc, len(snap.Dispositions))
	for _, d := range snap.Dispositions {
		dd := &DispositionDoc{
			ID:           d.ID,
			CreatorID:    d.CreatorID,
			Note:         d.Note,
			ContentTags:  slices.Clone(d.ContentTags),
			SignatureRef: d.SignatureRef,
			CreatedAt:    d.CreatedAt,
		}
		for _, r := range d.Recipients {
			dd.Recipients = append(dd.Recipients, RecipientDoc(r))
		}
		byID[d.ID] = dd
	}
	for _, d := range snap.Dispositions {
		if d.ParentID == "" {
			doc.Dispositions = append(doc.Dispositions, byID[d.ID])
			continue
		}
		parent, ok := byID[d.ParentID]
		if !ok {
			return nil, fmt.Errorf("disposition %s: parent %s is not in the snapshot", d.ID, d.ParentID)
		}
		parent.Children = append(parent.Children, byID[d.ID])
	}

	if len(snap.Participants) > 0 {
		doc.Participants = make(map[string]ParticipantDoc, len(snap.Participants))
		for _, p := range snap.Participants {
			doc.Participants[p.UserID] = ParticipantDoc{
				ID:         p.ID,
				ReadAt:     p.ReadAt,
				ExecutedAt: p.ExecutedAt,
				CreatedAt:  p.CreatedAt,
			}
		}
	}
	return doc, nil
}
