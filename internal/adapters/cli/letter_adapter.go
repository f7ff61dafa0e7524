package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/text/message"

	"github.com/example/dispo/internal/adapters/snapshotfile"
	"github.com/example/dispo/internal/ports/primary"
)

// Option configures an adapter.
type Option func(*settings)

type settings struct {
	printer *message.Printer
	json    bool
}

// WithLocale renders labels in the given locale.
func WithLocale(locale string) Option {
	return func(s *settings) { s.printer = NewPrinter(locale) }
}

// WithJSON renders results as indented JSON instead of text.
func WithJSON(enabled bool) Option {
	return func(s *settings) { s.json = enabled }
}

func newSettings(opts []Option) settings {
	s := settings{printer: NewPrinter("")}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// LetterAdapter is a thin adapter that translates CLI operations to the letter
// and disposition services and renders their results.
type LetterAdapter struct {
	letters      primary.LetterService
	dispositions primary.DispositionService
	out          io.Writer
	settings
}

// NewLetterAdapter creates a new LetterAdapter with the given services.
func NewLetterAdapter(letters primary.LetterService, dispositions primary.DispositionService, out io.Writer, opts ...Option) *LetterAdapter {
	return &LetterAdapter{
		letters:      letters,
		dispositions: dispositions,
		out:          out,
		settings:     newSettings(opts),
	}
}

// Create registers a letter.
func (a *LetterAdapter) Create(ctx context.Context, req primary.CreateLetterRequest) (*primary.CreateLetterResponse, error) {
	resp, err := a.letters.CreateLetter(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.json {
		return resp, writeJSON(a.out, resp.Letter)
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Letter %s registered.", resp.LetterID))
	return resp, nil
}

// List shows the letters that reached the acting user.
func (a *LetterAdapter) List(ctx context.Context) ([]*primary.LetterSummary, error) {
	letters, err := a.letters.ListLetters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	if a.json {
		return letters, writeJSON(a.out, letters)
	}

	if len(letters) == 0 {
		fmt.Fprintln(a.out, a.printer.Sprintf("No letters found."))
		return letters, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tCLASS\tSUBJECT\tSTATUS\tDISPOSED")
	fmt.Fprintln(w, "--\t------\t-----\t-------\t------\t--------")
	var invalid []*primary.LetterSummary
	for _, l := range letters {
		disposed := ""
		if l.Disposed {
			disposed = "yes"
		}
		st := a.status(l.Status)
		if l.Invalid {
			st = a.invalid()
			disposed = "?"
			invalid = append(invalid, l)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			l.Number,
			a.classification(l.Classification),
			truncate(l.Subject, 40),
			st,
			disposed,
		)
	}
	w.Flush()

	if len(invalid) > 0 {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, a.printer.Sprintf("%d letters have an invalid disposition tree:", len(invalid)))
		for _, l := range invalid {
			fmt.Fprintf(a.out, "  %s: %s\n", l.ID, l.Error)
		}
	}
	return letters, nil
}

// Show renders the full view of a letter for the acting user.
func (a *LetterAdapter) Show(ctx context.Context, letterID string) (*primary.LetterView, error) {
	view, err := a.letters.GetLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if a.json {
		return view, writeJSON(a.out, view)
	}

	p := a.printer
	l := view.Letter
	fmt.Fprintf(a.out, "\n%s: %s\n", p.Sprintf("Letter"), l.ID)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Number")+":", l.Number)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Classification")+":", a.classification(l.Classification))
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Subject")+":", l.Subject)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Sender")+":", l.Sender)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Addressee")+":", l.AddresseeID)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Letter date")+":", l.LetterDate)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Received")+":", l.CreatedAt)
	if l.FileRef != "" {
		fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("File")+":", l.FileRef)
	}
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Your status")+":", a.status(view.Status))
	a.renderDecision(view.Decision)
	fmt.Fprintf(a.out, "  %-16s %s\n", p.Sprintf("Progress")+":",
		p.Sprintf("%d of %d participants executed (%d%%)", view.Progress.Executed, view.Progress.Participants, view.Progress.ExecutionPercent))

	if len(view.Dispositions) > 0 {
		fmt.Fprintf(a.out, "\n%s:\n", p.Sprintf("Dispositions"))
		for _, n := range view.Dispositions {
			a.renderNode(n, 1)
		}
	}

	if len(view.Participants) > 0 {
		fmt.Fprintf(a.out, "\n%s:\n", p.Sprintf("Participants"))
		w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		for _, pv := range view.Participants {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", pv.UserID, pv.Name, a.status(pv.Status), pv.ExecutedAt)
		}
		w.Flush()
	}

	fmt.Fprintf(a.out, "\n%s:\n", p.Sprintf("Timeline"))
	a.renderTimeline(view.Timeline)
	fmt.Fprintln(a.out)
	return view, nil
}

// MarkRead marks the letter read for the acting user.
func (a *LetterAdapter) MarkRead(ctx context.Context, letterID string) error {
	if err := a.letters.MarkRead(ctx, letterID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Letter %s marked read.", letterID))
	return nil
}

// MarkExecuted marks the letter executed for the acting user.
func (a *LetterAdapter) MarkExecuted(ctx context.Context, letterID string) error {
	if err := a.letters.MarkExecuted(ctx, letterID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Letter %s marked executed.", letterID))
	return nil
}

// Timeline renders the audit history of a letter.
func (a *LetterAdapter) Timeline(ctx context.Context, req primary.TimelineRequest) ([]*primary.TimelineEntry, error) {
	entries, err := a.letters.GetTimeline(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.json {
		return entries, writeJSON(a.out, entries)
	}
	a.renderTimeline(entries)
	return entries, nil
}

// Activity renders a user's activity report.
func (a *LetterAdapter) Activity(ctx context.Context, req primary.ActivityRequest) (*primary.ActivityReport, error) {
	report, err := a.letters.ActivityReport(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.json {
		return report, writeJSON(a.out, report)
	}

	p := a.printer
	if len(report.Events) == 0 {
		fmt.Fprintln(a.out, p.Sprintf("No activity in %s.", report.Period))
		a.renderInvalidLetters(report)
		return report, nil
	}
	fmt.Fprintln(a.out, p.Sprintf("Activity of %s in %s", report.UserID, report.Period))
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, e := range report.Events {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", e.At, p.Sprintf(e.Kind), e.LetterNumber, truncate(e.Subject, 40), e.LevelLabel)
	}
	w.Flush()

	var counts []string
	for _, kind := range []string{"received", "read", "executed", "disposed"} {
		counts = append(counts, fmt.Sprintf("%s=%d", p.Sprintf(kind), report.Counts[kind]))
	}
	fmt.Fprintf(a.out, "  %s\n", strings.Join(counts, "  "))
	a.renderInvalidLetters(report)
	return report, nil
}

func (a *LetterAdapter) renderInvalidLetters(report *primary.ActivityReport) {
	if report.InvalidLetters == 0 {
		return
	}
	fmt.Fprintf(a.out, "  %s=%d  %s\n",
		a.invalid(),
		report.InvalidLetters,
		a.printer.Sprintf("not counted: %s", strings.Join(report.InvalidLetterIDs, ", ")),
	)
}

// Check shows whether the acting user may dispose the letter.
func (a *LetterAdapter) Check(ctx context.Context, letterID string) (*primary.DispositionCheck, error) {
	check, err := a.dispositions.CheckDisposition(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if a.json {
		return check, writeJSON(a.out, check)
	}
	a.renderDecision(check)
	return check, nil
}

// Dispose forwards the letter on behalf of the acting officer.
func (a *LetterAdapter) Dispose(ctx context.Context, req primary.CreateDispositionRequest) (*primary.CreateDispositionResponse, error) {
	resp, err := a.dispositions.CreateDisposition(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.json {
		return resp, writeJSON(a.out, resp)
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Disposition %s created at %s.", resp.DispositionID, a.printer.Sprintf("Disposition %d", resp.Level)))
	fmt.Fprintf(a.out, "  %s: %s\n", a.printer.Sprintf("Recipients"), strings.Join(resp.Recipients, ", "))
	return resp, nil
}

// Tags lists the content-tag catalogue.
func (a *LetterAdapter) Tags(ctx context.Context) ([]string, error) {
	tags, err := a.dispositions.ListContentTags(ctx)
	if err != nil {
		return nil, err
	}
	if a.json {
		return tags, writeJSON(a.out, tags)
	}
	for i, tag := range tags {
		fmt.Fprintf(a.out, "%2d. %s\n", i+1, tag)
	}
	return tags, nil
}

// Import reads a snapshot file and imports the letter.
func (a *LetterAdapter) Import(ctx context.Context, path string) (string, error) {
	snap, err := snapshotfile.ReadFile(path)
	if err != nil {
		return "", err
	}
	id, err := a.letters.ImportSnapshot(ctx, snap)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Letter %s imported.", id))
	return id, nil
}

// Export writes the letter snapshot to path, or as YAML to the output when
// path is empty.
func (a *LetterAdapter) Export(ctx context.Context, letterID, path string) (*primary.Snapshot, error) {
	snap, err := a.letters.ExportSnapshot(ctx, letterID)
	if err != nil {
		return nil, err
	}
	if path == "" {
		format := snapshotfile.FormatYAML
		if a.json {
			format = snapshotfile.FormatJSON
		}
		return snap, snapshotfile.Encode(a.out, format, snap)
	}
	if err := snapshotfile.WriteFile(path, snap); err != nil {
		return nil, err
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("Letter %s exported to %s.", letterID, path))
	return snap, nil
}

func (a *LetterAdapter) renderDecision(check *primary.DispositionCheck) {
	if check == nil {
		return
	}
	p := a.printer
	if check.Allowed() {
		where := p.Sprintf("Disposition %d", check.Level)
		if check.ParentID != "" {
			where += " (" + check.ParentID + ")"
		}
		fmt.Fprintf(a.out, "  %s %s\n", color.New(color.FgGreen).Sprint(p.Sprintf("You may dispose")), where)
		return
	}
	fmt.Fprintf(a.out, "  %s: %s\n", color.New(color.FgRed).Sprint(p.Sprintf("You may not dispose")), check.Message)
}

func (a *LetterAdapter) renderNode(n *primary.DispositionNode, depth int) {
	p := a.printer
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(a.out, "%s[%s] %s by %s (%s) at %s\n",
		indent, p.Sprintf("Disposition %d", n.Level), n.ID, n.CreatorName, n.CreatorID, n.CreatedAt)
	if len(n.ContentTags) > 0 {
		fmt.Fprintf(a.out, "%s  %s: %s\n", indent, p.Sprintf("Instructions"), strings.Join(n.ContentTags, "; "))
	}
	if n.Note != "" {
		fmt.Fprintf(a.out, "%s  %s: %s\n", indent, p.Sprintf("Note"), n.Note)
	}
	if n.SignatureRef != "" {
		fmt.Fprintf(a.out, "%s  %s: %s\n", indent, p.Sprintf("Signature"), n.SignatureRef)
	}
	recipients := make([]string, len(n.Recipients))
	for i, r := range n.Recipients {
		recipients[i] = fmt.Sprintf("%s [%s]", r.Name, a.status(r.Status))
	}
	fmt.Fprintf(a.out, "%s  %s: %s\n", indent, p.Sprintf("Recipients"), strings.Join(recipients, ", "))
	for _, child := range n.Children {
		a.renderNode(child, depth+1)
	}
}

func (a *LetterAdapter) renderTimeline(entries []*primary.TimelineEntry) {
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", e.At, a.printer.Sprintf(e.Kind), e.LevelLabel, e.Description)
	}
	w.Flush()
}

func (a *LetterAdapter) status(s string) string {
	label := a.printer.Sprintf(s)
	switch s {
	case "executed":
		return color.New(color.FgGreen).Sprint(label)
	case "read":
		return color.New(color.FgCyan).Sprint(label)
	case "unread":
		return color.New(color.FgYellow, color.Bold).Sprint(label)
	}
	return color.New(color.Faint).Sprint(label)
}

func (a *LetterAdapter) invalid() string {
	return color.New(color.FgRed, color.Bold).Sprint(a.printer.Sprintf("invalid"))
}

func (a *LetterAdapter) classification(c string) string {
	label := a.printer.Sprintf(c)
	switch c {
	case "urgent":
		return color.New(color.FgYellow).Sprint(label)
	case "confidential":
		return color.New(color.FgRed).Sprint(label)
	}
	return label
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
