package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed content_tags.yaml
var defaultContentTags []byte

// DefaultContentTags returns the built-in disposition instruction catalogue.
func DefaultContentTags() ([]string, error) {
	var phrases []string
	if err := yaml.Unmarshal(defaultContentTags, &phrases); err != nil {
		return nil, fmt.Errorf("failed to parse content tag catalogue: %w", err)
	}
	return phrases, nil
}

// SeedContentTags inserts the built-in catalogue, skipping phrases already present.
func SeedContentTags(database *sql.DB) error {
	phrases, err := DefaultContentTags()
	if err != nil {
		return err
	}
	for i, phrase := range phrases {
		if _, err := database.Exec(
			"INSERT OR IGNORE INTO content_tags (id, phrase, sort_order) VALUES (?, ?, ?)",
			fmt.Sprintf("CT-%03d", i+1), phrase, i+1,
		); err != nil {
			return fmt.Errorf("seed content tags: %w", err)
		}
	}
	return nil
}

// SeedFixtures populates the database with development fixtures: an office
// directory, the content tag catalogue, and one letter routed two levels down.
func SeedFixtures(database *sql.DB) error {
	base := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	ts := func(d time.Duration) string { return base.Add(d).Format(time.RFC3339Nano) }

	// Users
	users := []struct{ id, name, role, supervisor string }{
		{"USR-CLERK", "Rina (Registry)", "clerk", ""},
		{"USR-HEAD", "Budi Santoso", "officer", ""},
		{"USR-SEC1", "Dewi Lestari", "officer", "USR-HEAD"},
		{"USR-SEC2", "Agus Pratama", "officer", "USR-HEAD"},
		{"USR-OPS1", "Sari Wulandari", "operative", ""},
		{"USR-OPS2", "Joko Susilo", "operative", ""},
		{"USR-ADMIN", "System Administrator", "administrator", ""},
	}
	for _, u := range users {
		var supervisor sql.NullString
		if u.supervisor != "" {
			supervisor = sql.NullString{String: u.supervisor, Valid: true}
		}
		if _, err := database.Exec(
			"INSERT INTO users (id, name, role, supervisor_id, created_at) VALUES (?, ?, ?, ?, ?)",
			u.id, u.name, u.role, supervisor, ts(0),
		); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}

	if err := SeedContentTags(database); err != nil {
		return err
	}

	// Letter
	if _, err := database.Exec(
		`INSERT INTO letters (id, number, classification, subject, sender, creator_id, addressee_id, letter_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"LTR-001", "005/UND/V/2024", "urgent", "Invitation to the regional budget meeting",
		"Provincial Planning Office", "USR-CLERK", "USR-HEAD", "2024-04-30", ts(0),
	); err != nil {
		return fmt.Errorf("seed letters: %w", err)
	}

	// Dispositions: head -> section 1 -> operative 1
	dispositions := []struct {
		id, parent, creator, note, at string
		tags                         []string
		recipients                   []string
	}{
		{"DSP-001", "", "USR-HEAD", "Please prepare our figures.", ts(2 * time.Hour), []string{"Please follow up", "Please coordinate"}, []string{"USR-SEC1", "USR-SEC2"}},
		{"DSP-002", "DSP-001", "USR-SEC1", "Draft the summary by Friday.", ts(5 * time.Hour), []string{"Prepare a draft reply"}, []string{"USR-OPS1"}},
	}
	for _, d := range dispositions {
		var parent sql.NullString
		if d.parent != "" {
			parent = sql.NullString{String: d.parent, Valid: true}
		}
		if _, err := database.Exec(
			"INSERT INTO dispositions (id, letter_id, parent_id, creator_id, note, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			d.id, "LTR-001", parent, d.creator, d.note, d.at,
		); err != nil {
			return fmt.Errorf("seed dispositions: %w", err)
		}
		for i, tag := range d.tags {
			if _, err := database.Exec(
				"INSERT INTO disposition_tags (disposition_id, position, phrase) VALUES (?, ?, ?)",
				d.id, i, tag,
			); err != nil {
				return fmt.Errorf("seed disposition tags: %w", err)
			}
		}
		for _, r := range d.recipients {
			if _, err := database.Exec(
				"INSERT INTO disposition_recipients (id, disposition_id, user_id, created_at) VALUES (?, ?, ?, ?)",
				d.id+"-"+r, d.id, r, d.at,
			); err != nil {
				return fmt.Errorf("seed recipients: %w", err)
			}
		}
	}

	// Participants
	participants := []struct{ user, readAt, executedAt, createdAt string }{
		{"USR-HEAD", ts(time.Hour), "", ts(0)},
		{"USR-SEC1", ts(3 * time.Hour), "", ts(2 * time.Hour)},
		{"USR-SEC2", "", "", ts(2 * time.Hour)},
		{"USR-OPS1", ts(6 * time.Hour), ts(30 * time.Hour), ts(5 * time.Hour)},
	}
	for _, p := range participants {
		if _, err := database.Exec(
			"INSERT INTO participants (id, letter_id, user_id, read_at, executed_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			"PRT-LTR-001-"+p.user, "LTR-001", p.user, nullable(p.readAt), nullable(p.executedAt), p.createdAt,
		); err != nil {
			return fmt.Errorf("seed participants: %w", err)
		}
	}

	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
