package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/example/dispo/internal/metrics"
	"github.com/example/dispo/internal/ports/secondary"
)

var (
	_ secondary.LetterRepository     = (*mockLetterRepository)(nil)
	_ secondary.UserRepository       = (*mockUserRepository)(nil)
	_ secondary.ContentTagRepository = (*mockContentTagRepository)(nil)
	_ secondary.IdentityProvider     = (*mockIdentityProvider)(nil)
)

var t0 = time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)

// mockLetterRepository keeps letter graphs in memory.
type mockLetterRepository struct {
	mu        sync.Mutex
	snapshots map[string]*secondary.LetterSnapshotRecord
	// missing counts how many more GetSnapshot calls return no snapshot.
	missing map[string]int

	getSnapshotCalls     int
	getSnapshotErr       error
	createDispositionErr error
	// participantErr fails any write that carries participant records.
	// Like the SQLite transaction, nothing of that write is kept.
	participantErr error
}

func newMockLetterRepository() *mockLetterRepository {
	return &mockLetterRepository{
		snapshots: make(map[string]*secondary.LetterSnapshotRecord),
		missing:   make(map[string]int),
	}
}

func (m *mockLetterRepository) put(rec *secondary.LetterSnapshotRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[rec.Letter.ID] = cloneSnapshot(rec)
}

func (m *mockLetterRepository) participant(letterID, userID string) (secondary.ParticipantRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[letterID]
	if !ok {
		return secondary.ParticipantRecord{}, false
	}
	for _, p := range snap.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return secondary.ParticipantRecord{}, false
}

func (m *mockLetterRepository) CreateLetter(ctx context.Context, letter *secondary.LetterRecord, addressee *secondary.ParticipantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[letter.ID]; exists {
		return fmt.Errorf("letter %s already exists", letter.ID)
	}
	snap := &secondary.LetterSnapshotRecord{Letter: *letter}
	if addressee != nil {
		if m.participantErr != nil {
			return m.participantErr
		}
		snap.Participants = append(snap.Participants, *addressee)
	}
	m.snapshots[letter.ID] = snap
	return nil
}

func (m *mockLetterRepository) GetLetter(ctx context.Context, id string) (*secondary.LetterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[id]
	if !ok {
		return nil, fmt.Errorf("letter %s: %w", id, secondary.ErrNotFound)
	}
	letter := snap.Letter
	return &letter, nil
}

func (m *mockLetterRepository) ListLetters(ctx context.Context, filters secondary.LetterFilters) ([]*secondary.LetterRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.LetterRecord
	for _, snap := range m.snapshots {
		if filters.ParticipantID != "" && !reached(snap, filters.ParticipantID) {
			continue
		}
		letter := snap.Letter
		result = append(result, &letter)
	}
	slices.SortFunc(result, func(a, b *secondary.LetterRecord) int {
		if c := cmp.Compare(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

func reached(snap *secondary.LetterSnapshotRecord, userID string) bool {
	if snap.Letter.AddresseeID == userID {
		return true
	}
	return slices.ContainsFunc(snap.Participants, func(p secondary.ParticipantRecord) bool {
		return p.UserID == userID
	})
}

func (m *mockLetterRepository) GetSnapshot(ctx context.Context, letterID string) (*secondary.LetterSnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getSnapshotCalls++
	if m.getSnapshotErr != nil {
		return nil, m.getSnapshotErr
	}
	if m.missing[letterID] > 0 {
		m.missing[letterID]--
		return nil, nil
	}
	snap, ok := m.snapshots[letterID]
	if !ok {
		return nil, fmt.Errorf("letter %s: %w", letterID, secondary.ErrNotFound)
	}
	return cloneSnapshot(snap), nil
}

func (m *mockLetterRepository) CreateDisposition(ctx context.Context, d *secondary.DispositionRecord, arrivals []secondary.ParticipantRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createDispositionErr != nil {
		return m.createDispositionErr
	}
	snap, ok := m.snapshots[d.LetterID]
	if !ok {
		return fmt.Errorf("letter %s: %w", d.LetterID, secondary.ErrNotFound)
	}
	for _, existing := range snap.Dispositions {
		if existing.CreatorID == d.CreatorID {
			return errors.New("UNIQUE constraint failed: dispositions.letter_id, dispositions.creator_id")
		}
	}
	if len(arrivals) > 0 && m.participantErr != nil {
		return m.participantErr
	}
	snap.Dispositions = append(snap.Dispositions, *d)
	for _, p := range arrivals {
		if !reachedParticipant(snap, p.UserID) {
			snap.Participants = append(snap.Participants, p)
		}
	}
	return nil
}

func reachedParticipant(snap *secondary.LetterSnapshotRecord, userID string) bool {
	return slices.ContainsFunc(snap.Participants, func(p secondary.ParticipantRecord) bool {
		return p.UserID == userID
	})
}

func (m *mockLetterRepository) MarkRead(ctx context.Context, letterID, userID, at string) error {
	return m.stamp(letterID, userID, func(p *secondary.ParticipantRecord) {
		if p.ReadAt == "" {
			p.ReadAt = at
		}
	})
}

func (m *mockLetterRepository) MarkExecuted(ctx context.Context, letterID, userID, at string) error {
	return m.stamp(letterID, userID, func(p *secondary.ParticipantRecord) {
		if p.ExecutedAt == "" {
			p.ExecutedAt = at
		}
	})
}

func (m *mockLetterRepository) stamp(letterID, userID string, fn func(*secondary.ParticipantRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snapshots[letterID]
	if !ok {
		return fmt.Errorf("letter %s: %w", letterID, secondary.ErrNotFound)
	}
	for i := range snap.Participants {
		if snap.Participants[i].UserID == userID {
			fn(&snap.Participants[i])
			return nil
		}
	}
	return fmt.Errorf("participant %s: %w", userID, secondary.ErrNotFound)
}

func (m *mockLetterRepository) ImportSnapshot(ctx context.Context, snapshot *secondary.LetterSnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.snapshots[snapshot.Letter.ID]; exists {
		return fmt.Errorf("letter %s already exists", snapshot.Letter.ID)
	}
	m.snapshots[snapshot.Letter.ID] = cloneSnapshot(snapshot)
	return nil
}

func cloneSnapshot(rec *secondary.LetterSnapshotRecord) *secondary.LetterSnapshotRecord {
	out := &secondary.LetterSnapshotRecord{
		Letter:       rec.Letter,
		Participants: slices.Clone(rec.Participants),
		People:       slices.Clone(rec.People),
	}
	for _, d := range rec.Dispositions {
		d.ContentTags = slices.Clone(d.ContentTags)
		d.Recipients = slices.Clone(d.Recipients)
		out.Dispositions = append(out.Dispositions, d)
	}
	return out
}

// mockUserRepository implements secondary.UserRepository for testing.
type mockUserRepository struct {
	users map[string]*secondary.UserRecord
}

func newMockUserRepository(users ...secondary.UserRecord) *mockUserRepository {
	m := &mockUserRepository{users: make(map[string]*secondary.UserRecord)}
	for _, u := range users {
		m.users[u.ID] = &u
	}
	return m
}

func (m *mockUserRepository) Create(ctx context.Context, user *secondary.UserRecord) error {
	if _, exists := m.users[user.ID]; exists {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*secondary.UserRecord, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, secondary.ErrNotFound)
	}
	out := *u
	return &out, nil
}

func (m *mockUserRepository) List(ctx context.Context) ([]*secondary.UserRecord, error) {
	result := make([]*secondary.UserRecord, 0, len(m.users))
	for _, u := range m.users {
		out := *u
		result = append(result, &out)
	}
	slices.SortFunc(result, func(a, b *secondary.UserRecord) int { return cmp.Compare(a.Name, b.Name) })
	return result, nil
}

// mockContentTagRepository implements secondary.ContentTagRepository for testing.
type mockContentTagRepository struct {
	tags []*secondary.ContentTagRecord
}

func newMockContentTagRepository(phrases ...string) *mockContentTagRepository {
	m := &mockContentTagRepository{}
	for i, p := range phrases {
		m.tags = append(m.tags, &secondary.ContentTagRecord{ID: fmt.Sprintf("CT-%03d", i+1), Phrase: p, SortOrder: i + 1})
	}
	return m
}

func (m *mockContentTagRepository) Create(ctx context.Context, tag *secondary.ContentTagRecord) error {
	m.tags = append(m.tags, tag)
	return nil
}

func (m *mockContentTagRepository) List(ctx context.Context) ([]*secondary.ContentTagRecord, error) {
	return m.tags, nil
}

// mockIdentityProvider resolves the acting user from the user repository.
type mockIdentityProvider struct {
	users  *mockUserRepository
	userID string
	err    error
}

func (m *mockIdentityProvider) CurrentIdentity(ctx context.Context) (*secondary.IdentityRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, err := m.users.GetByID(ctx, m.userID)
	if err != nil {
		return nil, err
	}
	return &secondary.IdentityRecord{UserID: u.ID, Role: u.Role, SupervisorID: u.SupervisorID}, nil
}

// sequentialIDs returns an id generator producing prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// fixedClock returns a clock advancing one minute per call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// directory is the user set shared by the service tests.
func directory() []secondary.UserRecord {
	return []secondary.UserRecord{
		{ID: "CLERK", Name: "Clerk", Role: "clerk"},
		{ID: "HEAD", Name: "Head of Office", Role: "officer"},
		{ID: "SEC1", Name: "Section One", Role: "officer", SupervisorID: "HEAD"},
		{ID: "SEC2", Name: "Section Two", Role: "officer", SupervisorID: "HEAD"},
		{ID: "OPS1", Name: "Operative One", Role: "operative", SupervisorID: "SEC1"},
		{ID: "ADMIN", Name: "Admin", Role: "administrator"},
		{ID: "EXT", Name: "Outside Party", Role: "external"},
	}
}

// incomingLetter is a registered, undisposed letter addressed to HEAD.
func incomingLetter(id string) *secondary.LetterSnapshotRecord {
	created := formatTime(t0)
	return &secondary.LetterSnapshotRecord{
		Letter: secondary.LetterRecord{
			ID:             id,
			Number:         "001/" + id,
			Classification: "urgent",
			Subject:        "Budget review",
			Sender:         "Ministry",
			CreatorID:      "CLERK",
			AddresseeID:    "HEAD",
			LetterDate:     "2024-03-01",
			CreatedAt:      created,
		},
		Participants: []secondary.ParticipantRecord{
			{ID: id + "-P-HEAD", LetterID: id, UserID: "HEAD", CreatedAt: created},
		},
		People: directory(),
	}
}

// harness wires the services over in-memory ports.
type harness struct {
	letters  *mockLetterRepository
	users    *mockUserRepository
	tags     *mockContentTagRepository
	identity *mockIdentityProvider
	metrics  *metrics.Metrics
	opts     Options

	letterSvc      *LetterServiceImpl
	dispositionSvc *DispositionServiceImpl
	userSvc        *UserServiceImpl
}

func newHarness(t *testing.T, actingUser string) *harness {
	t.Helper()
	h := &harness{
		letters: newMockLetterRepository(),
		users:   newMockUserRepository(directory()...),
		tags:    newMockContentTagRepository("For your information", "Please follow up", "Please attend"),
		metrics: metrics.New(),
	}
	h.identity = &mockIdentityProvider{users: h.users, userID: actingUser}
	h.opts = Options{
		SnapshotRetries: 2,
		RetryDelay:      time.Millisecond,
		Logger:          discardLogger(),
		Metrics:         h.metrics,
		Clock:           fixedClock(t0),
		NewID:           sequentialIDs("ID"),
	}
	h.rebuild()
	return h
}

// rebuild recreates the services after opts changed.
func (h *harness) rebuild() {
	executor := NewEffectExecutor(h.letters, h.opts.Logger, h.metrics)
	h.letterSvc = NewLetterService(h.letters, h.users, h.identity, executor, h.opts)
	h.dispositionSvc = NewDispositionService(h.letters, h.users, h.tags, h.identity, executor, h.opts)
	h.userSvc = NewUserService(h.users, h.identity, h.opts)
}

// as switches the acting user.
func (h *harness) as(userID string) *harness {
	h.identity.userID = userID
	return h
}
