package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/metrics"
)

// In-memory Store implementation.
//
// A single coarse RWMutex covers every run: readers share, while Record,
// PublishRun and DeleteRun take the write lock, which also gives the
// delete-vs-read exclusion the cascade requires. Run ids are allocated from
// a monotonic counter so LatestRun is stable under creation order.

// runState holds one run and its tallies.
type runState struct {
	run      model.Run
	subjects map[model.SubjectKind][]model.Subject
	tallies  map[model.Subject][]model.Tally
	// seen tracks (subject, outcome key) pairs for duplicate rejection.
	seen map[string]struct{}
	// groupSums tracks running totals per mutually-exclusive outcome group.
	groupSums map[string]uint64
}

// MemStore implements Store entirely in memory.
type MemStore struct {
	mu     sync.RWMutex
	runs   map[model.RunID]*runState
	nextID model.RunID
	now    func() time.Time
}

// NewMemStore creates an empty in-memory store with configuration options.
func NewMemStore(_ context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		runs: make(map[model.RunID]*runState),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRun allocates the next run id. The run starts unpublished.
func (s *MemStore) CreateRun(_ context.Context, season int, trialsPerGame, trialsPerTeam uint64) (model.Run, error) {
	if trialsPerGame == 0 {
		return model.Run{}, fmt.Errorf("trials per game: %w", ErrInvalidTrials)
	}
	if trialsPerTeam == 0 {
		return model.Run{}, fmt.Errorf("trials per team: %w", ErrInvalidTrials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	run := model.Run{
		ID:            s.nextID,
		Season:        season,
		CreatedAt:     s.now().UTC(),
		TrialsPerGame: trialsPerGame,
		TrialsPerTeam: trialsPerTeam,
	}
	s.runs[run.ID] = &runState{
		run:       run,
		subjects:  make(map[model.SubjectKind][]model.Subject),
		tallies:   make(map[model.Subject][]model.Tally),
		seen:      make(map[string]struct{}),
		groupSums: make(map[string]uint64),
	}
	metrics.RecordRunCreated()
	metrics.UpdateRunCount(len(s.runs))
	return run, nil
}

// PublishRun flips the visibility barrier for a run.
func (s *MemStore) PublishRun(_ context.Context, id model.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("publish run %d: %w", id, ErrUnknownRun)
	}
	st.run.Published = true
	metrics.RecordRunPublished()
	return nil
}

// DeleteRun removes a run and all its tallies. No-op for absent runs.
func (s *MemStore) DeleteRun(_ context.Context, id model.RunID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		return nil
	}
	delete(s.runs, id)
	metrics.RecordRunDeleted()
	metrics.UpdateRunCount(len(s.runs))
	return nil
}

// Run returns a run by id.
func (s *MemStore) Run(_ context.Context, id model.RunID) (model.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.runs[id]
	if !ok {
		return model.Run{}, fmt.Errorf("run %d: %w", id, ErrUnknownRun)
	}
	return st.run, nil
}

// LatestRun returns the published run with the maximum id.
func (s *MemStore) LatestRun(_ context.Context) (model.Run, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest model.Run
	found := false
	for id, st := range s.runs {
		if !st.run.Published {
			continue
		}
		if !found || id > latest.ID {
			latest = st.run
			found = true
		}
	}
	return latest, found, nil
}

// Record writes one tally, enforcing write-once and overflow discipline.
func (s *MemStore) Record(_ context.Context, t model.Tally) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if err := t.Outcome.Validate(); err != nil {
		metrics.RecordTallyRejected("invalid_outcome")
		return fmt.Errorf("record tally: %w", err)
	}
	if err := checkSubjectOutcome(t.Subject, t.Outcome); err != nil {
		metrics.RecordTallyRejected("subject_mismatch")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.runs[t.Run]
	if !ok {
		metrics.RecordTallyRejected("unknown_run")
		return fmt.Errorf("record tally for run %d: %w", t.Run, ErrUnknownRun)
	}

	total := st.run.Trials(t.Subject.Kind)
	if t.Count > total {
		metrics.RecordTallyRejected("overflow")
		return fmt.Errorf("count %d > %d trials for %s %q: %w",
			t.Count, total, t.Subject.Kind, t.Subject.ID, ErrTallyOverflow)
	}

	dupKey := t.Subject.Kind.String() + ":" + t.Subject.ID + "|" + t.Outcome.String()
	if _, exists := st.seen[dupKey]; exists {
		metrics.RecordTallyRejected("duplicate")
		return fmt.Errorf("%s %q outcome %s: %w",
			t.Subject.Kind, t.Subject.ID, t.Outcome, ErrDuplicateTally)
	}

	// Counts across one mutually-exclusive outcome group may not exceed the
	// trial total either; a complete group sums to exactly that total.
	if group, exclusive := exclusiveGroup(t.Subject, t.Outcome); exclusive {
		if st.groupSums[group]+t.Count > total {
			metrics.RecordTallyRejected("overflow")
			return fmt.Errorf("group %q sum %d+%d > %d trials: %w",
				group, st.groupSums[group], t.Count, total, ErrTallyOverflow)
		}
		st.groupSums[group] += t.Count
	}

	if _, known := st.tallies[t.Subject]; !known {
		st.subjects[t.Subject.Kind] = append(st.subjects[t.Subject.Kind], t.Subject)
	}
	st.seen[dupKey] = struct{}{}
	st.tallies[t.Subject] = append(st.tallies[t.Subject], t)
	metrics.RecordTallyRecorded()
	return nil
}

// TotalTrials returns the run's trial total for a subject kind.
func (s *MemStore) TotalTrials(_ context.Context, run model.RunID, kind model.SubjectKind) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.runs[run]
	if !ok {
		return 0, fmt.Errorf("run %d: %w", run, ErrUnknownRun)
	}
	return st.run.Trials(kind), nil
}

// TalliesFor returns a subject's tallies in insertion order.
func (s *MemStore) TalliesFor(_ context.Context, run model.RunID, subject model.Subject) ([]model.Tally, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.runs[run]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", run, ErrUnknownRun)
	}
	tallies, ok := st.tallies[subject]
	if !ok {
		return nil, fmt.Errorf("%s %q in run %d: %w", subject.Kind, subject.ID, run, ErrNoTallies)
	}
	out := make([]model.Tally, len(tallies))
	copy(out, tallies)
	return out, nil
}

// Subjects returns the run's subjects of one kind in first-recorded order.
func (s *MemStore) Subjects(_ context.Context, run model.RunID, kind model.SubjectKind) ([]model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.runs[run]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", run, ErrUnknownRun)
	}
	out := make([]model.Subject, len(st.subjects[kind]))
	copy(out, st.subjects[kind])
	return out, nil
}

// checkSubjectOutcome rejects outcome keys that make no sense for the
// subject kind: games tally game results, teams tally ranks or labels.
func checkSubjectOutcome(subject model.Subject, key model.OutcomeKey) error {
	switch subject.Kind {
	case model.KindGame:
		if key.Kind != model.OutcomeGameResult {
			return fmt.Errorf("outcome %s not valid for game subject %q", key, subject.ID)
		}
	case model.KindTeam:
		if key.Kind == model.OutcomeGameResult {
			return fmt.Errorf("outcome %s not valid for team subject %q", key, subject.ID)
		}
	default:
		return fmt.Errorf("unknown subject kind %d", subject.Kind)
	}
	return nil
}

// exclusiveGroup names the mutually-exclusive outcome set a key belongs to,
// if any. Game results form one group per game; ranks form one group per
// rank-space. Pre-classified labels overlap and are never summed.
func exclusiveGroup(subject model.Subject, key model.OutcomeKey) (string, bool) {
	switch key.Kind {
	case model.OutcomeGameResult:
		return subject.ID + "|results", true
	case model.OutcomeRank:
		return subject.ID + "|rank:" + string(key.Space), true
	default:
		return "", false
	}
}
