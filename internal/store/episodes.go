// Package store persists simulation episodes and their steps in SQLite so an
// episode can be inspected or replayed later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"pddlsim/internal/logging"
	"pddlsim/internal/pddl"
	"pddlsim/internal/simulation"
)

// ErrEpisodeNotFound is returned for unknown episode ids.
var ErrEpisodeNotFound = errors.New("episode not found")

// Episode is a stored episode header.
type Episode struct {
	simulation.EpisodeInfo
	Solved    bool
	CreatedAt time.Time
}

// EpisodeStore implements simulation.Recorder on SQLite.
type EpisodeStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
	logger *zap.Logger
}

// Open initializes the SQLite database at path. ":memory:" opens a private
// in-memory database.
func Open(path string, logger *zap.Logger) (*EpisodeStore, error) {
	logger = logging.For(logger, logging.CategoryStore)
	timer := logging.StartTimer(logger, "open episode store", zap.String("path", path))
	defer timer.Stop()

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" a single database and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}

	s := &EpisodeStore{db: db, dbPath: path, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the episode tables if they don't exist.
func (s *EpisodeStore) ensureSchema() error {
	episodes := `
	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		problem TEXT NOT NULL,
		seed INTEGER NOT NULL,
		solved INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_episodes_created ON episodes(created_at);
	`

	steps := `
	CREATE TABLE IF NOT EXISTS steps (
		episode_id TEXT NOT NULL REFERENCES episodes(id),
		step INTEGER NOT NULL,
		action TEXT NOT NULL,
		grounding TEXT NOT NULL,
		outcome TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_steps_episode ON steps(episode_id);
	`

	for _, table := range []string{episodes, steps} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *EpisodeStore) Close() error {
	return s.db.Close()
}

// StartEpisode records a new episode header.
func (s *EpisodeStore) StartEpisode(ctx context.Context, ep simulation.EpisodeInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, domain, problem, seed, solved, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		ep.ID, ep.Domain, ep.Problem, int64(ep.Seed), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert episode %s: %w", ep.ID, err)
	}
	s.logger.Debug("episode recorded", zap.String("episode", ep.ID))
	return nil
}

// RecordStep appends one action attempt.
func (s *EpisodeStore) RecordStep(ctx context.Context, step simulation.StepRecord) error {
	grounding, err := json.Marshal(step.Action.Grounding)
	if err != nil {
		return fmt.Errorf("failed to marshal grounding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO steps (episode_id, step, action, grounding, outcome, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		step.EpisodeID, step.Step, string(step.Action.Name), string(grounding), string(step.Outcome), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert step %d of %s: %w", step.Step, step.EpisodeID, err)
	}
	return nil
}

// MarkSolved flags the episode as having reached its goal.
func (s *EpisodeStore) MarkSolved(ctx context.Context, episodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE episodes SET solved = 1 WHERE id = ?`, episodeID)
	if err != nil {
		return fmt.Errorf("failed to mark %s solved: %w", episodeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
	}
	return nil
}

// Episode returns the header of one episode.
func (s *EpisodeStore) Episode(ctx context.Context, id string) (Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, domain, problem, seed, solved, created_at FROM episodes WHERE id = ?`, id)
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Episode{}, fmt.Errorf("%w: %s", ErrEpisodeNotFound, id)
	}
	return ep, err
}

// Episodes lists the most recent episodes first, up to limit.
func (s *EpisodeStore) Episodes(ctx context.Context, limit int) ([]Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, domain, problem, seed, solved, created_at FROM episodes ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row scanner) (Episode, error) {
	var (
		ep      Episode
		seed    int64
		solved  int
		created int64
	)
	if err := row.Scan(&ep.ID, &ep.Domain, &ep.Problem, &seed, &solved, &created); err != nil {
		return Episode{}, err
	}
	ep.Seed = uint64(seed)
	ep.Solved = solved != 0
	ep.CreatedAt = time.Unix(0, created)
	return ep, nil
}

// Steps returns every recorded attempt of an episode in order.
func (s *EpisodeStore) Steps(ctx context.Context, episodeID string) ([]simulation.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, action, grounding, outcome FROM steps WHERE episode_id = ? ORDER BY rowid`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	var out []simulation.StepRecord
	for rows.Next() {
		var (
			rec       = simulation.StepRecord{EpisodeID: episodeID}
			action    string
			grounding string
			outcome   string
		)
		if err := rows.Scan(&rec.Step, &action, &grounding, &outcome); err != nil {
			return nil, err
		}
		rec.Action.Name = pddl.ActionName(action)
		if err := json.Unmarshal([]byte(grounding), &rec.Action.Grounding); err != nil {
			return nil, fmt.Errorf("corrupt grounding in step %d of %s: %w", rec.Step, episodeID, err)
		}
		rec.Outcome = simulation.Outcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AppliedActions returns the actions that changed the episode's state, in
// order. Replaying them with the episode's seed reproduces its final state.
func (s *EpisodeStore) AppliedActions(ctx context.Context, episodeID string) ([]pddl.GroundedAction, error) {
	steps, err := s.Steps(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	var out []pddl.GroundedAction
	for _, st := range steps {
		if st.Outcome == simulation.OutcomeApplied {
			out = append(out, st.Action)
		}
	}
	return out, nil
}
