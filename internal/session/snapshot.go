package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"athlete-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// SnapshotStore persists one verified session per athlete as a JSON
// file, surviving process restarts. It is the lowest-priority
// reconciliation source and is purged on cleanup.
type SnapshotStore struct {
	dir    string
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewSnapshotStore(dir string, ttl time.Duration, logger zerolog.Logger) *SnapshotStore {
	return &SnapshotStore{
		dir:    dir,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// SetNowFunc overrides the clock. Tests only.
func (s *SnapshotStore) SetNowFunc(now func() time.Time) {
	s.now = now
}

type snapshotFile struct {
	Session    domain.VerifiedSession `json:"session"`
	VerifiedAt time.Time              `json:"verifiedAt"`
}

func (s *SnapshotStore) path(athleteID string) string {
	return filepath.Join(s.dir, athleteID+".session.json")
}

func (s *SnapshotStore) Save(athleteID string, sess domain.VerifiedSession) error {
	data, err := json.Marshal(snapshotFile{Session: sess, VerifiedAt: sess.VerifiedAt})
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(athleteID), data, 0o600); err != nil {
		s.logger.Warn().Err(err).Str("athlete_id", athleteID).Msg("failed to persist session snapshot")
		return err
	}
	return nil
}

// Load returns the persisted session unless it is missing, unreadable
// or older than the TTL. Stale files are removed on read.
func (s *SnapshotStore) Load(athleteID string) (domain.VerifiedSession, bool) {
	data, err := os.ReadFile(s.path(athleteID))
	if err != nil {
		return domain.VerifiedSession{}, false
	}

	var f snapshotFile
	if err := json.Unmarshal(data, &f); err != nil {
		s.logger.Warn().Err(err).Str("athlete_id", athleteID).Msg("corrupt session snapshot, removing")
		_ = os.Remove(s.path(athleteID))
		return domain.VerifiedSession{}, false
	}

	if s.now().Sub(f.VerifiedAt) > s.ttl {
		_ = os.Remove(s.path(athleteID))
		return domain.VerifiedSession{}, false
	}
	return f.Session, true
}

// Delete is a no-op when the file does not exist.
func (s *SnapshotStore) Delete(athleteID string) {
	if err := os.Remove(s.path(athleteID)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn().Err(err).Str("athlete_id", athleteID).Msg("failed to remove session snapshot")
	}
}
