package experience

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

const backupPrefix = "trials_backup_"

// backupSeq disambiguates snapshots taken within the same millisecond.
var backupSeq uint64

// Backup writes a CSV snapshot of the full trial log into BackupDir and
// prunes the oldest snapshots beyond BackupsToKeep. It returns the
// snapshot path.
func (s *Store) Backup(ctx context.Context) (string, error) {
	trials, err := s.allOldestFirst(ctx)
	if err != nil {
		return "", err
	}

	dir := s.cfg.BackupDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	seq := atomic.AddUint64(&backupSeq, 1)
	name := fmt.Sprintf("%s%d_%d.csv", backupPrefix, time.Now().UnixMilli(), seq)
	path := filepath.Join(dir, name)
	if err := writeTrialsCSV(path, trials); err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.BackupsCreated.Inc()
	}
	s.logger.Info().Str("path", path).Int("trials", len(trials)).Msg("backup snapshot written")

	if err := s.pruneBackups(dir); err != nil {
		s.logger.Error().Err(err).Msg("backup pruning failed")
	}
	return path, nil
}

// pruneBackups deletes the oldest snapshot files beyond BackupsToKeep.
// Snapshot filenames embed a millisecond timestamp and a monotonic
// sequence number, so lexical order on the zero-padded-free names is not
// reliable; sort by modification time instead.
func (s *Store) pruneBackups(dir string) error {
	if s.cfg.BackupsToKeep <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}

	type snapshot struct {
		path    string
		modTime time.Time
	}
	var snaps []snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), backupPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, snapshot{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime(),
		})
	}
	if len(snaps) <= s.cfg.BackupsToKeep {
		return nil
	}

	sort.Slice(snaps, func(i, j int) bool { return snaps[i].modTime.Before(snaps[j].modTime) })
	for _, snap := range snaps[:len(snaps)-s.cfg.BackupsToKeep] {
		if err := os.Remove(snap.path); err != nil {
			return fmt.Errorf("remove old backup %s: %w", snap.path, err)
		}
		s.logger.Debug().Str("path", snap.path).Msg("pruned old backup")
	}
	return nil
}
