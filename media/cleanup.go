package media

import (
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// StartCleanup schedules a periodic purge of cached files older than maxAge.
// cronSpec uses standard cron syntax; an empty spec defaults to hourly.
// The returned cron runner should be stopped on shutdown.
func (s *Store) StartCleanup(cronSpec string, maxAge time.Duration) (*cron.Cron, error) {
	if cronSpec == "" {
		cronSpec = "@hourly"
	}
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}

	c := cron.New()
	_, err := c.AddFunc(cronSpec, func() {
		removed := s.purgeOlderThan(maxAge)
		if removed > 0 {
			s.Logger.Printf("Cleanup removed %d stale media files", removed)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func (s *Store) purgeOlderThan(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		s.Logger.Printf("Cleanup failed to read media directory: %v", err)
		return 0
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.Dir, entry.Name())); err != nil {
				s.Logger.Printf("Cleanup failed to remove %s: %v", entry.Name(), err)
				continue
			}
			removed++
		}
	}
	return removed
}
