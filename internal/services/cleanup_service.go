package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"rulevault/internal/clockx"
	"rulevault/internal/repositories"
)

// CleanupPolicy controls how long stale refresh-token rows are retained.
// Negative values are clamped to zero, i.e. immediate eligibility.
type CleanupPolicy struct {
	RevokedRetentionDays int
	ExpiredGraceDays     int
}

type CleanupResult struct {
	DeletedCount  int64
	RevokedCutoff time.Time
	ExpiredCutoff time.Time
}

// CleanupService is the scheduled reaper for refresh-token rows. It is the
// only component that deletes them; request handling revokes but never
// deletes. It runs outside the request path and nothing blocks on it.
type CleanupService struct {
	tokens repositories.RefreshTokenRepository
	clock  clockx.Clock
	alerts AlertNotifier // may be nil

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewCleanupService(tokens repositories.RefreshTokenRepository, clock clockx.Clock, alerts AlertNotifier) *CleanupService {
	return &CleanupService{
		tokens:   tokens,
		clock:    clock,
		alerts:   alerts,
		stopChan: make(chan struct{}),
	}
}

// Cleanup deletes every record that is revoked past the revoked cutoff or
// expired past the expired cutoff. Live records are never touched.
func (s *CleanupService) Cleanup(policy CleanupPolicy) (CleanupResult, error) {
	revokedDays := policy.RevokedRetentionDays
	if revokedDays < 0 {
		revokedDays = 0
	}
	expiredDays := policy.ExpiredGraceDays
	if expiredDays < 0 {
		expiredDays = 0
	}

	now := s.clock.Now()
	result := CleanupResult{
		RevokedCutoff: now.Add(-time.Duration(revokedDays) * 24 * time.Hour),
		ExpiredCutoff: now.Add(-time.Duration(expiredDays) * 24 * time.Hour),
	}

	deleted, err := s.tokens.DeleteStale(result.RevokedCutoff, result.ExpiredCutoff)
	if err != nil {
		return result, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	result.DeletedCount = deleted
	return result, nil
}

// Start launches the background reaper loop. Call Stop to shut it down.
func (s *CleanupService) Start(interval time.Duration, policy CleanupPolicy) {
	s.wg.Add(1)
	go s.run(interval, policy)
}

func (s *CleanupService) run(interval time.Duration, policy CleanupPolicy) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			res, err := s.Cleanup(policy)
			if err != nil {
				// best-effort batch, the next tick retries
				log.Printf("[cleanup][run] failed: %v", err)
				continue
			}
			log.Printf("[cleanup][run] deleted=%d revoked_cutoff=%s expired_cutoff=%s",
				res.DeletedCount, res.RevokedCutoff.Format(time.RFC3339), res.ExpiredCutoff.Format(time.RFC3339))
			if s.alerts != nil && res.DeletedCount > 0 {
				s.alerts.CleanupCompleted(res.DeletedCount)
			}
		}
	}
}

// Stop halts the reaper loop and waits for it to exit.
func (s *CleanupService) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}
