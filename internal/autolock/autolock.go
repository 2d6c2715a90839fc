package autolock

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/potureddigowtham/Collab-rooms/internal/db"
)

type Config struct {
	Interval      time.Duration
	ThresholdDays int
	SweepOnStart  bool
}

func DefaultConfig() Config {
	return Config{
		Interval:      time.Hour,
		ThresholdDays: 7,
		SweepOnStart:  true,
	}
}

// Service periodically locks rooms older than the configured threshold so
// stale rooms stop accepting unauthenticated joins.
type Service struct {
	database *db.Database
	config   Config
	log      zerolog.Logger
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(database *db.Database, config Config, log zerolog.Logger) *Service {
	return &Service{
		database: database,
		config:   config,
		log:      log.With().Str("component", "autolock").Logger(),
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	s.log.Info().
		Dur("interval", s.config.Interval).
		Int("threshold_days", s.config.ThresholdDays).
		Msg("auto-lock service started")
}

func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.log.Info().Msg("auto-lock service stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.SweepOnStart {
		s.sweep()
	}

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	locked, err := s.database.LockRoomsOlderThan(s.config.ThresholdDays)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if locked > 0 {
		s.log.Info().Int64("locked", locked).Msg("locked stale rooms")
	}
}

// SweepNow runs one sweep synchronously with the configured threshold.
func (s *Service) SweepNow() (int64, error) {
	return s.database.LockRoomsOlderThan(s.config.ThresholdDays)
}
