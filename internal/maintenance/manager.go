// Package maintenance runs periodic housekeeping against the SQLite store.
package maintenance

import (
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/invoicevault/invoicevault/internal/config"
	"github.com/invoicevault/invoicevault/internal/database"
)

const DefaultSchedule = "@daily"

// Manager schedules database maintenance (PRAGMA optimize, optional VACUUM)
type Manager struct {
	db          *database.DB
	loader      *config.Loader
	cron        *cron.Cron
	cronEntryID cron.EntryID
	mu          sync.Mutex
	running     bool
}

// New creates a new maintenance manager
func New(db *database.DB, loader *config.Loader) *Manager {
	return &Manager{
		db:     db,
		loader: loader,
		cron:   cron.New(),
	}
}

// Start begins the maintenance schedule. The cron expression comes from the
// maintenance.schedule setting.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	schedule := m.loader.String("maintenance.schedule", DefaultSchedule)
	id, err := m.cron.AddFunc(schedule, m.run)
	if err != nil {
		return err
	}
	m.cronEntryID = id

	m.cron.Start()
	m.running = true

	log.Info().Str("schedule", schedule).Msg("Maintenance schedule started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	ctx := m.cron.Stop()
	<-ctx.Done()

	m.running = false
	log.Info().Msg("Maintenance schedule stopped")
}

// run performs one maintenance pass
func (m *Manager) run() {
	log.Debug().Msg("Running database maintenance")

	if err := m.db.Optimize(); err != nil {
		log.Error().Err(err).Msg("Database optimize failed")
	}

	if m.loader.Bool("maintenance.vacuum", false) {
		if err := m.db.Vacuum(); err != nil {
			log.Error().Err(err).Msg("Database vacuum failed")
		}
	}
}
