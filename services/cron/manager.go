package cron

import (
	"context"
	"log"

	"github.com/phantomhive/sebastian-api/database"
	"github.com/robfig/cron/v3"
)

// RemoteMedia deletes replicated upload objects. Satisfied by spaces.Client.
type RemoteMedia interface {
	DeleteFile(ctx context.Context, key string) error
}

// CronManager manages all scheduled housekeeping jobs
type CronManager struct {
	cron          *cron.Cron
	store         database.Storage
	uploadsDir    string
	retentionDays int
	remote        RemoteMedia
}

// NewCronManager creates a new cron manager. remote may be nil when no
// object-storage replica is configured.
func NewCronManager(store database.Storage, uploadsDir string, retentionDays int, remote RemoteMedia) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:          c,
		store:         store,
		uploadsDir:    uploadsDir,
		retentionDays: retentionDays,
		remote:        remote,
	}
}

// Start registers and starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// Daily at 04:00: delete uploaded files past retention that no message references
	_, err := m.cron.AddFunc("0 0 4 * * *", func() {
		log.Println("[cron] starting job: cleanup_orphaned_uploads")
		m.CleanupOrphanedUploads()
	})
	return err
}
