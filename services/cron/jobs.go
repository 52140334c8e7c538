package cron

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// CleanupOrphanedUploads removes files from the uploads directory that are older
// than the retention window and are not referenced by any stored message.
// Referenced files are kept forever: messages are append-only and keep serving
// their media.
func (m *CronManager) CleanupOrphanedUploads() {
	cutoff := time.Now().Add(-time.Duration(m.retentionDays) * 24 * time.Hour)

	entries, err := os.ReadDir(m.uploadsDir)
	if err != nil {
		log.Printf("[cron] cleanup: failed to read uploads dir: %v", err)
		return
	}

	var removed, kept int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			kept++
			continue
		}

		referenced, err := m.store.HasMessageWithMediaURL("/uploads/" + entry.Name())
		if err != nil {
			log.Printf("[cron] cleanup: reference check failed for %s: %v", entry.Name(), err)
			continue
		}
		if referenced {
			kept++
			continue
		}

		if err := os.Remove(filepath.Join(m.uploadsDir, entry.Name())); err != nil {
			log.Printf("[cron] cleanup: failed to remove %s: %v", entry.Name(), err)
			continue
		}
		// Remove the object-storage replica too, best effort
		if m.remote != nil {
			if err := m.remote.DeleteFile(context.Background(), "uploads/"+entry.Name()); err != nil {
				log.Printf("[cron] cleanup: failed to remove remote copy of %s: %v", entry.Name(), err)
			}
		}
		removed++
	}

	log.Printf("[cron] cleanup_orphaned_uploads done: removed=%d kept=%d", removed, kept)
}
