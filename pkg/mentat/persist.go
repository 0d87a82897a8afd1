package mentat

import (
	"errors"
	"fmt"
	"log"

	"github.com/orvandel/mentat/pkg/storage"
)

// Persist serializes the full engine state — the enriched graph snapshot
// and the verification-record collection — as JSON documents. Each write
// replaces the previous document atomically, so a failed save leaves the
// old snapshot readable.
func (db *DB) Persist() error {
	graphDoc, err := db.graph.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	if err := db.store.Save(storage.KeyGraph, graphDoc); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}

	// ExportRecords re-applies the sanitization denylist, so stripped
	// fields can never reappear on disk.
	recordsDoc, err := db.cache.ExportRecords()
	if err != nil {
		return fmt.Errorf("failed to serialize verifications: %w", err)
	}
	if err := db.store.Save(storage.KeyVerifications, recordsDoc); err != nil {
		return fmt.Errorf("failed to save verifications: %w", err)
	}
	return nil
}

// loadPersisted restores state from the document store. Any failure falls
// back to fresh in-memory state: persistence errors are logged, never
// fatal, and never leave partial state visible.
func (db *DB) loadPersisted() {
	if data, err := db.store.Load(storage.KeyGraph); err == nil {
		if !db.graph.ImportJSON(data) {
			log.Printf("mentat: persisted graph snapshot is invalid, starting empty")
		}
	} else if !isNotFound(err) {
		log.Printf("mentat: failed to load graph snapshot, starting empty: %v", err)
	}

	if data, err := db.store.Load(storage.KeyVerifications); err == nil {
		if n, err := db.cache.ImportRecords(data); err != nil {
			log.Printf("mentat: failed to migrate verification records, starting empty: %v", err)
		} else if n > 0 {
			log.Printf("mentat: loaded %d verification records", n)
		}
	} else if !isNotFound(err) {
		log.Printf("mentat: failed to load verification records, starting empty: %v", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
