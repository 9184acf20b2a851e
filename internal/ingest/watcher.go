// Package ingest watches a drop directory for extraction result files.
// The extraction pipeline writes one JSON payload per document; every
// *.json file that appears is parsed, saved, recorded in the ingestion
// audit table, and moved out of the way.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/invoicevault/invoicevault/internal/database"
	"github.com/invoicevault/invoicevault/internal/extraction"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	// Writers may deliver a payload in several chunks; wait for quiet
	debounceDelay = 2 * time.Second
)

// Watcher watches a drop directory and ingests extraction result files
type Watcher struct {
	db      *database.DB
	dir     string
	watcher *fsnotify.Watcher

	// Debounce tracking
	pending   map[string]*time.Timer
	pendingMu sync.Mutex

	running bool
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new drop-directory watcher
func New(db *database.DB, dir string) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		db:      db,
		dir:     dir,
		watcher: fsWatcher,
		pending: make(map[string]*time.Timer),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins watching the drop directory. The directory and its
// processed/failed subdirectories are created if missing.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	for _, dir := range []string{w.dir, filepath.Join(w.dir, processedDir), filepath.Join(w.dir, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create ingest directory %s: %w", dir, err)
		}
	}

	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch ingest directory %s: %w", w.dir, err)
	}

	w.running = true
	w.wg.Add(1)
	go w.eventLoop()

	log.Info().Str("dir", w.dir).Msg("Ingest watcher started")

	// Pick up files dropped while the service was down
	go w.scanExistingFiles()

	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	w.cancel()
	w.watcher.Close()
	w.wg.Wait()

	// Cancel any pending events
	w.pendingMu.Lock()
	for _, timer := range w.pending {
		timer.Stop()
	}
	w.pending = make(map[string]*time.Timer)
	w.pendingMu.Unlock()

	log.Info().Msg("Ingest watcher stopped")
}

// IsRunning returns whether the watcher is currently running
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Ingest watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !isResultFile(event.Name) {
		return
	}

	w.scheduleFile(event.Name)
}

// scheduleFile schedules a file for processing with debouncing, so a payload
// written in several chunks is only processed once it has settled.
func (w *Watcher) scheduleFile(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if existing, ok := w.pending[path]; ok {
		existing.Reset(debounceDelay)
		return
	}

	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()

		w.ProcessFile(path)
	})

	log.Debug().Str("path", path).Msg("Scheduled ingest")
}

// ProcessFile parses one dropped result file, saves it, records the outcome
// in the ingestion audit table, and moves the file to processed/ or failed/.
func (w *Watcher) ProcessFile(path string) {
	ing := &database.Ingestion{FilePath: path}

	invoiceID, err := w.ingestFile(path)
	ing.InvoiceID = invoiceID

	switch {
	case err != nil:
		ing.Status = database.IngestionStatusFailed
		ing.Error = err.Error()
		log.Error().Err(err).Str("path", path).Msg("Failed to ingest file")
	case invoiceID == "":
		ing.Status = database.IngestionStatusSkipped
		log.Warn().Str("path", path).Msg("Ingested file has no InvoiceId; skipped")
	default:
		ing.Status = database.IngestionStatusStored
		log.Info().Str("path", path).Str("invoice_id", invoiceID).Msg("Ingested extraction result")
	}

	if dbErr := w.db.CreateIngestion(ing); dbErr != nil {
		log.Error().Err(dbErr).Str("path", path).Msg("Failed to record ingestion")
	}

	dest := processedDir
	if err != nil {
		dest = failedDir
	}
	target := filepath.Join(w.dir, dest, filepath.Base(path))
	if mvErr := os.Rename(path, target); mvErr != nil {
		log.Error().Err(mvErr).Str("path", path).Msg("Failed to move ingested file")
	}
}

func (w *Watcher) ingestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	res, err := extraction.ParseResult(data)
	if err != nil {
		return "", err
	}

	invoiceID := res.InvoiceID()
	if invoiceID == "" {
		return "", nil
	}

	if err := w.db.SaveInvoiceExtraction(res.Invoice(), res.FieldConfidence()); err != nil {
		return invoiceID, err
	}

	return invoiceID, nil
}

// scanExistingFiles processes result files already present in the drop
// directory when the watcher starts.
func (w *Watcher) scanExistingFiles() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		log.Error().Err(err).Str("dir", w.dir).Msg("Failed to scan ingest directory")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isResultFile(entry.Name()) {
			continue
		}
		w.scheduleFile(filepath.Join(w.dir, entry.Name()))
	}
}

func isResultFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
