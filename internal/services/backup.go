package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"budget/internal/amqp"
	"budget/internal/exchange"
	applog "budget/internal/log"
	"budget/internal/store"
)

const (
	backupPrefix = "budget-export-"
	backupSuffix = ".json"
)

// BackupConfig holds configuration for the backup processor
type BackupConfig struct {
	// Dir receives the export files.
	Dir string

	// Keep is how many of the newest backups survive pruning (default: 10)
	Keep int

	// FlushInterval coalesces change bursts into one backup (default: 2s)
	FlushInterval time.Duration
}

// DefaultBackupConfig returns sensible defaults
func DefaultBackupConfig() BackupConfig {
	return BackupConfig{
		Dir:           "./data/backups",
		Keep:          10,
		FlushInterval: 2 * time.Second,
	}
}

// BackupProcessor writes the export document to a rolling set of files
// whenever the store changes.
type BackupProcessor struct {
	store  store.Reader
	config BackupConfig
	now    func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	dirty   bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	writeMu sync.Mutex
}

func NewBackupProcessor(r store.Reader, config BackupConfig) *BackupProcessor {
	if config.Keep <= 0 {
		config.Keep = DefaultBackupConfig().Keep
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultBackupConfig().FlushInterval
	}
	return &BackupProcessor{store: r, config: config, now: time.Now}
}

// Start begins the flush loop. Returns an error if already running.
func (p *BackupProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("backup processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Backup processor started",
		"dir", p.config.Dir,
		"keep", p.config.Keep,
		"flush_interval", p.config.FlushInterval)
	return nil
}

// Stop flushes pending changes and waits for the loop to exit.
func (p *BackupProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Backup processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Backup processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *BackupProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// HandleChange records a change. While the loop runs the backup is written
// on the next flush; otherwise it is written right away.
func (p *BackupProcessor) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	p.mu.Lock()
	running := p.running
	p.dirty = true
	p.mu.Unlock()

	slog.DebugContext(ctx, "Change received",
		applog.FieldTable, msg.Table, applog.FieldOperation, msg.Op, applog.FieldVersion, msg.Version)
	if running {
		return nil
	}
	return p.flush(ctx)
}

func (p *BackupProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			p.flushLogged(context.WithoutCancel(ctx))
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flushLogged(ctx)
		}
	}
}

func (p *BackupProcessor) flushLogged(ctx context.Context) {
	if err := p.flush(ctx); err != nil {
		slog.ErrorContext(ctx, "Backup failed", "error", err)
	}
}

func (p *BackupProcessor) flush(ctx context.Context) error {
	p.mu.Lock()
	dirty := p.dirty
	p.dirty = false
	p.mu.Unlock()
	if !dirty {
		return nil
	}

	if _, err := p.Backup(ctx); err != nil {
		p.mu.Lock()
		p.dirty = true
		p.mu.Unlock()
		return err
	}
	return nil
}

// Backup writes one export file and prunes old ones. It returns the path
// written.
func (p *BackupProcessor) Backup(ctx context.Context) (string, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	now := p.now().UTC()
	doc, err := exchange.Export(ctx, p.store, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	tmp, err := os.CreateTemp(p.config.Dir, ".backup-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := exchange.Write(tmp, doc); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	path := filepath.Join(p.config.Dir, BackupName(now))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename backup: %w", err)
	}

	removed, err := p.prune()
	if err != nil {
		slog.WarnContext(ctx, "Failed to prune backups", "error", err)
	}
	slog.InfoContext(ctx, "Backup written",
		"path", path,
		"transactions", len(doc.Transactions),
		"pruned", removed)
	return path, nil
}

// BackupName is the file name of a backup taken at t. Names sort in
// chronological order.
func BackupName(t time.Time) string {
	return backupPrefix + t.UTC().Format("20060102T150405.000000000") + "Z" + backupSuffix
}

// Backups lists the backup files in dir, oldest first.
func Backups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (p *BackupProcessor) prune() (int, error) {
	names, err := Backups(p.config.Dir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(names)-removed > p.config.Keep {
		if err := os.Remove(filepath.Join(p.config.Dir, names[removed])); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
