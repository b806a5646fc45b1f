// Package publish serializes annotation batches and persists them to object
// storage under timestamped keys.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/domain"
)

// timestampLayout is sortable at second resolution. Timestamps are UTC.
const timestampLayout = "2006-01-02_15-04-05"

// Storer uploads one local file to one storage key.
type Storer interface {
	Store(ctx context.Context, key, localPath, contentType string) error
}

// Publisher writes batches as JSON to object storage. Empty batches are
// rejected before anything is written; a failed upload keeps the local
// artifact on disk for inspection.
type Publisher struct {
	store         Storer
	keyPrefix     string
	tempDir       string
	captureAuthor bool
	now           func() time.Time
	logger        *zap.Logger
}

// New creates a publisher.
func New(store Storer, keyPrefix, tempDir string, logger *zap.Logger) *Publisher {
	return &Publisher{
		store:     store,
		keyPrefix: keyPrefix,
		tempDir:   tempDir,
		now:       time.Now,
		logger:    logger,
	}
}

// WithAuthorCapture folds the sanitized author name into storage keys.
func (p *Publisher) WithAuthorCapture(on bool) *Publisher {
	p.captureAuthor = on
	return p
}

// WithClock overrides the time source. Used in tests.
func (p *Publisher) WithClock(now func() time.Time) *Publisher {
	p.now = now
	return p
}

// Publish serializes the batch, uploads it and returns the storage key.
// Batches with zero records are rejected without touching the store.
func (p *Publisher) Publish(ctx context.Context, batch domain.Batch, author, identifier string) (string, error) {
	if batch.Empty() {
		return "", fmt.Errorf("publish %s: %w", identifier, domain.ErrEmptyBatch)
	}

	timestamp := p.now().UTC().Format(timestampLayout)
	key := p.key(identifier, author, timestamp)

	data, err := json.MarshalIndent(batch, "", "    ")
	if err != nil {
		return "", fmt.Errorf("serialize batch for %s: %w", identifier, err)
	}

	localPath := filepath.Join(p.tempDir, filepath.Base(key))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", localPath, err)
	}

	if err := p.store.Store(ctx, key, localPath, "application/json"); err != nil {
		// The artifact is kept on purpose so a failed publish can be
		// inspected; cleanup happens on success only.
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := os.Remove(localPath); err != nil {
		p.logger.Warn("failed to remove published artifact",
			zap.String("path", localPath),
			zap.Error(err),
		)
	}

	p.logger.Info("published annotations",
		zap.String("key", key),
		zap.Int("records", len(batch.Annotations)),
	)
	return key, nil
}

func (p *Publisher) key(identifier, author, timestamp string) string {
	if p.captureAuthor {
		return fmt.Sprintf("%s%s_%s_%s.json", p.keyPrefix, identifier, domain.SanitizeAuthor(author), timestamp)
	}
	return fmt.Sprintf("%s%s_%s.json", p.keyPrefix, identifier, timestamp)
}
