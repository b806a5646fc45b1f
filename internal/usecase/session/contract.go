package session

import (
	"context"

	"github.com/polbb/annotations/internal/domain"
)

// Gateway moves single objects between local disk and the bucket.
type Gateway interface {
	Fetch(ctx context.Context, key string) (localPath string, err error)
	Store(ctx context.Context, key, localPath, contentType string) error
}

// Converter renders a local XHTML file into a local PDF.
type Converter interface {
	Convert(ctx context.Context, xhtmlPath, identifier string) (pdfPath string, err error)
}

// Extractor reads annotation records out of a local PDF.
type Extractor interface {
	Extract(pdfPath string) (records []domain.Record, author string, err error)
}

// Publisher persists a batch and returns its storage key.
type Publisher interface {
	Publish(ctx context.Context, batch domain.Batch, author, identifier string) (key string, err error)
}
