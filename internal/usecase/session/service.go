// Package session orchestrates the annotation round-trip pipeline:
// fetch -> convert -> (human annotates) -> extract -> publish.
package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/polbb/annotations/internal/domain"
	"github.com/polbb/annotations/internal/logger"
	"github.com/polbb/annotations/internal/metrics"
)

// Session is the state one reviewer works on: the identifier they asked for
// and the local path of the document currently being annotated. It is passed
// explicitly into every pipeline call; there is no ambient current-document
// slot.
type Session struct {
	Identifier   string
	DocumentPath string
}

// Service wires the pipeline components together. Every operation is
// synchronous and runs to completion before the host accepts the next action.
type Service struct {
	gateway      Gateway
	converter    Converter
	extractor    Extractor
	publisher    Publisher
	markupPrefix string
	logger       *zap.Logger
}

// New creates the pipeline service.
func New(gateway Gateway, converter Converter, extractor Extractor, publisher Publisher,
	markupPrefix string, logger *zap.Logger,
) *Service {
	return &Service{
		gateway:      gateway,
		converter:    converter,
		extractor:    extractor,
		publisher:    publisher,
		markupPrefix: markupPrefix,
		logger:       logger,
	}
}

// FetchAndConvert downloads the markup document for identifier and renders
// it to PDF. A fetch failure means no conversion is attempted.
func (s *Service) FetchAndConvert(ctx context.Context, identifier string) (Session, error) {
	key := s.markupPrefix + identifier + ".xhtml"

	xhtmlPath, err := s.gateway.Fetch(ctx, key)
	if err != nil {
		metrics.PipelineOpsTotal.WithLabelValues("fetch", "error").Inc()
		return Session{}, fmt.Errorf("fetch markup: %w", err)
	}
	metrics.PipelineOpsTotal.WithLabelValues("fetch", "ok").Inc()

	pdfPath, err := s.converter.Convert(ctx, xhtmlPath, identifier)
	if err != nil {
		metrics.PipelineOpsTotal.WithLabelValues("convert", "error").Inc()
		return Session{}, fmt.Errorf("convert markup: %w", err)
	}
	metrics.PipelineOpsTotal.WithLabelValues("convert", "ok").Inc()

	logger.FromContextOr(ctx, s.logger).Info("document ready for annotation",
		zap.String("identifier", identifier),
		zap.String("path", pdfPath),
	)
	return Session{Identifier: identifier, DocumentPath: pdfPath}, nil
}

// AttachDocument replaces the session's document with an annotated copy the
// reviewer uploaded (re-upload flow).
func (s *Service) AttachDocument(sess Session, annotatedPath string) Session {
	sess.DocumentPath = annotatedPath
	return sess
}

// Extract builds a fresh batch from the current state of the session's
// document.
func (s *Service) Extract(ctx context.Context, sess Session) (domain.Batch, string, error) {
	if sess.DocumentPath == "" {
		return domain.Batch{}, "", fmt.Errorf("no document in session for %q: %w",
			sess.Identifier, domain.ErrNoDocument)
	}

	records, author, err := s.extractor.Extract(sess.DocumentPath)
	if err != nil {
		metrics.PipelineOpsTotal.WithLabelValues("extract", "error").Inc()
		return domain.Batch{}, "", fmt.Errorf("extract annotations: %w", err)
	}
	metrics.PipelineOpsTotal.WithLabelValues("extract", "ok").Inc()
	metrics.RecordsExtractedTotal.Add(float64(len(records)))

	logger.FromContextOr(ctx, s.logger).Info("extracted annotations",
		zap.String("identifier", sess.Identifier),
		zap.Int("records", len(records)),
		zap.String("author", author),
	)
	return domain.Batch{Annotations: records}, author, nil
}

// Publish extracts the current batch and persists it. It returns the storage
// key and the batch that was published, so the host can display it.
func (s *Service) Publish(ctx context.Context, sess Session) (string, domain.Batch, error) {
	batch, author, err := s.Extract(ctx, sess)
	if err != nil {
		return "", domain.Batch{}, err
	}

	key, err := s.publisher.Publish(ctx, batch, author, sess.Identifier)
	if err != nil {
		metrics.PipelineOpsTotal.WithLabelValues("publish", "error").Inc()
		return "", domain.Batch{}, fmt.Errorf("publish annotations: %w", err)
	}
	metrics.PipelineOpsTotal.WithLabelValues("publish", "ok").Inc()
	return key, batch, nil
}
