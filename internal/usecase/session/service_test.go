package session

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/polbb/annotations/internal/domain"
	"github.com/polbb/annotations/internal/logger"
)

// --- Mocks ---

type mockGateway struct {
	fetchPath string
	fetchErr  error
	fetchKey  string

	storeErr error
}

func (m *mockGateway) Fetch(_ context.Context, key string) (string, error) {
	m.fetchKey = key
	if m.fetchErr != nil {
		return "", m.fetchErr
	}
	return m.fetchPath, nil
}

func (m *mockGateway) Store(_ context.Context, _, _, _ string) error {
	return m.storeErr
}

type mockConverter struct {
	pdfPath string
	err     error
	calls   int
	source  string
}

func (m *mockConverter) Convert(_ context.Context, xhtmlPath, _ string) (string, error) {
	m.calls++
	m.source = xhtmlPath
	if m.err != nil {
		return "", m.err
	}
	return m.pdfPath, nil
}

type mockExtractor struct {
	records []domain.Record
	author  string
	err     error
	path    string
}

func (m *mockExtractor) Extract(pdfPath string) ([]domain.Record, string, error) {
	m.path = pdfPath
	if m.err != nil {
		return nil, "", m.err
	}
	return m.records, m.author, nil
}

type mockPublisher struct {
	key   string
	err   error
	calls int

	batch  domain.Batch
	author string
}

func (m *mockPublisher) Publish(_ context.Context, batch domain.Batch, author, _ string) (string, error) {
	m.calls++
	m.batch = batch
	m.author = author
	if m.err != nil {
		return "", m.err
	}
	return m.key, nil
}

func newService(g Gateway, c Converter, e Extractor, p Publisher) *Service {
	return New(g, c, e, p, "xhtml/", zap.NewNop())
}

func TestFetchAndConvert(t *testing.T) {
	gateway := &mockGateway{fetchPath: "/tmp/12345.xhtml"}
	converter := &mockConverter{pdfPath: "annotations/12345.pdf"}
	svc := newService(gateway, converter, &mockExtractor{}, &mockPublisher{})

	sess, err := svc.FetchAndConvert(context.Background(), "12345")
	if err != nil {
		t.Fatalf("FetchAndConvert: %v", err)
	}
	if gateway.fetchKey != "xhtml/12345.xhtml" {
		t.Errorf("fetch key = %q, want %q", gateway.fetchKey, "xhtml/12345.xhtml")
	}
	if converter.source != "/tmp/12345.xhtml" {
		t.Errorf("converter source = %q", converter.source)
	}
	if sess.Identifier != "12345" || sess.DocumentPath != "annotations/12345.pdf" {
		t.Errorf("session = %+v", sess)
	}
}

func TestFetchAndConvert_UsesRequestScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reqLogger := zap.New(core).With(zap.String("request_id", "req-1"))
	ctx := logger.ContextWithLogger(context.Background(), reqLogger)

	gateway := &mockGateway{fetchPath: "/tmp/12345.xhtml"}
	converter := &mockConverter{pdfPath: "annotations/12345.pdf"}
	svc := newService(gateway, converter, &mockExtractor{}, &mockPublisher{})

	if _, err := svc.FetchAndConvert(ctx, "12345"); err != nil {
		t.Fatalf("FetchAndConvert: %v", err)
	}

	entries := logs.FilterField(zap.String("request_id", "req-1")).All()
	if len(entries) == 0 {
		t.Error("pipeline log lines do not carry the request-scoped logger fields")
	}
}

func TestFetchAndConvert_FetchFailureSkipsConversion(t *testing.T) {
	gateway := &mockGateway{fetchErr: domain.ErrNotFound}
	converter := &mockConverter{}
	svc := newService(gateway, converter, &mockExtractor{}, &mockPublisher{})

	_, err := svc.FetchAndConvert(context.Background(), "12345")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, domain.ErrNotFound)
	}
	if converter.calls != 0 {
		t.Errorf("converter called %d times after failed fetch, want 0", converter.calls)
	}
}

func TestExtract_EmptyDocument(t *testing.T) {
	svc := newService(&mockGateway{}, &mockConverter{}, &mockExtractor{}, &mockPublisher{})
	sess := Session{Identifier: "12345", DocumentPath: "annotations/12345.pdf"}

	batch, author, err := svc.Extract(context.Background(), sess)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !batch.Empty() {
		t.Errorf("batch = %+v, want empty", batch)
	}
	if author != "" {
		t.Errorf("author = %q, want empty", author)
	}
}

func TestExtract_NoDocumentInSession(t *testing.T) {
	svc := newService(&mockGateway{}, &mockConverter{}, &mockExtractor{}, &mockPublisher{})

	_, _, err := svc.Extract(context.Background(), Session{Identifier: "12345"})
	if !errors.Is(err, domain.ErrNoDocument) {
		t.Errorf("error = %v, want %v", err, domain.ErrNoDocument)
	}
	if errors.Is(err, domain.ErrUnreadableDocument) {
		t.Errorf("missing document must not read as a parse failure: %v", err)
	}
}

func TestPublish_PassesBatchAndAuthor(t *testing.T) {
	records := []domain.Record{{Type: domain.TypeHighlight, Rect: [4]float64{1, 2, 3, 4}}}
	extractor := &mockExtractor{records: records, author: "Jane Doe"}
	publisher := &mockPublisher{key: "annotations/12345_Jane_Doe_2026-01-15_09-30-00.json"}
	svc := newService(&mockGateway{}, &mockConverter{}, extractor, publisher)

	key, batch, err := svc.Publish(context.Background(), Session{Identifier: "12345", DocumentPath: "x.pdf"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if key != publisher.key {
		t.Errorf("key = %q, want %q", key, publisher.key)
	}
	if publisher.author != "Jane Doe" {
		t.Errorf("author passed = %q", publisher.author)
	}
	if len(publisher.batch.Annotations) != 1 {
		t.Errorf("batch records = %d, want 1", len(publisher.batch.Annotations))
	}
	if len(batch.Annotations) != 1 {
		t.Errorf("returned batch records = %d, want 1", len(batch.Annotations))
	}
}

func TestPublish_ExtractionFailureSkipsPublisher(t *testing.T) {
	extractor := &mockExtractor{err: domain.ErrUnreadableDocument}
	publisher := &mockPublisher{}
	svc := newService(&mockGateway{}, &mockConverter{}, extractor, publisher)

	_, _, err := svc.Publish(context.Background(), Session{Identifier: "12345", DocumentPath: "x.pdf"})
	if !errors.Is(err, domain.ErrUnreadableDocument) {
		t.Fatalf("error = %v, want %v", err, domain.ErrUnreadableDocument)
	}
	if publisher.calls != 0 {
		t.Errorf("publisher called %d times after failed extraction, want 0", publisher.calls)
	}
}

func TestPublish_EmptyBatchError(t *testing.T) {
	publisher := &mockPublisher{err: domain.ErrEmptyBatch}
	svc := newService(&mockGateway{}, &mockConverter{}, &mockExtractor{}, publisher)

	_, _, err := svc.Publish(context.Background(), Session{Identifier: "12345", DocumentPath: "x.pdf"})
	if !errors.Is(err, domain.ErrEmptyBatch) {
		t.Errorf("error = %v, want %v", err, domain.ErrEmptyBatch)
	}
}

func TestAttachDocument(t *testing.T) {
	svc := newService(&mockGateway{}, &mockConverter{}, &mockExtractor{}, &mockPublisher{})
	sess := Session{Identifier: "12345", DocumentPath: "annotations/12345.pdf"}

	got := svc.AttachDocument(sess, "/tmp/12345-annotated.pdf")
	if got.DocumentPath != "/tmp/12345-annotated.pdf" {
		t.Errorf("document path = %q", got.DocumentPath)
	}
	if got.Identifier != "12345" {
		t.Errorf("identifier = %q", got.Identifier)
	}
}
