package domain

import "errors"

var (
	// ErrNotFound signals a missing object in the store.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied signals a permission failure at the store boundary.
	ErrAccessDenied = errors.New("access denied")
	// ErrTransport signals a network or service failure at the store boundary.
	ErrTransport = errors.New("transport failure")
	// ErrConversion signals a failure of the markup-to-PDF renderer.
	ErrConversion = errors.New("conversion failed")
	// ErrUnreadableDocument signals a document that cannot be parsed.
	ErrUnreadableDocument = errors.New("unreadable document")
	// ErrEmptyBatch signals a publish attempt with zero extracted records.
	ErrEmptyBatch = errors.New("empty annotation batch")
	// ErrNoDocument signals a pipeline action invoked before a document was
	// fetched or uploaded into the session.
	ErrNoDocument = errors.New("no document in session")
)
