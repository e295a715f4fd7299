package entity

import "github.com/google/uuid"

// Document is the raw uploaded payload plus its declared media type.
// It is immutable once accepted and owned by the pipeline for the
// lifetime of a single parsing attempt. The ID doubles as the invoice
// identity the attempt will produce or fail.
type Document struct {
	ID        uuid.UUID
	MediaType string
	Bytes     []byte
}
