package entity

import (
	"time"

	"github.com/google/uuid"

	"invoicescan/constants"
)

// Alert is a validation finding against a persisted invoice.
// Created only by the validation engine; resolved outside the core.
type Alert struct {
	ID        uuid.UUID               `json:"id"`
	InvoiceID uuid.UUID               `json:"invoice_id"`
	Type      constants.AlertType     `json:"type"`
	Message   string                  `json:"message"`
	Severity  constants.AlertSeverity `json:"severity"`
	Status    constants.AlertStatus   `json:"status"`
	CreatedAt time.Time               `json:"created_at"`
}
