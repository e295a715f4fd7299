package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicescan/constants"
	"invoicescan/internal/entity"
)

func TestAlertStore_SaveAllReplacesActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewAlertStore(db, nil)
	invoiceID := uuid.New()
	alerts := []entity.Alert{
		{
			ID:        uuid.New(),
			InvoiceID: invoiceID,
			Type:      constants.AlertDuplicateInvoice,
			Message:   "invoice number \"INV-1\" already recorded",
			Severity:  constants.SeverityHigh,
			Status:    constants.AlertActive,
			CreatedAt: time.Now().UTC(),
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM alerts").
		WithArgs(invoiceID.String(), "active").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO alerts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.SaveAll(context.Background(), invoiceID, alerts)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertStore_ListByInvoice(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewAlertStore(db, nil)
	invoiceID := uuid.New()
	alertID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM alerts").
		WithArgs(invoiceID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_id", "type", "message", "severity", "status", "created_at"}).
			AddRow(alertID.String(), invoiceID.String(), "price_deviation", "unit price moved", "medium", "active", time.Now().UTC()))

	got, err := store.ListByInvoice(context.Background(), invoiceID)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alertID, got[0].ID)
	assert.Equal(t, constants.AlertPriceDeviation, got[0].Type)
	assert.Equal(t, constants.SeverityMedium, got[0].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}
