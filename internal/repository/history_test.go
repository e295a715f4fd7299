package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorHistory_Snapshot(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hist := NewVendorHistory(db, nil)
	vendorID := uuid.New()
	exclude := uuid.New()
	prior := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM invoices").
		WithArgs(vendorID.String(), "parsed", exclude.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_number"}).
			AddRow(prior.String(), "INV-99"))

	// newest row first: its price must win over the older one
	mock.ExpectQuery("SELECT (.+) FROM invoice_items").
		WithArgs(vendorID.String(), "parsed", exclude.String()).
		WillReturnRows(sqlmock.NewRows([]string{"sku", "description", "unit_price_cents"}).
			AddRow("WID-1", "Widget", 1100).
			AddRow("WID-1", "Widget", 1000).
			AddRow("", "Premium  Coffee Beans", 1500))

	snap, err := hist.Snapshot(context.Background(), vendorID, exclude)

	require.NoError(t, err)
	require.Len(t, snap.Invoices, 1)
	assert.Equal(t, prior, snap.Invoices[0].ID)
	assert.Equal(t, "INV-99", snap.Invoices[0].InvoiceNumber)
	assert.Equal(t, int64(1100), snap.UnitPrices["WID-1"])
	assert.Equal(t, int64(1500), snap.UnitPrices["premium coffee beans"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVendorHistory_SnapshotEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	hist := NewVendorHistory(db, nil)
	vendorID := uuid.New()
	exclude := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM invoices").
		WillReturnRows(sqlmock.NewRows([]string{"id", "invoice_number"}))
	mock.ExpectQuery("SELECT (.+) FROM invoice_items").
		WillReturnRows(sqlmock.NewRows([]string{"sku", "description", "unit_price_cents"}))

	snap, err := hist.Snapshot(context.Background(), vendorID, exclude)

	require.NoError(t, err)
	assert.Empty(t, snap.Invoices)
	assert.Empty(t, snap.UnitPrices)
	assert.NoError(t, mock.ExpectationsWereMet())
}
