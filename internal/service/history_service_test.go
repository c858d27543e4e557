package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"stocklink/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyFixture() (HistoryService, *stubHistoryRepo, *stubTransferRepo) {
	history := &stubHistoryRepo{}
	transfers := newStubTransferRepo()
	return NewHistoryService(history, transfers, nil), history, transfers
}

func TestFeedMergesHeadersAndHistory(t *testing.T) {
	svc, history, transfers := historyFixture()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// A confirmed movement with its history record
	confirmedID := uuid.New()
	transfers.transfers[confirmedID] = &model.Transfer{
		ID: confirmedID, Username: "boss", Status: model.StatusConfirmed,
		UpdatedAt: base.Add(2 * time.Hour),
	}
	history.records = append(history.records, &model.TransferHistory{
		ID: uuid.New(), TransferID: &confirmedID, ExecutedBy: "boss",
		ExecutedAt: base.Add(2 * time.Hour), TotalItems: 2, SuccessfulItems: 2,
	})

	// An in-flight transfer and a cancelled one
	pendingID := uuid.New()
	transfers.transfers[pendingID] = &model.Transfer{
		ID: pendingID, Username: "till1", Status: model.StatusPendingVerification,
		UpdatedAt: base.Add(3 * time.Hour),
		Items:     []model.TransferItem{{Quantity: 4}},
	}
	cancelledID := uuid.New()
	transfers.transfers[cancelledID] = &model.Transfer{
		ID: cancelledID, Username: "boss", Status: model.StatusCancelled,
		UpdatedAt: base.Add(1 * time.Hour),
	}

	resp, err := svc.Feed(context.Background())
	require.NoError(t, err)

	// Three entries: the confirmed movement appears exactly once
	require.Equal(t, 3, resp.Total)

	statuses := make(map[string]int)
	for _, e := range resp.Entries {
		statuses[e.Status]++
	}
	assert.Equal(t, 1, statuses[string(model.StatusConfirmed)])
	assert.Equal(t, 1, statuses[string(model.StatusPendingVerification)])
	assert.Equal(t, 1, statuses[string(model.StatusCancelled)])

	// Newest first
	assert.Equal(t, string(model.StatusPendingVerification), resp.Entries[0].Status)
	assert.Equal(t, string(model.StatusCancelled), resp.Entries[2].Status)
}

func TestFeedKeepsConfirmedHeaderWithoutHistory(t *testing.T) {
	svc, _, transfers := historyFixture()

	// The history write failed at confirm time: the header is the only
	// surviving evidence of the movement.
	id := uuid.New()
	transfers.transfers[id] = &model.Transfer{
		ID: id, Username: "boss", Status: model.StatusConfirmed, UpdatedAt: time.Now(),
	}

	resp, err := svc.Feed(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "pending", resp.Entries[0].Source)
	assert.Equal(t, string(model.StatusConfirmed), resp.Entries[0].Status)
}

func TestDetailExpandsSnapshots(t *testing.T) {
	svc, history, _ := historyFixture()

	id := uuid.New()
	history.records = append(history.records, &model.TransferHistory{
		ID:           id,
		ExecutedBy:   "boss",
		OriginBefore: `[{"product_id":1,"barcode":"1111111111","name":"Soap","quantity":10}]`,
		OriginAfter:  `[{"product_id":1,"barcode":"1111111111","name":"Soap","quantity":5}]`,
		NewProducts:  `[]`,
		Items: []model.TransferHistoryItem{
			{Barcode: "1111111111", Success: true, QuantityTransferred: 5},
		},
	})

	resp, err := svc.Detail(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, resp.OriginBefore, 1)
	assert.Equal(t, 10.0, resp.OriginBefore[0].Quantity)
	require.Len(t, resp.OriginAfter, 1)
	assert.Equal(t, 5.0, resp.OriginAfter[0].Quantity)
	assert.Empty(t, resp.NewProducts)
	require.Len(t, resp.Items, 1)
}

func TestPDFRoundTrip(t *testing.T) {
	svc, history, _ := historyFixture()

	id := uuid.New()
	history.records = append(history.records, &model.TransferHistory{
		ID:          id,
		PDFContent:  base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 fake")),
		PDFFilename: "transfer_report_20260801_120000.pdf",
	})

	pdf, filename, err := svc.PDF(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fake"), pdf)
	assert.Equal(t, "transfer_report_20260801_120000.pdf", filename)

	// A record with no stored report errors out
	bare := uuid.New()
	history.records = append(history.records, &model.TransferHistory{ID: bare})
	_, _, err = svc.PDF(context.Background(), bare)
	assert.Error(t, err)
}

func TestExportWorkbook(t *testing.T) {
	svc, history, _ := historyFixture()
	history.records = append(history.records, &model.TransferHistory{
		ID: uuid.New(), ExecutedBy: "boss", ExecutedAt: time.Now(),
		TotalItems: 1, SuccessfulItems: 1,
	})

	book, filename, err := svc.ExportWorkbook(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, book)
	assert.Contains(t, filename, ".xlsx")
}
