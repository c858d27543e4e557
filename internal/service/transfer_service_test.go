package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"stocklink/internal/config"
	"stocklink/internal/dto"
	"stocklink/internal/erp"
	"stocklink/internal/model"
	"stocklink/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── In-memory inventory stub ──────────────────────────────────────────────────

type stubProduct struct {
	id        int
	name      string
	qty       float64
	costPrice float64
	salePrice float64
}

type stubInventory struct {
	products map[string]*stubProduct // by barcode

	nextID     int
	failReduce map[int]error
	failAdd    map[int]error
	syncWrites []map[string]any
	created    []string
}

func newStubInventory() *stubInventory {
	return &stubInventory{
		products:   make(map[string]*stubProduct),
		nextID:     1000,
		failReduce: make(map[int]error),
		failAdd:    make(map[int]error),
	}
}

func (s *stubInventory) add(barcode, name string, id int, qty, cost, sale float64) {
	s.products[barcode] = &stubProduct{id: id, name: name, qty: qty, costPrice: cost, salePrice: sale}
}

func (s *stubInventory) byID(id int) *stubProduct {
	for _, p := range s.products {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (s *stubInventory) record(barcode string, p *stubProduct) erp.Record {
	return erp.Record{
		"id":             float64(p.id),
		"name":           p.name,
		"barcode":        barcode,
		"qty_available":  p.qty,
		"standard_price": p.costPrice,
		"list_price":     p.salePrice,
	}
}

func (s *stubInventory) SearchRead(_ context.Context, _ string, domain erp.Domain, _ []string, _ int) ([]erp.Record, error) {
	if len(domain) == 0 {
		return nil, errors.New("empty domain")
	}
	barcode, _ := domain[0][2].(string)
	p, ok := s.products[barcode]
	if !ok {
		return []erp.Record{}, nil
	}
	return []erp.Record{s.record(barcode, p)}, nil
}

func (s *stubInventory) Read(_ context.Context, _ string, ids []int, _ []string) ([]erp.Record, error) {
	var out []erp.Record
	for barcode, p := range s.products {
		for _, id := range ids {
			if p.id == id {
				out = append(out, s.record(barcode, p))
			}
		}
	}
	return out, nil
}

func (s *stubInventory) Write(_ context.Context, _ string, _ []int, values map[string]any) error {
	s.syncWrites = append(s.syncWrites, values)
	return nil
}

func (s *stubInventory) Create(_ context.Context, _ string, values map[string]any) (int, error) {
	s.nextID++
	barcode, _ := values["barcode"].(string)
	name, _ := values["name"].(string)
	cost, _ := values["standard_price"].(float64)
	sale, _ := values["list_price"].(float64)
	s.add(barcode, name, s.nextID, 0, cost, sale)
	s.created = append(s.created, barcode)
	return s.nextID, nil
}

func (s *stubInventory) ReduceStock(_ context.Context, productID int, quantity float64) error {
	if err := s.failReduce[productID]; err != nil {
		return err
	}
	p := s.byID(productID)
	if p == nil {
		return fmt.Errorf("no product %d", productID)
	}
	if p.qty-quantity < 0 {
		return fmt.Errorf("%w: product %d", erp.ErrNegativeStock, productID)
	}
	p.qty -= quantity
	return nil
}

func (s *stubInventory) AddStock(_ context.Context, productID int, quantity float64) error {
	if err := s.failAdd[productID]; err != nil {
		return err
	}
	p := s.byID(productID)
	if p == nil {
		return fmt.Errorf("no product %d", productID)
	}
	p.qty += quantity
	return nil
}

func (s *stubInventory) ProductCreateValues(_ context.Context, barcode string, source erp.Record) map[string]any {
	return map[string]any{
		"name":           source.Str("name"),
		"barcode":        barcode,
		"standard_price": source.Float("standard_price"),
		"list_price":     source.Float("list_price"),
	}
}

func (s *stubInventory) totalStock() float64 {
	total := 0.0
	for _, p := range s.products {
		total += p.qty
	}
	return total
}

// ── Connection / repository stubs ─────────────────────────────────────────────

type stubConnections struct {
	principal    erp.Inventory
	branch       erp.Inventory
	principalErr error
	branchErr    error
	loc          *config.Location
}

func (s *stubConnections) Principal() (erp.Inventory, error) {
	return s.principal, s.principalErr
}

func (s *stubConnections) Branch() (erp.Inventory, error) {
	return s.branch, s.branchErr
}

func (s *stubConnections) BranchLocation() *config.Location { return s.loc }

type stubTransferRepo struct {
	transfers map[uuid.UUID]*model.Transfer
	createErr error
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{transfers: make(map[uuid.UUID]*model.Transfer)}
}

func (r *stubTransferRepo) Create(_ context.Context, t *model.Transfer) error {
	if r.createErr != nil {
		return r.createErr
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	t, ok := r.transfers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return t, nil
}

func (r *stubTransferRepo) ListByStatus(_ context.Context, statuses ...model.TransferStatus) ([]model.Transfer, error) {
	var out []model.Transfer
	for _, t := range r.transfers {
		for _, s := range statuses {
			if t.Status == s {
				out = append(out, *t)
			}
		}
	}
	return out, nil
}

func (r *stubTransferRepo) ListByUsername(_ context.Context, username string) ([]model.Transfer, error) {
	var out []model.Transfer
	for _, t := range r.transfers {
		if t.Username == username {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *stubTransferRepo) ReplaceItems(_ context.Context, id uuid.UUID, items []model.TransferItem, verifiedBy string) error {
	t, ok := r.transfers[id]
	if !ok || t.Status != model.StatusPendingVerification {
		return repository.ErrStatusConflict
	}
	t.Items = items
	t.Status = model.StatusPending
	t.VerifiedBy = &verifiedBy
	return nil
}

func (r *stubTransferRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.TransferStatus, actor string) error {
	t, ok := r.transfers[id]
	if !ok || t.Status != from {
		return repository.ErrStatusConflict
	}
	t.Status = to
	if to == model.StatusConfirmed {
		t.ConfirmedBy = &actor
	}
	return nil
}

type stubHistoryRepo struct {
	records []*model.TransferHistory
}

func (r *stubHistoryRepo) Create(_ context.Context, h *model.TransferHistory) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	r.records = append(r.records, h)
	return nil
}

func (r *stubHistoryRepo) List(_ context.Context) ([]model.TransferHistory, error) {
	out := make([]model.TransferHistory, 0, len(r.records))
	for _, h := range r.records {
		out = append(out, *h)
	}
	return out, nil
}

func (r *stubHistoryRepo) ListByUser(_ context.Context, username string) ([]model.TransferHistory, error) {
	var out []model.TransferHistory
	for _, h := range r.records {
		if h.ExecutedBy == username {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (r *stubHistoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.TransferHistory, error) {
	for _, h := range r.records {
		if h.ID == id {
			return h, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubHistoryRepo) SearchItems(_ context.Context, _ string, _ repository.ProductSearchType) ([]model.TransferHistoryItem, map[uuid.UUID]model.TransferHistory, error) {
	return nil, nil, nil
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	svc       TransferService
	transfers *stubTransferRepo
	history   *stubHistoryRepo
	principal *stubInventory
	branch    *stubInventory
	conns     *stubConnections
	cfg       *config.Config
}

func newFixture() *fixture {
	principal := newStubInventory()
	branch := newStubInventory()
	transfers := newStubTransferRepo()
	history := &stubHistoryRepo{}
	cfg := &config.Config{
		MaxTransferFraction:  0.5,
		WarnTransferFraction: 0.3,
		ERPBranchURL:         "http://branch.local",
		ERPBranchDB:          "branch_db",
		ERPBranchName:        "Branch One",
	}
	conns := &stubConnections{
		principal: principal,
		branch:    branch,
		loc:       &config.Location{ID: "branch", Name: "Branch One"},
	}
	return &fixture{
		svc:       NewTransferService(transfers, history, conns, nil, cfg),
		transfers: transfers,
		history:   history,
		principal: principal,
		branch:    branch,
		conns:     conns,
		cfg:       cfg,
	}
}

func admin() Identity {
	id := uuid.New()
	return Identity{UserID: &id, Username: "boss", Role: model.RoleAdmin}
}

func cashier() Identity {
	id := uuid.New()
	return Identity{UserID: &id, Username: "till1", Role: model.RoleCashier}
}

func lines(pairs ...dto.TransferItemInput) dto.PrepareTransferRequest {
	return dto.PrepareTransferRequest{Products: pairs}
}

// ── Prepare ───────────────────────────────────────────────────────────────────

func TestPrepareByCashierNeedsVerification(t *testing.T) {
	f := newFixture()
	f.principal.add("1234567890", "Soap", 1, 10, 2.5, 4.0)

	resp, err := f.svc.Prepare(context.Background(), cashier(),
		lines(dto.TransferItemInput{Barcode: "1234567890", Quantity: 5}))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.False(t, resp.InventoryReduced)
	assert.Equal(t, 1, resp.ProcessedCount)
	assert.NotEmpty(t, resp.XMLContent)

	// Nothing moved
	assert.Equal(t, 10.0, f.principal.products["1234567890"].qty)

	require.Len(t, f.transfers.transfers, 1)
	for _, tr := range f.transfers.transfers {
		assert.Equal(t, model.StatusPendingVerification, tr.Status)
		assert.Equal(t, model.RoleCashier, tr.CreatedByRole)
		assert.Equal(t, "till1", tr.Username)
		require.Len(t, tr.Items, 1)
		assert.Equal(t, 5, tr.Items[0].Quantity)
		assert.Equal(t, 10, tr.Items[0].AvailableStock)
	}
}

func TestPrepareByAdminSkipsVerification(t *testing.T) {
	f := newFixture()
	f.principal.add("1234567890", "Soap", 1, 10, 2.5, 4.0)

	_, err := f.svc.Prepare(context.Background(), admin(),
		lines(dto.TransferItemInput{Barcode: "1234567890", Quantity: 4}))
	require.NoError(t, err)

	for _, tr := range f.transfers.transfers {
		assert.Equal(t, model.StatusPending, tr.Status)
	}
}

func TestPrepareReportsFailedLinesWithoutAborting(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)
	f.principal.add("3333333333", "Brush", 3, 8, 1.0, 2.0)

	resp, err := f.svc.Prepare(context.Background(), admin(), lines(
		dto.TransferItemInput{Barcode: "1111111111", Quantity: 5},
		dto.TransferItemInput{Barcode: "2222222222", Quantity: 1}, // unknown
		dto.TransferItemInput{Barcode: "3333333333", Quantity: 5}, // above 50% of 8
	))
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.ProcessedCount)
	require.Len(t, resp.Products, 3)
	assert.True(t, resp.Products[0].Success)
	assert.False(t, resp.Products[1].Success)
	assert.Contains(t, *resp.Products[1].ErrorMessage, "not found")
	assert.False(t, resp.Products[2].Success)
	assert.Contains(t, *resp.Products[2].ErrorMessage, "limit")

	// Only the valid line was persisted
	for _, tr := range f.transfers.transfers {
		require.Len(t, tr.Items, 1)
		assert.Equal(t, "1111111111", tr.Items[0].Barcode)
	}
}

func TestPrepareAllLinesRejected(t *testing.T) {
	f := newFixture()

	resp, err := f.svc.Prepare(context.Background(), admin(),
		lines(dto.TransferItemInput{Barcode: "9999999999", Quantity: 1}))
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Empty(t, f.transfers.transfers)
}

func TestPrepareWithoutPrincipalConnection(t *testing.T) {
	f := newFixture()
	f.conns.principalErr = fmt.Errorf("%w: principal", erp.ErrNotConnected)

	_, err := f.svc.Prepare(context.Background(), admin(),
		lines(dto.TransferItemInput{Barcode: "1234567890", Quantity: 1}))
	assert.ErrorIs(t, err, erp.ErrNotConnected)
}

// ── Validate ──────────────────────────────────────────────────────────────────

func TestValidateDryRun(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)
	f.principal.add("3333333333", "Brush", 3, 8, 1.0, 2.0)

	resp, err := f.svc.Validate(context.Background(), lines(
		dto.TransferItemInput{Barcode: "1111111111", Quantity: 4}, // valid but 40% — warn
		dto.TransferItemInput{Barcode: "2222222222", Quantity: 1},
		dto.TransferItemInput{Barcode: "3333333333", Quantity: 20},
	))
	require.NoError(t, err)

	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, dto.ValidationNotFound, resp.Errors[0].ErrorType)
	assert.Equal(t, dto.ValidationInsufficientStock, resp.Errors[1].ErrorType)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "Soap")

	// Dry run persists nothing
	assert.Empty(t, f.transfers.transfers)
	assert.Empty(t, f.history.records)
}

// ── Verify ────────────────────────────────────────────────────────────────────

func TestVerifyReplacesLinesAndMovesToPending(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)

	prep, err := f.svc.Prepare(context.Background(), cashier(),
		lines(dto.TransferItemInput{Barcode: "1111111111", Quantity: 5}))
	require.NoError(t, err)
	require.True(t, prep.Success)

	var id uuid.UUID
	for tid := range f.transfers.transfers {
		id = tid
	}

	wh := Identity{Username: "stockroom", Role: model.RoleWarehouse}
	resp, err := f.svc.Verify(context.Background(), wh, dto.VerifyTransferRequest{
		TransferID: id.String(),
		Products:   []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusPending), resp.Status)
	tr := f.transfers.transfers[id]
	assert.Equal(t, model.StatusPending, tr.Status)
	require.NotNil(t, tr.VerifiedBy)
	assert.Equal(t, "stockroom", *tr.VerifiedBy)
	require.Len(t, tr.Items, 1)
	assert.Equal(t, 3, tr.Items[0].Quantity)
}

func TestVerifyRejectsWrongState(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)

	id := uuid.New()
	f.transfers.transfers[id] = &model.Transfer{ID: id, Status: model.StatusPending}

	_, err := f.svc.Verify(context.Background(), admin(), dto.VerifyTransferRequest{
		TransferID: id.String(),
		Products:   []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

// ── Confirm ───────────────────────────────────────────────────────────────────

func pendingTransfer(f *fixture, items ...model.TransferItem) uuid.UUID {
	id := uuid.New()
	f.transfers.transfers[id] = &model.Transfer{
		ID:              id,
		Username:        "boss",
		Status:          model.StatusPending,
		DestinationID:   "branch",
		DestinationName: "Branch One",
		Items:           items,
	}
	return id
}

func TestConfirmConservesTotalStock(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)
	f.principal.add("2222222222", "Towel", 2, 20, 3.0, 5.0)
	f.branch.add("1111111111", "Soap", 51, 2, 2.5, 4.0)
	f.branch.add("2222222222", "Towel", 52, 0, 3.0, 5.0)

	totalBefore := f.principal.totalStock() + f.branch.totalStock()
	id := pendingTransfer(f)

	resp, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{
			{Barcode: "1111111111", Quantity: 5},
			{Barcode: "2222222222", Quantity: 10},
		},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.True(t, resp.InventoryReduced)
	assert.Equal(t, 2, resp.ProcessedCount)
	assert.NotEmpty(t, resp.PDFContent)
	assert.NotEmpty(t, resp.XMLContent)

	assert.Equal(t, 5.0, f.principal.products["1111111111"].qty)
	assert.Equal(t, 7.0, f.branch.products["1111111111"].qty)
	assert.Equal(t, 10.0, f.principal.products["2222222222"].qty)
	assert.Equal(t, 10.0, f.branch.products["2222222222"].qty)
	assert.Equal(t, totalBefore, f.principal.totalStock()+f.branch.totalStock())

	assert.Equal(t, model.StatusConfirmed, f.transfers.transfers[id].Status)

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, 2, rec.TotalItems)
	assert.Equal(t, 2, rec.SuccessfulItems)
	assert.False(t, rec.HasErrors)
	require.NotNil(t, rec.TransferID)
	assert.Equal(t, id, *rec.TransferID)
}

func TestConfirmPartialFailureIsRecordedNotFatal(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)
	f.principal.add("2222222222", "Towel", 2, 20, 3.0, 5.0)
	f.principal.add("3333333333", "Brush", 3, 6, 1.0, 2.0)
	f.branch.add("1111111111", "Soap", 51, 0, 2.5, 4.0)
	f.branch.add("2222222222", "Towel", 52, 0, 3.0, 5.0)
	f.branch.add("3333333333", "Brush", 53, 0, 1.0, 2.0)
	f.branch.failAdd[52] = errors.New("quant write refused")

	id := pendingTransfer(f)
	resp, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{
			{Barcode: "1111111111", Quantity: 2},
			{Barcode: "2222222222", Quantity: 4},
			{Barcode: "3333333333", Quantity: 1},
		},
	})
	require.NoError(t, err)

	// The batch as a whole succeeds with one failed line
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.ProcessedCount)
	require.Len(t, resp.Products, 3)
	assert.False(t, resp.Products[1].Success)
	assert.Contains(t, *resp.Products[1].ErrorMessage, "after principal reduction")

	// Lines after the failed one were still processed
	assert.Equal(t, 1.0, f.branch.products["3333333333"].qty)

	// History is a complete accounting: 3 items, exactly 1 failed
	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, 3, rec.TotalItems)
	assert.Equal(t, 2, rec.SuccessfulItems)
	assert.Equal(t, 1, rec.FailedItems)
	assert.True(t, rec.HasErrors)
	assert.Contains(t, rec.ErrorSummary, "2222222222")
	require.Len(t, rec.Items, 3)

	failed := rec.Items[1]
	assert.False(t, failed.Success)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, 0, failed.QuantityTransferred)
	// The drift is visible: origin reduced, destination untouched
	require.NotNil(t, failed.StockOriginBefore)
	require.NotNil(t, failed.StockOriginAfter)
	assert.Equal(t, 20, *failed.StockOriginBefore)
	assert.Equal(t, 16, *failed.StockOriginAfter)
	assert.Nil(t, failed.StockDestinationAfter)

	for _, item := range rec.Items {
		if item.Success {
			assert.Nil(t, item.ErrorMessage)
		}
	}
}

func TestConfirmCreatesMissingBranchProduct(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)

	id := pendingTransfer(f)
	resp, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	assert.Equal(t, []string{"1111111111"}, f.branch.created)
	assert.Equal(t, 3.0, f.branch.products["1111111111"].qty)

	rec := f.history.records[0]
	require.Len(t, rec.Items, 1)
	assert.True(t, rec.Items[0].IsNewProduct)

	var newProducts []model.ProductSnapshot
	require.NoError(t, json.Unmarshal([]byte(rec.NewProducts), &newProducts))
	require.Len(t, newProducts, 1)
	assert.Equal(t, "1111111111", newProducts[0].Barcode)
}

func TestConfirmNegativeStockAbortsBatch(t *testing.T) {
	f := newFixture()
	f.principal.add("1111111111", "Soap", 1, 10, 2.5, 4.0)
	f.principal.add("2222222222", "Towel", 2, 20, 3.0, 5.0)
	f.branch.add("2222222222", "Towel", 52, 0, 3.0, 5.0)
	f.principal.failReduce[1] = fmt.Errorf("%w: concurrent sale", erp.ErrNegativeStock)

	id := pendingTransfer(f)
	_, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{
			{Barcode: "1111111111", Quantity: 5},
			{Barcode: "2222222222", Quantity: 5},
		},
	})
	require.ErrorIs(t, err, erp.ErrNegativeStock)

	// Nothing after the abort: no history, no branch mutation, header untouched
	assert.Empty(t, f.history.records)
	assert.Equal(t, 0.0, f.branch.products["2222222222"].qty)
	assert.Equal(t, model.StatusPending, f.transfers.transfers[id].Status)
}

func TestConfirmRequiresBothConnections(t *testing.T) {
	f := newFixture()
	f.conns.branchErr = fmt.Errorf("%w: branch", erp.ErrSessionExpired)

	id := pendingTransfer(f)
	_, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 1}},
	})
	assert.ErrorIs(t, err, erp.ErrSessionExpired)
}

func TestConfirmRejectsUnverifiedTransfer(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.transfers.transfers[id] = &model.Transfer{ID: id, Status: model.StatusPendingVerification}

	_, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirmInsufficientLiveStockFailsLineOnly(t *testing.T) {
	f := newFixture()
	// Validated at 10 during prepare, but drifted down to 2 since
	f.principal.add("1111111111", "Soap", 1, 2, 2.5, 4.0)
	f.branch.add("1111111111", "Soap", 51, 0, 2.5, 4.0)

	id := pendingTransfer(f)
	resp, err := f.svc.Confirm(context.Background(), admin(), &id, dto.ConfirmTransferRequest{
		Products: []dto.TransferItemInput{{Barcode: "1111111111", Quantity: 5}},
	})
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, 0, resp.ProcessedCount)
	assert.Equal(t, 2.0, f.principal.products["1111111111"].qty)

	// Even an all-failed attempt leaves a history record
	require.Len(t, f.history.records, 1)
	assert.Equal(t, 1, f.history.records[0].FailedItems)
}

// ── Cancel ────────────────────────────────────────────────────────────────────

func TestCancelPendingTransfer(t *testing.T) {
	f := newFixture()
	id := pendingTransfer(f)

	require.NoError(t, f.svc.Cancel(context.Background(), admin(), id))
	assert.Equal(t, model.StatusCancelled, f.transfers.transfers[id].Status)
	// The row stays, it is never deleted
	assert.Len(t, f.transfers.transfers, 1)
}

func TestCancelTerminalTransferRejected(t *testing.T) {
	f := newFixture()
	id := uuid.New()
	f.transfers.transfers[id] = &model.Transfer{ID: id, Status: model.StatusConfirmed}

	err := f.svc.Cancel(context.Background(), admin(), id)
	assert.ErrorIs(t, err, ErrInvalidState)
}

// ── Pending list ──────────────────────────────────────────────────────────────

func TestPendingListIsRoleFiltered(t *testing.T) {
	f := newFixture()
	f.transfers.transfers[uuid.New()] = &model.Transfer{
		ID: uuid.New(), Username: "till1", Status: model.StatusPendingVerification}
	id2 := uuid.New()
	f.transfers.transfers[id2] = &model.Transfer{
		ID: id2, Username: "boss", Status: model.StatusPending}

	// Admin sees approvable transfers
	resp, err := f.svc.Pending(context.Background(), admin())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, string(model.StatusPending), resp.Transfers[0].Status)

	// Warehouse sees transfers awaiting verification
	resp, err = f.svc.Pending(context.Background(), Identity{Username: "stockroom", Role: model.RoleWarehouse})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, string(model.StatusPendingVerification), resp.Transfers[0].Status)

	// Cashier sees only their own
	resp, err = f.svc.Pending(context.Background(), cashier())
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Total)

	resp, err = f.svc.Pending(context.Background(), Identity{Username: "till1", Role: model.RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
}
