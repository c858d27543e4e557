package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"stocklink/internal/config"
	"stocklink/internal/dto"
	"stocklink/internal/erp"
	"stocklink/internal/infra"
	"stocklink/internal/model"
	"stocklink/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidState means the transfer exists but its status does not allow
	// the requested operation.
	ErrInvalidState = errors.New("transfer state does not allow this operation")

	// ErrUnknownDestination means the requested destination id matches no
	// configured branch endpoint.
	ErrUnknownDestination = errors.New("unknown destination")
)

// Identity is the authenticated caller as seen by the service layer. UserID is
// nil for callers authenticated directly against the remote ERP.
type Identity struct {
	UserID   *uuid.UUID
	Username string
	Role     string
}

// Connections is the slice of erp.Registry the orchestrator consumes.
type Connections interface {
	Principal() (erp.Inventory, error)
	Branch() (erp.Inventory, error)
	BranchLocation() *config.Location
}

// ReportDispatcher queues the post-confirmation report email. Nil-able: when
// no dispatcher is wired the confirmation simply skips the email.
type ReportDispatcher interface {
	EnqueueConfirmationReport(ctx context.Context, historyID uuid.UUID) error
}

type TransferService interface {
	// Prepare validates every line against live principal stock and persists a
	// pending transfer. No stock moves.
	Prepare(ctx context.Context, caller Identity, req dto.PrepareTransferRequest) (*dto.TransferResponse, error)
	// Validate is the dry run: same checks as Prepare, nothing persisted.
	Validate(ctx context.Context, req dto.PrepareTransferRequest) (*dto.TransferValidationResponse, error)
	// Pending lists open transfers filtered by the caller's role.
	Pending(ctx context.Context, caller Identity) (*dto.PendingTransferListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.PendingTransferResponse, error)
	// Verify replaces a pending_verification transfer's lines with the
	// reviewed set and moves it to pending.
	Verify(ctx context.Context, caller Identity, req dto.VerifyTransferRequest) (*dto.PendingTransferResponse, error)
	// Confirm executes the cross-system movement and records history.
	// transferID is nil for direct (headerless) confirmations.
	Confirm(ctx context.Context, caller Identity, transferID *uuid.UUID, req dto.ConfirmTransferRequest) (*dto.TransferResponse, error)
	Cancel(ctx context.Context, caller Identity, id uuid.UUID) error
}

type transferService struct {
	transfers  repository.TransferRepository
	history    repository.HistoryRepository
	conns      Connections
	dispatcher ReportDispatcher
	cfg        *config.Config
}

func NewTransferService(
	transfers repository.TransferRepository,
	history repository.HistoryRepository,
	conns Connections,
	dispatcher ReportDispatcher,
	cfg *config.Config,
) TransferService {
	return &transferService{
		transfers:  transfers,
		history:    history,
		conns:      conns,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}

// productFields is the standard read set for product lookups.
var productFields = []string{"id", "name", "barcode", "qty_available", "standard_price", "list_price", "tracking"}

func (s *transferService) lookupProduct(ctx context.Context, inv erp.Inventory, barcode string) (erp.Record, error) {
	recs, err := inv.SearchRead(ctx, erp.ModelProduct, erp.Eq("barcode", barcode), productFields, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// resolveDestination picks the branch a transfer targets: an explicit id wins,
// then the currently connected branch, then the first configured one.
func (s *transferService) resolveDestination(id string) (config.Location, error) {
	if id != "" {
		loc := s.cfg.BranchByID(id)
		if loc == nil {
			return config.Location{}, fmt.Errorf("%w: %s", ErrUnknownDestination, id)
		}
		return *loc, nil
	}
	if loc := s.conns.BranchLocation(); loc != nil {
		return *loc, nil
	}
	branches := s.cfg.Branches()
	if len(branches) == 0 {
		return config.Location{}, fmt.Errorf("%w: no branch configured", ErrUnknownDestination)
	}
	return branches[0], nil
}

// ── Prepare ──────────────────────────────────────────────────────────────────

func (s *transferService) Prepare(ctx context.Context, caller Identity, req dto.PrepareTransferRequest) (*dto.TransferResponse, error) {
	principal, err := s.conns.Principal()
	if err != nil {
		return nil, err
	}

	dest, err := s.resolveDestination(req.DestinationID)
	if err != nil {
		return nil, err
	}

	var (
		items      []model.TransferItem
		details    []dto.TransferProductDetail
		xmlLines   []infra.XMLProduct
		lineErrors []string
	)

	for _, in := range req.Products {
		rec, err := s.lookupProduct(ctx, principal, in.Barcode)
		if err != nil {
			if connectionDead(err) {
				return nil, err
			}
			details = append(details, failedDetail(in, "", err.Error()))
			lineErrors = append(lineErrors, fmt.Sprintf("%s: %v", in.Barcode, err))
			continue
		}
		if rec == nil {
			msg := fmt.Sprintf("product not found in principal: %s", in.Barcode)
			details = append(details, failedDetail(in, "", msg))
			lineErrors = append(lineErrors, msg)
			continue
		}

		name := rec.Str("name")
		available := rec.Float("qty_available")
		check, maxAllowed := ValidateQuantity(in.Quantity, available, s.cfg.MaxTransferFraction)
		switch check {
		case StockInsufficient:
			msg := fmt.Sprintf("insufficient stock for %s: requested %d, available %.0f", name, in.Quantity, available)
			details = append(details, failedDetail(in, name, msg))
			lineErrors = append(lineErrors, msg)
			continue
		case StockExceedsLimit:
			msg := fmt.Sprintf("quantity for %s exceeds the %d%% transfer limit: requested %d, max allowed %d",
				name, int(s.cfg.MaxTransferFraction*100), in.Quantity, maxAllowed)
			details = append(details, failedDetail(in, name, msg))
			lineErrors = append(lineErrors, msg)
			continue
		}

		items = append(items, model.TransferItem{
			Barcode:        in.Barcode,
			ProductID:      rec.Int("id"),
			ProductName:    name,
			Quantity:       in.Quantity,
			AvailableStock: int(available),
			UnitPrice:      decimal.NewFromFloat(rec.Float("standard_price")),
		})
		details = append(details, dto.TransferProductDetail{
			Barcode:           in.Barcode,
			Name:              name,
			QuantityRequested: in.Quantity,
			StockBefore:       available,
			StockAfter:        available,
			Success:           true,
		})
		xmlLines = append(xmlLines, infra.XMLProduct{
			Name:          name,
			Barcode:       in.Barcode,
			Quantity:      in.Quantity,
			StandardPrice: rec.Float("standard_price"),
			ListPrice:     rec.Float("list_price"),
		})
	}

	if len(items) == 0 {
		return &dto.TransferResponse{
			Success:  false,
			Message:  "no products could be processed for transfer: " + strings.Join(lineErrors, "; "),
			Products: details,
		}, nil
	}

	xmlContent, err := infra.GenerateTransferXML(xmlLines)
	if err != nil {
		log.Error().Err(err).Msg("transfer xml generation failed")
		xmlContent = ""
	}

	status := model.StatusPending
	if caller.Role == model.RoleCashier {
		status = model.StatusPendingVerification
	}

	transfer := &model.Transfer{
		UserID:          caller.UserID,
		Username:        caller.Username,
		CreatedByRole:   caller.Role,
		Status:          status,
		DestinationID:   dest.ID,
		DestinationName: dest.Name,
		Items:           items,
	}

	msg := fmt.Sprintf("transfer prepared: %d products validated", len(items))
	if len(lineErrors) > 0 {
		msg += fmt.Sprintf(", %d rejected (%s)", len(lineErrors), strings.Join(lineErrors, "; "))
	}
	msg += ". INVENTORY NOT REDUCED - confirmation required"

	if err := s.transfers.Create(ctx, transfer); err != nil {
		// The validation work is still useful to the caller: report it with a
		// warning instead of discarding it.
		log.Error().Err(err).Msg("pending transfer persistence failed")
		msg += " (warning: transfer could not be saved and must be re-submitted)"
	} else {
		msg += fmt.Sprintf(". Transfer ID: %s", transfer.ID)
		if status == model.StatusPendingVerification {
			msg += " (awaiting warehouse verification)"
		}
	}

	return &dto.TransferResponse{
		Success:          true,
		Message:          msg,
		XMLContent:       xmlContent,
		ProcessedCount:   len(items),
		InventoryReduced: false,
		Products:         details,
	}, nil
}

// ── Validate (dry run) ───────────────────────────────────────────────────────

func (s *transferService) Validate(ctx context.Context, req dto.PrepareTransferRequest) (*dto.TransferValidationResponse, error) {
	principal, err := s.conns.Principal()
	if err != nil {
		return nil, err
	}

	resp := &dto.TransferValidationResponse{
		Valid:    true,
		Errors:   []dto.TransferValidationError{},
		Warnings: []string{},
	}

	for _, in := range req.Products {
		rec, err := s.lookupProduct(ctx, principal, in.Barcode)
		if err != nil {
			if connectionDead(err) {
				return nil, err
			}
			resp.Valid = false
			resp.Errors = append(resp.Errors, dto.TransferValidationError{
				Barcode:           in.Barcode,
				ErrorType:         dto.ValidationNotFound,
				RequestedQuantity: in.Quantity,
			})
			continue
		}
		if rec == nil {
			resp.Valid = false
			resp.Errors = append(resp.Errors, dto.TransferValidationError{
				Barcode:           in.Barcode,
				ErrorType:         dto.ValidationNotFound,
				RequestedQuantity: in.Quantity,
			})
			continue
		}

		name := rec.Str("name")
		available := rec.Float("qty_available")
		check, maxAllowed := ValidateQuantity(in.Quantity, available, s.cfg.MaxTransferFraction)
		switch check {
		case StockInsufficient:
			resp.Valid = false
			resp.Errors = append(resp.Errors, dto.TransferValidationError{
				Barcode:           in.Barcode,
				ProductName:       name,
				ErrorType:         dto.ValidationInsufficientStock,
				RequestedQuantity: in.Quantity,
				AvailableQuantity: available,
			})
		case StockExceedsLimit:
			max := float64(maxAllowed)
			resp.Valid = false
			resp.Errors = append(resp.Errors, dto.TransferValidationError{
				Barcode:            in.Barcode,
				ProductName:        name,
				ErrorType:          dto.ValidationExceedsLimit,
				RequestedQuantity:  in.Quantity,
				AvailableQuantity:  available,
				MaxAllowedQuantity: &max,
			})
		default:
			if w := TransferWarning(name, in.Quantity, available, s.cfg.WarnTransferFraction); w != "" {
				resp.Warnings = append(resp.Warnings, w)
			}
		}
	}
	return resp, nil
}

// ── Pending / Get ────────────────────────────────────────────────────────────

func (s *transferService) Pending(ctx context.Context, caller Identity) (*dto.PendingTransferListResponse, error) {
	var (
		transfers []model.Transfer
		err       error
	)
	switch caller.Role {
	case model.RoleAdmin:
		transfers, err = s.transfers.ListByStatus(ctx, model.StatusPending)
	case model.RoleWarehouse:
		transfers, err = s.transfers.ListByStatus(ctx, model.StatusPendingVerification)
	default:
		transfers, err = s.transfers.ListByUsername(ctx, caller.Username)
	}
	if err != nil {
		return nil, err
	}

	out := &dto.PendingTransferListResponse{Transfers: []dto.PendingTransferResponse{}}
	for i := range transfers {
		out.Transfers = append(out.Transfers, toPendingResponse(&transfers[i]))
	}
	out.Total = len(out.Transfers)
	return out, nil
}

func (s *transferService) Get(ctx context.Context, id uuid.UUID) (*dto.PendingTransferResponse, error) {
	t, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toPendingResponse(t)
	return &resp, nil
}

// ── Verify ───────────────────────────────────────────────────────────────────

func (s *transferService) Verify(ctx context.Context, caller Identity, req dto.VerifyTransferRequest) (*dto.PendingTransferResponse, error) {
	id, err := uuid.Parse(req.TransferID)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer id: %w", err)
	}

	transfer, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transfer.Status.CanVerify() {
		return nil, fmt.Errorf("%w: cannot verify a transfer in status %s", ErrInvalidState, transfer.Status)
	}

	principal, err := s.conns.Principal()
	if err != nil {
		return nil, err
	}

	// Re-validate the reviewed line set against live stock: the numbers may
	// have drifted since the cashier prepared the transfer.
	var items []model.TransferItem
	for _, in := range req.Products {
		rec, err := s.lookupProduct(ctx, principal, in.Barcode)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("product not found in principal: %s", in.Barcode)
		}
		available := rec.Float("qty_available")
		check, maxAllowed := ValidateQuantity(in.Quantity, available, s.cfg.MaxTransferFraction)
		switch check {
		case StockInsufficient:
			return nil, fmt.Errorf("insufficient stock for %s: requested %d, available %.0f",
				rec.Str("name"), in.Quantity, available)
		case StockExceedsLimit:
			return nil, fmt.Errorf("quantity for %s exceeds the transfer limit: max allowed %d",
				rec.Str("name"), maxAllowed)
		}
		items = append(items, model.TransferItem{
			Barcode:        in.Barcode,
			ProductID:      rec.Int("id"),
			ProductName:    rec.Str("name"),
			Quantity:       in.Quantity,
			AvailableStock: int(available),
			UnitPrice:      decimal.NewFromFloat(rec.Float("standard_price")),
		})
	}

	if err := s.transfers.ReplaceItems(ctx, id, items, caller.Username); err != nil {
		return nil, err
	}

	updated, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Info().Str("transfer_id", id.String()).Str("verified_by", caller.Username).
		Int("items", len(items)).Msg("transfer verified")
	resp := toPendingResponse(updated)
	return &resp, nil
}

// ── Confirm ──────────────────────────────────────────────────────────────────

// lineResult accumulates one line's outcome during confirmation.
type lineResult struct {
	input     dto.TransferItemInput
	productID int
	name      string
	costPrice float64
	salePrice float64

	originBefore *int
	originAfter  *int
	destBefore   *int
	destAfter    *int

	isNew   bool
	success bool
	errMsg  string
}

func (s *transferService) Confirm(ctx context.Context, caller Identity, transferID *uuid.UUID, req dto.ConfirmTransferRequest) (*dto.TransferResponse, error) {
	principal, err := s.conns.Principal()
	if err != nil {
		return nil, err
	}
	branch, err := s.conns.Branch()
	if err != nil {
		return nil, err
	}

	destID := req.DestinationID
	if transferID != nil {
		header, err := s.transfers.FindByID(ctx, *transferID)
		if err != nil {
			return nil, err
		}
		if !header.Status.CanConfirm() {
			return nil, fmt.Errorf("%w: cannot confirm a transfer in status %s", ErrInvalidState, header.Status)
		}
		if destID == "" {
			destID = header.DestinationID
		}
	}
	dest, err := s.resolveDestination(destID)
	if err != nil {
		return nil, err
	}

	results := make([]lineResult, 0, len(req.Products))
	for _, in := range req.Products {
		res, err := s.confirmLine(ctx, principal, branch, in)
		if err != nil {
			// Negative-stock from the principal or a dead connection aborts the
			// whole batch; nothing after this line runs.
			return nil, err
		}
		results = append(results, res)
	}

	record, pdfBytes := s.buildHistory(caller, transferID, dest, results)
	if err := s.history.Create(ctx, record); err != nil {
		log.Error().Err(err).Msg("history persistence failed after stock movement")
	}

	successCount, transferred := 0, 0
	var details []dto.TransferProductDetail
	var failures []string
	for _, r := range results {
		d := dto.TransferProductDetail{
			Barcode:           r.input.Barcode,
			Name:              r.name,
			QuantityRequested: r.input.Quantity,
			Success:           r.success,
		}
		if r.originBefore != nil {
			d.StockBefore = float64(*r.originBefore)
		}
		if r.originAfter != nil {
			d.StockAfter = float64(*r.originAfter)
		}
		if r.success {
			d.QuantityTransferred = r.input.Quantity
			successCount++
			transferred += r.input.Quantity
		} else {
			msg := r.errMsg
			d.ErrorMessage = &msg
			failures = append(failures, fmt.Sprintf("%s: %s", r.input.Barcode, r.errMsg))
		}
		details = append(details, d)
	}

	msg := fmt.Sprintf("transfer confirmed: %d/%d products moved to %s", successCount, len(results), dest.Name)
	if len(failures) > 0 {
		msg += fmt.Sprintf("; %d failed (%s)", len(failures), strings.Join(failures, "; "))
	}

	if transferID != nil {
		err := s.transfers.UpdateStatus(ctx, *transferID, model.StatusPending, model.StatusConfirmed, caller.Username)
		if err != nil {
			// The movement already happened; the header flip is bookkeeping.
			log.Warn().Err(err).Str("transfer_id", transferID.String()).
				Msg("confirmed transfer status update failed")
			msg += " (warning: transfer status not updated)"
		}
	}

	if s.dispatcher != nil && s.cfg.ReportEmailTo != "" {
		if err := s.dispatcher.EnqueueConfirmationReport(ctx, record.ID); err != nil {
			log.Warn().Err(err).Msg("report email enqueue failed")
		}
	}

	log.Info().
		Str("destination", dest.ID).
		Int("total", len(results)).
		Int("succeeded", successCount).
		Int("transferred_qty", transferred).
		Str("executed_by", caller.Username).
		Msg("transfer confirmation executed")

	return &dto.TransferResponse{
		Success:          successCount > 0,
		Message:          msg,
		XMLContent:       record.XMLContent,
		PDFContent:       base64.StdEncoding.EncodeToString(pdfBytes),
		PDFFilename:      record.PDFFilename,
		ProcessedCount:   successCount,
		InventoryReduced: successCount > 0,
		Products:         details,
	}, nil
}

// confirmLine moves one line across both systems. A non-nil error aborts the
// batch; every other failure comes back as a failed lineResult.
func (s *transferService) confirmLine(ctx context.Context, principal, branch erp.Inventory, in dto.TransferItemInput) (lineResult, error) {
	res := lineResult{input: in}

	rec, err := s.lookupProduct(ctx, principal, in.Barcode)
	if err != nil {
		if connectionDead(err) {
			return res, err
		}
		res.errMsg = fmt.Sprintf("principal lookup failed: %v", err)
		return res, nil
	}
	if rec == nil {
		res.errMsg = fmt.Sprintf("product not found in principal: %s", in.Barcode)
		return res, nil
	}

	res.productID = rec.Int("id")
	res.name = rec.Str("name")
	res.costPrice = rec.Float("standard_price")
	res.salePrice = rec.Float("list_price")

	available := rec.Float("qty_available")
	before := int(available)
	res.originBefore = &before
	if float64(in.Quantity) > available {
		res.errMsg = fmt.Sprintf("insufficient stock in principal for %s: requested %d, available %.0f",
			res.name, in.Quantity, available)
		return res, nil
	}

	if err := principal.ReduceStock(ctx, res.productID, float64(in.Quantity)); err != nil {
		if errors.Is(err, erp.ErrNegativeStock) || connectionDead(err) {
			return res, err
		}
		res.errMsg = fmt.Sprintf("principal stock reduction failed: %v", err)
		return res, nil
	}
	after := before - in.Quantity
	res.originAfter = &after

	// From here on the principal side is already reduced. A branch-side failure
	// is recorded on the line; it never rolls the principal back.
	branchRecs, err := branch.SearchRead(ctx, erp.ModelProduct, erp.Eq("barcode", in.Barcode), productFields, 1)
	if err != nil {
		res.errMsg = fmt.Sprintf("branch lookup failed after principal reduction: %v", err)
		return res, nil
	}

	var branchID int
	if len(branchRecs) == 0 {
		branchID, err = branch.Create(ctx, erp.ModelProduct, branch.ProductCreateValues(ctx, in.Barcode, rec))
		if err != nil {
			res.errMsg = fmt.Sprintf("branch product creation failed after principal reduction: %v", err)
			return res, nil
		}
		res.isNew = true
		zero := 0
		res.destBefore = &zero
	} else {
		branchID = branchRecs[0].Int("id")
		destBefore := int(branchRecs[0].Float("qty_available"))
		res.destBefore = &destBefore

		// Keep the branch copy aligned with the principal's master data.
		sync := map[string]any{
			"name":           res.name,
			"standard_price": res.costPrice,
			"list_price":     res.salePrice,
		}
		if err := branch.Write(ctx, erp.ModelProduct, []int{branchID}, sync); err != nil {
			log.Warn().Err(err).Str("barcode", in.Barcode).Msg("branch product sync failed")
		}
	}

	if err := branch.AddStock(ctx, branchID, float64(in.Quantity)); err != nil {
		res.errMsg = fmt.Sprintf("branch stock addition failed after principal reduction: %v", err)
		return res, nil
	}
	destAfter := *res.destBefore + in.Quantity
	res.destAfter = &destAfter

	res.success = true
	return res, nil
}

// buildHistory assembles the immutable audit record for one confirmation
// attempt. Every line appears in the item set, failed ones included.
func (s *transferService) buildHistory(caller Identity, transferID *uuid.UUID, dest config.Location, results []lineResult) (*model.TransferHistory, []byte) {
	now := time.Now()

	var (
		originBefore, originAfter []model.ProductSnapshot
		destBefore, destAfter     []model.ProductSnapshot
		newProducts               []model.ProductSnapshot
		items                     []model.TransferHistoryItem
		xmlLines                  []infra.XMLProduct
		failures                  []string
	)

	totalRequested, totalTransferred, succeeded := 0, 0, 0
	for _, r := range results {
		totalRequested += r.input.Quantity

		item := model.TransferHistoryItem{
			Barcode:                r.input.Barcode,
			ProductID:              r.productID,
			ProductName:            r.name,
			QuantityRequested:      r.input.Quantity,
			Success:                r.success,
			StockOriginBefore:      r.originBefore,
			StockOriginAfter:       r.originAfter,
			StockDestinationBefore: r.destBefore,
			StockDestinationAfter:  r.destAfter,
			UnitPrice:              decimal.NewFromFloat(r.costPrice),
			IsNewProduct:           r.isNew,
		}
		if r.success {
			succeeded++
			totalTransferred += r.input.Quantity
			item.QuantityTransferred = r.input.Quantity
			item.TotalValue = item.UnitPrice.Mul(decimal.NewFromInt(int64(r.input.Quantity)))

			snap := model.ProductSnapshot{
				ProductID: r.productID,
				Barcode:   r.input.Barcode,
				Name:      r.name,
				CostPrice: r.costPrice,
				SalePrice: r.salePrice,
			}
			if r.originBefore != nil {
				snap.Quantity = float64(*r.originBefore)
				originBefore = append(originBefore, snap)
			}
			if r.originAfter != nil {
				snap.Quantity = float64(*r.originAfter)
				originAfter = append(originAfter, snap)
			}
			if r.isNew {
				snap.Quantity = float64(r.input.Quantity)
				newProducts = append(newProducts, snap)
			} else {
				if r.destBefore != nil {
					snap.Quantity = float64(*r.destBefore)
					destBefore = append(destBefore, snap)
				}
				if r.destAfter != nil {
					snap.Quantity = float64(*r.destAfter)
					destAfter = append(destAfter, snap)
				}
			}
			xmlLines = append(xmlLines, infra.XMLProduct{
				Name:          r.name,
				Barcode:       r.input.Barcode,
				Quantity:      r.input.Quantity,
				StandardPrice: r.costPrice,
				ListPrice:     r.salePrice,
			})
		} else {
			msg := r.errMsg
			item.ErrorMessage = &msg
			failures = append(failures, fmt.Sprintf("%s: %s", r.input.Barcode, r.errMsg))
		}
		items = append(items, item)
	}

	xmlContent, err := infra.GenerateTransferXML(xmlLines)
	if err != nil {
		log.Error().Err(err).Msg("history xml generation failed")
	}

	record := &model.TransferHistory{
		TransferID:               transferID,
		OriginLocation:           config.PrincipalLocationID,
		DestinationID:            dest.ID,
		DestinationName:          dest.Name,
		ExecutedBy:               caller.Username,
		ExecutedAt:               now,
		TotalItems:               len(results),
		SuccessfulItems:          succeeded,
		FailedItems:              len(results) - succeeded,
		TotalQuantityRequested:   totalRequested,
		TotalQuantityTransferred: totalTransferred,
		XMLContent:               xmlContent,
		OriginBefore:             marshalSnapshots(originBefore),
		OriginAfter:              marshalSnapshots(originAfter),
		DestinationBefore:        marshalSnapshots(destBefore),
		DestinationAfter:         marshalSnapshots(destAfter),
		NewProducts:              marshalSnapshots(newProducts),
		HasErrors:                len(failures) > 0,
		ErrorSummary:             strings.Join(failures, "; "),
		Items:                    items,
	}

	reportID := ""
	if transferID != nil {
		reportID = transferID.String()
	}
	pdfBytes, filename, err := infra.GenerateTransferReportPDF(infra.TransferReportData{
		TransferID:        reportID,
		ExecutedBy:        caller.Username,
		ExecutedAt:        now,
		DestinationName:   dest.Name,
		TotalItems:        record.TotalItems,
		SuccessfulItems:   record.SuccessfulItems,
		FailedItems:       record.FailedItems,
		TotalRequested:    totalRequested,
		TotalTransferred:  totalTransferred,
		OriginBefore:      originBefore,
		OriginAfter:       originAfter,
		DestinationBefore: destBefore,
		DestinationAfter:  destAfter,
		NewProducts:       newProducts,
	})
	if err != nil {
		log.Error().Err(err).Msg("history pdf generation failed")
	} else {
		record.PDFContent = base64.StdEncoding.EncodeToString(pdfBytes)
		record.PDFFilename = filename
	}
	return record, pdfBytes
}

// ── Cancel ───────────────────────────────────────────────────────────────────

func (s *transferService) Cancel(ctx context.Context, caller Identity, id uuid.UUID) error {
	transfer, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !transfer.Status.CanCancel() {
		return fmt.Errorf("%w: cannot cancel a transfer in status %s", ErrInvalidState, transfer.Status)
	}
	if err := s.transfers.UpdateStatus(ctx, id, transfer.Status, model.StatusCancelled, caller.Username); err != nil {
		return err
	}
	log.Info().Str("transfer_id", id.String()).Str("cancelled_by", caller.Username).Msg("transfer cancelled")
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// connectionDead reports errors that mean the remote session is unusable and
// the whole operation should stop.
func connectionDead(err error) bool {
	return errors.Is(err, erp.ErrNotConnected) || errors.Is(err, erp.ErrSessionExpired)
}

func failedDetail(in dto.TransferItemInput, name, msg string) dto.TransferProductDetail {
	return dto.TransferProductDetail{
		Barcode:           in.Barcode,
		Name:              name,
		QuantityRequested: in.Quantity,
		Success:           false,
		ErrorMessage:      &msg,
	}
}

func marshalSnapshots(snaps []model.ProductSnapshot) string {
	if snaps == nil {
		snaps = []model.ProductSnapshot{}
	}
	out, err := json.Marshal(snaps)
	if err != nil {
		return "[]"
	}
	return string(out)
}

func toPendingResponse(t *model.Transfer) dto.PendingTransferResponse {
	resp := dto.PendingTransferResponse{
		ID:              t.ID.String(),
		Username:        t.Username,
		CreatedByRole:   t.CreatedByRole,
		Status:          string(t.Status),
		DestinationID:   t.DestinationID,
		DestinationName: t.DestinationName,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		VerifiedAt:      t.VerifiedAt,
		VerifiedBy:      t.VerifiedBy,
		ConfirmedAt:     t.ConfirmedAt,
		ConfirmedBy:     t.ConfirmedBy,
		Items:           []dto.PendingTransferItemResponse{},
	}
	if t.UserID != nil {
		id := t.UserID.String()
		resp.UserID = &id
	}
	for _, item := range t.Items {
		resp.Items = append(resp.Items, dto.PendingTransferItemResponse{
			ID:             item.ID.String(),
			Barcode:        item.Barcode,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			AvailableStock: item.AvailableStock,
			UnitPrice:      item.UnitPrice,
		})
	}
	return resp
}
