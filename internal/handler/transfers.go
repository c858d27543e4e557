package handler

import (
	"net/http"

	"stocklink/internal/apierror"
	"stocklink/internal/dto"
	"stocklink/internal/middleware"
	"stocklink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransfersHandler struct{ svc service.TransferService }

func NewTransfersHandler(svc service.TransferService) *TransfersHandler {
	return &TransfersHandler{svc: svc}
}

// Prepare validates every line against live principal stock and persists a
// pending transfer. No stock moves.
func (h *TransfersHandler) Prepare(c *gin.Context) {
	var req dto.PrepareTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Prepare(c.Request.Context(), middleware.CallerIdentity(c), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Validate runs the same checks as prepare without persisting anything.
func (h *TransfersHandler) Validate(c *gin.Context) {
	var req dto.PrepareTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Validate(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pending lists open transfers filtered by the caller's role.
func (h *TransfersHandler) Pending(c *gin.Context) {
	resp, err := h.svc.Pending(c.Request.Context(), middleware.CallerIdentity(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns one transfer with its lines.
func (h *TransfersHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transfer id"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Verify replaces a cashier-prepared line set with the reviewed one and moves
// the transfer to pending.
func (h *TransfersHandler) Verify(c *gin.Context) {
	var req dto.VerifyTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Verify(c.Request.Context(), middleware.CallerIdentity(c), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirm executes a pending transfer: stock moves out of the principal and
// into the branch line by line, and an immutable history record is written.
func (h *TransfersHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transfer id"))
		return
	}
	var req dto.ConfirmTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Confirm(c.Request.Context(), middleware.CallerIdentity(c), &id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ConfirmDirect executes a transfer without a persisted header. Used by
// administrators moving stock ad hoc; the audit history is still recorded.
func (h *TransfersHandler) ConfirmDirect(c *gin.Context) {
	var req dto.ConfirmTransferRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Confirm(c.Request.Context(), middleware.CallerIdentity(c), nil, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel marks a pending transfer cancelled. The row is kept for audit
// continuity.
func (h *TransfersHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid transfer id"))
		return
	}
	if err := h.svc.Cancel(c.Request.Context(), middleware.CallerIdentity(c), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
