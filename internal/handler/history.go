package handler

import (
	"net/http"

	"stocklink/internal/apierror"
	"stocklink/internal/middleware"
	"stocklink/internal/repository"
	"stocklink/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HistoryHandler struct{ svc service.HistoryService }

func NewHistoryHandler(svc service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

// Feed returns executed history records merged with in-flight and cancelled
// transfer headers, newest first.
func (h *HistoryHandler) Feed(c *gin.Context) {
	resp, err := h.svc.Feed(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MyFeed is the caller-scoped movement feed.
func (h *HistoryHandler) MyFeed(c *gin.Context) {
	claims := middleware.GetClaims(c)
	resp, err := h.svc.FeedForUser(c.Request.Context(), claims.Username)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detail returns one fully expanded history record with snapshots and items.
func (h *HistoryHandler) Detail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid history id"))
		return
	}
	resp, err := h.svc.Detail(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PDF streams the stored audit report.
func (h *HistoryHandler) PDF(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid history id"))
		return
	}
	pdf, filename, err := h.svc.PDF(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// SearchProducts finds historic movements by product barcode or name.
func (h *HistoryHandler) SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, apierror.New("query parameter q is required"))
		return
	}
	searchType := repository.ProductSearchType(c.DefaultQuery("type", string(repository.SearchByBoth)))
	switch searchType {
	case repository.SearchByBarcode, repository.SearchByName, repository.SearchByBoth:
	default:
		c.JSON(http.StatusBadRequest, apierror.New("type must be barcode, name or both"))
		return
	}

	resp, err := h.svc.SearchProducts(c.Request.Context(), query, searchType)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the merged feed as an xlsx workbook.
func (h *HistoryHandler) Export(c *gin.Context) {
	book, filename, err := h.svc.ExportWorkbook(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}
