package handler

import (
	"errors"
	"fmt"
	"net/http"

	"stocklink/internal/apierror"
	"stocklink/internal/config"
	"stocklink/internal/dto"
	"stocklink/internal/erp"

	"github.com/gin-gonic/gin"
)

// ConnectionsHandler manages the lifecycle of the two remote ERP sessions.
type ConnectionsHandler struct {
	registry *erp.Registry
	cfg      *config.Config
}

func NewConnectionsHandler(registry *erp.Registry, cfg *config.Config) *ConnectionsHandler {
	return &ConnectionsHandler{registry: registry, cfg: cfg}
}

// ConnectPrincipal opens the principal warehouse session with the submitted
// credentials, replacing any prior session.
func (h *ConnectionsHandler) ConnectPrincipal(c *gin.Context) {
	var req dto.ConnectPrincipalRequest
	if !bindAndValidate(c, &req) {
		return
	}

	loc := h.cfg.Principal()
	client, err := h.registry.ConnectPrincipal(c.Request.Context(), erp.Credentials{
		URL:      loc.URL,
		Database: loc.Database,
		Username: req.Username,
		Password: req.Password,
		Port:     loc.Port,
	})
	if err != nil {
		c.JSON(connectStatus(err), apierror.New("principal connection failed: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.ConnectionResponse{
		Success:  true,
		Message:  "connected to principal warehouse",
		UserID:   client.UID(),
		Database: client.Database(),
		Version:  client.Version(),
	})
}

// ConnectBranch opens a session against one of the configured branch
// locations.
func (h *ConnectionsHandler) ConnectBranch(c *gin.Context) {
	var req dto.ConnectBranchRequest
	if !bindAndValidate(c, &req) {
		return
	}

	loc := h.cfg.BranchByID(req.LocationID)
	if loc == nil {
		c.JSON(http.StatusBadRequest, apierror.New("unknown location: "+req.LocationID))
		return
	}

	client, err := h.registry.ConnectBranch(c.Request.Context(), *loc, req.Username, req.Password)
	if err != nil {
		c.JSON(connectStatus(err), apierror.New("branch connection failed: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.ConnectionResponse{
		Success:  true,
		Message:  fmt.Sprintf("connected to %s", loc.Name),
		UserID:   client.UID(),
		Database: client.Database(),
		Version:  client.Version(),
	})
}

// connectStatus distinguishes a missing endpoint configuration from a
// rejected credential.
func connectStatus(err error) int {
	if errors.Is(err, erp.ErrNoEndpoint) {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

// Status reports both sessions without touching the network.
func (h *ConnectionsHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Status())
}

// Locations lists the configured transfer destinations.
func (h *ConnectionsHandler) Locations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"principal": h.cfg.Principal(),
		"branches":  h.cfg.Branches(),
	})
}

// Disconnect drops one session by role.
func (h *ConnectionsHandler) Disconnect(c *gin.Context) {
	role := erp.Role(c.Param("role"))
	switch role {
	case erp.RolePrincipal, erp.RoleBranch:
		h.registry.Disconnect(role)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": string(role) + " disconnected"})
	default:
		c.JSON(http.StatusBadRequest, apierror.New("unknown role: must be principal or branch"))
	}
}
