package dto

// ConnectPrincipalRequest opens the principal ERP session.
type ConnectPrincipalRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ConnectBranchRequest opens a branch ERP session against a configured
// location.
type ConnectBranchRequest struct {
	LocationID string `json:"location_id" validate:"required"`
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ConnectionResponse reports the outcome of a connect call.
type ConnectionResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	UserID   int    `json:"user_id,omitempty"`
	Database string `json:"database,omitempty"`
	Version  string `json:"version,omitempty"`
}
