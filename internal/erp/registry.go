package erp

import (
	"context"
	"fmt"
	"sync"

	"stocklink/internal/config"

	"github.com/rs/zerolog/log"
)

// Inventory is the slice of Client the orchestration layer consumes. Tests
// substitute in-memory fakes; production code always gets *Client from the
// Registry.
type Inventory interface {
	SearchRead(ctx context.Context, model string, domain Domain, fields []string, limit int) ([]Record, error)
	Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error)
	Write(ctx context.Context, model string, ids []int, values map[string]any) error
	Create(ctx context.Context, model string, values map[string]any) (int, error)
	ReduceStock(ctx context.Context, productID int, quantity float64) error
	AddStock(ctx context.Context, productID int, quantity float64) error
	ProductCreateValues(ctx context.Context, barcode string, source Record) map[string]any
}

// Role names one side of a transfer.
type Role string

const (
	RolePrincipal Role = "principal"
	RoleBranch    Role = "branch"
)

// Registry holds at most one live, authenticated client per role. Credential
// replacement swaps the whole client under a mutex so concurrent requests
// never observe a half-authenticated session.
type Registry struct {
	mu        sync.RWMutex
	principal *Client
	branch    *Client
	branchLoc *config.Location
}

func NewRegistry() *Registry {
	return &Registry{}
}

// ConnectPrincipal authenticates against the principal endpoint and replaces
// any previously held principal session.
func (r *Registry) ConnectPrincipal(ctx context.Context, creds Credentials) (*Client, error) {
	if creds.URL == "" {
		return nil, fmt.Errorf("%w: principal", ErrNoEndpoint)
	}
	client := NewClient(creds)
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.principal = client
	r.mu.Unlock()

	log.Info().Str("database", creds.Database).Msg("principal connection registered")
	return client, nil
}

// ConnectBranch authenticates against the given branch endpoint and replaces
// any previously held branch session.
func (r *Registry) ConnectBranch(ctx context.Context, loc config.Location, username, password string) (*Client, error) {
	if loc.URL == "" {
		return nil, fmt.Errorf("%w: branch %q", ErrNoEndpoint, loc.ID)
	}
	client := NewClient(Credentials{
		URL:      loc.URL,
		Database: loc.Database,
		Username: username,
		Password: password,
		Port:     loc.Port,
	})
	if err := client.Authenticate(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.branch = client
	r.branchLoc = &loc
	r.mu.Unlock()

	log.Info().Str("location", loc.ID).Str("database", loc.Database).Msg("branch connection registered")
	return client, nil
}

// Principal returns the live principal client. ErrNotConnected when no
// credential was ever registered; ErrSessionExpired when the held client lost
// its session.
func (r *Registry) Principal() (Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.principal == nil {
		return nil, fmt.Errorf("%w: principal — an administrator must log in first", ErrNotConnected)
	}
	if !r.principal.IsAuthenticated() {
		return nil, fmt.Errorf("%w: principal", ErrSessionExpired)
	}
	return r.principal, nil
}

// Branch returns the live branch client.
func (r *Registry) Branch() (Inventory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.branch == nil {
		return nil, fmt.Errorf("%w: branch — connect to a branch first", ErrNotConnected)
	}
	if !r.branch.IsAuthenticated() {
		return nil, fmt.Errorf("%w: branch", ErrSessionExpired)
	}
	return r.branch, nil
}

// BranchLocation returns the location the branch client is bound to, or nil.
func (r *Registry) BranchLocation() *config.Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branchLoc
}

func (r *Registry) IsPrincipalConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.principal != nil && r.principal.IsAuthenticated()
}

func (r *Registry) IsBranchConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branch != nil && r.branch.IsAuthenticated()
}

// ConnectionStatus is the health/status view of both roles.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Database  string `json:"database,omitempty"`
	Version   string `json:"version,omitempty"`
	Location  string `json:"location,omitempty"`
}

// Status reports both connections without touching the network.
func (r *Registry) Status() map[Role]ConnectionStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := map[Role]ConnectionStatus{
		RolePrincipal: {},
		RoleBranch:    {},
	}
	if r.principal != nil {
		out[RolePrincipal] = ConnectionStatus{
			Connected: r.principal.IsAuthenticated(),
			Database:  r.principal.Database(),
			Version:   r.principal.Version(),
		}
	}
	if r.branch != nil {
		st := ConnectionStatus{
			Connected: r.branch.IsAuthenticated(),
			Database:  r.branch.Database(),
			Version:   r.branch.Version(),
		}
		if r.branchLoc != nil {
			st.Location = r.branchLoc.ID
		}
		out[RoleBranch] = st
	}
	return out
}

// Disconnect drops the held session for the given role.
func (r *Registry) Disconnect(role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch role {
	case RolePrincipal:
		r.principal = nil
	case RoleBranch:
		r.branch = nil
		r.branchLoc = nil
	}
}

// DisconnectAll drops both sessions.
func (r *Registry) DisconnectAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.principal = nil
	r.branch = nil
	r.branchLoc = nil
}
