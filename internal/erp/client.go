// Package erp implements the JSON-RPC client for the remote inventory system
// plus the connection registry that holds one live session per role.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Remote model names used by this backend.
const (
	ModelProduct       = "product.product"
	ModelStockLocation = "stock.location"
	ModelStockQuant    = "stock.quant"
	ModelUsers         = "res.users"
)

// Credentials identify one remote ERP endpoint and account.
type Credentials struct {
	URL      string
	Database string
	Username string
	Password string
	Port     int
}

// Client is a synchronous RPC client bound to one remote inventory system.
// It must be authenticated via Authenticate before any other call. Methods are
// safe for sequential use; concurrent calls share the underlying http.Client.
type Client struct {
	creds      Credentials
	endpoint   string
	httpClient *http.Client

	uid     int
	version string
	reqID   atomic.Int64

	fieldsOnce sync.Once
	fields     fieldMap
}

// NewClient builds an unauthenticated client for the given endpoint.
func NewClient(creds Credentials) *Client {
	url := strings.TrimRight(creds.URL, "/")
	// Append the port only when the URL has a scheme separator and no port of
	// its own. A bare or empty URL is left alone; Authenticate will reject it.
	if sep := strings.Index(url, "//"); creds.Port > 0 && sep >= 0 && !strings.Contains(url[sep+2:], ":") {
		url = fmt.Sprintf("%s:%d", url, creds.Port)
	}
	return &Client{
		creds:      creds,
		endpoint:   url + "/jsonrpc",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Database returns the remote database name (for status reporting).
func (c *Client) Database() string { return c.creds.Database }

// Version returns the remote server version string resolved at login.
func (c *Client) Version() string { return c.version }

// IsAuthenticated reports whether the client holds a resolved user id.
func (c *Client) IsAuthenticated() bool { return c.uid != 0 }

// UID returns the remote user id resolved at login, 0 when unauthenticated.
func (c *Client) UID() int { return c.uid }

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcFault       `json:"error"`
}

type rpcFault struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Message string `json:"message"`
	} `json:"data"`
}

func (f *rpcFault) text() string {
	if f.Data.Message != "" {
		return f.Data.Message
	}
	return f.Message
}

// Authenticate resolves the user id against the remote common service and
// caches the server version. It must succeed before any model operation.
func (c *Client) Authenticate(ctx context.Context) error {
	var version struct {
		ServerVersion string `json:"server_version"`
	}
	raw, err := c.call(ctx, "common", "version", []any{})
	if err != nil {
		return fmt.Errorf("erp: version probe: %w", err)
	}
	if err := json.Unmarshal(raw, &version); err == nil {
		c.version = version.ServerVersion
	}

	raw, err = c.call(ctx, "common", "authenticate",
		[]any{c.creds.Database, c.creds.Username, c.creds.Password, map[string]any{}})
	if err != nil {
		return fmt.Errorf("erp: authenticate: %w", err)
	}

	var uid int
	// A wrong password yields `false`, not a fault.
	if err := json.Unmarshal(raw, &uid); err != nil || uid == 0 {
		return fmt.Errorf("%w: invalid credentials for %s@%s",
			ErrSessionExpired, c.creds.Username, c.creds.Database)
	}
	c.uid = uid

	log.Info().
		Str("database", c.creds.Database).
		Str("version", c.version).
		Int("uid", uid).
		Msg("erp session established")
	return nil
}

// Ping verifies the session is still accepted by the remote system.
func (c *Client) Ping(ctx context.Context) bool {
	if c.uid == 0 {
		return false
	}
	_, err := c.executeKw(ctx, ModelUsers, "check_access_rights", []any{"read"}, nil)
	return err == nil
}

// executeKw runs one model method. Transient transport failures (idle
// connections dropped by the remote proxy, resets) are retried exactly once
// after discarding pooled connections; remote faults are never retried.
func (c *Client) executeKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	if c.uid == 0 {
		return nil, ErrNotConnected
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	callArgs := []any{c.creds.Database, c.uid, c.creds.Password, model, method, args, kwargs}

	raw, err := c.call(ctx, "object", "execute_kw", callArgs)
	if err == nil {
		return raw, nil
	}
	if fault, ok := err.(*rpcFault); ok {
		return nil, opErr(model, method, fault.text())
	}
	if !isTransient(err) {
		return nil, opErr(model, method, err.Error())
	}

	// One retry on a fresh connection pool.
	c.httpClient.CloseIdleConnections()
	log.Warn().Str("op", model+"."+method).Err(err).Msg("transient erp failure, retrying once")

	raw, err = c.call(ctx, "object", "execute_kw", callArgs)
	if err != nil {
		if fault, ok := err.(*rpcFault); ok {
			return nil, opErr(model, method, fault.text())
		}
		return nil, opErr(model, method, "failed after retry: "+err.Error())
	}
	return raw, nil
}

// call performs one JSON-RPC round trip. Remote faults are returned as
// *rpcFault so executeKw can distinguish them from transport errors.
func (c *Client) call(ctx context.Context, service, method string, args []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.reqID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// rpcFault implements error so call() can return it through the error path.
func (f *rpcFault) Error() string { return f.text() }

// isTransient matches transport errors worth one reconnect-and-retry:
// idle/keepalive connections killed by the remote side or a proxy.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection reset", "broken pipe", "eof", "idle", "connection refused", "timeout"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ── Primitives ───────────────────────────────────────────────────────────────

// Search returns matching record ids.
func (c *Client) Search(ctx context.Context, model string, domain Domain, limit int) ([]int, error) {
	kwargs := map[string]any{}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	raw, err := c.executeKw(ctx, model, "search", []any{domainArg(domain)}, kwargs)
	if err != nil {
		return nil, err
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, opErr(model, "search", "malformed response: "+err.Error())
	}
	return ids, nil
}

// SearchRead searches and reads matching records in one round trip.
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string, limit int) ([]Record, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	raw, err := c.executeKw(ctx, model, "search_read", []any{domainArg(domain)}, kwargs)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, opErr(model, "search_read", "malformed response: "+err.Error())
	}
	return records, nil
}

// Read fetches the given fields of the given record ids.
func (c *Client) Read(ctx context.Context, model string, ids []int, fields []string) ([]Record, error) {
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	raw, err := c.executeKw(ctx, model, "read", []any{ids}, kwargs)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, opErr(model, "read", "malformed response: "+err.Error())
	}
	return records, nil
}

// Write updates the given records.
func (c *Client) Write(ctx context.Context, model string, ids []int, values map[string]any) error {
	_, err := c.executeKw(ctx, model, "write", []any{ids, values}, nil)
	return err
}

// Create inserts a record and returns its new id.
func (c *Client) Create(ctx context.Context, model string, values map[string]any) (int, error) {
	raw, err := c.executeKw(ctx, model, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	var id int
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, opErr(model, "create", "malformed response: "+err.Error())
	}
	return id, nil
}

// SearchCount counts records matching the domain.
func (c *Client) SearchCount(ctx context.Context, model string, domain Domain) (int, error) {
	raw, err := c.executeKw(ctx, model, "search_count", []any{domainArg(domain)}, nil)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, opErr(model, "search_count", "malformed response: "+err.Error())
	}
	return n, nil
}

// FieldsGet returns field metadata for a model, used by the capability probe.
func (c *Client) FieldsGet(ctx context.Context, model string, fields []string) (map[string]Record, error) {
	var args []any
	if len(fields) > 0 {
		args = append(args, fields)
	}
	raw, err := c.executeKw(ctx, model, "fields_get", args, map[string]any{
		"attributes": []string{"type", "selection"},
	})
	if err != nil {
		return nil, err
	}
	var out map[string]Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, opErr(model, "fields_get", "malformed response: "+err.Error())
	}
	return out, nil
}

// domainArg renders a Domain into the wire shape (list of triplets).
func domainArg(d Domain) []any {
	out := make([]any, 0, len(d))
	for _, cond := range d {
		out = append(out, []any{cond[0], cond[1], cond[2]})
	}
	return out
}
