package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"synapse-mcp/pkg/logging"
)

// tokenContextKey carries the bearer token for the outbound Synapse call.
type tokenContextKey struct{}

// ContextWithToken returns a context carrying the access token to attach to
// outbound Synapse requests. Set by the request authenticator.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext retrieves the access token from the context.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey{}).(string)
	return token, ok && token != ""
}

var (
	// ErrNoToken indicates that the request context carried no access
	// token. The request authenticator should have rejected the call.
	ErrNoToken = errors.New("no access token in request context")

	// ErrUnauthorized indicates that Synapse rejected the token.
	ErrUnauthorized = errors.New("synapse rejected the access token")

	// ErrNotFound indicates that the entity does not exist or is not
	// visible to the authenticated user.
	ErrNotFound = errors.New("entity not found")
)

// apiError is the Synapse error response body.
type apiError struct {
	Reason string `json:"reason"`
}

// Client performs REST calls against the Synapse API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL
// (e.g. https://repo-prod.prod.sagebase.org).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetEntity fetches an entity by ID.
func (c *Client) GetEntity(ctx context.Context, entityID string) (*Entity, error) {
	var entity Entity
	if err := c.do(ctx, http.MethodGet, "/repo/v1/entity/"+url.PathEscape(entityID), nil, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetAnnotations fetches the annotations of an entity.
func (c *Client) GetAnnotations(ctx context.Context, entityID string) (*Annotations, error) {
	var annotations Annotations
	path := "/repo/v1/entity/" + url.PathEscape(entityID) + "/annotations2"
	if err := c.do(ctx, http.MethodGet, path, nil, &annotations); err != nil {
		return nil, err
	}
	return &annotations, nil
}

// GetChildren lists one page of an entity's children. An empty pageToken
// requests the first page.
func (c *Client) GetChildren(ctx context.Context, parentID, pageToken string) (*ChildrenPage, error) {
	request := map[string]interface{}{
		"parentId":      parentID,
		"includeTypes":  []string{"project", "folder", "file", "table", "dataset", "link"},
		"nextPageToken": pageToken,
	}
	var page ChildrenPage
	if err := c.do(ctx, http.MethodPost, "/repo/v1/entity/children", request, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProvenance fetches the activity record attached to an entity.
func (c *Client) GetProvenance(ctx context.Context, entityID string) (*Activity, error) {
	var activity Activity
	path := "/repo/v1/entity/" + url.PathEscape(entityID) + "/activity"
	if err := c.do(ctx, http.MethodGet, path, nil, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

// Search runs a full-text search. Boolean filters narrow by node type and
// parent when set.
func (c *Client) Search(ctx context.Context, term, nodeType, parentID string) (*SearchResult, error) {
	booleanQuery := []map[string]string{}
	if nodeType != "" {
		booleanQuery = append(booleanQuery, map[string]string{"key": "node_type", "value": strings.ToLower(nodeType)})
	}
	if parentID != "" {
		booleanQuery = append(booleanQuery, map[string]string{"key": "parent_id", "value": parentID})
	}

	request := map[string]interface{}{
		"queryTerm": strings.Fields(term),
	}
	if len(booleanQuery) > 0 {
		request["booleanQuery"] = booleanQuery
	}

	var result SearchResult
	if err := c.do(ctx, http.MethodPost, "/repo/v1/search", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryEntities runs a structured entity query ("select id, name, nodeType
// from entity where <condition>"). The condition comes from QueryBuilder.
func (c *Client) QueryEntities(ctx context.Context, condition string) ([]map[string]interface{}, error) {
	query := "select id, name, nodeType from entity"
	if condition != "" {
		query += " where " + condition
	}

	var result struct {
		Results []map[string]interface{} `json:"results"`
	}
	path := "/repo/v1/query?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

// QueryTable runs a SQL query against a table and waits for the result.
// A query without a leading SELECT is treated as a condition on the whole
// table; a query without a FROM clause gets one appended.
func (c *Client) QueryTable(ctx context.Context, tableID, sql string) (*TableQueryResult, error) {
	sql = normalizeTableSQL(tableID, sql)

	var started struct {
		Token string `json:"token"`
	}
	startPath := "/repo/v1/entity/" + url.PathEscape(tableID) + "/table/query/async/start"
	startBody := map[string]interface{}{
		"query": map[string]interface{}{"sql": sql},
	}
	if err := c.do(ctx, http.MethodPost, startPath, startBody, &started); err != nil {
		return nil, err
	}

	bundle, err := c.waitForTableResult(ctx, tableID, started.Token)
	if err != nil {
		return nil, err
	}
	return bundle.toResult(), nil
}

// GetUserProfile returns the profile of the authenticated user.
func (c *Client) GetUserProfile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "/repo/v1/userProfile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// tableQueryBundle is the async table query response.
type tableQueryBundle struct {
	QueryResult struct {
		QueryResults struct {
			Headers []struct {
				Name string `json:"name"`
			} `json:"headers"`
			Rows []struct {
				Values []interface{} `json:"values"`
			} `json:"rows"`
		} `json:"queryResults"`
	} `json:"queryResult"`
}

func (b *tableQueryBundle) toResult() *TableQueryResult {
	result := &TableQueryResult{
		Headers: make([]string, 0, len(b.QueryResult.QueryResults.Headers)),
		Rows:    make([][]interface{}, 0, len(b.QueryResult.QueryResults.Rows)),
	}
	for _, h := range b.QueryResult.QueryResults.Headers {
		result.Headers = append(result.Headers, h.Name)
	}
	for _, r := range b.QueryResult.QueryResults.Rows {
		result.Rows = append(result.Rows, r.Values)
	}
	return result
}

// waitForTableResult polls the async query endpoint until the result is
// ready. Synapse answers 202 while the query is still running.
func (c *Client) waitForTableResult(ctx context.Context, tableID, token string) (*tableQueryBundle, error) {
	path := "/repo/v1/entity/" + url.PathEscape(tableID) + "/table/query/async/get/" + url.PathEscape(token)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		var bundle tableQueryBundle
		err := c.do(ctx, http.MethodGet, path, nil, &bundle)
		if err == nil {
			return &bundle, nil
		}
		if !errors.Is(err, errResultNotReady) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// errResultNotReady is internal: the async result is still being computed.
var errResultNotReady = errors.New("result not ready")

// normalizeTableSQL mirrors the lenient query handling of the tool surface:
// bare conditions and FROM-less selects are completed against the table.
func normalizeTableSQL(tableID, sql string) string {
	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)

	switch {
	case trimmed == "":
		return "SELECT * FROM " + tableID
	case !strings.HasPrefix(upper, "SELECT"):
		return fmt.Sprintf("SELECT * FROM %s %s", tableID, trimmed)
	case !strings.Contains(upper, "FROM"):
		return fmt.Sprintf("%s FROM %s", trimmed, tableID)
	default:
		return trimmed
	}
}

// do performs one authenticated API call and decodes the JSON response.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return ErrNoToken
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("synapse request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusAccepted:
		// Async result still processing. Drain so the connection is reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return errResultNotReady
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s %s returned %d: %w", method, path, resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode >= 400:
		var apiErr apiError
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Reason != "" {
			return fmt.Errorf("synapse returned %d: %s", resp.StatusCode, apiErr.Reason)
		}
		return fmt.Errorf("synapse returned %d for %s %s", resp.StatusCode, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	logging.Debug("Synapse", "%s %s succeeded", method, path)
	return nil
}
