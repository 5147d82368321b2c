package synapse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedContext() context.Context {
	return ContextWithToken(context.Background(), "test-token")
}

func TestTokenFromContext(t *testing.T) {
	_, ok := TokenFromContext(context.Background())
	assert.False(t, ok)

	token, ok := TokenFromContext(ContextWithToken(context.Background(), "t"))
	assert.True(t, ok)
	assert.Equal(t, "t", token)

	_, ok = TokenFromContext(ContextWithToken(context.Background(), ""))
	assert.False(t, ok)
}

func TestClient_NoTokenInContext(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	_, err := c.GetEntity(context.Background(), "syn123")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestClient_GetEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repo/v1/entity/syn123", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Entity{
			ID:           "syn123",
			Name:         "My Project",
			ConcreteType: "org.sagebionetworks.repo.model.Project",
			CreatedBy:    "12345",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	entity, err := c.GetEntity(authedContext(), "syn123")
	require.NoError(t, err)

	assert.Equal(t, "syn123", entity.ID)
	assert.Equal(t, "Project", entity.Type())
	assert.True(t, entity.IsContainer())
}

func TestClient_GetEntity_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"reason": "entity syn999 does not exist"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetEntity(authedContext(), "syn999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetEntity(authedContext(), "syn123")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestClient_APIErrorReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"reason": "malformed query"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.GetEntity(authedContext(), "syn123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed query")
}

func TestClient_GetChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repo/v1/entity/children", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "syn1", body["parentId"])

		json.NewEncoder(w).Encode(ChildrenPage{
			Page: []EntityHeader{
				{ID: "syn2", Name: "data", Type: "org.sagebionetworks.repo.model.Folder"},
				{ID: "syn3", Name: "readme.md", Type: "org.sagebionetworks.repo.model.FileEntity"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	page, err := c.GetChildren(authedContext(), "syn1", "")
	require.NoError(t, err)
	require.Len(t, page.Page, 2)
	assert.Equal(t, "syn2", page.Page[0].ID)
}

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repo/v1/search", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []interface{}{"melanoma", "atlas"}, body["queryTerm"])
		require.Contains(t, body, "booleanQuery")

		json.NewEncoder(w).Encode(SearchResult{
			Found: 1,
			Hits:  []SearchHit{{ID: "syn100", Name: "Melanoma Atlas", NodeType: "project"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.Search(authedContext(), "melanoma atlas", "project", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Found)
	require.Len(t, result.Hits, 1)
}

func TestClient_QueryEntities(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repo/v1/query", r.URL.Path)
		assert.Equal(t, "select id, name, nodeType from entity where parentId == 'syn1'", r.URL.Query().Get("query"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{{"entity.id": "syn2", "entity.name": "data"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	results, err := c.QueryEntities(authedContext(), "parentId == 'syn1'")
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestClient_QueryTable(t *testing.T) {
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/repo/v1/entity/syn61609402/table/query/async/start", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		query := body["query"].(map[string]interface{})
		assert.Equal(t, "SELECT * FROM syn61609402", query["sql"])

		json.NewEncoder(w).Encode(map[string]string{"token": "job-1"})
	})
	mux.HandleFunc("/repo/v1/entity/syn61609402/table/query/async/get/job-1", func(w http.ResponseWriter, r *http.Request) {
		// First poll: still processing.
		if polls.Add(1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"queryResult": map[string]interface{}{
				"queryResults": map[string]interface{}{
					"headers": []map[string]string{{"name": "id"}, {"name": "title"}},
					"rows": []map[string]interface{}{
						{"values": []interface{}{"syn100", "Melanoma Atlas"}},
					},
				},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	result, err := c.QueryTable(authedContext(), "syn61609402", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "title"}, result.Headers)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "syn100", result.Rows[0][0])
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestNormalizeTableSQL(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", "SELECT * FROM syn1"},
		{"WHERE year > 2020", "SELECT * FROM syn1 WHERE year > 2020"},
		{"SELECT id, title", "SELECT id, title FROM syn1"},
		{"SELECT * FROM syn1 WHERE id IS NOT NULL", "SELECT * FROM syn1 WHERE id IS NOT NULL"},
		{"  select * from syn1  ", "select * from syn1"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, normalizeTableSQL("syn1", test.in))
	}
}
