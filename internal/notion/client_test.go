package notion

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc_assistant/internal/domain"
	"doc_assistant/internal/fetch"
)

func testSchema(withSlug bool) map[string]any {
	props := map[string]any{
		"External_ID":           map[string]string{"type": "rich_text"},
		"Name":                  map[string]string{"type": "title"},
		"authors":               map[string]string{"type": "rich_text"},
		"Tags":                  map[string]string{"type": "multi_select"},
		"reading_status":        map[string]string{"type": "select"},
		"summary_last_modified": map[string]string{"type": "date"},
		"local_last_modified":   map[string]string{"type": "date"},
		"archived":              map[string]string{"type": "checkbox"},
	}
	if withSlug {
		props["source_slug"] = map[string]string{"type": "rich_text"}
	}
	return map[string]any{"properties": props}
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fetcher := fetch.New(fetch.Config{Timeout: 5 * time.Second, MaxRetries: 1,
		BackoffBase: time.Millisecond, BackoffCap: time.Millisecond}, logger)
	return NewClient(Config{
		Token:          "secret",
		DatabaseID:     "db1",
		APIBase:        server.URL,
		Version:        "2022-06-28",
		RequestsPerSec: 1000,
	}, fetcher, logger)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestEnsureSchemaResolvesCaseInsensitiveAndNameFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-06-28", r.Header.Get("Notion-Version"))
		writeJSON(t, w, testSchema(true))
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.ensureSchema(context.Background()))
	assert.Equal(t, "External_ID", client.props["external_id"])
	assert.Equal(t, "Name", client.props["title"])
	assert.Equal(t, "Tags", client.props["tags"])
	assert.Equal(t, "source_slug", client.props["source_slug"])
}

func TestEnsureSchemaMissingRequiredProperty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		schema := testSchema(false)
		delete(schema["properties"].(map[string]any), "Tags")
		writeJSON(t, w, schema)
	})
	client := newTestClient(t, mux)

	err := client.ensureSchema(context.Background())
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "tags", schemaErr.Property)
	assert.Equal(t, "multi_select", schemaErr.Type)
	assert.Contains(t, schemaErr.Available, "archived (checkbox)")
}

func TestEnsureSchemaRejectsWrongType(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		schema := testSchema(false)
		schema["properties"].(map[string]any)["archived"] = map[string]string{"type": "select"}
		writeJSON(t, w, schema)
	})
	client := newTestClient(t, mux)

	var schemaErr *SchemaError
	require.ErrorAs(t, client.ensureSchema(context.Background()), &schemaErr)
	assert.Equal(t, "archived", schemaErr.Property)
}

func TestListRecordsPaginatesAndParses(t *testing.T) {
	edited := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	pageOne := map[string]any{
		"id":               "page-1",
		"archived":         false,
		"last_edited_time": edited.Format(time.RFC3339),
		"properties": map[string]any{
			"External_ID": map[string]any{"type": "rich_text", "rich_text": []map[string]any{{"plain_text": "2301.12345"}}},
			"Name":        map[string]any{"type": "title", "title": []map[string]any{{"plain_text": "A Paper"}}},
			"authors":     map[string]any{"type": "rich_text", "rich_text": []map[string]any{{"plain_text": "Ada Lovelace, Alan Turing"}}},
			"Tags":        map[string]any{"type": "multi_select", "multi_select": []map[string]string{{"name": "ml"}, {"name": "ml"}, {"name": "nlp"}}},
			"reading_status": map[string]any{
				"type": "select", "select": map[string]string{"name": "read"},
			},
			"summary_last_modified": map[string]any{"type": "date", "date": map[string]string{"start": "2026-01-30T12:00:00Z"}},
			"local_last_modified":   map[string]any{"type": "date", "date": map[string]string{"start": "2026-01-30T12:00:00Z"}},
			"archived":              map[string]any{"type": "checkbox", "checkbox": true},
		},
	}
	pageTwo := map[string]any{
		"id":               "page-2",
		"archived":         false,
		"last_edited_time": edited.Format(time.RFC3339),
		"properties":       map[string]any{},
	}

	var queries int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testSchema(true))
	})
	mux.HandleFunc("POST /databases/db1/query", func(w http.ResponseWriter, r *http.Request) {
		queries++
		var req queryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.StartCursor == nil {
			writeJSON(t, w, map[string]any{
				"results": []any{pageOne}, "has_more": true, "next_cursor": "cur-2",
			})
			return
		}
		assert.Equal(t, "cur-2", *req.StartCursor)
		writeJSON(t, w, map[string]any{"results": []any{pageTwo}, "has_more": false})
	})
	mux.HandleFunc("GET /blocks/page-1/children", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"results": []any{
			map[string]any{"id": "b1", "type": "paragraph", "paragraph": map[string]any{
				"rich_text": []map[string]any{{"plain_text": "remote summary"}},
			}},
		}})
	})
	mux.HandleFunc("GET /blocks/page-2/children", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"results": []any{}})
	})
	client := newTestClient(t, mux)

	records, err := client.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, queries)

	rec := records[0]
	assert.Equal(t, "page-1", rec.PageID)
	assert.Equal(t, "2301.12345", rec.ExternalID)
	assert.Equal(t, "A Paper", rec.Title)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, rec.Authors)
	assert.Equal(t, []string{"ml", "nlp"}, rec.Tags)
	assert.Equal(t, string(domain.ReadingRead), rec.ReadingStatus)
	assert.True(t, rec.Archived)
	assert.Equal(t, "remote summary", rec.Summary)
	require.NotNil(t, rec.SummaryModifiedAt)
	assert.True(t, rec.SummaryModifiedAt.Equal(time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)))
	assert.True(t, rec.LastEditedAt.Equal(edited))
}

func TestCreateOmitsSlugWhenColumnAbsent(t *testing.T) {
	var created createPageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testSchema(false))
	})
	mux.HandleFunc("POST /pages", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeJSON(t, w, map[string]any{"id": "page-9", "properties": map[string]any{}})
	})
	client := newTestClient(t, mux)

	rec := &domain.Record{
		Key:             domain.SlugKey("example-com-post"),
		Title:           "A Post",
		ReadingStatus:   domain.ReadingUnread,
		LocalModifiedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	remote, err := client.Create(context.Background(), rec, "body text")
	require.NoError(t, err)
	assert.Equal(t, "page-9", remote.PageID)

	assert.Equal(t, "db1", created.Parent.DatabaseID)
	assert.Contains(t, created.Properties, "Name")
	assert.NotContains(t, created.Properties, "source_slug")
	require.Len(t, created.Children, 1)
	assert.Equal(t, "paragraph", created.Children[0].Type)
}

func TestCreateWritesSlugWhenColumnPresent(t *testing.T) {
	var created createPageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testSchema(true))
	})
	mux.HandleFunc("POST /pages", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
		writeJSON(t, w, map[string]any{"id": "page-9", "properties": map[string]any{}})
	})
	client := newTestClient(t, mux)

	rec := &domain.Record{
		Key:             domain.SlugKey("example-com-post"),
		Title:           "A Post",
		ReadingStatus:   domain.ReadingUnread,
		LocalModifiedAt: time.Now().UTC(),
	}
	_, err := client.Create(context.Background(), rec, "body")
	require.NoError(t, err)
	assert.Contains(t, created.Properties, "source_slug")
}

func TestUpdateReplacesBody(t *testing.T) {
	var deleted []string
	var appended blockChildren
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testSchema(true))
	})
	mux.HandleFunc("PATCH /pages/page-3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "page-3", "properties": map[string]any{}})
	})
	mux.HandleFunc("GET /blocks/page-3/children", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"results": []any{
			map[string]any{"id": "old-1", "type": "paragraph"},
			map[string]any{"id": "old-2", "type": "paragraph"},
		}})
	})
	mux.HandleFunc("DELETE /blocks/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = append(deleted, r.PathValue("id"))
		writeJSON(t, w, map[string]any{})
	})
	mux.HandleFunc("PATCH /blocks/page-3/children", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&appended))
		writeJSON(t, w, map[string]any{})
	})
	client := newTestClient(t, mux)

	rec := &domain.Record{
		Key:             domain.ExternalKey("2301.12345"),
		Title:           "A Paper",
		ReadingStatus:   domain.ReadingRead,
		LocalModifiedAt: time.Now().UTC(),
	}
	_, err := client.Update(context.Background(), "page-3", rec, "# New body")
	require.NoError(t, err)

	assert.Equal(t, []string{"old-1", "old-2"}, deleted)
	require.Len(t, appended.Children, 1)
	assert.Equal(t, "heading_1", appended.Children[0].Type)
}

func TestSetArchivedFlipsPageAndCheckbox(t *testing.T) {
	var update updatePageRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, testSchema(true))
	})
	mux.HandleFunc("PATCH /pages/page-4", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		writeJSON(t, w, map[string]any{"id": "page-4", "properties": map[string]any{}})
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.SetArchived(context.Background(), "page-4", true))
	require.NotNil(t, update.Archived)
	assert.True(t, *update.Archived)
	assert.Contains(t, update.Properties, "archived")
}

func TestRequestSurfacesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /databases/db1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		writeJSON(t, w, map[string]string{"code": "object_not_found", "message": "no such database"})
	})
	client := newTestClient(t, mux)

	err := client.ensureSchema(context.Background())
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "object_not_found", apiErr.Code)
}
