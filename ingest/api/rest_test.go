package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/inflow/core"
)

func drainStream(t *testing.T, stream Stream) []core.ProcessedData {
	t.Helper()
	var items []core.ProcessedData
	for {
		item, err := stream.Next(context.Background())
		if err == io.EOF {
			return items
		}
		require.NoError(t, err)
		items = append(items, item)
	}
}

func openREST(t *testing.T, cfg RESTConfig, source string) Stream {
	t.Helper()
	conn, err := NewRESTConnector(cfg)
	require.NoError(t, err)
	stream, err := conn.Open(context.Background(), source)
	require.NoError(t, err)
	return stream
}

func TestREST_NonePagination(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode([]any{
			map[string]any{"id": 1},
			map[string]any{"id": 2},
		})
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{}, server.URL))
	assert.Len(t, items, 2)
	assert.Equal(t, 1, requests)
}

func TestREST_PagePagination(t *testing.T) {
	// Pages of 2, 2, 1: the short third page terminates the loop.
	pages := [][]int{{1, 2}, {3, 4}, {5}}
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("page_size"))

		var body []any
		if page >= 1 && page <= len(pages) {
			for _, id := range pages[page-1] {
				body = append(body, map[string]any{"id": id})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"results": body})
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{
		PaginationType: PaginationPage,
		PageSize:       2,
		ResultsPath:    "results",
	}, server.URL))

	assert.Len(t, items, 5)
	assert.Equal(t, 3, requests)

	// Coordinates record the page and index that produced each item.
	assert.Equal(t, 1, items[0].Stats.Page)
	assert.Equal(t, 3, items[4].Stats.Page)
	assert.Equal(t, "0", items[4].Metadata["item_index"])
}

func TestREST_OffsetPagination(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		body := []any{}
		if offset == "0" {
			body = []any{map[string]any{"id": 1}, map[string]any{"id": 2}}
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{
		PaginationType: PaginationOffset,
		PageSize:       2,
	}, server.URL))

	assert.Len(t, items, 2)
	assert.Equal(t, []string{"0", "2"}, offsets, "offset advances by items returned; empty page stops")
}

func TestREST_CursorPagination(t *testing.T) {
	// The second response omits the cursor, ending the stream.
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("cursor")
		cursors = append(cursors, cursor)

		body := map[string]any{
			"items": []any{map[string]any{"cursor_seen": cursor}},
		}
		if cursor == "" {
			body["meta"] = map[string]any{"next": "abc123"}
		}
		json.NewEncoder(w).Encode(body)
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{
		PaginationType: PaginationCursor,
		ResultsPath:    "items",
		CursorPath:     "meta.next",
	}, server.URL))

	assert.Len(t, items, 2)
	assert.Equal(t, []string{"", "abc123"}, cursors)
}

func TestREST_MaxPagesCapsRequests(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		json.NewEncoder(w).Encode([]any{map[string]any{"n": requests}})
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{
		PaginationType: PaginationOffset,
		MaxPages:       3,
	}, server.URL))

	assert.Len(t, items, 3)
	assert.Equal(t, 3, requests)
}

func TestREST_ErrorStatusPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	stream := openREST(t, RESTConfig{}, server.URL)
	_, err := stream.Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestREST_BadResultsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"wrong": []}}`)
	}))
	defer server.Close()

	stream := openREST(t, RESTConfig{ResultsPath: "data.items"}, server.URL)
	_, err := stream.Next(context.Background())
	assert.Error(t, err)
}

func TestREST_ItemsCarryChecksumAndContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"b": 2, "a": 1}]`)
	}))
	defer server.Close()

	items := drainStream(t, openREST(t, RESTConfig{}, server.URL))
	require.Len(t, items, 1)

	// json.Marshal sorts object keys, so the content form is canonical.
	assert.Equal(t, `{"a":1,"b":2}`, items[0].Content)
	assert.Equal(t, core.FingerprintBytes([]byte(items[0].Content)), items[0].Checksum)
	assert.Equal(t, core.SourceTypeREST, items[0].SourceType)
}

func TestNewRESTConnector_Validation(t *testing.T) {
	_, err := NewRESTConnector(RESTConfig{PaginationType: "spiral"})
	assert.ErrorIs(t, err, ErrUnsupportedPagination)

	_, err = NewRESTConnector(RESTConfig{PaginationType: PaginationCursor})
	assert.ErrorIs(t, err, ErrUnsupportedPagination)
}

func TestLookupPath(t *testing.T) {
	body := map[string]any{
		"data": map[string]any{
			"items": []any{1, 2},
		},
	}

	value, ok := lookupPath(body, "data.items")
	require.True(t, ok)
	assert.Equal(t, []any{1, 2}, value)

	_, ok = lookupPath(body, "data.missing")
	assert.False(t, ok)

	value, ok = lookupPath(body, "")
	require.True(t, ok)
	assert.Equal(t, body, value)
}
