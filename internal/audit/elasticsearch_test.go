// internal/audit/elasticsearch_test.go
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"club-tickets/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// fakeES answers like an Elasticsearch node and records every request.
type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int
}

func newFakeES(t *testing.T, status map[string]int) (*fakeES, *elasticsearch.Client) {
	f := &fakeES{status: status}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		code, ok := f.status[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			code = http.StatusOK
		}

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if code >= 400 {
			w.Write([]byte(`{"error":{"type":"mapper_parsing_exception"},"status":400}`))
			return
		}
		w.Write([]byte(`{"result":"created","_id":"run-1"}`))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{server.URL},
		MaxRetries: 1,
	})
	require.NoError(t, err)
	return f, client
}

func createTestRecord() models.RunRecord {
	return models.RunRecord{
		RunID:              "run-1",
		GameID:             "game-1",
		DecidedBy:          "admin-1",
		DecidedAt:          time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC),
		RemainingBefore:    2,
		RemainingAfter:     0,
		ApprovedCount:      2,
		RejectedCount:      1,
		FairnessWindowDays: 30,
		Decisions: []models.Decision{
			{ApplicationID: "A", ApplicantID: "alice", Status: models.StatusApproved, Rank: 1},
			{ApplicationID: "B", ApplicantID: "bob", Status: models.StatusApproved, Rank: 2},
			{ApplicationID: "C", ApplicantID: "carol", Status: models.StatusRejected, Rank: 3, HasRecentGrant: true},
		},
	}
}

func TestIndexer_Record(t *testing.T) {
	fake, client := newFakeES(t, nil)
	indexer := NewIndexer(client, "")

	require.NoError(t, indexer.Record(context.Background(), createTestRecord()))

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/allocation-runs/_doc/run-1", req.Path)

	var doc models.RunRecord
	require.NoError(t, json.Unmarshal(req.Body, &doc))
	assert.Equal(t, "game-1", doc.GameID)
	assert.Equal(t, 2, doc.ApprovedCount)
	require.Len(t, doc.Decisions, 3)
	assert.True(t, doc.Decisions[2].HasRecentGrant)
}

func TestIndexer_Record_ErrorResponse(t *testing.T) {
	_, client := newFakeES(t, map[string]int{"PUT /runs/_doc/run-1": http.StatusBadRequest})
	indexer := NewIndexer(client, "runs")

	err := indexer.Record(context.Background(), createTestRecord())

	assert.True(t, errors.Is(err, ErrIndexFailed))
	assert.Contains(t, err.Error(), "400")
}

func TestIndexer_EnsureIndex(t *testing.T) {
	t.Run("existing index is left alone", func(t *testing.T) {
		fake, client := newFakeES(t, nil)
		indexer := NewIndexer(client, "runs")

		require.NoError(t, indexer.EnsureIndex(context.Background()))

		require.Len(t, fake.requests, 1)
		assert.Equal(t, http.MethodHead, fake.requests[0].Method)
	})

	t.Run("missing index is created with mapping", func(t *testing.T) {
		fake, client := newFakeES(t, map[string]int{"HEAD /runs": http.StatusNotFound})
		indexer := NewIndexer(client, "runs")

		require.NoError(t, indexer.EnsureIndex(context.Background()))

		require.Len(t, fake.requests, 2)
		assert.Equal(t, http.MethodPut, fake.requests[1].Method)
		assert.Equal(t, "/runs", fake.requests[1].Path)
		assert.Contains(t, string(fake.requests[1].Body), `"decisions"`)
	})

	t.Run("create failure is reported", func(t *testing.T) {
		_, client := newFakeES(t, map[string]int{
			"HEAD /runs": http.StatusNotFound,
			"PUT /runs":  http.StatusBadRequest,
		})
		indexer := NewIndexer(client, "runs")

		err := indexer.EnsureIndex(context.Background())
		assert.True(t, errors.Is(err, ErrIndexFailed))
	})
}
