// internal/audit/elasticsearch.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"club-tickets/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const DefaultIndex = "allocation-runs"

var ErrIndexFailed = errors.New("AUDIT_INDEX_FAILED")

const indexMapping = `{
	"mappings": {
		"properties": {
			"runId": {"type": "keyword"},
			"gameId": {"type": "keyword"},
			"decidedBy": {"type": "keyword"},
			"decidedAt": {"type": "date"},
			"remainingBefore": {"type": "integer"},
			"remainingAfter": {"type": "integer"},
			"approvedCount": {"type": "integer"},
			"rejectedCount": {"type": "integer"},
			"fairnessWindowDays": {"type": "integer"},
			"decisions": {
				"type": "nested",
				"properties": {
					"applicationId": {"type": "keyword"},
					"applicantId": {"type": "keyword"},
					"status": {"type": "keyword"},
					"rank": {"type": "integer"},
					"hasRecentGrant": {"type": "boolean"}
				}
			}
		}
	}
}`

// Indexer writes one document per committed allocation run.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(client *elasticsearch.Client, index string) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{client: client, index: index}
}

// EnsureIndex creates the audit index with its mapping when it is missing.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: check index: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.index,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	// Another process may have created it in between.
	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return fmt.Errorf("%w: create index: %s", ErrIndexFailed, res.Status())
	}
	return nil
}

// Record indexes the run under its run id, so a retried write overwrites
// rather than duplicates.
func (i *Indexer) Record(ctx context.Context, record models.RunRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: marshal run: %v", ErrIndexFailed, err)
	}

	res, err := i.client.Index(
		i.index,
		bytes.NewReader(body),
		i.client.Index.WithDocumentID(record.RunID),
		i.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s: %s", ErrIndexFailed, res.Status(), readBody(res.Body))
	}
	return nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
