// Package esx indexes published entries into Elasticsearch and backs
// the entry search endpoint. Everything here is optional: a nil client
// turns indexing into a no-op and search into an empty result.
package esx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	es8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/samber/lo"

	"fiber-cms-pg/internal/config"
)

type Client = es8.Client

func Open(cfg *config.Config) (*Client, func(), error) {
	if strings.TrimSpace(cfg.ES.Addrs) == "" {
		return nil, func() {}, nil
	}
	raw := strings.Split(cfg.ES.Addrs, ",")
	addrs := lo.FilterMap(raw, func(s string, _ int) (string, bool) {
		t := strings.TrimSpace(s)
		return t, t != ""
	})
	es, err := es8.NewClient(es8.Config{Addresses: addrs, Username: cfg.ES.Username, Password: cfg.ES.Password})
	if err != nil {
		return nil, func() {}, err
	}
	return es, func() {}, nil
}

// EntryDoc is the searchable projection of a published entry. Data is
// flattened to text so multi_match can hit field values regardless of
// the collection schema.
type EntryDoc struct {
	ID           string    `json:"id"`
	CollectionID string    `json:"collection_id"`
	Collection   string    `json:"collection"`
	Text         string    `json:"text"`
	Status       string    `json:"status"`
	PublishedAt  time.Time `json:"published_at"`
}

// FlattenData renders entry data into one searchable string.
func FlattenData(data map[string]any) string {
	parts := make([]string, 0, len(data))
	for _, v := range data {
		switch t := v.(type) {
		case string:
			parts = append(parts, t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func IndexEntry(ctx context.Context, es *Client, index string, doc EntryDoc) error {
	if es == nil {
		return nil
	}
	b, _ := json.Marshal(doc)
	res, err := es.Index(index, bytes.NewReader(b),
		es.Index.WithDocumentID(doc.ID),
		es.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return fmtError(res)
	}
	return nil
}

// DeleteEntry drops an entry from the index; 404 is fine (the entry may
// never have been published).
func DeleteEntry(ctx context.Context, es *Client, index, id string) error {
	if es == nil {
		return nil
	}
	res, err := es.Delete(index, id, es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest && res.StatusCode != http.StatusNotFound {
		return fmtError(res)
	}
	return nil
}

func SearchEntries(ctx context.Context, es *Client, index string, query string, from, size int) (map[string]any, error) {
	if es == nil {
		return map[string]any{"hits": []any{}}, nil
	}
	q := map[string]any{"query": map[string]any{"multi_match": map[string]any{"query": query, "fields": []string{"collection^2", "text"}}}}
	b, _ := json.Marshal(q)
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(bytes.NewReader(b)),
		es.Search.WithFrom(from),
		es.Search.WithSize(size))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		return nil, fmtError(res)
	}
	var out map[string]any
	_ = json.NewDecoder(res.Body).Decode(&out)
	return out, nil
}

func fmtError(res *esapi.Response) error { return fmt.Errorf("es error: %s", res.String()) }
