package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/model"
)

const productMapping = `{
	"mappings": {
		"properties": {
			"external_id": { "type": "long" },
			"kind": { "type": "keyword" },
			"title": { "type": "text" },
			"sku": { "type": "keyword" },
			"category": { "type": "keyword" },
			"price": { "type": "double" },
			"stock": { "type": "integer" },
			"aisle": { "type": "keyword" },
			"shelf": { "type": "keyword" },
			"last_updated": { "type": "date" }
		}
	}
}`

// Client indexes inventory rows into Elasticsearch for full-text search.
// A nil *Client is valid and turns every method into a no-op, so callers
// never need to branch on whether search is configured.
type Client struct {
	es     *elasticsearch.Client
	index  string
	logger *zap.Logger
}

func NewClient(cfg *config.ElasticsearchConfig, log *zap.Logger) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	c := &Client{es: es, index: cfg.Index, logger: log}
	if c.index == "" {
		c.index = "inventory"
	}
	return c, nil
}

// EnsureIndex creates the inventory index with its mapping. An
// already-exists response is not an error.
func (c *Client) EnsureIndex(ctx context.Context) error {
	if c == nil {
		return nil
	}

	res, err := esapi.IndicesCreateRequest{
		Index: c.index,
		Body:  bytes.NewReader([]byte(productMapping)),
	}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 400 {
		return fmt.Errorf("creating index %s: %s", c.index, res.String())
	}
	return nil
}

func (c *Client) IndexProduct(ctx context.Context, p *model.Product) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	res, err := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(data),
	}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing product %d: %s", p.ID, res.String())
	}
	return nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	if c == nil {
		return nil
	}

	res, err := esapi.DeleteRequest{
		Index:      c.index,
		DocumentID: strconv.FormatInt(id, 10),
	}.Do(ctx, c.es)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// A missing document is fine, the goal is absence.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("deleting product %d from index: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source model.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (c *Client) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	if c == nil {
		return nil, nil
	}

	query := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"title", "sku", "category", "aisle", "shelf"},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  &buf,
	}.Do(ctx, c.es)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search %q: %s", term, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	products := make([]model.Product, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		products = append(products, hit.Source)
	}

	c.logger.Debug("search served from index",
		zap.String("term", term), zap.Int("hits", len(products)))
	return products, nil
}
