package catalog

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
)

// Probe failure reasons. ErrUnreachable means the store itself did not
// answer; ErrAuth means it answered but rejected the credentials.
var (
	ErrUnreachable = errors.New("catalog unreachable")
	ErrAuth        = errors.New("catalog authentication failed")
)

// Client is a stateless wrapper over the remote catalog's paginated HTTP API.
//
// Listing calls deliberately degrade to an empty result on transport or HTTP
// errors so that callers can treat an empty page as an end-of-data signal;
// only TestConnection surfaces an explicit failure reason.
type Client struct {
	storeURL   string
	key        string
	secret     string
	apiVersion string
	http       *http.Client
	probe      *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.CatalogConfig, log *zap.Logger) *Client {
	// Feed and store hosts in this niche are routinely misconfigured;
	// certificate verification is relaxed on purpose.
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}

	return &Client{
		storeURL:   cfg.StoreURL,
		key:        cfg.ConsumerKey,
		secret:     cfg.ConsumerSecret,
		apiVersion: cfg.APIVersion,
		http:       &http.Client{Timeout: cfg.Timeout, Transport: transport},
		probe:      &http.Client{Timeout: cfg.ProbeTimeout, Transport: transport.Clone()},
		logger:     log,
	}
}

// TestConnection probes the store root and then an authenticated listing
// call. Callers use it to gate an entire run before spending time on paging.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.storeURL+"/wp-json/", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d from store root", ErrUnreachable, resp.StatusCode)
	}

	authURL := c.endpoint("products", url.Values{"per_page": {"1"}})
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	resp, err = c.probe.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	}

	return nil
}

// Products returns one page of published catalog items.
func (c *Client) Products(ctx context.Context, perPage, page int) []Product {
	return c.listProducts(ctx, url.Values{
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
		"status":   {"publish"},
	})
}

// VariableProducts returns one page of published variable products.
func (c *Client) VariableProducts(ctx context.Context, perPage, page int) []Product {
	return c.listProducts(ctx, url.Values{
		"per_page": {strconv.Itoa(perPage)},
		"page":     {strconv.Itoa(page)},
		"status":   {"publish"},
		"type":     {"variable"},
	})
}

// Product fetches a single catalog item by its external id.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	var product Product
	if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("products/%d", id), nil), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// PublishedVariations returns the published variations of a variable product.
func (c *Client) PublishedVariations(ctx context.Context, parentID int64) []Variation {
	endpoint := c.endpoint(fmt.Sprintf("products/%d/variations", parentID), url.Values{
		"per_page": {"100"},
		"status":   {"publish"},
	})

	var variations []Variation
	if err := c.getJSON(ctx, endpoint, &variations); err != nil {
		c.logger.Warn("catalog variations fetch failed",
			zap.Int64("parent_id", parentID), zap.Error(err))
		return nil
	}
	return variations
}

// TotalProducts reads the published-product count from the response metadata
// header of a one-item listing, rather than counting rows.
func (c *Client) TotalProducts(ctx context.Context) (int, error) {
	return c.totalFromHeader(ctx, url.Values{
		"per_page": {"1"},
		"status":   {"publish"},
	})
}

// TotalVariableProducts reads the published variable-product count, used to
// size the variation phase of a sync.
func (c *Client) TotalVariableProducts(ctx context.Context) (int, error) {
	return c.totalFromHeader(ctx, url.Values{
		"per_page": {"1"},
		"status":   {"publish"},
		"type":     {"variable"},
	})
}

func (c *Client) totalFromHeader(ctx context.Context, params url.Values) (int, error) {
	endpoint := c.endpoint("products", params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("catalog count: HTTP %d", resp.StatusCode)
	}

	total, err := strconv.Atoi(resp.Header.Get("X-WP-Total"))
	if err != nil {
		return 0, fmt.Errorf("catalog count: missing X-WP-Total header")
	}
	return total, nil
}

func (c *Client) listProducts(ctx context.Context, params url.Values) []Product {
	var products []Product
	if err := c.getJSON(ctx, c.endpoint("products", params), &products); err != nil {
		c.logger.Warn("catalog listing failed", zap.Error(err))
		return nil
	}
	return products
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("catalog: HTTP %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("catalog: invalid JSON response: %w", err)
	}
	return nil
}

// endpoint builds the full API URL with query-string authentication.
func (c *Client) endpoint(path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("consumer_key", c.key)
	params.Set("consumer_secret", c.secret)
	return fmt.Sprintf("%s/wp-json/%s/%s?%s", c.storeURL, c.apiVersion, path, params.Encode())
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
