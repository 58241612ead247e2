package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/inventory"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
	"github.com/aegean-labs/stockroom/internal/runlog"
)

// syntheticIDFloor keeps locally minted external ids far above anything
// the remote catalog hands out, so feed rows never collide with it.
const syntheticIDFloor = 100000

type Importer struct {
	repo       inventory.Repository
	runs       runlog.Repository
	downloader *Downloader
	prefix     string
	threshold  int
	logger     *zap.Logger
}

func NewImporter(repo inventory.Repository, runs runlog.Repository, cfg *config.Config, log *zap.Logger) *Importer {
	return &Importer{
		repo:       repo,
		runs:       runs,
		downloader: NewDownloader(cfg.Feed.Timeout),
		prefix:     cfg.Feed.CatalogSKUPrefix,
		threshold:  cfg.Inventory.DefaultLowStockThreshold,
		logger:     log,
	}
}

// TestURL downloads and parses a feed without writing anything, so a new
// supplier URL can be checked before an import.
func (im *Importer) TestURL(ctx context.Context, url string) (*ProbeResult, error) {
	items, container, err := im.fetchItems(ctx, url)
	if err != nil {
		return nil, err
	}

	sample := items
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return &ProbeResult{
		ItemCount: len(items),
		Container: container,
		Sample:    sample,
	}, nil
}

func (im *Importer) Import(ctx context.Context, url string, opts *Options) (*Summary, error) {
	started := time.Now()
	if opts == nil {
		opts = &Options{}
	}

	items, container, err := im.fetchItems(ctx, url)
	if err != nil {
		im.logRun(ctx, &Summary{Status: model.RunStatusError}, fmt.Sprintf("feed import failed: %v", err))
		return nil, err
	}

	im.logger.Info("importing supplier feed",
		zap.String("url", url),
		zap.String("container", container),
		zap.Int("items", len(items)),
		zap.Bool("update_existing", opts.UpdateExisting))

	nextID, err := im.nextSyntheticID(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, item := range items {
		summary.Processed++
		created, reason, err := im.importItem(ctx, &item, opts, &nextID)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("sku %q: %v", item.SKU, err))
			continue
		}
		switch created {
		case outcomeImported:
			summary.Imported++
		case outcomeUpdated:
			summary.Updated++
		case outcomeSkipped:
			summary.Skipped++
			summary.Skips = append(summary.Skips, fmt.Sprintf("sku %q: %s", item.SKU, reason))
		}
	}

	summary.Status = model.RunStatusSuccess
	if len(summary.Errors) > 0 {
		summary.Status = model.RunStatusPartialSuccess
	}
	summary.Duration = time.Since(started)

	im.logRun(ctx, summary, fmt.Sprintf(
		"feed import: %d processed, %d imported, %d updated, %d skipped, %d errors",
		summary.Processed, summary.Imported, summary.Updated, summary.Skipped, len(summary.Errors)))
	return summary, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeImported
	outcomeUpdated
)

func (im *Importer) importItem(ctx context.Context, item *Item, opts *Options, nextID *int64) (outcome, string, error) {
	// A prefixed SKU means the catalog already carries this supplier
	// item; the catalog copy is authoritative and the feed row is noise.
	if item.SKU != "" && im.prefix != "" {
		owned, err := im.repo.GetBySKU(ctx, im.prefix+item.SKU)
		if err != nil {
			return outcomeSkipped, "", err
		}
		if owned != nil {
			return outcomeSkipped, "already exists in catalog", nil
		}
	}

	if item.SKU != "" {
		existing, err := im.repo.GetBySKU(ctx, item.SKU)
		if err != nil {
			return outcomeSkipped, "", err
		}
		if existing != nil {
			if !opts.UpdateExisting {
				return outcomeSkipped, "already imported", nil
			}
			upd := &dto.ProductUpdate{
				WholesalePrice: &item.Price,
			}
			if item.Category != "" {
				upd.Category = &item.Category
			}
			if item.ImageURL != "" {
				upd.ImageURL = &item.ImageURL
			}
			if err := im.repo.Update(ctx, existing.ID, upd); err != nil {
				return outcomeSkipped, "", err
			}
			return outcomeUpdated, "", nil
		}
	}

	// Retail price stays zero until set by hand, and stock starts at zero
	// because it tracks the physically counted quantity, not the
	// supplier's claim. The feed price lands in the wholesale column.
	id := *nextID
	*nextID++
	_, err := im.repo.Create(ctx, &model.Product{
		ExternalID:        id,
		Kind:              model.KindSimple,
		Title:             item.Title,
		SKU:               item.SKU,
		Category:          item.Category,
		Price:             0,
		WholesalePrice:    item.Price,
		Stock:             0,
		LowStockThreshold: im.threshold,
		ImageURL:          item.ImageURL,
		Notes:             fmt.Sprintf("Imported from supplier feed on %s", time.Now().Format("2006-01-02")),
		Source:            model.SourceFeed,
	})
	if err != nil {
		return outcomeSkipped, "", err
	}
	return outcomeImported, "", nil
}

func (im *Importer) fetchItems(ctx context.Context, url string) ([]Item, string, error) {
	body, err := im.downloader.Fetch(ctx, url)
	if err != nil {
		return nil, "", err
	}

	root, err := parseDocument(body)
	if err != nil {
		return nil, "", err
	}

	nodes, container := findItems(root)
	if len(nodes) == 0 {
		return nil, "", fmt.Errorf("no product elements found in feed")
	}

	items := make([]Item, 0, len(nodes))
	for i := range nodes {
		if item, ok := mapItem(&nodes[i]); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, "", fmt.Errorf("feed contained %d elements but none were usable", len(nodes))
	}
	return items, container, nil
}

func (im *Importer) nextSyntheticID(ctx context.Context) (int64, error) {
	max, err := im.repo.MaxExternalID(ctx)
	if err != nil {
		return 0, err
	}
	next := max + 1
	if next < syntheticIDFloor {
		next = syntheticIDFloor
	}
	return next, nil
}

func (im *Importer) logRun(ctx context.Context, summary *Summary, details string) {
	entry := &model.RunLogEntry{
		SyncDate:        time.Now(),
		ProductsAdded:   summary.Imported,
		ProductsUpdated: summary.Updated,
		Status:          summary.Status,
		Details:         details,
	}
	if err := im.runs.Append(ctx, entry); err != nil {
		im.logger.Warn("failed to record feed run", zap.Error(err))
	}
}
