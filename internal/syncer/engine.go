package syncer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aegean-labs/stockroom/config"
	"github.com/aegean-labs/stockroom/internal/catalog"
	"github.com/aegean-labs/stockroom/internal/inventory"
	"github.com/aegean-labs/stockroom/internal/inventory/dto"
	"github.com/aegean-labs/stockroom/internal/model"
	"github.com/aegean-labs/stockroom/internal/runlog"
)

// Catalog is the remote store surface the engine consumes. Listing
// methods degrade to an empty slice on transport errors; an empty first
// page of the first phase is treated as a failed run.
type Catalog interface {
	TestConnection(ctx context.Context) error
	Products(ctx context.Context, perPage, page int) []catalog.Product
	VariableProducts(ctx context.Context, perPage, page int) []catalog.Product
	PublishedVariations(ctx context.Context, parentID int64) []catalog.Variation
	TotalProducts(ctx context.Context) (int, error)
	TotalVariableProducts(ctx context.Context) (int, error)
}

type Engine struct {
	catalog   Catalog
	repo      inventory.Repository
	runs      runlog.Repository
	store     StateStore
	lease     Lease
	perPage   int
	varPage   int
	threshold int
	logger    *zap.Logger
}

func NewEngine(cat Catalog, repo inventory.Repository, runs runlog.Repository, store StateStore, lease Lease, cfg *config.Config, log *zap.Logger) *Engine {
	return &Engine{
		catalog:   cat,
		repo:      repo,
		runs:      runs,
		store:     store,
		lease:     lease,
		perPage:   cfg.Catalog.PerPage,
		varPage:   cfg.Catalog.VariablePerPage,
		threshold: cfg.Inventory.DefaultLowStockThreshold,
		logger:    log,
	}
}

// continuationToken is what interactive clients hand back to resume; the
// server re-derives everything from the stored state, so the token is
// informational.
type continuationToken struct {
	RunID string `json:"run_id"`
	Phase int    `json:"phase"`
	Page  int    `json:"page"`
}

func encodeToken(s *model.SyncState) string {
	raw, _ := json.Marshal(continuationToken{RunID: s.RunID, Phase: s.Phase, Page: s.Page})
	return base64.StdEncoding.EncodeToString(raw)
}

// Step processes a single catalog page and persists a resumable state.
func (e *Engine) Step(ctx context.Context, full bool) (*model.SyncResult, error) {
	started := time.Now()

	state, err := e.prepare(ctx, full)
	if err != nil {
		return nil, err
	}

	complete, err := e.processPage(ctx, state)
	if err != nil {
		return nil, e.fail(ctx, state, err)
	}

	return e.conclude(ctx, state, complete, started)
}

// RunComplete drives a run from the current state to completion.
func (e *Engine) RunComplete(ctx context.Context, full bool) (*model.SyncResult, error) {
	started := time.Now()

	state, err := e.prepare(ctx, full)
	if err != nil {
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, e.fail(ctx, state, err)
		}

		complete, err := e.processPage(ctx, state)
		if err != nil {
			return nil, e.fail(ctx, state, err)
		}
		if complete {
			return e.conclude(ctx, state, true, started)
		}

		state.StartedAt = time.Now()
		if err := e.store.Save(ctx, state); err != nil {
			return nil, err
		}
	}
}

func (e *Engine) Progress(ctx context.Context) (*model.SyncState, error) {
	return e.store.Get(ctx)
}

func (e *Engine) Reset(ctx context.Context) error {
	state, err := e.store.Get(ctx)
	if err != nil {
		return err
	}
	if state.RunID != "" {
		if err := e.lease.Release(ctx, state.RunID); err != nil {
			e.logger.Warn("failed to release sync lease", zap.Error(err))
		}
	}
	return e.store.Reset(ctx)
}

// prepare loads the stored state, starting a fresh run when the previous
// one finished, and holds the run lease either way.
func (e *Engine) prepare(ctx context.Context, full bool) (*model.SyncState, error) {
	state, err := e.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	if state.Status != model.SyncStatusInProgress {
		state = model.DefaultSyncState()
		state.RunID = uuid.New().String()
		state.Status = model.SyncStatusInProgress
		state.FullSync = full
		state.PerPage = e.perPage

		if err := e.catalog.TestConnection(ctx); err != nil {
			e.logRun(ctx, state, model.RunStatusError, fmt.Sprintf("catalog unreachable: %v", err))
			return nil, fmt.Errorf("catalog connection check failed: %w", err)
		}

		// Variable parents are walked twice, once in each phase, so the
		// estimate counts them twice as well.
		if total, err := e.catalog.TotalProducts(ctx); err == nil && total > 0 {
			state.EstimatedTotal = total
			if variable, err := e.catalog.TotalVariableProducts(ctx); err == nil {
				state.EstimatedTotal += variable
			}
		}

		e.logger.Info("starting catalog sync",
			zap.String("run_id", state.RunID),
			zap.Bool("full", full),
			zap.Int("estimated_total", state.EstimatedTotal))
	}

	ok, err := e.lease.Acquire(ctx, state.RunID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("another sync run is already in progress")
	}
	return state, nil
}

func (e *Engine) processPage(ctx context.Context, state *model.SyncState) (bool, error) {
	switch state.Phase {
	case model.PhaseSimple:
		return e.processSimplePage(ctx, state)
	case model.PhaseVariable:
		return e.processVariablePage(ctx, state)
	default:
		return false, fmt.Errorf("unknown sync phase %d", state.Phase)
	}
}

func (e *Engine) processSimplePage(ctx context.Context, state *model.SyncState) (bool, error) {
	products := e.catalog.Products(ctx, state.PerPage, state.Page)

	if len(products) == 0 && state.Page == 1 {
		return false, fmt.Errorf("catalog returned no products on the first page")
	}

	for i := range products {
		p := &products[i]
		state.Processed++

		// Variable products and their variations are handled in the
		// second phase; everything else syncs as a simple item.
		if p.Type == "variable" {
			continue
		}

		if err := e.upsertSimple(ctx, state, p); err != nil {
			state.Errors = append(state.Errors, fmt.Sprintf("product %d: %v", p.ID, err))
			e.logger.Warn("failed to sync product", zap.Int64("external_id", p.ID), zap.Error(err))
		}
	}

	if len(products) < state.PerPage {
		state.Phase = model.PhaseVariable
		state.Page = 1
		return false, nil
	}
	state.Page++
	return false, nil
}

func (e *Engine) processVariablePage(ctx context.Context, state *model.SyncState) (bool, error) {
	parents := e.catalog.VariableProducts(ctx, e.varPage, state.Page)

	tombstones, err := e.repo.DeletedVariationIDs(ctx)
	if err != nil {
		return false, err
	}

	for i := range parents {
		parent := &parents[i]
		state.Processed++

		localParentID, err := e.upsertVariableParent(ctx, state, parent)
		if err != nil {
			state.Errors = append(state.Errors, fmt.Sprintf("variable product %d: %v", parent.ID, err))
			continue
		}

		for _, v := range e.catalog.PublishedVariations(ctx, parent.ID) {
			if tombstones[v.ID] {
				continue
			}
			if err := e.upsertVariation(ctx, state, parent, localParentID, &v); err != nil {
				state.Errors = append(state.Errors, fmt.Sprintf("variation %d: %v", v.ID, err))
				e.logger.Warn("failed to sync variation", zap.Int64("external_id", v.ID), zap.Error(err))
			}
		}
	}

	if len(parents) < e.varPage {
		return true, nil
	}
	state.Page++
	return false, nil
}

func (e *Engine) upsertSimple(ctx context.Context, state *model.SyncState, p *catalog.Product) error {
	existing, err := e.repo.GetByExternalID(ctx, p.ID)
	if err != nil {
		return err
	}

	if existing == nil {
		_, err := e.repo.Create(ctx, &model.Product{
			ExternalID:        p.ID,
			Kind:              model.KindSimple,
			Title:             p.Name,
			SKU:               p.SKU,
			Category:          p.CategoryName(),
			Price:             p.PriceValue(),
			Stock:             0,
			LowStockThreshold: e.threshold,
			ImageURL:          p.ImageURL(),
			Source:            model.SourceCatalog,
		})
		if err != nil {
			return err
		}
		state.ProductsAdded++
		return nil
	}

	// Local stock and storage details are never touched by a sync;
	// catalog fields refresh only on a full sync.
	if !state.FullSync {
		return nil
	}

	title := p.Name
	sku := p.SKU
	category := p.CategoryName()
	price := p.PriceValue()
	image := p.ImageURL()
	err = e.repo.Update(ctx, existing.ID, &dto.ProductUpdate{
		Title:    &title,
		SKU:      &sku,
		Category: &category,
		Price:    &price,
		ImageURL: &image,
	})
	if err != nil {
		return err
	}
	state.ProductsUpdated++
	return nil
}

func (e *Engine) upsertVariableParent(ctx context.Context, state *model.SyncState, p *catalog.Product) (int64, error) {
	existing, err := e.repo.GetByExternalID(ctx, p.ID)
	if err != nil {
		return 0, err
	}

	if existing == nil {
		// Parents carry no stock of their own; availability is the sum
		// of their variations.
		id, err := e.repo.Create(ctx, &model.Product{
			ExternalID:        p.ID,
			Kind:              model.KindVariable,
			Title:             p.Name,
			SKU:               p.SKU,
			Category:          p.CategoryName(),
			Price:             p.PriceValue(),
			Stock:             0,
			LowStockThreshold: e.threshold,
			ImageURL:          p.ImageURL(),
			Source:            model.SourceCatalog,
		})
		if err != nil {
			return 0, err
		}
		state.ProductsAdded++
		return id, nil
	}

	if state.FullSync {
		title := p.Name
		sku := p.SKU
		category := p.CategoryName()
		price := p.PriceValue()
		image := p.ImageURL()
		err = e.repo.Update(ctx, existing.ID, &dto.ProductUpdate{
			Title:    &title,
			SKU:      &sku,
			Category: &category,
			Price:    &price,
			ImageURL: &image,
		})
		if err != nil {
			return 0, err
		}
		state.ProductsUpdated++
	}
	return existing.ID, nil
}

func (e *Engine) upsertVariation(ctx context.Context, state *model.SyncState, parent *catalog.Product, localParentID int64, v *catalog.Variation) error {
	existing, err := e.repo.GetByExternalID(ctx, v.ID)
	if err != nil {
		return err
	}

	title := variationTitle(parent.Name, v)
	attrs := make(model.AttributeList, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		attrs = append(attrs, model.Attribute{Name: a.Name, Option: a.Option})
	}

	if existing == nil {
		_, err := e.repo.Create(ctx, &model.Product{
			ExternalID:        v.ID,
			ParentID:          &localParentID,
			Kind:              model.KindVariation,
			VariationAttrs:    attrs,
			Title:             title,
			SKU:               v.SKU,
			Category:          parent.CategoryName(),
			Price:             v.PriceValue(),
			Stock:             0,
			LowStockThreshold: e.threshold,
			ImageURL:          v.ImageURL(parent),
			Source:            model.SourceCatalog,
		})
		if err != nil {
			return err
		}
		state.VariationsAdded++
		return nil
	}

	// The parent reference is re-resolved on every run so a re-imported
	// parent with a new local id heals its variations.
	sku := v.SKU
	category := parent.CategoryName()
	price := v.PriceValue()
	image := v.ImageURL(parent)
	err = e.repo.Update(ctx, existing.ID, &dto.ProductUpdate{
		Title:          &title,
		SKU:            &sku,
		Category:       &category,
		Price:          &price,
		ImageURL:       &image,
		ParentID:       &localParentID,
		VariationAttrs: &attrs,
	})
	if err != nil {
		return err
	}
	state.VariationsUpdated++
	return nil
}

func variationTitle(parentName string, v *catalog.Variation) string {
	if len(v.Attributes) == 0 {
		return fmt.Sprintf("%s - #%d", parentName, v.ID)
	}

	parts := make([]string, 0, len(v.Attributes))
	for _, a := range v.Attributes {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Name, a.Option))
	}
	return parentName + " - " + strings.Join(parts, ", ")
}

func (e *Engine) conclude(ctx context.Context, state *model.SyncState, complete bool, started time.Time) (*model.SyncResult, error) {
	if complete {
		state.Status = model.SyncStatusCompleted

		status := model.RunStatusSuccess
		if len(state.Errors) > 0 {
			status = model.RunStatusPartialSuccess
		}
		e.logRun(ctx, state, status, fmt.Sprintf(
			"processed %d products, %d variations added, %d variations updated, %d errors",
			state.Processed, state.VariationsAdded, state.VariationsUpdated, len(state.Errors)))

		if err := e.lease.Release(ctx, state.RunID); err != nil {
			e.logger.Warn("failed to release sync lease", zap.Error(err))
		}
	}

	state.StartedAt = time.Now()
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}

	result := &model.SyncResult{
		Status:            state.Status,
		ProductsAdded:     state.ProductsAdded,
		ProductsUpdated:   state.ProductsUpdated,
		VariationsAdded:   state.VariationsAdded,
		VariationsUpdated: state.VariationsUpdated,
		Processed:         state.Processed,
		Errors:            state.Errors,
		Complete:          complete,
		ProgressPercent:   progressPercent(state, complete),
		Duration:          time.Since(started),
	}
	if !complete {
		result.ContinuationToken = encodeToken(state)
	}
	return result, nil
}

// fail abandons the run: the error is logged, the lease released and the
// state cleared so the next invocation starts fresh.
func (e *Engine) fail(ctx context.Context, state *model.SyncState, cause error) error {
	e.logger.Error("sync run failed",
		zap.String("run_id", state.RunID), zap.Error(cause))

	e.logRun(ctx, state, model.RunStatusError, cause.Error())

	if err := e.lease.Release(ctx, state.RunID); err != nil {
		e.logger.Warn("failed to release sync lease", zap.Error(err))
	}
	if err := e.store.Reset(ctx); err != nil {
		e.logger.Warn("failed to reset sync state", zap.Error(err))
	}
	return cause
}

func (e *Engine) logRun(ctx context.Context, state *model.SyncState, status, details string) {
	entry := &model.RunLogEntry{
		SyncDate:        time.Now(),
		ProductsAdded:   state.ProductsAdded + state.VariationsAdded,
		ProductsUpdated: state.ProductsUpdated + state.VariationsUpdated,
		Status:          status,
		Details:         details,
	}
	if err := e.runs.Append(ctx, entry); err != nil {
		e.logger.Warn("failed to record run log entry", zap.Error(err))
	}
}

func progressPercent(state *model.SyncState, complete bool) int {
	if complete {
		return 100
	}
	if state.EstimatedTotal <= 0 {
		return 0
	}
	pct := state.Processed * 100 / state.EstimatedTotal
	if pct > 99 {
		pct = 99
	}
	return pct
}
