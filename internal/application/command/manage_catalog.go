package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/alem-achievements/internal/domain/achievement"
	"github.com/alem-hub/alem-achievements/internal/domain/shared"
	"github.com/alem-hub/alem-achievements/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG MANAGEMENT COMMANDS
// Adds custom achievements and soft-deletes existing ones. When a
// CatalogStore is configured, changes are written through to it.
// ══════════════════════════════════════════════════════════════════════════════

// CreateAchievementCommand contains a new definition. Active is forced to true.
type CreateAchievementCommand struct {
	Definition achievement.Definition
}

// DeactivateAchievementCommand identifies the achievement to deactivate.
type DeactivateAchievementCommand struct {
	AchievementID string
}

// CatalogHandler handles catalog management commands.
type CatalogHandler struct {
	catalog *achievement.Catalog
	store   achievement.CatalogStore // optional
	log     *logger.Logger
}

// NewCatalogHandler creates a new CatalogHandler. store may be nil.
func NewCatalogHandler(catalog *achievement.Catalog, store achievement.CatalogStore, log *logger.Logger) *CatalogHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogHandler{
		catalog: catalog,
		store:   store,
		log:     log.With(logger.Component("catalog")),
	}
}

// Create validates and appends a definition to the catalog.
func (h *CatalogHandler) Create(ctx context.Context, cmd CreateAchievementCommand) (achievement.Definition, error) {
	def := cmd.Definition
	def.Active = true

	if err := def.Validate(); err != nil {
		return achievement.Definition{}, fmt.Errorf("create_achievement: %w", err)
	}
	if _, exists := h.catalog.FindByID(def.ID); exists {
		return achievement.Definition{}, shared.ErrAchievementAlreadyExists
	}

	if h.store != nil {
		if err := h.store.SaveDefinition(ctx, def); err != nil {
			return achievement.Definition{}, fmt.Errorf("create_achievement: save: %w", err)
		}
	}

	created := h.catalog.Create(def)
	h.log.Info("achievement created",
		logger.AchievementID(created.ID),
		logger.String("category", string(created.Category)),
		logger.Points(created.Points),
	)
	return created, nil
}

// Deactivate soft-deletes an achievement. Returns shared.ErrAchievementNotFound
// for unknown IDs. Deactivating an inactive achievement succeeds.
func (h *CatalogHandler) Deactivate(ctx context.Context, cmd DeactivateAchievementCommand) error {
	def, ok := h.catalog.FindByID(cmd.AchievementID)
	if !ok {
		return shared.ErrAchievementNotFound
	}

	if h.store != nil {
		err := h.store.SetActive(ctx, def.ID, false)
		if shared.IsNotFound(err) {
			// Built-in definitions are not in the store until first changed.
			err = h.store.SaveDefinition(ctx, withActive(def, false))
		}
		if err != nil {
			return fmt.Errorf("deactivate_achievement: save: %w", err)
		}
	}

	h.catalog.Deactivate(cmd.AchievementID)
	h.log.Info("achievement deactivated", logger.AchievementID(cmd.AchievementID))
	return nil
}

func withActive(def achievement.Definition, active bool) achievement.Definition {
	def.Active = active
	return def
}

// RestoreCatalog builds the catalog from base definitions and the entries
// saved in store. Saved entries replace base entries with the same ID in
// place; the rest are appended in creation order.
func RestoreCatalog(ctx context.Context, base []achievement.Definition, store achievement.CatalogStore) (*achievement.Catalog, error) {
	defs := append([]achievement.Definition(nil), base...)
	if store == nil {
		return achievement.NewCatalog(defs...), nil
	}

	saved, err := store.LoadDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore catalog: %w", err)
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		if _, ok := index[d.ID]; !ok {
			index[d.ID] = i
		}
	}
	for _, d := range saved {
		if i, ok := index[d.ID]; ok {
			defs[i] = d
			continue
		}
		index[d.ID] = len(defs)
		defs = append(defs, d)
	}

	return achievement.NewCatalog(defs...), nil
}
