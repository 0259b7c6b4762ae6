package catalog

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IDProvider issues identifiers for newly created rows.
type IDProvider interface {
	NewID() (string, error)
}

// Resolver implements the get-or-create pipeline for taggable entities and the
// set-difference reconciliation of entity links.
type Resolver struct {
	db         *gorm.DB
	idProvider IDProvider
}

// NewResolver constructs a Resolver over the given database handle.
func NewResolver(db *gorm.DB, idProvider IDProvider) *Resolver {
	return &Resolver{db: db, idProvider: idProvider}
}

func (r *Resolver) handle(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

// ResolveLabels maps labels to entity identifiers in the given category,
// creating canonical entities for labels with no case-insensitive match.
// Output order follows input order; empty-after-trim labels are skipped, and
// duplicate labels resolve to the same identifier positionally. The insert is
// conditional on the (category, name_key) unique index, so two concurrent
// resolutions of the same new label converge on a single row.
func (r *Resolver) ResolveLabels(ctx context.Context, tx *gorm.DB, category Category, labels []Label) ([]string, error) {
	db := r.handle(tx).WithContext(ctx)

	resolved := make([]string, 0, len(labels))
	seen := make(map[string]string, len(labels))

	for _, label := range labels {
		text := strings.TrimSpace(label.Text)
		if text == "" {
			continue
		}
		key := NameKey(text)
		if entityID, ok := seen[key]; ok {
			resolved = append(resolved, entityID)
			continue
		}

		var existing TaggableEntity
		err := db.
			Where("category = ? AND name_key = ?", string(category), key).
			Take(&existing).Error
		if err == nil {
			seen[key] = existing.EntityID
			resolved = append(resolved, existing.EntityID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		entityID, err := r.idProvider.NewID()
		if err != nil {
			return nil, err
		}
		entity := TaggableEntity{
			EntityID: entityID,
			Category: string(category),
			Name:     text,
			NameKey:  key,
		}
		result := db.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "category"}, {Name: "name_key"}},
				DoNothing: true,
			}).
			Create(&entity)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			// Lost the insert race; the winning row is canonical.
			if err := db.
				Where("category = ? AND name_key = ?", string(category), key).
				Take(&entity).Error; err != nil {
				return nil, err
			}
		}

		seen[key] = entity.EntityID
		resolved = append(resolved, entity.EntityID)
	}

	return resolved, nil
}

// LinkEntities associates the owner with each entity identifier, skipping
// pairs that are already linked.
func (r *Resolver) LinkEntities(ctx context.Context, tx *gorm.DB, ownerType OwnerType, ownerID string, entityIDs []string) error {
	if len(entityIDs) == 0 {
		return nil
	}
	db := r.handle(tx).WithContext(ctx)

	links := make([]EntityLink, 0, len(entityIDs))
	added := make(map[string]struct{}, len(entityIDs))
	for _, entityID := range entityIDs {
		if _, ok := added[entityID]; ok {
			continue
		}
		added[entityID] = struct{}{}
		links = append(links, EntityLink{
			OwnerType: string(ownerType),
			OwnerID:   ownerID,
			EntityID:  entityID,
		})
	}

	return db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
}

// ReconcileLinks replaces the owner's link set within one category by applying
// only the difference from its current set: links outside the target set are
// deleted, missing links are inserted, and untouched links keep their original
// rows. Applying the same target set twice performs zero writes the second time.
func (r *Resolver) ReconcileLinks(ctx context.Context, tx *gorm.DB, ownerType OwnerType, ownerID string, category Category, targetIDs []string) error {
	db := r.handle(tx).WithContext(ctx)

	var current []string
	err := db.
		Model(&EntityLink{}).
		Joins("JOIN taggable_entities ON taggable_entities.entity_id = entity_links.entity_id").
		Where("entity_links.owner_type = ? AND entity_links.owner_id = ? AND taggable_entities.category = ?",
			string(ownerType), ownerID, string(category)).
		Pluck("entity_links.entity_id", &current).Error
	if err != nil {
		return err
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, entityID := range current {
		currentSet[entityID] = struct{}{}
	}
	targetSet := make(map[string]struct{}, len(targetIDs))
	for _, entityID := range targetIDs {
		targetSet[entityID] = struct{}{}
	}

	toDelete := make([]string, 0)
	for _, entityID := range current {
		if _, ok := targetSet[entityID]; !ok {
			toDelete = append(toDelete, entityID)
		}
	}
	toInsert := make([]string, 0)
	for _, entityID := range targetIDs {
		if _, ok := currentSet[entityID]; !ok {
			toInsert = append(toInsert, entityID)
			currentSet[entityID] = struct{}{}
		}
	}

	if len(toDelete) > 0 {
		if err := db.
			Where("owner_type = ? AND owner_id = ? AND entity_id IN ?", string(ownerType), ownerID, toDelete).
			Delete(&EntityLink{}).Error; err != nil {
			return err
		}
	}

	return r.LinkEntities(ctx, tx, ownerType, ownerID, toInsert)
}

// RemoveLinks deletes every link held by the owner.
func (r *Resolver) RemoveLinks(ctx context.Context, tx *gorm.DB, ownerType OwnerType, ownerID string) error {
	return r.handle(tx).WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", string(ownerType), ownerID).
		Delete(&EntityLink{}).Error
}

// EntityNames returns the owner's linked entity names grouped by category.
func (r *Resolver) EntityNames(ctx context.Context, tx *gorm.DB, ownerType OwnerType, ownerID string) (map[Category][]string, error) {
	db := r.handle(tx).WithContext(ctx)

	var entities []TaggableEntity
	err := db.
		Model(&TaggableEntity{}).
		Joins("JOIN entity_links ON entity_links.entity_id = taggable_entities.entity_id").
		Where("entity_links.owner_type = ? AND entity_links.owner_id = ?", string(ownerType), ownerID).
		Order("taggable_entities.name_key ASC").
		Find(&entities).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[Category][]string)
	for _, entity := range entities {
		category := Category(entity.Category)
		grouped[category] = append(grouped[category], entity.Name)
	}
	return grouped, nil
}
