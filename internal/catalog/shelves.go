package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ShelfInput carries the editable fields of a shelf plus its tag labels.
type ShelfInput struct {
	Name        string
	Description string
	IsPrivate   bool
	Tags        []Label
}

// ShelfView is a shelf together with its resolved tag names.
type ShelfView struct {
	Shelf Shelf
	Tags  []string
}

// CreateShelf stores a new shelf for the owner, resolving and linking its tags.
func (s *Service) CreateShelf(ctx context.Context, ownerID string, input ShelfInput) (ShelfView, error) {
	name := strings.TrimSpace(input.Name)
	if ownerID == "" || name == "" {
		return ShelfView{}, newServiceError(opCreateShelf, "invalid_input", ErrInvalidInput)
	}

	shelfID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateShelf, "id_generation_failed", err)
		return ShelfView{}, newServiceError(opCreateShelf, "id_generation_failed", err)
	}

	shelf := Shelf{
		ShelfID:     shelfID,
		OwnerID:     ownerID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsPrivate:   input.IsPrivate,
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&shelf).Error; err != nil {
			return newServiceError(opCreateShelf, "shelf_insert_failed", err)
		}
		entityIDs, err := s.resolver.ResolveLabels(ctx, tx, CategoryTag, input.Tags)
		if err != nil {
			return newServiceError(opCreateShelf, "resolve_labels_failed", err)
		}
		if err := s.resolver.LinkEntities(ctx, tx, OwnerTypeShelf, shelfID, entityIDs); err != nil {
			return newServiceError(opCreateShelf, "link_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opCreateShelf, "transaction_failed", txErr, zap.String("owner_id", ownerID))
		return ShelfView{}, txErr
	}

	return s.GetShelf(ctx, ownerID, shelfID)
}

// GetShelf loads a shelf with its tag names. Private shelves are visible only
// to their owner.
func (s *Service) GetShelf(ctx context.Context, callerID, shelfID string) (ShelfView, error) {
	var shelf Shelf
	err := s.db.WithContext(ctx).
		Where("shelf_id = ?", shelfID).
		Take(&shelf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ShelfView{}, newServiceError(opGetShelf, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGetShelf, "query_failed", err, zap.String("shelf_id", shelfID))
		return ShelfView{}, newServiceError(opGetShelf, "query_failed", err)
	}
	if shelf.IsPrivate && shelf.OwnerID != callerID {
		return ShelfView{}, newServiceError(opGetShelf, "forbidden", ErrForbidden)
	}

	names, err := s.resolver.EntityNames(ctx, nil, OwnerTypeShelf, shelfID)
	if err != nil {
		s.logError(opGetShelf, "entity_names_failed", err, zap.String("shelf_id", shelfID))
		return ShelfView{}, newServiceError(opGetShelf, "entity_names_failed", err)
	}

	return ShelfView{Shelf: shelf, Tags: names[CategoryTag]}, nil
}

// ListShelves returns the owner's shelves, hiding private shelves from other
// callers.
func (s *Service) ListShelves(ctx context.Context, callerID, ownerID string) ([]ShelfView, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if callerID != ownerID {
		query = query.Where("is_private = ?", false)
	}

	var shelves []Shelf
	if err := query.Order("created_at DESC").Find(&shelves).Error; err != nil {
		s.logError(opListShelves, "query_failed", err, zap.String("owner_id", ownerID))
		return nil, newServiceError(opListShelves, "query_failed", err)
	}

	views := make([]ShelfView, 0, len(shelves))
	for _, shelf := range shelves {
		names, err := s.resolver.EntityNames(ctx, nil, OwnerTypeShelf, shelf.ShelfID)
		if err != nil {
			s.logError(opListShelves, "entity_names_failed", err, zap.String("shelf_id", shelf.ShelfID))
			return nil, newServiceError(opListShelves, "entity_names_failed", err)
		}
		views = append(views, ShelfView{Shelf: shelf, Tags: names[CategoryTag]})
	}
	return views, nil
}

// UpdateShelf replaces the shelf's metadata and reconciles its tag links.
func (s *Service) UpdateShelf(ctx context.Context, callerID, shelfID string, input ShelfInput) (ShelfView, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return ShelfView{}, newServiceError(opUpdateShelf, "invalid_input", ErrInvalidInput)
	}

	if err := s.requireShelfOwner(ctx, callerID, shelfID, opUpdateShelf); err != nil {
		return ShelfView{}, err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":        name,
			"description": strings.TrimSpace(input.Description),
			"is_private":  input.IsPrivate,
			"updated_at":  s.clock().UTC(),
		}
		if err := tx.Model(&Shelf{}).Where("shelf_id = ?", shelfID).Updates(updates).Error; err != nil {
			return newServiceError(opUpdateShelf, "shelf_update_failed", err)
		}
		entityIDs, err := s.resolver.ResolveLabels(ctx, tx, CategoryTag, input.Tags)
		if err != nil {
			return newServiceError(opUpdateShelf, "resolve_labels_failed", err)
		}
		if err := s.resolver.ReconcileLinks(ctx, tx, OwnerTypeShelf, shelfID, CategoryTag, entityIDs); err != nil {
			return newServiceError(opUpdateShelf, "reconcile_links_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opUpdateShelf, "transaction_failed", txErr, zap.String("shelf_id", shelfID))
		return ShelfView{}, txErr
	}

	return s.GetShelf(ctx, callerID, shelfID)
}

// DeleteShelf removes the shelf together with its links and memberships.
func (s *Service) DeleteShelf(ctx context.Context, callerID, shelfID string) error {
	if err := s.requireShelfOwner(ctx, callerID, shelfID, opDeleteShelf); err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolver.RemoveLinks(ctx, tx, OwnerTypeShelf, shelfID); err != nil {
			return newServiceError(opDeleteShelf, "link_delete_failed", err)
		}
		if err := tx.Where("shelf_id = ?", shelfID).Delete(&ShelfFic{}).Error; err != nil {
			return newServiceError(opDeleteShelf, "membership_delete_failed", err)
		}
		if err := tx.Where("shelf_id = ?", shelfID).Delete(&Shelf{}).Error; err != nil {
			return newServiceError(opDeleteShelf, "shelf_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opDeleteShelf, "transaction_failed", txErr, zap.String("shelf_id", shelfID))
		return txErr
	}
	return nil
}

// AddFic places a fic on the shelf. Adding the same fic twice is a no-op.
func (s *Service) AddFic(ctx context.Context, callerID, shelfID, ficID string) error {
	if err := s.requireShelfOwner(ctx, callerID, shelfID, opAddShelfFic); err != nil {
		return err
	}

	var fic Fic
	err := s.db.WithContext(ctx).
		Select("fic_id").
		Where("fic_id = ?", ficID).
		Take(&fic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(opAddShelfFic, "fic_not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opAddShelfFic, "fic_check_failed", err, zap.String("fic_id", ficID))
		return newServiceError(opAddShelfFic, "fic_check_failed", err)
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ShelfFic{ShelfID: shelfID, FicID: ficID}).Error
	if err != nil {
		s.logError(opAddShelfFic, "membership_insert_failed", err, zap.String("shelf_id", shelfID))
		return newServiceError(opAddShelfFic, "membership_insert_failed", err)
	}
	return nil
}

// RemoveFic drops a fic from the shelf if present.
func (s *Service) RemoveFic(ctx context.Context, callerID, shelfID, ficID string) error {
	if err := s.requireShelfOwner(ctx, callerID, shelfID, opDropShelfFic); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).
		Where("shelf_id = ? AND fic_id = ?", shelfID, ficID).
		Delete(&ShelfFic{}).Error
	if err != nil {
		s.logError(opDropShelfFic, "membership_delete_failed", err, zap.String("shelf_id", shelfID))
		return newServiceError(opDropShelfFic, "membership_delete_failed", err)
	}
	return nil
}

// ListShelfFics returns the fics on a shelf in the order they were added.
func (s *Service) ListShelfFics(ctx context.Context, callerID, shelfID string) ([]FicView, error) {
	if _, err := s.GetShelf(ctx, callerID, shelfID); err != nil {
		return nil, err
	}

	var fics []Fic
	err := s.db.WithContext(ctx).
		Model(&Fic{}).
		Joins("JOIN shelf_fics ON shelf_fics.fic_id = fics.fic_id").
		Where("shelf_fics.shelf_id = ?", shelfID).
		Order("shelf_fics.added_at ASC").
		Find(&fics).Error
	if err != nil {
		s.logError(opListShelfFic, "query_failed", err, zap.String("shelf_id", shelfID))
		return nil, newServiceError(opListShelfFic, "query_failed", err)
	}

	views := make([]FicView, 0, len(fics))
	for _, fic := range fics {
		view, err := s.ficView(ctx, fic)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) requireShelfOwner(ctx context.Context, callerID, shelfID, operation string) error {
	var shelf Shelf
	err := s.db.WithContext(ctx).
		Select("shelf_id", "owner_id").
		Where("shelf_id = ?", shelfID).
		Take(&shelf).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "owner_check_failed", err, zap.String("shelf_id", shelfID))
		return newServiceError(operation, "owner_check_failed", err)
	}
	if shelf.OwnerID != callerID {
		return newServiceError(operation, "forbidden", ErrForbidden)
	}
	return nil
}
