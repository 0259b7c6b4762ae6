package catalog

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FicInput carries the editable fields of a fic plus its entity labels.
type FicInput struct {
	Title         string
	Author        string
	URL           string
	Summary       string
	Words         int64
	Rating        string
	Fandoms       []Label
	Relationships []Label
	Characters    []Label
	Tags          []Label
}

// FicView is a fic together with its resolved entity names.
type FicView struct {
	Fic           Fic
	Fandoms       []string
	Relationships []string
	Characters    []string
	Tags          []string
}

func (input FicInput) labelled() map[Category][]Label {
	return map[Category][]Label{
		CategoryFandom:       input.Fandoms,
		CategoryRelationship: input.Relationships,
		CategoryCharacter:    input.Characters,
		CategoryTag:          input.Tags,
	}
}

// ficCategories fixes the traversal order for per-category label handling.
var ficCategories = []Category{CategoryFandom, CategoryRelationship, CategoryCharacter, CategoryTag}

// CreateFic stores a new fic for the creator, resolving every label to a
// canonical entity and linking the fic to the resolved set. The whole sequence
// runs in one transaction.
func (s *Service) CreateFic(ctx context.Context, creatorID string, input FicInput) (FicView, error) {
	title := strings.TrimSpace(input.Title)
	if creatorID == "" || title == "" {
		return FicView{}, newServiceError(opCreateFic, "invalid_input", ErrInvalidInput)
	}

	ficID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateFic, "id_generation_failed", err)
		return FicView{}, newServiceError(opCreateFic, "id_generation_failed", err)
	}

	fic := Fic{
		FicID:     ficID,
		CreatorID: creatorID,
		Title:     title,
		Author:    strings.TrimSpace(input.Author),
		URL:       strings.TrimSpace(input.URL),
		Summary:   strings.TrimSpace(input.Summary),
		Words:     input.Words,
		Rating:    strings.TrimSpace(input.Rating),
	}

	labelled := input.labelled()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&fic).Error; err != nil {
			return newServiceError(opCreateFic, "fic_insert_failed", err)
		}
		for _, category := range ficCategories {
			entityIDs, err := s.resolver.ResolveLabels(ctx, tx, category, labelled[category])
			if err != nil {
				return newServiceError(opCreateFic, "resolve_labels_failed", err)
			}
			if err := s.resolver.LinkEntities(ctx, tx, OwnerTypeFic, ficID, entityIDs); err != nil {
				return newServiceError(opCreateFic, "link_insert_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opCreateFic, "transaction_failed", txErr, zap.String("creator_id", creatorID))
		return FicView{}, txErr
	}

	return s.GetFic(ctx, ficID)
}

// GetFic loads a fic with its resolved entity names.
func (s *Service) GetFic(ctx context.Context, ficID string) (FicView, error) {
	var fic Fic
	err := s.db.WithContext(ctx).
		Where("fic_id = ?", ficID).
		Take(&fic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FicView{}, newServiceError(opGetFic, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(opGetFic, "query_failed", err, zap.String("fic_id", ficID))
		return FicView{}, newServiceError(opGetFic, "query_failed", err)
	}

	return s.ficView(ctx, fic)
}

// ListFics returns every fic created by the given user, newest first.
func (s *Service) ListFics(ctx context.Context, creatorID string) ([]FicView, error) {
	var fics []Fic
	err := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&fics).Error
	if err != nil {
		s.logError(opListFics, "query_failed", err, zap.String("creator_id", creatorID))
		return nil, newServiceError(opListFics, "query_failed", err)
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

// UpdateFic replaces the fic's metadata and reconciles its entity links per
// category so that untouched links keep their original rows.
func (s *Service) UpdateFic(ctx context.Context, callerID, ficID string, input FicInput) (FicView, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return FicView{}, newServiceError(opUpdateFic, "invalid_input", ErrInvalidInput)
	}

	if err := s.requireFicOwner(ctx, callerID, ficID, opUpdateFic); err != nil {
		return FicView{}, err
	}

	labelled := input.labelled()
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"title":      title,
			"author":     strings.TrimSpace(input.Author),
			"url":        strings.TrimSpace(input.URL),
			"summary":    strings.TrimSpace(input.Summary),
			"words":      input.Words,
			"rating":     strings.TrimSpace(input.Rating),
			"updated_at": s.clock().UTC(),
		}
		if err := tx.Model(&Fic{}).Where("fic_id = ?", ficID).Updates(updates).Error; err != nil {
			return newServiceError(opUpdateFic, "fic_update_failed", err)
		}
		for _, category := range ficCategories {
			entityIDs, err := s.resolver.ResolveLabels(ctx, tx, category, labelled[category])
			if err != nil {
				return newServiceError(opUpdateFic, "resolve_labels_failed", err)
			}
			if err := s.resolver.ReconcileLinks(ctx, tx, OwnerTypeFic, ficID, category, entityIDs); err != nil {
				return newServiceError(opUpdateFic, "reconcile_links_failed", err)
			}
		}
		return nil
	})
	if txErr != nil {
		s.logError(opUpdateFic, "transaction_failed", txErr, zap.String("fic_id", ficID))
		return FicView{}, txErr
	}

	return s.GetFic(ctx, ficID)
}

// DeleteFic removes the fic together with its links and shelf memberships.
func (s *Service) DeleteFic(ctx context.Context, callerID, ficID string) error {
	if err := s.requireFicOwner(ctx, callerID, ficID, opDeleteFic); err != nil {
		return err
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resolver.RemoveLinks(ctx, tx, OwnerTypeFic, ficID); err != nil {
			return newServiceError(opDeleteFic, "link_delete_failed", err)
		}
		if err := tx.Where("fic_id = ?", ficID).Delete(&ShelfFic{}).Error; err != nil {
			return newServiceError(opDeleteFic, "membership_delete_failed", err)
		}
		if err := tx.Where("fic_id = ?", ficID).Delete(&Fic{}).Error; err != nil {
			return newServiceError(opDeleteFic, "fic_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opDeleteFic, "transaction_failed", txErr, zap.String("fic_id", ficID))
		return txErr
	}
	return nil
}

func (s *Service) requireFicOwner(ctx context.Context, callerID, ficID, operation string) error {
	var fic Fic
	err := s.db.WithContext(ctx).
		Select("fic_id", "creator_id").
		Where("fic_id = ?", ficID).
		Take(&fic).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newServiceError(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "owner_check_failed", err, zap.String("fic_id", ficID))
		return newServiceError(operation, "owner_check_failed", err)
	}
	if fic.CreatorID != callerID {
		return newServiceError(operation, "forbidden", ErrForbidden)
	}
	return nil
}

func (s *Service) ficView(ctx context.Context, fic Fic) (FicView, error) {
	names, err := s.resolver.EntityNames(ctx, nil, OwnerTypeFic, fic.FicID)
	if err != nil {
		s.logError(opGetFic, "entity_names_failed", err, zap.String("fic_id", fic.FicID))
		return FicView{}, newServiceError(opGetFic, "entity_names_failed", err)
	}
	return FicView{
		Fic:           fic,
		Fandoms:       names[CategoryFandom],
		Relationships: names[CategoryRelationship],
		Characters:    names[CategoryCharacter],
		Tags:          names[CategoryTag],
	}, nil
}
