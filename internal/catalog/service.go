package catalog

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew   = "catalog.service.new"
	opCreateFic    = "catalog.create_fic"
	opGetFic       = "catalog.get_fic"
	opListFics     = "catalog.list_fics"
	opUpdateFic    = "catalog.update_fic"
	opDeleteFic    = "catalog.delete_fic"
	opCreateShelf  = "catalog.create_shelf"
	opGetShelf     = "catalog.get_shelf"
	opListShelves  = "catalog.list_shelves"
	opUpdateShelf  = "catalog.update_shelf"
	opDeleteShelf  = "catalog.delete_shelf"
	opAddShelfFic  = "catalog.add_shelf_fic"
	opDropShelfFic = "catalog.remove_shelf_fic"
	opListShelfFic = "catalog.list_shelf_fics"
)

// ServiceConfig describes the dependencies of the catalog service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns fics, shelves, and their taggable-entity links.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
	resolver   *Resolver
}

// NewService constructs the catalog service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		resolver:   NewResolver(cfg.Database, cfg.IDProvider),
	}, nil
}

// Resolver exposes the entity-resolution pipeline backing this service.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("catalog service error", attrs...)
}
