package readinglog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates the requested reading log does not exist.
	ErrNotFound = errors.New("readinglog: log not found")
	// ErrForbidden indicates the caller does not own the log.
	ErrForbidden = errors.New("readinglog: not the owner")
	// ErrInvalidInput indicates unusable input for a create or update.
	ErrInvalidInput = errors.New("readinglog: invalid input")
)

const (
	opServiceNew    = "readinglog.service.new"
	opCreateLog     = "readinglog.create_log"
	opUpdateLog     = "readinglog.update_log"
	opDeleteLog     = "readinglog.delete_log"
	opListLogs      = "readinglog.list_logs"
	opGetLogByFic   = "readinglog.get_log_by_fic"
	opMonthlyReport = "readinglog.monthly_report"
)

// ServiceError wraps failures with a dotted operation code for diagnostics.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues identifiers for new rows.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the reading-log service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns reading logs and the monthly aggregation over them.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the reading-log service.
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
	}, nil
}

// LogInput carries the editable fields of a reading log.
type LogInput struct {
	FicID  string
	Ranges []string
	Notes  string
}

// CreateLog stores a new reading log for the user. Range strings are stored as
// given; malformed entries are excluded later, at aggregation time.
func (s *Service) CreateLog(ctx context.Context, userID string, input LogInput) (LogView, error) {
	if userID == "" || input.FicID == "" {
		return LogView{}, newServiceError(opCreateLog, "invalid_input", ErrInvalidInput)
	}

	logID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreateLog, "id_generation_failed", err)
		return LogView{}, newServiceError(opCreateLog, "id_generation_failed", err)
	}
	rangesJSON, err := encodeRanges(input.Ranges)
	if err != nil {
		return LogView{}, newServiceError(opCreateLog, "range_encode_failed", err)
	}

	record := ReadingLog{
		LogID:      logID,
		UserID:     userID,
		FicID:      input.FicID,
		RangesJSON: rangesJSON,
		Notes:      input.Notes,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(opCreateLog, "insert_failed", err, zap.String("user_id", userID))
		return LogView{}, newServiceError(opCreateLog, "insert_failed", err)
	}

	return record.view(), nil
}

// UpdateLog replaces the ranges and notes of a log the user owns.
func (s *Service) UpdateLog(ctx context.Context, userID, logID string, ranges []string, notes string) (LogView, error) {
	record, err := s.requireOwnedLog(ctx, userID, logID, opUpdateLog)
	if err != nil {
		return LogView{}, err
	}

	rangesJSON, err := encodeRanges(ranges)
	if err != nil {
		return LogView{}, newServiceError(opUpdateLog, "range_encode_failed", err)
	}

	updates := map[string]interface{}{
		"ranges_json": rangesJSON,
		"notes":       notes,
		"updated_at":  s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).
		Model(&ReadingLog{}).
		Where("log_id = ?", logID).
		Updates(updates).Error; err != nil {
		s.logError(opUpdateLog, "update_failed", err, zap.String("log_id", logID))
		return LogView{}, newServiceError(opUpdateLog, "update_failed", err)
	}

	record.RangesJSON = rangesJSON
	record.Notes = notes
	return record.view(), nil
}

// DeleteLog removes a log the user owns.
func (s *Service) DeleteLog(ctx context.Context, userID, logID string) error {
	if _, err := s.requireOwnedLog(ctx, userID, logID, opDeleteLog); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).
		Where("log_id = ?", logID).
		Delete(&ReadingLog{}).Error; err != nil {
		s.logError(opDeleteLog, "delete_failed", err, zap.String("log_id", logID))
		return newServiceError(opDeleteLog, "delete_failed", err)
	}
	return nil
}

// ListLogs returns every reading log for the user, newest first.
func (s *Service) ListLogs(ctx context.Context, userID string) ([]LogView, error) {
	var records []ReadingLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&records).Error; err != nil {
		s.logError(opListLogs, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opListLogs, "query_failed", err)
	}

	views := make([]LogView, 0, len(records))
	for _, record := range records {
		views = append(views, record.view())
	}
	return views, nil
}

// ListLogsByFic returns the user's logs for one fic.
func (s *Service) ListLogsByFic(ctx context.Context, userID, ficID string) ([]LogView, error) {
	var records []ReadingLog
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND fic_id = ?", userID, ficID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		s.logError(opGetLogByFic, "query_failed", err, zap.String("user_id", userID))
		return nil, newServiceError(opGetLogByFic, "query_failed", err)
	}

	views := make([]LogView, 0, len(records))
	for _, record := range records {
		views = append(views, record.view())
	}
	return views, nil
}

func (s *Service) requireOwnedLog(ctx context.Context, userID, logID, operation string) (ReadingLog, error) {
	var record ReadingLog
	err := s.db.WithContext(ctx).
		Where("log_id = ?", logID).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ReadingLog{}, newServiceError(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "owner_check_failed", err, zap.String("log_id", logID))
		return ReadingLog{}, newServiceError(operation, "owner_check_failed", err)
	}
	if record.UserID != userID {
		return ReadingLog{}, newServiceError(operation, "forbidden", ErrForbidden)
	}
	return record, nil
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
	s.logger.Error("reading log service error", attrs...)
}
