package readinglog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"gorm.io/gorm"
)

type sequentialIDProvider struct {
	prefix string
	next   int
}

func (p *sequentialIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("%s-%d", p.prefix, p.next), nil
}

func openTestDatabase(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&ReadingLog{}, &catalog.Fic{}, &catalog.TaggableEntity{}, &catalog.EntityLink{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, clock func() time.Time) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock,
		IDProvider: &sequentialIDProvider{prefix: "log"},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func TestCreateLogStoresRangesVerbatim(t *testing.T) {
	db := openTestDatabase(t, "readinglog-create")
	service := newTestService(t, db, time.Now)

	view, err := service.CreateLog(context.Background(), "user-1", LogInput{
		FicID:  "fic-1",
		Ranges: []string{"[2025-06-01,2025-06-05)", "garbage"},
		Notes:  "first read",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.LogID == "" {
		t.Fatalf("expected a log identifier")
	}
	if len(view.Ranges) != 2 {
		t.Fatalf("both range strings should be stored as given, got %v", view.Ranges)
	}
	if view.Notes != "first read" {
		t.Fatalf("unexpected notes: %q", view.Notes)
	}
}

func TestCreateLogRejectsMissingFic(t *testing.T) {
	db := openTestDatabase(t, "readinglog-create-invalid")
	service := newTestService(t, db, time.Now)

	_, err := service.CreateLog(context.Background(), "user-1", LogInput{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateLogReplacesRangesAndNotes(t *testing.T) {
	db := openTestDatabase(t, "readinglog-update")
	service := newTestService(t, db, time.Now)

	created, err := service.CreateLog(context.Background(), "user-1", LogInput{
		FicID:  "fic-1",
		Ranges: []string{"[2025-06-01,2025-06-05)"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := service.UpdateLog(context.Background(), "user-1", created.LogID,
		[]string{"[2025-06-01,2025-06-05)", "[2025-07-01,2025-07-03]"}, "reread")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Ranges) != 2 {
		t.Fatalf("expected two ranges after update, got %v", updated.Ranges)
	}
	if updated.Notes != "reread" {
		t.Fatalf("unexpected notes: %q", updated.Notes)
	}
}

func TestUpdateLogRejectsNonOwner(t *testing.T) {
	db := openTestDatabase(t, "readinglog-update-owner")
	service := newTestService(t, db, time.Now)

	created, err := service.CreateLog(context.Background(), "user-1", LogInput{FicID: "fic-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = service.UpdateLog(context.Background(), "user-2", created.LogID, nil, "")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeleteLogRemovesRecord(t *testing.T) {
	db := openTestDatabase(t, "readinglog-delete")
	service := newTestService(t, db, time.Now)

	created, err := service.CreateLog(context.Background(), "user-1", LogInput{FicID: "fic-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := service.DeleteLog(context.Background(), "user-1", created.LogID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = service.DeleteLog(context.Background(), "user-1", created.LogID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListLogsByFicFiltersAndOrders(t *testing.T) {
	db := openTestDatabase(t, "readinglog-list-fic")
	service := newTestService(t, db, time.Now)

	for _, ficID := range []string{"fic-1", "fic-2", "fic-1"} {
		if _, err := service.CreateLog(context.Background(), "user-1", LogInput{FicID: ficID}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	views, err := service.ListLogsByFic(context.Background(), "user-1", "fic-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two logs for fic-1, got %d", len(views))
	}
	for _, view := range views {
		if view.FicID != "fic-1" {
			t.Fatalf("unexpected fic in result: %q", view.FicID)
		}
	}
}
