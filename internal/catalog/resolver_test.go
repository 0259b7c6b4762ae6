package catalog

import (
	"context"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
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
	if err := db.AutoMigrate(&Fic{}, &Shelf{}, &ShelfFic{}, &TaggableEntity{}, &EntityLink{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func countEntities(t *testing.T, db *gorm.DB, category Category) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&TaggableEntity{}).Where("category = ?", string(category)).Count(&count).Error; err != nil {
		t.Fatalf("failed to count entities: %v", err)
	}
	return count
}

func linkedEntityIDs(t *testing.T, db *gorm.DB, ownerType OwnerType, ownerID string) map[string]struct{} {
	t.Helper()
	var ids []string
	err := db.Model(&EntityLink{}).
		Where("owner_type = ? AND owner_id = ?", string(ownerType), ownerID).
		Pluck("entity_id", &ids).Error
	if err != nil {
		t.Fatalf("failed to list links: %v", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestResolveLabelsCreatesAndReusesEntities(t *testing.T) {
	db := openTestDatabase(t, "resolver-reuse")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	first, err := resolver.ResolveLabels(context.Background(), nil, CategoryFandom, []Label{{Text: "Harry Potter"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one resolved id, got %v", first)
	}

	second, err := resolver.ResolveLabels(context.Background(), nil, CategoryFandom, []Label{{Text: "harry potter"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second[0] != first[0] {
		t.Fatalf("case-variant label should resolve to the same entity: %q vs %q", second[0], first[0])
	}
	if count := countEntities(t, db, CategoryFandom); count != 1 {
		t.Fatalf("expected a single entity row, got %d", count)
	}
}

func TestResolveLabelsTrimsAndSkipsEmpty(t *testing.T) {
	db := openTestDatabase(t, "resolver-trim")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	resolved, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{
		{Text: "  fluff  "},
		{Text: "   "},
		{Text: "Fluff"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 2 {
		t.Fatalf("blank label should be skipped, got %v", resolved)
	}
	if resolved[0] != resolved[1] {
		t.Fatalf("trimmed duplicates should resolve identically: %v", resolved)
	}
	if count := countEntities(t, db, CategoryTag); count != 1 {
		t.Fatalf("expected a single entity row, got %d", count)
	}

	var entity TaggableEntity
	if err := db.Where("entity_id = ?", resolved[0]).Take(&entity).Error; err != nil {
		t.Fatalf("failed to load entity: %v", err)
	}
	if entity.Name != "fluff" {
		t.Fatalf("stored name should be the trimmed first spelling, got %q", entity.Name)
	}
}

func TestResolveLabelsIsolatesCategories(t *testing.T) {
	db := openTestDatabase(t, "resolver-categories")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	asFandom, err := resolver.ResolveLabels(context.Background(), nil, CategoryFandom, []Label{{Text: "Naruto"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	asCharacter, err := resolver.ResolveLabels(context.Background(), nil, CategoryCharacter, []Label{{Text: "Naruto"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if asFandom[0] == asCharacter[0] {
		t.Fatalf("the same name in different categories must be distinct entities")
	}
}

func TestResolveLabelsPreservesInputOrder(t *testing.T) {
	db := openTestDatabase(t, "resolver-order")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	seeded, err := resolver.ResolveLabels(context.Background(), nil, CategoryCharacter, []Label{{Text: "Beta"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := resolver.ResolveLabels(context.Background(), nil, CategoryCharacter, []Label{
		{Text: "Alpha"},
		{Text: "beta"},
		{Text: "Gamma"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected three resolutions, got %v", resolved)
	}
	if resolved[1] != seeded[0] {
		t.Fatalf("existing entity should appear at its input position")
	}
	if resolved[0] == resolved[2] {
		t.Fatalf("distinct labels must resolve to distinct entities")
	}
}

func TestLinkEntitiesIgnoresDuplicates(t *testing.T) {
	db := openTestDatabase(t, "resolver-link")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	ids, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{{Text: "angst"}, {Text: "fluff"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := resolver.LinkEntities(context.Background(), nil, OwnerTypeFic, "fic-1", ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.LinkEntities(context.Background(), nil, OwnerTypeFic, "fic-1", ids); err != nil {
		t.Fatalf("re-linking the same set must not fail: %v", err)
	}

	links := linkedEntityIDs(t, db, OwnerTypeFic, "fic-1")
	if len(links) != 2 {
		t.Fatalf("expected two links, got %d", len(links))
	}
}

func TestReconcileLinksAppliesSetDifference(t *testing.T) {
	db := openTestDatabase(t, "resolver-reconcile")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	initial, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{{Text: "A"}, {Text: "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.LinkEntities(context.Background(), nil, OwnerTypeFic, "fic-1", initial); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{{Text: "B"}, {Text: "C"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.ReconcileLinks(context.Background(), nil, OwnerTypeFic, "fic-1", CategoryTag, target); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	links := linkedEntityIDs(t, db, OwnerTypeFic, "fic-1")
	if len(links) != 2 {
		t.Fatalf("expected exactly B and C linked, got %d links", len(links))
	}
	if _, ok := links[initial[0]]; ok {
		t.Fatalf("A should have been unlinked")
	}
	if _, ok := links[target[0]]; !ok {
		t.Fatalf("B should remain linked")
	}
	if _, ok := links[target[1]]; !ok {
		t.Fatalf("C should have been linked")
	}
}

func TestReconcileLinksIsIdempotent(t *testing.T) {
	db := openTestDatabase(t, "resolver-idempotent")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	ids, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{{Text: "A"}, {Text: "B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.ReconcileLinks(context.Background(), nil, OwnerTypeFic, "fic-1", CategoryTag, ids); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := linkedEntityIDs(t, db, OwnerTypeFic, "fic-1")

	if err := resolver.ReconcileLinks(context.Background(), nil, OwnerTypeFic, "fic-1", CategoryTag, ids); err != nil {
		t.Fatalf("second reconciliation must not fail: %v", err)
	}
	after := linkedEntityIDs(t, db, OwnerTypeFic, "fic-1")
	if len(before) != len(after) {
		t.Fatalf("link set changed on idempotent reconciliation: %v vs %v", before, after)
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			t.Fatalf("link %q lost on idempotent reconciliation", id)
		}
	}
}

func TestReconcileLinksScopedToCategory(t *testing.T) {
	db := openTestDatabase(t, "resolver-scope")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	fandoms, err := resolver.ResolveLabels(context.Background(), nil, CategoryFandom, []Label{{Text: "Canon"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tags, err := resolver.ResolveLabels(context.Background(), nil, CategoryTag, []Label{{Text: "fluff"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.LinkEntities(context.Background(), nil, OwnerTypeFic, "fic-1", append(fandoms, tags...)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Clearing the tag set must leave the fandom link untouched.
	if err := resolver.ReconcileLinks(context.Background(), nil, OwnerTypeFic, "fic-1", CategoryTag, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	links := linkedEntityIDs(t, db, OwnerTypeFic, "fic-1")
	if _, ok := links[fandoms[0]]; !ok {
		t.Fatalf("fandom link should survive tag reconciliation")
	}
	if _, ok := links[tags[0]]; ok {
		t.Fatalf("tag link should have been removed")
	}
}

func TestEntityNamesGroupsByCategory(t *testing.T) {
	db := openTestDatabase(t, "resolver-names")
	resolver := NewResolver(db, &sequentialIDProvider{prefix: "ent"})

	fandoms, err := resolver.ResolveLabels(context.Background(), nil, CategoryFandom, []Label{{Text: "Zeta"}, {Text: "Alpha"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := resolver.LinkEntities(context.Background(), nil, OwnerTypeFic, "fic-1", fandoms); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names, err := resolver.EntityNames(context.Background(), nil, OwnerTypeFic, "fic-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := names[CategoryFandom]
	if len(got) != 2 || got[0] != "Alpha" || got[1] != "Zeta" {
		t.Fatalf("expected names sorted by key, got %v", got)
	}
}
