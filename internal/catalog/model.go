package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category enumerates the taggable entity kinds.
type Category string

const (
	// CategoryFandom groups fics by source canon.
	CategoryFandom Category = "fandom"
	// CategoryRelationship groups fics by featured pairing.
	CategoryRelationship Category = "relationship"
	// CategoryCharacter groups fics by featured character.
	CategoryCharacter Category = "character"
	// CategoryTag is the freeform tag kind used by fics and shelves.
	CategoryTag Category = "tag"
)

// ErrInvalidCategory indicates an unknown taggable category.
var ErrInvalidCategory = errors.New("catalog: invalid category")

// ParseCategory validates raw input and returns a Category.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case CategoryFandom:
		return CategoryFandom, nil
	case CategoryRelationship:
		return CategoryRelationship, nil
	case CategoryCharacter:
		return CategoryCharacter, nil
	case CategoryTag:
		return CategoryTag, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
	}
}

// OwnerType enumerates the record kinds that can hold entity links.
type OwnerType string

const (
	// OwnerTypeFic marks links held by a fic.
	OwnerTypeFic OwnerType = "fic"
	// OwnerTypeShelf marks links held by a shelf.
	OwnerTypeShelf OwnerType = "shelf"
)

// TaggableEntity is a shared, canonical name within one category. Names are
// unique per category under case-insensitive comparison via name_key.
type TaggableEntity struct {
	EntityID  string    `gorm:"column:entity_id;primaryKey;size:190;not null"`
	Category  string    `gorm:"column:category;size:32;not null;uniqueIndex:idx_entities_category_name_key,priority:1"`
	Name      string    `gorm:"column:name;size:320;not null"`
	NameKey   string    `gorm:"column:name_key;size:320;not null;uniqueIndex:idx_entities_category_name_key,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (TaggableEntity) TableName() string {
	return "taggable_entities"
}

// EntityLink associates an owning record with a taggable entity. The composite
// primary key rules out duplicate links for the same owner+entity pair.
type EntityLink struct {
	OwnerType string    `gorm:"column:owner_type;primaryKey;size:16;not null"`
	OwnerID   string    `gorm:"column:owner_id;primaryKey;size:190;not null"`
	EntityID  string    `gorm:"column:entity_id;primaryKey;size:190;not null;index:idx_links_entity"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (EntityLink) TableName() string {
	return "entity_links"
}

// Fic is a fan-fiction work: metadata plus an external link, never content.
type Fic struct {
	FicID     string    `gorm:"column:fic_id;primaryKey;size:190;not null"`
	CreatorID string    `gorm:"column:creator_id;size:190;not null;index:idx_fics_creator"`
	Title     string    `gorm:"column:title;size:512;not null"`
	Author    string    `gorm:"column:author;size:320;not null;default:''"`
	URL       string    `gorm:"column:url;size:1024;not null;default:''"`
	Summary   string    `gorm:"column:summary;type:text;not null;default:''"`
	Words     int64     `gorm:"column:words;not null;default:0"`
	Rating    string    `gorm:"column:rating;size:32;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Fic) TableName() string {
	return "fics"
}

// Shelf is a user-curated, optionally private, named collection of fics.
type Shelf struct {
	ShelfID     string    `gorm:"column:shelf_id;primaryKey;size:190;not null"`
	OwnerID     string    `gorm:"column:owner_id;size:190;not null;index:idx_shelves_owner"`
	Name        string    `gorm:"column:name;size:320;not null"`
	Description string    `gorm:"column:description;type:text;not null;default:''"`
	IsPrivate   bool      `gorm:"column:is_private;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Shelf) TableName() string {
	return "shelves"
}

// ShelfFic records membership of a fic on a shelf.
type ShelfFic struct {
	ShelfID string    `gorm:"column:shelf_id;primaryKey;size:190;not null"`
	FicID   string    `gorm:"column:fic_id;primaryKey;size:190;not null;index:idx_shelf_fics_fic"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ShelfFic) TableName() string {
	return "shelf_fics"
}

// Label is a user-supplied reference to a taggable entity: either free text or
// a previously-resolved entry carrying its identifier alongside display text.
type Label struct {
	EntityID string
	Text     string
}

// NameKey normalizes an entity name for case-insensitive matching.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
