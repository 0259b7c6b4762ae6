package export

import (
	"context"
	"fmt"
	"time"

	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"github.com/papermoth/ficshelf/backend/internal/readinglog"
	"github.com/papermoth/ficshelf/backend/internal/social"
	"github.com/papermoth/ficshelf/backend/internal/users"
)

// ServiceConfig describes the services the exporter draws from.
type ServiceConfig struct {
	Users       *users.Service
	Catalog     *catalog.Service
	ReadingLogs *readinglog.Service
	Social      *social.Service
	Clock       func() time.Time
}

// Service assembles a user's data into one portable bundle.
type Service struct {
	users       *users.Service
	catalog     *catalog.Service
	readingLogs *readinglog.Service
	social      *social.Service
	now         func() time.Time
}

// NewService constructs the export service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil || cfg.Catalog == nil || cfg.ReadingLogs == nil || cfg.Social == nil {
		return nil, fmt.Errorf("export: all backing services are required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		users:       cfg.Users,
		catalog:     cfg.Catalog,
		readingLogs: cfg.ReadingLogs,
		social:      cfg.Social,
		now:         clock,
	}, nil
}

// FicRecord is one exported fic with its entity names.
type FicRecord struct {
	FicID         string   `json:"fic_id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	URL           string   `json:"url"`
	Summary       string   `json:"summary"`
	Words         int64    `json:"words"`
	Rating        string   `json:"rating"`
	Fandoms       []string `json:"fandoms"`
	Relationships []string `json:"relationships"`
	Characters    []string `json:"characters"`
	Tags          []string `json:"tags"`
}

// ShelfRecord is one exported shelf with its member fic identifiers.
type ShelfRecord struct {
	ShelfID     string   `json:"shelf_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsPrivate   bool     `json:"is_private"`
	Tags        []string `json:"tags"`
	FicIDs      []string `json:"fic_ids"`
}

// LogRecord is one exported reading log.
type LogRecord struct {
	LogID  string   `json:"log_id"`
	FicID  string   `json:"fic_id"`
	Ranges []string `json:"ranges"`
	Notes  string   `json:"notes"`
}

// PostRecord is one exported social update.
type PostRecord struct {
	PostID    string    `json:"post_id"`
	FicID     string    `json:"fic_id,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Bundle is the full data export for one user.
type Bundle struct {
	ExportedAt  time.Time     `json:"exported_at"`
	UserID      string        `json:"user_id"`
	Email       string        `json:"email"`
	DisplayName string        `json:"display_name"`
	Bio         string        `json:"bio"`
	Fics        []FicRecord   `json:"fics"`
	Shelves     []ShelfRecord `json:"shelves"`
	ReadingLogs []LogRecord   `json:"reading_logs"`
	Posts       []PostRecord  `json:"posts"`
}

// BuildBundle gathers everything the user owns into one document.
func (s *Service) BuildBundle(ctx context.Context, userID string) (Bundle, error) {
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}

	bundle := Bundle{
		ExportedAt:  s.now().UTC(),
		UserID:      profile.UserID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		Fics:        []FicRecord{},
		Shelves:     []ShelfRecord{},
		ReadingLogs: []LogRecord{},
		Posts:       []PostRecord{},
	}

	fics, err := s.catalog.ListFics(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	for _, view := range fics {
		bundle.Fics = append(bundle.Fics, FicRecord{
			FicID:         view.Fic.FicID,
			Title:         view.Fic.Title,
			Author:        view.Fic.Author,
			URL:           view.Fic.URL,
			Summary:       view.Fic.Summary,
			Words:         view.Fic.Words,
			Rating:        view.Fic.Rating,
			Fandoms:       emptyIfNil(view.Fandoms),
			Relationships: emptyIfNil(view.Relationships),
			Characters:    emptyIfNil(view.Characters),
			Tags:          emptyIfNil(view.Tags),
		})
	}

	shelves, err := s.catalog.ListShelves(ctx, userID, userID)
	if err != nil {
		return Bundle{}, err
	}
	for _, view := range shelves {
		members, err := s.catalog.ListShelfFics(ctx, userID, view.Shelf.ShelfID)
		if err != nil {
			return Bundle{}, err
		}
		ficIDs := make([]string, 0, len(members))
		for _, member := range members {
			ficIDs = append(ficIDs, member.Fic.FicID)
		}
		bundle.Shelves = append(bundle.Shelves, ShelfRecord{
			ShelfID:     view.Shelf.ShelfID,
			Name:        view.Shelf.Name,
			Description: view.Shelf.Description,
			IsPrivate:   view.Shelf.IsPrivate,
			Tags:        emptyIfNil(view.Tags),
			FicIDs:      ficIDs,
		})
	}

	logs, err := s.readingLogs.ListLogs(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	for _, view := range logs {
		bundle.ReadingLogs = append(bundle.ReadingLogs, LogRecord{
			LogID:  view.LogID,
			FicID:  view.FicID,
			Ranges: view.Ranges,
			Notes:  view.Notes,
		})
	}

	posts, err := s.social.ListPostsByUser(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}
	for _, post := range posts {
		bundle.Posts = append(bundle.Posts, PostRecord{
			PostID:    post.PostID,
			FicID:     post.FicID,
			Body:      post.Body,
			CreatedAt: post.CreatedAt,
		})
	}

	return bundle, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
