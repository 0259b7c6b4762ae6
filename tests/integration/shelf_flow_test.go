package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/papermoth/ficshelf/backend/internal/auth"
	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"github.com/papermoth/ficshelf/backend/internal/export"
	"github.com/papermoth/ficshelf/backend/internal/id"
	"github.com/papermoth/ficshelf/backend/internal/readinglog"
	"github.com/papermoth/ficshelf/backend/internal/server"
	"github.com/papermoth/ficshelf/backend/internal/social"
	"github.com/papermoth/ficshelf/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	sessionSigningSecret = "integration-secret"
	jsonContentType      = "application/json"
)

func TestShelfAndReadingFlow(testContext *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&users.User{}, &users.Follow{},
		&catalog.Fic{}, &catalog.Shelf{}, &catalog.ShelfFic{},
		&catalog.TaggableEntity{}, &catalog.EntityLink{},
		&readinglog.ReadingLog{},
		&social.Post{}, &social.Comment{},
	)
	if err != nil {
		testContext.Fatalf("failed to migrate: %v", err)
	}

	idProvider := id.NewUUIDProvider()
	usersService, err := users.NewService(users.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		testContext.Fatalf("failed to build users service: %v", err)
	}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{Database: db, IDProvider: idProvider, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build catalog service: %v", err)
	}
	logsService, err := readinglog.NewService(readinglog.ServiceConfig{Database: db, IDProvider: idProvider, Logger: zap.NewNop()})
	if err != nil {
		testContext.Fatalf("failed to build reading log service: %v", err)
	}
	socialService, err := social.NewService(social.ServiceConfig{Database: db, IDProvider: idProvider})
	if err != nil {
		testContext.Fatalf("failed to build social service: %v", err)
	}
	exportService, err := export.NewService(export.ServiceConfig{
		Users:       usersService,
		Catalog:     catalogService,
		ReadingLogs: logsService,
		Social:      socialService,
	})
	if err != nil {
		testContext.Fatalf("failed to build export service: %v", err)
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(sessionSigningSecret),
		Issuer:        "ficshelf-auth",
		Audience:      "ficshelf-api",
		TokenTTL:      time.Hour,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager:   tokenManager,
		UsersService:   usersService,
		CatalogService: catalogService,
		LogsService:    logsService,
		SocialService:  socialService,
		ExportService:  exportService,
		Logger:         zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}

	call := func(method, path, token string, body interface{}) *httptest.ResponseRecorder {
		var payload []byte
		if body != nil {
			payload, err = json.Marshal(body)
			if err != nil {
				testContext.Fatalf("failed to marshal body: %v", err)
			}
		}
		request := httptest.NewRequest(method, path, bytes.NewReader(payload))
		request.Header.Set("Content-Type", jsonContentType)
		if token != "" {
			request.Header.Set("Authorization", "Bearer "+token)
		}
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	decode := func(recorder *httptest.ResponseRecorder, target interface{}) {
		if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
			testContext.Fatalf("failed to decode %q: %v", recorder.Body.String(), err)
		}
	}

	register := func(email, displayName string) (string, string) {
		recorder := call(http.MethodPost, "/auth/register", "", map[string]string{
			"email":        email,
			"display_name": displayName,
			"password":     "correct horse",
		})
		if recorder.Code != http.StatusCreated {
			testContext.Fatalf("registration failed with %d: %s", recorder.Code, recorder.Body.String())
		}
		var token struct {
			AccessToken string `json:"access_token"`
			UserID      string `json:"user_id"`
		}
		decode(recorder, &token)
		return token.AccessToken, token.UserID
	}

	aliceToken, aliceID := register("alice@example.com", "Alice")
	bobToken, bobID := register("bob@example.com", "Bob")

	// Alice catalogs a fic; Bob catalogs another in the same fandom spelled
	// differently, which must reuse the shared entity.
	ficRecorder := call(http.MethodPost, "/fics", aliceToken, map[string]interface{}{
		"title":   "The Long Game",
		"words":   4000,
		"fandoms": []map[string]string{{"label": "Harry Potter"}},
	})
	if ficRecorder.Code != http.StatusCreated {
		testContext.Fatalf("fic creation failed with %d: %s", ficRecorder.Code, ficRecorder.Body.String())
	}
	var aliceFic struct {
		FicID   string   `json:"fic_id"`
		Fandoms []string `json:"fandoms"`
	}
	decode(ficRecorder, &aliceFic)

	bobFicRecorder := call(http.MethodPost, "/fics", bobToken, map[string]interface{}{
		"title":   "Another Tale",
		"words":   2000,
		"fandoms": []map[string]string{{"label": "harry potter"}},
	})
	if bobFicRecorder.Code != http.StatusCreated {
		testContext.Fatalf("fic creation failed with %d", bobFicRecorder.Code)
	}
	var bobFic struct {
		FicID   string   `json:"fic_id"`
		Fandoms []string `json:"fandoms"`
	}
	decode(bobFicRecorder, &bobFic)
	if len(bobFic.Fandoms) != 1 || bobFic.Fandoms[0] != "Harry Potter" {
		testContext.Fatalf("case-variant fandom should resolve to the first spelling, got %v", bobFic.Fandoms)
	}

	var entityCount int64
	if err := db.Model(&catalog.TaggableEntity{}).Where("category = ?", "fandom").Count(&entityCount).Error; err != nil {
		testContext.Fatalf("failed to count entities: %v", err)
	}
	if entityCount != 1 {
		testContext.Fatalf("both fics should share one fandom entity, got %d", entityCount)
	}

	// Alice shelves her fic.
	shelfRecorder := call(http.MethodPost, "/shelves", aliceToken, map[string]interface{}{"name": "Favorites"})
	if shelfRecorder.Code != http.StatusCreated {
		testContext.Fatalf("shelf creation failed with %d", shelfRecorder.Code)
	}
	var shelf struct {
		ShelfID string `json:"shelf_id"`
	}
	decode(shelfRecorder, &shelf)
	if rec := call(http.MethodPost, "/shelves/"+shelf.ShelfID+"/fics", aliceToken, map[string]string{"fic_id": aliceFic.FicID}); rec.Code != http.StatusNoContent {
		testContext.Fatalf("shelving failed with %d", rec.Code)
	}

	// Alice logs a read finishing this month and checks her stats.
	monthStart := time.Date(time.Now().UTC().Year(), time.Now().UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	rangeString := fmt.Sprintf("[%s,%s]", monthStart.Format("2006-01-02"), monthStart.AddDate(0, 0, 3).Format("2006-01-02"))
	if rec := call(http.MethodPost, "/logs", aliceToken, map[string]interface{}{
		"fic_id": aliceFic.FicID,
		"ranges": []string{rangeString},
	}); rec.Code != http.StatusCreated {
		testContext.Fatalf("log creation failed with %d: %s", rec.Code, rec.Body.String())
	}

	statsRecorder := call(http.MethodGet, "/stats/monthly", aliceToken, nil)
	if statsRecorder.Code != http.StatusOK {
		testContext.Fatalf("stats failed with %d", statsRecorder.Code)
	}
	var stats struct {
		CompletedFicIDs []string `json:"completed_fic_ids"`
		TotalWords      int64    `json:"total_words"`
		TopFandom       string   `json:"top_fandom"`
	}
	decode(statsRecorder, &stats)
	if len(stats.CompletedFicIDs) != 1 || stats.TotalWords != 4000 {
		testContext.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.TopFandom != "Harry Potter" {
		testContext.Fatalf("unexpected top fandom: %q", stats.TopFandom)
	}

	// Bob posts; Alice follows Bob and sees the post in her feed.
	postRecorder := call(http.MethodPost, "/posts", bobToken, map[string]string{"body": "finished a great fic", "fic_id": bobFic.FicID})
	if postRecorder.Code != http.StatusCreated {
		testContext.Fatalf("post creation failed with %d", postRecorder.Code)
	}
	var post struct {
		PostID string `json:"post_id"`
	}
	decode(postRecorder, &post)

	if rec := call(http.MethodPost, "/users/"+bobID+"/follow", aliceToken, nil); rec.Code != http.StatusNoContent {
		testContext.Fatalf("follow failed with %d", rec.Code)
	}
	if rec := call(http.MethodPost, "/posts/"+post.PostID+"/comments", aliceToken, map[string]string{"body": "which one?"}); rec.Code != http.StatusCreated {
		testContext.Fatalf("comment failed with %d", rec.Code)
	}

	feedRecorder := call(http.MethodGet, "/feed", aliceToken, nil)
	if feedRecorder.Code != http.StatusOK {
		testContext.Fatalf("feed failed with %d", feedRecorder.Code)
	}
	var feed struct {
		Posts []struct {
			PostID string `json:"post_id"`
			UserID string `json:"user_id"`
		} `json:"posts"`
	}
	decode(feedRecorder, &feed)
	if len(feed.Posts) != 1 || feed.Posts[0].UserID != bobID {
		testContext.Fatalf("unexpected feed: %+v", feed.Posts)
	}

	// Alice exports her data and finds everything she owns.
	exportRecorder := call(http.MethodGet, "/export", aliceToken, nil)
	if exportRecorder.Code != http.StatusOK {
		testContext.Fatalf("export failed with %d", exportRecorder.Code)
	}
	var bundle export.Bundle
	decode(exportRecorder, &bundle)
	if bundle.UserID != aliceID {
		testContext.Fatalf("bundle should describe alice, got %q", bundle.UserID)
	}
	if len(bundle.Fics) != 1 || len(bundle.Shelves) != 1 || len(bundle.ReadingLogs) != 1 {
		testContext.Fatalf("incomplete bundle: %+v", bundle)
	}
	if len(bundle.Shelves[0].FicIDs) != 1 || bundle.Shelves[0].FicIDs[0] != aliceFic.FicID {
		testContext.Fatalf("shelf membership missing from bundle: %+v", bundle.Shelves[0])
	}
}
