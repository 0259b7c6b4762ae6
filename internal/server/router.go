package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/papermoth/ficshelf/backend/internal/catalog"
	"github.com/papermoth/ficshelf/backend/internal/export"
	"github.com/papermoth/ficshelf/backend/internal/readinglog"
	"github.com/papermoth/ficshelf/backend/internal/social"
	"github.com/papermoth/ficshelf/backend/internal/users"
	"go.uber.org/zap"
)

const userIDContextKey = "ficshelf_user_id"

var (
	errMissingTokenManager   = errors.New("token manager dependency required")
	errMissingUsersService   = errors.New("users service dependency required")
	errMissingCatalogService = errors.New("catalog service dependency required")
	errMissingLogsService    = errors.New("reading log service dependency required")
	errMissingSocialService  = errors.New("social service dependency required")
	errMissingExportService  = errors.New("export service dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// SessionTokenManager issues and validates session tokens.
type SessionTokenManager interface {
	IssueSessionToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer to the application services.
type Dependencies struct {
	TokenManager   SessionTokenManager
	UsersService   *users.Service
	CatalogService *catalog.Service
	LogsService    *readinglog.Service
	SocialService  *social.Service
	ExportService  *export.Service
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router for the API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if deps.UsersService == nil {
		return nil, errMissingUsersService
	}
	if deps.CatalogService == nil {
		return nil, errMissingCatalogService
	}
	if deps.LogsService == nil {
		return nil, errMissingLogsService
	}
	if deps.SocialService == nil {
		return nil, errMissingSocialService
	}
	if deps.ExportService == nil {
		return nil, errMissingExportService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:  deps.TokenManager,
		users:   deps.UsersService,
		catalog: deps.CatalogService,
		logs:    deps.LogsService,
		social:  deps.SocialService,
		export:  deps.ExportService,
		logger:  logger,
	}

	router.POST("/auth/register", handler.handleRegister)
	router.POST("/auth/login", handler.handleLogin)

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)

	protected.GET("/profile", handler.handleGetProfile)
	protected.PUT("/profile", handler.handleUpdateProfile)
	protected.GET("/users/:id", handler.handleGetUser)
	protected.GET("/users/:id/shelves", handler.handleListUserShelves)
	protected.GET("/users/:id/posts", handler.handleListUserPosts)
	protected.GET("/users/:id/followers", handler.handleListFollowers)
	protected.GET("/users/:id/following", handler.handleListFollowing)
	protected.POST("/users/:id/follow", handler.handleFollow)
	protected.DELETE("/users/:id/follow", handler.handleUnfollow)

	protected.POST("/fics", handler.handleCreateFic)
	protected.GET("/fics", handler.handleListFics)
	protected.GET("/fics/:id", handler.handleGetFic)
	protected.PUT("/fics/:id", handler.handleUpdateFic)
	protected.DELETE("/fics/:id", handler.handleDeleteFic)

	protected.POST("/shelves", handler.handleCreateShelf)
	protected.GET("/shelves", handler.handleListShelves)
	protected.GET("/shelves/:id", handler.handleGetShelf)
	protected.PUT("/shelves/:id", handler.handleUpdateShelf)
	protected.DELETE("/shelves/:id", handler.handleDeleteShelf)
	protected.GET("/shelves/:id/fics", handler.handleListShelfFics)
	protected.POST("/shelves/:id/fics", handler.handleAddShelfFic)
	protected.DELETE("/shelves/:id/fics/:ficID", handler.handleRemoveShelfFic)

	protected.POST("/logs", handler.handleCreateLog)
	protected.GET("/logs", handler.handleListLogs)
	protected.GET("/logs/fic/:ficID", handler.handleListLogsByFic)
	protected.PUT("/logs/:id", handler.handleUpdateLog)
	protected.DELETE("/logs/:id", handler.handleDeleteLog)
	protected.GET("/stats/monthly", handler.handleMonthlyStats)

	protected.POST("/posts", handler.handleCreatePost)
	protected.DELETE("/posts/:id", handler.handleDeletePost)
	protected.POST("/posts/:id/comments", handler.handleCreateComment)
	protected.GET("/posts/:id/comments", handler.handleListComments)
	protected.DELETE("/comments/:id", handler.handleDeleteComment)
	protected.GET("/feed", handler.handleFeed)

	protected.GET("/export", handler.handleExport)

	return router, nil
}

type httpHandler struct {
	tokens  SessionTokenManager
	users   *users.Service
	catalog *catalog.Service
	logs    *readinglog.Service
	social  *social.Service
	export  *export.Service
	logger  *zap.Logger
}

type registerRequestPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type loginRequestPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	UserID      string `json:"user_id"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.users.Register(c.Request.Context(), users.RegistrationInput{
		Email:       request.Email,
		DisplayName: request.DisplayName,
		Password:    request.Password,
	})
	if errors.Is(err, users.ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	}
	if errors.Is(err, users.ErrInvalidRegistration) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err != nil {
		h.logger.Error("registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
		return
	}

	h.issueToken(c, profile.UserID, http.StatusCreated)
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request loginRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.users.Authenticate(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if err != nil {
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login_failed"})
		return
	}

	h.issueToken(c, profile.UserID, http.StatusOK)
}

func (h *httpHandler) issueToken(c *gin.Context, userID string, status int) {
	token, expiresIn, err := h.tokens.IssueSessionToken(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}
	c.JSON(status, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		UserID:      userID,
	})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, subject)
	c.Next()
}

// writeServiceError maps service-layer failures to HTTP responses. Internal
// failures surface the dotted service error code for diagnostics.
func (h *httpHandler) writeServiceError(c *gin.Context, err error, logMessage string) {
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, readinglog.ErrNotFound),
		errors.Is(err, social.ErrNotFound),
		errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, catalog.ErrForbidden),
		errors.Is(err, readinglog.ErrForbidden),
		errors.Is(err, social.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, readinglog.ErrInvalidInput),
		errors.Is(err, social.ErrInvalidInput),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, users.ErrInvalidRegistration),
		errors.Is(err, users.ErrSelfFollow):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	default:
		h.logger.Error(logMessage, zap.Error(err))
		var coded interface{ Code() string }
		if errors.As(err, &coded) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": coded.Code()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func (h *httpHandler) currentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(userIDContextKey)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}
