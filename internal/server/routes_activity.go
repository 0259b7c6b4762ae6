package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papermoth/ficshelf/backend/internal/readinglog"
	"github.com/papermoth/ficshelf/backend/internal/social"
)

type logRequestPayload struct {
	FicID  string   `json:"fic_id"`
	Ranges []string `json:"ranges"`
	Notes  string   `json:"notes"`
}

type logResponsePayload struct {
	LogID     string    `json:"log_id"`
	FicID     string    `json:"fic_id"`
	Ranges    []string  `json:"ranges"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func logPayload(view readinglog.LogView) logResponsePayload {
	return logResponsePayload{
		LogID:     view.LogID,
		FicID:     view.FicID,
		Ranges:    view.Ranges,
		Notes:     view.Notes,
		CreatedAt: view.CreatedAt,
		UpdatedAt: view.UpdatedAt,
	}
}

func logPayloads(views []readinglog.LogView) []logResponsePayload {
	payloads := make([]logResponsePayload, 0, len(views))
	for _, view := range views {
		payloads = append(payloads, logPayload(view))
	}
	return payloads
}

func (h *httpHandler) handleCreateLog(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request logRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.logs.CreateLog(c.Request.Context(), userID, readinglog.LogInput{
		FicID:  request.FicID,
		Ranges: request.Ranges,
		Notes:  request.Notes,
	})
	if err != nil {
		h.writeServiceError(c, err, "failed to create reading log")
		return
	}
	c.JSON(http.StatusCreated, logPayload(view))
}

func (h *httpHandler) handleListLogs(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.logs.ListLogs(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to list reading logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logPayloads(views)})
}

func (h *httpHandler) handleListLogsByFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.logs.ListLogsByFic(c.Request.Context(), userID, c.Param("ficID"))
	if err != nil {
		h.writeServiceError(c, err, "failed to list reading logs for fic")
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logPayloads(views)})
}

func (h *httpHandler) handleUpdateLog(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request logRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.logs.UpdateLog(c.Request.Context(), userID, c.Param("id"), request.Ranges, request.Notes)
	if err != nil {
		h.writeServiceError(c, err, "failed to update reading log")
		return
	}
	c.JSON(http.StatusOK, logPayload(view))
}

func (h *httpHandler) handleDeleteLog(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.logs.DeleteLog(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to delete reading log")
		return
	}
	c.Status(http.StatusNoContent)
}

type monthlyStatsResponsePayload struct {
	Year            int      `json:"year"`
	Month           int      `json:"month"`
	ReadingDays     []bool   `json:"reading_days"`
	CompletedFicIDs []string `json:"completed_fic_ids"`
	TotalWords      int64    `json:"total_words"`
	TopFandom       string   `json:"top_fandom"`
	TopRelationship string   `json:"top_relationship"`
	TopCharacter    string   `json:"top_character"`
}

func (h *httpHandler) handleMonthlyStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_offset"})
			return
		}
		offset = parsed
	}

	report, err := h.logs.BuildMonthlyReport(c.Request.Context(), userID, offset)
	if err != nil {
		h.writeServiceError(c, err, "failed to build monthly report")
		return
	}
	c.JSON(http.StatusOK, monthlyStatsResponsePayload{
		Year:            report.Year,
		Month:           int(report.Month),
		ReadingDays:     report.ReadingDays,
		CompletedFicIDs: report.CompletedFicIDs,
		TotalWords:      report.TotalWords,
		TopFandom:       report.TopFandom,
		TopRelationship: report.TopRelationship,
		TopCharacter:    report.TopCharacter,
	})
}

type postRequestPayload struct {
	Body  string `json:"body"`
	FicID string `json:"fic_id"`
}

type postResponsePayload struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	FicID     string    `json:"fic_id,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func postPayload(post social.Post) postResponsePayload {
	return postResponsePayload{
		PostID:    post.PostID,
		UserID:    post.UserID,
		FicID:     post.FicID,
		Body:      post.Body,
		CreatedAt: post.CreatedAt,
	}
}

func postPayloads(posts []social.Post) []postResponsePayload {
	payloads := make([]postResponsePayload, 0, len(posts))
	for _, post := range posts {
		payloads = append(payloads, postPayload(post))
	}
	return payloads
}

func (h *httpHandler) handleCreatePost(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request postRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	post, err := h.social.CreatePost(c.Request.Context(), userID, request.Body, request.FicID)
	if err != nil {
		h.writeServiceError(c, err, "failed to create post")
		return
	}
	c.JSON(http.StatusCreated, postPayload(post))
}

func (h *httpHandler) handleDeletePost(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.social.DeletePost(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListUserPosts(c *gin.Context) {
	posts, err := h.social.ListPostsByUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to list posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postPayloads(posts)})
}

func (h *httpHandler) handleFeed(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	followed, err := h.users.FollowingIDs(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to resolve followed users")
		return
	}
	posts, err := h.social.Feed(c.Request.Context(), append(followed, userID))
	if err != nil {
		h.writeServiceError(c, err, "failed to build feed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": postPayloads(posts)})
}

type commentRequestPayload struct {
	Body string `json:"body"`
}

type commentResponsePayload struct {
	CommentID string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func commentPayload(comment social.Comment) commentResponsePayload {
	return commentResponsePayload{
		CommentID: comment.CommentID,
		PostID:    comment.PostID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}

func (h *httpHandler) handleCreateComment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	comment, err := h.social.CreateComment(c.Request.Context(), userID, c.Param("id"), request.Body)
	if err != nil {
		h.writeServiceError(c, err, "failed to create comment")
		return
	}
	c.JSON(http.StatusCreated, commentPayload(comment))
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	comments, err := h.social.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to list comments")
		return
	}
	payloads := make([]commentResponsePayload, 0, len(comments))
	for _, comment := range comments {
		payloads = append(payloads, commentPayload(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": payloads})
}

func (h *httpHandler) handleDeleteComment(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.social.DeleteComment(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to delete comment")
		return
	}
	c.Status(http.StatusNoContent)
}
