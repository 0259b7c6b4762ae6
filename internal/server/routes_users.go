package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papermoth/ficshelf/backend/internal/users"
)

type profileResponsePayload struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

func ownProfilePayload(profile users.Profile) profileResponsePayload {
	return profileResponsePayload{
		UserID:      profile.UserID,
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		Bio:         profile.Bio,
		AvatarURL:   profile.AvatarURL,
		CreatedAt:   profile.CreatedAt,
	}
}

// publicProfilePayload omits the email address.
func publicProfilePayload(profile users.Profile) profileResponsePayload {
	payload := ownProfilePayload(profile)
	payload.Email = ""
	return payload
}

func (h *httpHandler) handleGetProfile(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to load profile")
		return
	}
	c.JSON(http.StatusOK, ownProfilePayload(profile))
}

type profileUpdatePayload struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request profileUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	profile, err := h.users.UpdateProfile(c.Request.Context(), userID, users.ProfileUpdate{
		DisplayName: request.DisplayName,
		Bio:         request.Bio,
		AvatarURL:   request.AvatarURL,
	})
	if err != nil {
		h.writeServiceError(c, err, "failed to update profile")
		return
	}
	c.JSON(http.StatusOK, ownProfilePayload(profile))
}

func (h *httpHandler) handleGetUser(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to load user")
		return
	}
	c.JSON(http.StatusOK, publicProfilePayload(profile))
}

func (h *httpHandler) handleFollow(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.users.Follow(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to follow user")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUnfollow(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.users.Unfollow(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to unfollow user")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListFollowers(c *gin.Context) {
	h.respondProfiles(c, h.users.Followers, "failed to list followers")
}

func (h *httpHandler) handleListFollowing(c *gin.Context) {
	h.respondProfiles(c, h.users.Following, "failed to list following")
}

func (h *httpHandler) respondProfiles(c *gin.Context, list func(ctx context.Context, userID string) ([]users.Profile, error), logMessage string) {
	profiles, err := list(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, logMessage)
		return
	}
	payload := make([]profileResponsePayload, 0, len(profiles))
	for _, profile := range profiles {
		payload = append(payload, publicProfilePayload(profile))
	}
	c.JSON(http.StatusOK, gin.H{"users": payload})
}

func (h *httpHandler) handleExport(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	bundle, err := h.export.BuildBundle(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to build export bundle")
		return
	}
	c.JSON(http.StatusOK, bundle)
}
