package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/papermoth/ficshelf/backend/internal/catalog"
)

// labelPayload accepts either free text or a previously-resolved entity
// reference from the client.
type labelPayload struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

func toLabels(payloads []labelPayload) []catalog.Label {
	labels := make([]catalog.Label, 0, len(payloads))
	for _, payload := range payloads {
		labels = append(labels, catalog.Label{EntityID: payload.ID, Text: payload.Label})
	}
	return labels
}

type ficRequestPayload struct {
	Title         string         `json:"title"`
	Author        string         `json:"author"`
	URL           string         `json:"url"`
	Summary       string         `json:"summary"`
	Words         int64          `json:"words"`
	Rating        string         `json:"rating"`
	Fandoms       []labelPayload `json:"fandoms"`
	Relationships []labelPayload `json:"relationships"`
	Characters    []labelPayload `json:"characters"`
	Tags          []labelPayload `json:"tags"`
}

func (p ficRequestPayload) toInput() catalog.FicInput {
	return catalog.FicInput{
		Title:         p.Title,
		Author:        p.Author,
		URL:           p.URL,
		Summary:       p.Summary,
		Words:         p.Words,
		Rating:        p.Rating,
		Fandoms:       toLabels(p.Fandoms),
		Relationships: toLabels(p.Relationships),
		Characters:    toLabels(p.Characters),
		Tags:          toLabels(p.Tags),
	}
}

type ficResponsePayload struct {
	FicID         string    `json:"fic_id"`
	CreatorID     string    `json:"creator_id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	URL           string    `json:"url"`
	Summary       string    `json:"summary"`
	Words         int64     `json:"words"`
	Rating        string    `json:"rating"`
	Fandoms       []string  `json:"fandoms"`
	Relationships []string  `json:"relationships"`
	Characters    []string  `json:"characters"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ficPayload(view catalog.FicView) ficResponsePayload {
	return ficResponsePayload{
		FicID:         view.Fic.FicID,
		CreatorID:     view.Fic.CreatorID,
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
		CreatedAt:     view.Fic.CreatedAt,
		UpdatedAt:     view.Fic.UpdatedAt,
	}
}

func ficPayloads(views []catalog.FicView) []ficResponsePayload {
	payloads := make([]ficResponsePayload, 0, len(views))
	for _, view := range views {
		payloads = append(payloads, ficPayload(view))
	}
	return payloads
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func (h *httpHandler) handleCreateFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request ficRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.catalog.CreateFic(c.Request.Context(), userID, request.toInput())
	if err != nil {
		h.writeServiceError(c, err, "failed to create fic")
		return
	}
	c.JSON(http.StatusCreated, ficPayload(view))
}

func (h *httpHandler) handleListFics(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.catalog.ListFics(c.Request.Context(), userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to list fics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"fics": ficPayloads(views)})
}

func (h *httpHandler) handleGetFic(c *gin.Context) {
	view, err := h.catalog.GetFic(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to load fic")
		return
	}
	c.JSON(http.StatusOK, ficPayload(view))
}

func (h *httpHandler) handleUpdateFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request ficRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.catalog.UpdateFic(c.Request.Context(), userID, c.Param("id"), request.toInput())
	if err != nil {
		h.writeServiceError(c, err, "failed to update fic")
		return
	}
	c.JSON(http.StatusOK, ficPayload(view))
}

func (h *httpHandler) handleDeleteFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteFic(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to delete fic")
		return
	}
	c.Status(http.StatusNoContent)
}

type shelfRequestPayload struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsPrivate   bool           `json:"is_private"`
	Tags        []labelPayload `json:"tags"`
}

func (p shelfRequestPayload) toInput() catalog.ShelfInput {
	return catalog.ShelfInput{
		Name:        p.Name,
		Description: p.Description,
		IsPrivate:   p.IsPrivate,
		Tags:        toLabels(p.Tags),
	}
}

type shelfResponsePayload struct {
	ShelfID     string    `json:"shelf_id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func shelfPayload(view catalog.ShelfView) shelfResponsePayload {
	return shelfResponsePayload{
		ShelfID:     view.Shelf.ShelfID,
		OwnerID:     view.Shelf.OwnerID,
		Name:        view.Shelf.Name,
		Description: view.Shelf.Description,
		IsPrivate:   view.Shelf.IsPrivate,
		Tags:        emptyIfNil(view.Tags),
		CreatedAt:   view.Shelf.CreatedAt,
		UpdatedAt:   view.Shelf.UpdatedAt,
	}
}

func shelfPayloads(views []catalog.ShelfView) []shelfResponsePayload {
	payloads := make([]shelfResponsePayload, 0, len(views))
	for _, view := range views {
		payloads = append(payloads, shelfPayload(view))
	}
	return payloads
}

func (h *httpHandler) handleCreateShelf(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request shelfRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.catalog.CreateShelf(c.Request.Context(), userID, request.toInput())
	if err != nil {
		h.writeServiceError(c, err, "failed to create shelf")
		return
	}
	c.JSON(http.StatusCreated, shelfPayload(view))
}

func (h *httpHandler) handleListShelves(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.catalog.ListShelves(c.Request.Context(), userID, userID)
	if err != nil {
		h.writeServiceError(c, err, "failed to list shelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelves": shelfPayloads(views)})
}

func (h *httpHandler) handleListUserShelves(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.catalog.ListShelves(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to list user shelves")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shelves": shelfPayloads(views)})
}

func (h *httpHandler) handleGetShelf(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	view, err := h.catalog.GetShelf(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to load shelf")
		return
	}
	c.JSON(http.StatusOK, shelfPayload(view))
}

func (h *httpHandler) handleUpdateShelf(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request shelfRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	view, err := h.catalog.UpdateShelf(c.Request.Context(), userID, c.Param("id"), request.toInput())
	if err != nil {
		h.writeServiceError(c, err, "failed to update shelf")
		return
	}
	c.JSON(http.StatusOK, shelfPayload(view))
}

func (h *httpHandler) handleDeleteShelf(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.catalog.DeleteShelf(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "failed to delete shelf")
		return
	}
	c.Status(http.StatusNoContent)
}

type shelfFicRequestPayload struct {
	FicID string `json:"fic_id"`
}

func (h *httpHandler) handleAddShelfFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	var request shelfFicRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.FicID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.catalog.AddFic(c.Request.Context(), userID, c.Param("id"), request.FicID); err != nil {
		h.writeServiceError(c, err, "failed to add fic to shelf")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRemoveShelfFic(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	if err := h.catalog.RemoveFic(c.Request.Context(), userID, c.Param("id"), c.Param("ficID")); err != nil {
		h.writeServiceError(c, err, "failed to remove fic from shelf")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleListShelfFics(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}
	views, err := h.catalog.ListShelfFics(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "failed to list shelf fics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"fics": ficPayloads(views)})
}
