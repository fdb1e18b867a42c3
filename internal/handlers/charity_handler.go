package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samafal/backend/internal/models"
	"github.com/samafal/backend/internal/services/charity"
)

// CharityHandler handles campaign catalogue requests
type CharityHandler struct {
	charityService *charity.CharityService
}

// NewCharityHandler creates a new charity handler
func NewCharityHandler(charityService *charity.CharityService) *CharityHandler {
	return &CharityHandler{charityService: charityService}
}

// ListPublic handles GET /api/charities (Published campaigns only)
func (h *CharityHandler) ListPublic(c *gin.Context) {
	filter := listFilterFromQuery(c)
	filter.Status = ""

	items, total, err := h.charityService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// ListAdmin handles GET /api/admin/charities with an optional status filter
func (h *CharityHandler) ListAdmin(c *gin.Context) {
	filter := listFilterFromQuery(c)

	status := c.DefaultQuery("status", "all")
	switch status {
	case "all", string(models.CharityStatusDraft), string(models.CharityStatusPublished):
		filter.Status = status
	default:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid status value"})
		return
	}

	items, total, err := h.charityService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// Get handles GET /api/charities/:id (public; Published only)
func (h *CharityHandler) Get(c *gin.Context) {
	h.get(c, true)
}

// GetAdmin handles GET /api/admin/charities/:id (no status restriction)
func (h *CharityHandler) GetAdmin(c *gin.Context) {
	h.get(c, false)
}

func (h *CharityHandler) get(c *gin.Context, publishedOnly bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid charity id"})
		return
	}

	item, err := h.charityService.Get(c.Request.Context(), id, publishedOnly)
	if err != nil {
		if errors.Is(err, charity.ErrCharityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Charity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

// CreateCharityRequest is the admin campaign creation body
type CreateCharityRequest struct {
	Title    string               `json:"title" binding:"required"`
	Excerpt  string               `json:"excerpt"`
	Category string               `json:"category"`
	Location string               `json:"location"`
	Cover    string               `json:"cover"`
	Goal     float64              `json:"goal"`
	Featured bool                 `json:"featured"`
	Status   models.CharityStatus `json:"status"`
}

// Create handles POST /api/admin/charities
func (h *CharityHandler) Create(c *gin.Context) {
	var req CreateCharityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	item := &models.Charity{
		Title:    req.Title,
		Excerpt:  req.Excerpt,
		Category: req.Category,
		Location: req.Location,
		Cover:    req.Cover,
		Goal:     req.Goal,
		Featured: req.Featured,
		Status:   req.Status,
	}

	if err := h.charityService.Create(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Update handles PUT /api/admin/charities/:id
func (h *CharityHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid charity id"})
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	item, err := h.charityService.Update(c.Request.Context(), id, updates)
	if err != nil {
		if errors.Is(err, charity.ErrCharityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Charity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /api/admin/charities/:id
func (h *CharityHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid charity id"})
		return
	}

	if err := h.charityService.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, charity.ErrCharityNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Charity not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func listFilterFromQuery(c *gin.Context) charity.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	filter := charity.ListFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Page:     page,
		Limit:    limit,
	}

	switch c.Query("featured") {
	case "true":
		v := true
		filter.Featured = &v
	case "false":
		v := false
		filter.Featured = &v
	}

	return filter
}
