package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
)

// CreateBookRequest represents the payload for adding a book to the catalog.
// The inventory code is always allocated server-side.
type CreateBookRequest struct {
	Title              string  `json:"title" binding:"required"`
	Author             string  `json:"author"`
	Description        *string `json:"description"`
	ISBN               *string `json:"isbn"`
	PublisherID        *int64  `json:"publisherId"`
	CategoryID         *int64  `json:"categoryId"`
	PriceCents         int64   `json:"priceCents" binding:"min=0"`
	OriginalPriceCents *int64  `json:"originalPriceCents"`
	Stock              int     `json:"stock" binding:"min=0"`
	Location           string  `json:"location" binding:"required"`
	Featured           bool    `json:"featured"`
	IsNew              bool    `json:"isNew"`
	HasCover           bool    `json:"hasCover"`
	Pages              *int    `json:"pages"`
	Year               *int    `json:"year"`
}

// CreateBook inserts a book and allocates its inventory code.
// POST /internal/catalog/items
func (h *CatalogHandlers) CreateBook(c *gin.Context) {
	var req CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.svc.Create(c.Request.Context(), catalog.Item{
		Title:              req.Title,
		Author:             req.Author,
		Description:        req.Description,
		ISBN:               req.ISBN,
		PublisherID:        req.PublisherID,
		CategoryID:         req.CategoryID,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Stock:              req.Stock,
		Location:           req.Location,
		Featured:           req.Featured,
		IsNew:              req.IsNew,
		HasCover:           req.HasCover,
		Pages:              req.Pages,
		Year:               req.Year,
		Active:             true,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrAllocationExhausted) {
			c.JSON(http.StatusConflict, gin.H{"error": "could not allocate a free inventory code"})
			return
		}
		if errors.Is(err, catalog.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog temporarily unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}

	c.JSON(http.StatusCreated, toSummary(*item))
}

// RelocateBookRequest represents the payload for moving a book between sites.
type RelocateBookRequest struct {
	Location string `json:"location" binding:"required"`
}

// RelocateBook moves a book to another site, keeping the numeric core of its
// code and swapping the site suffix.
// POST /internal/catalog/items/:id/relocate
func (h *CatalogHandlers) RelocateBook(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req RelocateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code, err := h.svc.Relocate(c.Request.Context(), id, req.Location)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		case errors.Is(err, catalog.ErrAllocationExhausted):
			c.JSON(http.StatusConflict, gin.H{"error": "could not allocate a free inventory code"})
		case errors.Is(err, catalog.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog temporarily unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "relocate failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "code": code, "location": req.Location})
}
