package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
)

// CatalogHandlers bundles the HTTP surface over the catalog service.
type CatalogHandlers struct {
	svc *catalog.Service
}

func NewCatalogHandlers(svc *catalog.Service) *CatalogHandlers {
	return &CatalogHandlers{svc: svc}
}

// SearchBooksRequest represents query parameters for the catalog search.
// Prices are integer euro cents.
type SearchBooksRequest struct {
	Search          string `form:"search"`
	Category        string `form:"category"`
	MinPrice        *int64 `form:"minPrice"`
	MaxPrice        *int64 `form:"maxPrice"`
	Availability    string `form:"availability" binding:"omitempty,oneof=inStock all outOfStock"`
	Sort            string `form:"sort" binding:"omitempty,oneof=title author price year code id"`
	Order           string `form:"order" binding:"omitempty,oneof=asc desc"`
	Featured        *bool  `form:"featured"`
	New             *bool  `form:"new"`
	OnSale          *bool  `form:"onSale"`
	Cover           string `form:"cover" binding:"omitempty,oneof=any with without"`
	Publisher       string `form:"publisher"`
	Location        string `form:"location"`
	ISBN            string `form:"isbn"`
	PagesMin        *int   `form:"pagesMin"`
	PagesMax        *int   `form:"pagesMax"`
	YearMin         *int   `form:"yearMin"`
	YearMax         *int   `form:"yearMax"`
	IncludeInactive bool   `form:"includeInactive"`
	ExactCount      bool   `form:"exactCount"`
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"pageSize" binding:"omitempty,min=1,max=100"`
}

// BookSummary is one catalog row as served to clients.
type BookSummary struct {
	ID                 int64   `json:"id"`
	Code               *string `json:"code"`
	Title              string  `json:"title"`
	Author             string  `json:"author"`
	ISBN               *string `json:"isbn"`
	Publisher          string  `json:"publisher,omitempty"`
	Category           string  `json:"category,omitempty"`
	PriceCents         int64   `json:"priceCents"`
	OriginalPriceCents *int64  `json:"originalPriceCents"`
	Stock              int     `json:"stock"`
	Location           string  `json:"location"`
	Featured           bool    `json:"featured"`
	IsNew              bool    `json:"isNew"`
	OnSale             bool    `json:"onSale"`
	HasCover           bool    `json:"hasCover"`
	Pages              *int    `json:"pages"`
	Year               *int    `json:"year"`
	CreatedAt          string  `json:"createdAt"`
}

// SearchBooksResponse represents the paginated search response. Total is -1
// when no count was computed for this view.
type SearchBooksResponse struct {
	Books     []BookSummary `json:"books"`
	Total     int           `json:"total"`
	CountMode string        `json:"countMode"`
	Page      int           `json:"page"`
	PageSize  int           `json:"pageSize"`
}

// SearchBooks handles catalog queries.
// GET /internal/catalog/search?search=quijote&page=1&pageSize=20
func (h *CatalogHandlers) SearchBooks(c *gin.Context) {
	var req SearchBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	result, err := h.svc.Search(c.Request.Context(), toCriteria(req), req.Page, req.PageSize)
	if err != nil {
		if errors.Is(err, catalog.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "catalog temporarily unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	books := make([]BookSummary, 0, len(result.Items))
	for _, item := range result.Items {
		books = append(books, toSummary(item))
	}

	c.JSON(http.StatusOK, SearchBooksResponse{
		Books:     books,
		Total:     result.Total,
		CountMode: result.Count.String(),
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
}

func toCriteria(req SearchBooksRequest) catalog.Criteria {
	crit := catalog.Criteria{
		Search:          req.Search,
		Category:        req.Category,
		PriceMinCents:   req.MinPrice,
		PriceMaxCents:   req.MaxPrice,
		Featured:        req.Featured,
		New:             req.New,
		OnSale:          req.OnSale,
		Publisher:       req.Publisher,
		Location:        req.Location,
		ISBN:            req.ISBN,
		PagesMin:        req.PagesMin,
		PagesMax:        req.PagesMax,
		YearMin:         req.YearMin,
		YearMax:         req.YearMax,
		IncludeInactive: req.IncludeInactive,
		ForceExactCount: req.ExactCount,
	}

	switch req.Availability {
	case "all":
		crit.Availability = catalog.AvailabilityAll
	case "outOfStock":
		crit.Availability = catalog.AvailabilityOutOfStock
	}

	switch req.Cover {
	case "with":
		crit.Cover = catalog.CoverWith
	case "without":
		crit.Cover = catalog.CoverWithout
	}

	if req.Sort != "" {
		spec := catalog.SortSpec{Key: catalog.SortKey(req.Sort)}
		if req.Order == "desc" {
			spec.Direction = catalog.Descending
		}
		crit.Sort = &spec
	}

	return crit
}

func toSummary(item catalog.Item) BookSummary {
	return BookSummary{
		ID:                 item.ID,
		Code:               item.Code,
		Title:              item.Title,
		Author:             item.Author,
		ISBN:               item.ISBN,
		Publisher:          item.PublisherName,
		Category:           item.CategoryName,
		PriceCents:         item.PriceCents,
		OriginalPriceCents: item.OriginalPriceCents,
		Stock:              item.Stock,
		Location:           item.Location,
		Featured:           item.Featured,
		IsNew:              item.IsNew,
		OnSale:             item.OnSale,
		HasCover:           item.HasCover,
		Pages:              item.Pages,
		Year:               item.Year,
		CreatedAt:          item.CreatedAt.Format(time.RFC3339),
	}
}
