package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/export"
)

// ExportBooks streams the filtered catalog as an XLSX attachment. It accepts
// the same query parameters as the search endpoint.
// GET /internal/catalog/export?category=novela
func (h *CatalogHandlers) ExportBooks(c *gin.Context) {
	var req SearchBooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exporter := export.NewExporter(h.svc, 500)

	var buf bytes.Buffer
	if _, err := exporter.WriteXLSX(c.Request.Context(), toCriteria(req), &buf); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("catalogo-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}
