package export

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
)

const sheetName = "Catálogo"

var headerRow = []interface{}{
	"Código", "Título", "Autor", "ISBN", "Editorial", "Categoría",
	"Precio (EUR)", "Precio original (EUR)", "Stock", "Ubicación", "Año",
}

// Exporter renders filtered catalog views as XLSX workbooks. Rows are
// streamed page by page so large catalogs never sit in memory twice.
type Exporter struct {
	svc      *catalog.Service
	pageSize int
	logger   zerolog.Logger
}

func NewExporter(svc *catalog.Service, pageSize int) *Exporter {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Exporter{
		svc:      svc,
		pageSize: pageSize,
		logger:   log.With().Str("component", "export").Logger(),
	}
}

// WriteXLSX runs the filtered query page by page and streams the rows into w.
// It returns the number of exported rows.
func (e *Exporter) WriteXLSX(ctx context.Context, crit catalog.Criteria, w io.Writer) (int, error) {
	crit.ForceExactCount = true

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return 0, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	exported := 0
	for page := 1; ; page++ {
		result, err := e.svc.Search(ctx, crit, page, e.pageSize)
		if err != nil {
			return exported, fmt.Errorf("page %d: %w", page, err)
		}
		if len(result.Items) == 0 {
			break
		}

		for _, item := range result.Items {
			cell, err := excelize.CoordinatesToCellName(1, exported+2)
			if err != nil {
				return exported, err
			}
			if err := sw.SetRow(cell, bookRow(item)); err != nil {
				return exported, fmt.Errorf("write row: %w", err)
			}
			exported++
		}

		if len(result.Items) < e.pageSize {
			break
		}
	}

	if err := sw.Flush(); err != nil {
		return exported, fmt.Errorf("flush: %w", err)
	}
	if err := f.Write(w); err != nil {
		return exported, fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info().Int("rows", exported).Msg("catalog exported")
	return exported, nil
}

func bookRow(item catalog.Item) []interface{} {
	row := []interface{}{
		strOrEmpty(item.Code),
		item.Title,
		item.Author,
		strOrEmpty(item.ISBN),
		item.PublisherName,
		item.CategoryName,
		euros(item.PriceCents),
		nil,
		item.Stock,
		item.Location,
		nil,
	}
	if item.OriginalPriceCents != nil {
		row[7] = euros(*item.OriginalPriceCents)
	}
	if item.Year != nil {
		row[10] = *item.Year
	}
	return row
}

func euros(cents int64) float64 {
	return float64(cents) / 100
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
