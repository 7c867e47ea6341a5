package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/database"
)

var (
	backfillLimit  int
	backfillDryRun bool
)

// backfillCmd represents the backfill-codes command
var backfillCmd = &cobra.Command{
	Use:   "backfill-codes",
	Short: "Allocate inventory codes for active books that have none",
	Long: `Scan the catalog for active books without an inventory code and
allocate one per book, using the same sequential allocator the API uses.
Books whose location has no configured suffix get a bare numeric code.`,
	Example: `  libreria backfill-codes
  libreria backfill-codes --limit 100 --dry-run`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)

	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "Maximum number of books to backfill (0 = no limit)")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "List books that would get a code without allocating")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pool := database.Pool()

	query := `SELECT id, title, location FROM books WHERE code IS NULL AND active ORDER BY id`
	if backfillLimit > 0 {
		query += fmt.Sprintf(" LIMIT %d", backfillLimit)
	}

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("list books without code: %w", err)
	}
	defer rows.Close()

	type pending struct {
		id       int64
		title    string
		location string
	}
	var books []pending
	for rows.Next() {
		var b pending
		if err := rows.Scan(&b.id, &b.title, &b.location); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(books) == 0 {
		logger.Info().Msg("No books without a code")
		return nil
	}
	logger.Info().Int("count", len(books)).Msg("Found books without a code")

	if backfillDryRun {
		for _, b := range books {
			fmt.Printf("%8d  %-40s  %s\n", b.id, b.title, b.location)
		}
		return nil
	}

	allocator := newService().Allocator()

	allocated, failed := 0, 0
	for _, b := range books {
		code, err := allocator.Allocate(ctx, b.id, b.location)
		if err != nil {
			failed++
			if errors.Is(err, catalog.ErrAllocationExhausted) {
				logger.Error().Int64("id", b.id).Msg("Code space exhausted for location")
				continue
			}
			logger.Error().Err(err).Int64("id", b.id).Msg("Allocation failed")
			continue
		}
		allocated++
		logger.Info().Int64("id", b.id).Str("code", code).Msg("Code allocated")
	}

	logger.Info().Int("allocated", allocated).Int("failed", failed).Msg("Backfill finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d allocations failed", failed, len(books))
	}
	return nil
}
