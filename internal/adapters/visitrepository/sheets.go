package visitrepository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ssservicios/s3pay/internal/domain"
	"github.com/ssservicios/s3pay/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Layout string

const (
	// One row per day and identifier, updated in place
	LayoutDaily Layout = "daily"
	// One row per query, clicks are not recorded
	LayoutAppend Layout = "append"
)

// Row storage of a single spreadsheet tab
//
// Row numbers are 1-based sheet rows. Row 1 is the header and is never read or written.
type sheetTable interface {
	ReadRows(ctx context.Context) ([][]any, error)
	AppendRow(ctx context.Context, cells []any) error
	UpdateRow(ctx context.Context, rowNumber int, cells []any) error
}

const firstDataRow = 2

// Audit trail kept in a Google Sheets spreadsheet
//
// NOTE: Upserts scan the sheet and then write without locking. Concurrent events for the
// same identifier may produce duplicate rows or lost increments.
type Sheets struct {
	table  sheetTable
	layout Layout
	tracer trace.Tracer
}

func newSheets(table sheetTable, layout Layout) *Sheets {
	return &Sheets{
		table:  table,
		layout: layout,
		tracer: otel.Tracer("s3pay/visitrepository/sheets"),
	}
}

func (s *Sheets) RegisterQuery(ctx context.Context, at time.Time, visit domain.QueryVisit) error {
	ctx, span := s.tracer.Start(ctx, "Sheets.RegisterQuery")
	defer span.End()
	span.SetAttributes(attribute.String("layout", string(s.layout)))

	if s.layout == LayoutAppend {
		cells := queryVisitToAppendCells(at.Format(domain.VisitDateLayout), at.Format(domain.VisitTimeLayout), visit)
		if err := s.table.AppendRow(ctx, cells); err != nil {
			return fmt.Errorf("failed to append query row: %w", err)
		}
		return nil
	}

	rowNumber, existing, found, err := s.findRow(ctx, at.Format(domain.VisitDateLayout), visit.Identifier)
	if err != nil {
		return err
	}

	if !found {
		if err := s.table.AppendRow(ctx, visitRowToCells(domain.NewQueryRow(at, visit))); err != nil {
			return fmt.Errorf("failed to append query row: %w", err)
		}
		return nil
	}

	if err := s.table.UpdateRow(ctx, rowNumber, visitRowToCells(existing.WithQuery(at, visit))); err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowNumber, err)
	}
	return nil
}

func (s *Sheets) RegisterClick(ctx context.Context, at time.Time, identifier string) error {
	if s.layout == LayoutAppend {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "Sheets.RegisterClick")
	defer span.End()

	rowNumber, existing, found, err := s.findRow(ctx, at.Format(domain.VisitDateLayout), identifier)
	if err != nil {
		return err
	}

	if !found {
		if err := s.table.AppendRow(ctx, visitRowToCells(domain.NewClickRow(at, identifier))); err != nil {
			return fmt.Errorf("failed to append click row: %w", err)
		}
		return nil
	}

	if err := s.table.UpdateRow(ctx, rowNumber, visitRowToCells(existing.WithClick(at))); err != nil {
		return fmt.Errorf("failed to update row %d: %w", rowNumber, err)
	}
	return nil
}

// Returns the sheet row number and contents of the first row for the date and identifier
//
// Rows that can't be parsed are skipped.
func (s *Sheets) findRow(ctx context.Context, date string, identifier string) (int, domain.VisitRow, bool, error) {
	allCells, err := s.table.ReadRows(ctx)
	if err != nil {
		return 0, domain.VisitRow{}, false, fmt.Errorf("failed to read rows: %w", err)
	}

	logger := logging.FromContext(ctx)
	for i, cells := range allCells {
		rowNumber := firstDataRow + i

		row, err := cellsToVisitRow(cells)
		if err != nil {
			if len(cells) > 0 {
				logger.WarnContext(ctx, "Skipping malformed audit row", "row", strconv.Itoa(rowNumber), "error", err.Error())
			}
			continue
		}

		if row.Matches(date, identifier) {
			return rowNumber, row, true, nil
		}
	}

	return 0, domain.VisitRow{}, false, nil
}
