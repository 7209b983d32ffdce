package visitrepository

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ssservicios/s3pay/internal/domain"
)

// Columns of the daily layout, in sheet order
const (
	columnDate = iota
	columnTime
	columnIdentifier
	columnName
	columnPlan
	columnAmount
	columnEmail
	columnQueryCount
	columnClickCount

	dailyColumnCount
)

// The append layout stores the first six columns only
const appendColumnCount = columnEmail

func visitRowToCells(row domain.VisitRow) []any {
	return []any{
		row.Date,
		row.Time,
		row.Identifier,
		row.Name,
		row.Plan,
		row.Amount,
		row.Email,
		row.QueryCount,
		row.ClickCount,
	}
}

func queryVisitToAppendCells(date string, clock string, visit domain.QueryVisit) []any {
	return []any{
		date,
		clock,
		visit.Identifier,
		visit.Name,
		visit.Plan,
		visit.Amount,
	}
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(cell))
}

func cellFloat(cell any) (float64, error) {
	switch v := cell.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	}

	s := cellString(cell)
	if s == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return parsed, nil
}

func cellCount(cell any) (int, error) {
	value, err := cellFloat(cell)
	if err != nil {
		return 0, err
	}
	if value < 0 || value != math.Trunc(value) || value > math.MaxInt32 {
		return 0, fmt.Errorf("invalid count %v", value)
	}
	return int(value), nil
}

// Parse a row of the daily layout. Trailing empty cells may be missing.
func cellsToVisitRow(cells []any) (domain.VisitRow, error) {
	padded := make([]any, dailyColumnCount)
	copy(padded, cells)

	row := domain.VisitRow{
		Date:       cellString(padded[columnDate]),
		Time:       cellString(padded[columnTime]),
		Identifier: cellString(padded[columnIdentifier]),
		Name:       cellString(padded[columnName]),
		Plan:       cellString(padded[columnPlan]),
		Email:      cellString(padded[columnEmail]),
	}
	if row.Date == "" || row.Identifier == "" {
		return domain.VisitRow{}, fmt.Errorf("row is missing date or identifier")
	}

	var err error
	if row.Amount, err = cellFloat(padded[columnAmount]); err != nil {
		return domain.VisitRow{}, fmt.Errorf("amount: %w", err)
	}
	if row.QueryCount, err = cellCount(padded[columnQueryCount]); err != nil {
		return domain.VisitRow{}, fmt.Errorf("query count: %w", err)
	}
	if row.ClickCount, err = cellCount(padded[columnClickCount]); err != nil {
		return domain.VisitRow{}, fmt.Errorf("click count: %w", err)
	}

	return row, nil
}
