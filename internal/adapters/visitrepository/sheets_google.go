package visitrepository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ssservicios/s3pay/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

const spreadsheetLookupTimeout = 10 * time.Second

// Returns the ID of the spreadsheet with the given name
type findSpreadsheetID func(ctx context.Context, name string) (string, error)

func driveSpreadsheetFinder(driveService *drive.Service) findSpreadsheetID {
	return func(ctx context.Context, name string) (string, error) {
		query := fmt.Sprintf(
			"name = '%s' and mimeType = '%s' and trashed = false",
			escapeDriveQuery(name),
			spreadsheetMimeType,
		)
		files, err := driveService.Files.List().
			Q(query).
			Fields("files(id, name)").
			PageSize(1).
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("failed to search spreadsheet %q: %w", name, err)
		}
		if len(files.Files) == 0 {
			return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", name)
		}
		return files.Files[0].Id, nil
	}
}

// The first tab of a spreadsheet, found by ID or by name
type googleSheetTable struct {
	sheets          *sheets.Service
	findSpreadsheet findSpreadsheetID

	spreadsheetName string

	group         singleflight.Group
	mutex         sync.Mutex
	spreadsheetID string
}

func (g *googleSheetTable) resolveSpreadsheetID(ctx context.Context) (string, error) {
	g.mutex.Lock()
	spreadsheetID := g.spreadsheetID
	g.mutex.Unlock()
	if spreadsheetID != "" {
		return spreadsheetID, nil
	}

	// Concurrent first events share one Drive lookup. It outlives the caller that
	// started it, since the others are waiting on the same result.
	result, err, _ := g.group.Do("spreadsheetID", func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), spreadsheetLookupTimeout)
		defer cancel()

		id, err := g.findSpreadsheet(lookupCtx, g.spreadsheetName)
		if err != nil {
			return "", err
		}

		g.mutex.Lock()
		defer g.mutex.Unlock()
		g.spreadsheetID = id
		return id, nil
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func escapeDriveQuery(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

func dataRange(columnCount int) string {
	return fmt.Sprintf("A%d:%s", firstDataRow, columnLetter(columnCount))
}

func rowRange(rowNumber int, columnCount int) string {
	return fmt.Sprintf("A%d:%s%d", rowNumber, columnLetter(columnCount), rowNumber)
}

// Only single letter columns are needed
func columnLetter(columnCount int) string {
	return string(rune('A' + columnCount - 1))
}

func (g *googleSheetTable) ReadRows(ctx context.Context) ([][]any, error) {
	spreadsheetID, err := g.resolveSpreadsheetID(ctx)
	if err != nil {
		return nil, err
	}

	response, err := g.sheets.Spreadsheets.Values.Get(spreadsheetID, dataRange(dailyColumnCount)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read values: %w", err)
	}

	return response.Values, nil
}

func (g *googleSheetTable) AppendRow(ctx context.Context, cells []any) error {
	spreadsheetID, err := g.resolveSpreadsheetID(ctx)
	if err != nil {
		return err
	}

	_, err = g.sheets.Spreadsheets.Values.Append(spreadsheetID, dataRange(len(cells)), &sheets.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append values: %w", err)
	}

	return nil
}

func (g *googleSheetTable) UpdateRow(ctx context.Context, rowNumber int, cells []any) error {
	if rowNumber < firstDataRow {
		return fmt.Errorf("refusing to write row %d", rowNumber)
	}

	spreadsheetID, err := g.resolveSpreadsheetID(ctx)
	if err != nil {
		return err
	}

	_, err = g.sheets.Spreadsheets.Values.Update(spreadsheetID, rowRange(rowNumber, len(cells)), &sheets.ValueRange{
		Values: [][]any{cells},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update values: %w", err)
	}

	return nil
}

// Audit trail in the spreadsheet shared with the service account
//
// httpClient is used as the transport for token and API requests.
func NewGoogleSheets(ctx context.Context, httpClient *http.Client, serviceAccountJSON string, spreadsheetName string, spreadsheetID string, layout Layout) (*Sheets, error) {
	jwtConfig, err := google.JWTConfigFromJSON(
		[]byte(serviceAccountJSON),
		sheets.SpreadsheetsScope,
		drive.DriveMetadataReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account key: %w", err)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	authorizedClient := jwtConfig.Client(ctx)

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(authorizedClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	driveService, err := drive.NewService(ctx, option.WithHTTPClient(authorizedClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}

	table := &googleSheetTable{
		sheets:          sheetsService,
		findSpreadsheet: driveSpreadsheetFinder(driveService),
		spreadsheetName: spreadsheetName,
		spreadsheetID:   spreadsheetID,
	}

	return newSheets(table, layout), nil
}

func NewGoogleSheetsFromConfig(ctx context.Context, httpClient *http.Client, conf config.Config) (*Sheets, error) {
	layout := LayoutDaily
	if conf.AuditDetail() == config.AuditDetailAppend {
		layout = LayoutAppend
	}

	return NewGoogleSheets(
		ctx,
		httpClient,
		conf.GoogleServiceAccountJSON(),
		conf.AuditSpreadsheetName(),
		conf.AuditSpreadsheetID(),
		layout,
	)
}
