package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound signals that the request id is absent from the sheet.
var ErrRowNotFound = errors.New("request row not found")

const requestsSheetRange = "Solicitudes"

// SheetsService mirrors travel requests into the agency spreadsheet.
// Columns A:Q, request id in column A, status in column O.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewSheetsService(credentialsFile, spreadsheetID string) (*SheetsService, error) {
	ctx := context.Background()

	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	return service, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, requestsSheetRange+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, requestsSheetRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id != "" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// UpsertRequest updates an existing request row or appends a new one.
func (s *SheetsService) UpsertRequest(ctx context.Context, req *models.TravelRequest) error {
	if req == nil {
		return fmt.Errorf("request is nil")
	}

	rowIdx, err := s.FindRequestRow(ctx, req.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.appendRequest(ctx, req)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:Q%d", requestsSheetRange, rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{requestRowValues(req)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (s *SheetsService) appendRequest(ctx context.Context, req *models.TravelRequest) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{requestRowValues(req)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, requestsSheetRange+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpdateRequestStatus updates status (and updated at) for a request row.
func (s *SheetsService) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	rowIdx, err := s.FindRequestRow(ctx, requestID)
	if err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")

	statusRange := fmt.Sprintf("%s!O%d:O%d", requestsSheetRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!Q%d:Q%d", requestsSheetRange, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindRequestRow locates row index (1-based) for request id in column A with cache.
func (s *SheetsService) FindRequestRow(ctx context.Context, requestID string) (int, error) {
	if requestID == "" {
		return 0, fmt.Errorf("request id is required")
	}

	if row, ok := s.getCachedRow(requestID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, requestsSheetRange+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id, ok := row[0].(string); ok && id == requestID {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			s.setCachedRow(requestID, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, ErrRowNotFound
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func requestRowValues(req *models.TravelRequest) []interface{} {
	prefs := req.Preferences
	return []interface{}{
		req.ID,
		req.UserName,
		req.UserEmail,
		prefs.TravelPeriod.StartDate,
		prefs.TravelPeriod.EndDate,
		prefs.TravelPeriod.Flexible,
		prefs.DaysAvailable,
		prefs.Passengers.Adults,
		prefs.Passengers.Children,
		prefs.Passengers.Babies,
		strings.Join(prefs.Destinations, ", "),
		strings.Join(prefs.AccommodationType, ", "),
		strings.Join(prefs.Activities, ", "),
		prefs.OtherPreferences,
		req.Status,
		req.CreatedAt.Format("2006-01-02 15:04:05"),
		req.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
