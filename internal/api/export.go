package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/Diegogs92/vuelavuela/internal/models"

	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Solicitudes"

var exportHeaders = []string{
	"ID", "Cliente", "Email", "Inicio", "Fin", "Flexible", "Días",
	"Adultos", "Niños", "Bebés", "Destinos", "Alojamiento",
	"Actividades", "Otras preferencias", "Estado", "Creado", "Actualizado",
}

// handleExport streams every travel request as an xlsx workbook for the
// agency back office.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	requests, err := s.travel.ListAllRequests(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheetName)

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(exportSheetName, cell, header)
	}

	for row, request := range requests {
		for col, value := range exportRowValues(request) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(exportSheetName, cell, value)
		}
	}

	filename := "solicitudes-" + time.Now().Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := f.Write(w); err != nil {
		s.logger.Error().Err(err).Msg("write export workbook")
	}
}

func exportRowValues(request *models.TravelRequest) []interface{} {
	prefs := request.Preferences
	return []interface{}{
		request.ID,
		request.UserName,
		request.UserEmail,
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
		request.Status,
		request.CreatedAt.Format("2006-01-02 15:04:05"),
		request.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
