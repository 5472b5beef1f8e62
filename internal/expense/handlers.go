package expense

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ravindran-dev/SmartSpend/internal/bill"
	"github.com/ravindran-dev/SmartSpend/internal/scanning"
)

// maxUploadSize allows high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// uploadFields are the multipart field names accepted for a bill upload
var uploadFields = []string{"file", "image", "pdf"}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type processBillResponse struct {
	bill.Result
	FileType string `json:"file_type"`
	Filename string `json:"filename"`
	FileID   string `json:"file_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError maps service errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// formFile returns the first upload found under any accepted field name
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	for _, field := range uploadFields {
		f, header, err := r.FormFile(field)
		if err == nil {
			return f, header, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, err
		}
	}
	return nil, nil, http.ErrMissingFile
}

// billFile is an uploaded bill, from either a multipart form or a JSON body
type billFile struct {
	filename    string
	data        []byte
	contentType string
}

type imageDataRequest struct {
	ImageData string `json:"image_data"`
}

// jsonUploadName is the filename recorded for base64 uploads
const jsonUploadName = "uploaded_image"

// handleProcessBill scans an uploaded bill image or PDF
func (s *Server) handleProcessBill(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var (
		file *billFile
		ok   bool
	)
	if mediaType(r) == "application/json" {
		file, ok = readImageData(w, r)
	} else {
		file, ok = readMultipartFile(w, r)
	}
	if !ok {
		return
	}
	data, contentType := file.data, file.contentType

	started := time.Now()
	upload, err := s.service.ProcessBill(file.filename, data, contentType)
	if err != nil {
		slog.Error("Error processing bill", "filename", file.filename, "error", err)
		s.metrics.observeScanFailure(scanning.SourceFor(data, contentType))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.metrics.observeBill(upload.Result, time.Since(started))

	status := http.StatusOK
	if !upload.Result.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, processBillResponse{
		Result:   upload.Result,
		FileType: string(upload.Result.Source),
		Filename: file.filename,
		FileID:   upload.ID,
	})
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func tooLargeMessage(err error, fallback string) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "File is too large. Maximum size is 50MB. Please compress or resize your image."
	}
	return fallback
}

// readMultipartFile reads the bill from a file, image or pdf form field
func readMultipartFile(w http.ResponseWriter, r *http.Request) (*billFile, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: tooLargeMessage(err, "Error parsing form")})
		return nil, false
	}

	f, header, err := formFile(r)
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No image or PDF file provided"})
		return nil, false
	}
	defer f.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file selected"})
		return nil, false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Error reading file. Please try again."})
		return nil, false
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = scanning.ContentTypeFromFilename(header.Filename)
	}

	return &billFile{filename: header.Filename, data: data, contentType: contentType}, true
}

// readImageData reads a base64 image from a JSON body. A data URL prefix,
// as produced by browsers, supplies the content type.
func readImageData(w http.ResponseWriter, r *http.Request) (*billFile, bool) {
	var req imageDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: tooLargeMessage(err, "Invalid request body")})
		return nil, false
	}
	if strings.TrimSpace(req.ImageData) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No image or PDF file provided"})
		return nil, false
	}

	encoded, contentType := req.ImageData, ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid image data"})
			return nil, false
		}
		contentType = strings.ToLower(strings.TrimSuffix(header, ";base64"))
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		slog.Error("Error decoding image data", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid image data"})
		return nil, false
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &billFile{filename: jsonUploadName, data: data, contentType: contentType}, true
}

// handleGetBillFile returns the stored upload for a bill
func (s *Server) handleGetBillFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetBillFile(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleCategorizeExpense categorises a description without saving anything
func (s *Server) handleCategorizeExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"category": s.service.Categorize(req.Description, req.Amount),
		"success":  true,
	})
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	return Filter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
		Category:  q.Get("category"),
	}
}

// handleListExpenses returns expenses matching the query filters
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.service.ListExpenses(filterFromQuery(r))
	if err != nil {
		slog.Error("Error listing expenses", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"expenses": expenses,
		"total":    len(expenses),
	})
}

// handleAddExpense records an expense
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req NewExpense
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	expense, err := s.service.AddExpense(req)
	if err != nil {
		slog.Error("Error adding expense", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Expense added successfully",
		"expense": expense,
	})
}

// handleDeleteExpense deletes one expense
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteExpense(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Expense deleted successfully"})
}

// handleClearExpenses deletes every expense
func (s *Server) handleClearExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearExpenses(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "All expenses cleared"})
}

// handleExportExpenses streams expenses as CSV
func (s *Server) handleExportExpenses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.csv"`, time.Now().Format("20060102")))
	if err := s.service.ExportCSV(w, filterFromQuery(r)); err != nil {
		slog.Error("Error exporting expenses", "error", err)
		http.Error(w, "Error exporting expenses", http.StatusInternalServerError)
	}
}

// handleAnalytics returns category and monthly totals
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics()
	if err != nil {
		slog.Error("Error computing analytics", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*Analytics
	}{true, analytics})
}

// handleHealth reports service status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.service.Health()
	if err != nil {
		slog.Error("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}
