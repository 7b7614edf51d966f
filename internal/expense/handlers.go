package expense

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/doc-ledger/internal/scanning"
)

// maxUploadSize matches the file size bots can download from chat platforms
const maxUploadSize = int64(20 << 20)

const (
	msgEmptyReport = "Нет расходов в этой теме."
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

// handleUploadDocument runs an uploaded PDF through the pipeline
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "File is too large. Maximum size is 20MB.", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	outcome, err := s.service.ProcessDocument(threadID, header.Filename, data)
	if err != nil {
		slog.Error("Error processing document", "filename", header.Filename, "thread_id", threadID, "error", err)
		if errors.Is(err, scanning.ErrDocumentUnreadable) {
			jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	code := http.StatusOK
	if outcome.Record != nil {
		code = http.StatusCreated
	}
	writeJSON(w, code, outcome)
}

// handleListDocuments returns the journal of a thread
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	docs, err := s.service.ListDocuments(threadID)
	if err != nil {
		slog.Error("Error listing documents", "thread_id", threadID, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// handleAddExpense records a manual "-amount comment" entry
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	record, err := s.service.AddManualEntry(threadID, req.Text)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// handleReport returns the thread's total and records
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, ok := s.service.Report(threadID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"thread_id": threadID,
			"empty":     true,
			"text":      msgEmptyReport,
		})
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Summary
		Text string `json:"text"`
	}{report, report.String()})
}

// handleExport sends the thread's ledger as an xlsx attachment
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	threadID, err := parseThreadID(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	export, ok, err := s.service.Export(threadID)
	if err != nil {
		slog.Error("Error exporting ledger", "thread_id", threadID, "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.Write(export.Data)
}

// handleGetDocument returns a single journal entry
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.service.GetDocument(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			jsonError(w, "Document not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting document", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocumentFile returns the stored original PDF
func (s *Server) handleGetDocumentFile(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.service.GetDocumentFile(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) || errors.Is(err, fs.ErrNotExist) {
			jsonError(w, "File not found", http.StatusNotFound)
			return
		}
		slog.Error("Error getting document file", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Write(data)
}
