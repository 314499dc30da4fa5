package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/username/bankfolio/src/config"
	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/models"
	"github.com/username/bankfolio/src/parsers"
	"github.com/username/bankfolio/src/security/validation"
	"github.com/username/bankfolio/src/services"
	"github.com/username/bankfolio/src/utils"
)

type StatementHandler struct {
	importService services.ImportService
}

func NewStatementHandler(service services.ImportService) *StatementHandler {
	return &StatementHandler{
		importService: service,
	}
}

// HandleUpload accepts a multipart statement file, parses it and responds
// with the review preview: normalized transactions, totals, and one
// duplicate verdict per transaction. Nothing is persisted here.
func (h *StatementHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := GetOrganizationIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or organization not found in context", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "orgID", organizationID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "orgID", organizationID, "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		logger.L.Warn("Uploaded file header reports size too large", "orgID", organizationID, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		logger.L.Warn("Invalid client-declared file type", "orgID", organizationID, "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
	if err != nil {
		logger.L.Warn("Server-side file content validation failed", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	logger.L.Info("File content validated", "orgID", organizationID, "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

	data, err := io.ReadAll(file)
	if err != nil {
		logger.L.Error("Failed to read uploaded file", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, "Failed to read uploaded file.", http.StatusInternalServerError)
		return
	}

	preview, err := h.importService.PreviewStatement(r.Context(), organizationID, fileHeader.Filename, data)
	if err != nil {
		var formatErr *parsers.FileFormatError
		var columnErr *parsers.ColumnNotFoundError
		switch {
		case errors.As(err, &formatErr):
			logger.L.Warn("Upload rejected: undecodable file", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, formatErr.Error(), http.StatusBadRequest)
		case errors.As(err, &columnErr):
			logger.L.Warn("Upload rejected: mandatory columns missing", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, columnErr.Error(), http.StatusBadRequest)
		case errors.Is(err, services.ErrParsingFailed):
			logger.L.Warn("Upload processing failed during parsing", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error parsing statement file: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error processing upload", "orgID", organizationID, "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(preview); err != nil {
		logger.L.Error("Error encoding JSON response for statement preview", "orgID", organizationID, "error", err)
	}
}

// HandleGetPreview re-fetches a cached review session by token.
func (h *StatementHandler) HandleGetPreview(w http.ResponseWriter, r *http.Request) {
	if _, ok := GetOrganizationIDFromContext(r.Context()); !ok {
		utils.SendJSONError(w, "authentication required or organization not found in context", http.StatusUnauthorized)
		return
	}

	token := r.PathValue("token")
	preview, err := h.importService.GetPreview(token)
	if err != nil {
		utils.SendJSONError(w, services.ErrPreviewNotFound.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(preview); err != nil {
		logger.L.Error("Error encoding JSON response for statement preview", "error", err)
	}
}

// commitRequest is the caller's final selection: the transactions to
// persist, typically the preview's non-duplicates.
type commitRequest struct {
	Filename     string                         `json:"filename"`
	Transactions []models.NormalizedTransaction `json:"transactions"`
}

// HandleCommit persists the selected transactions and reports what was
// inserted, skipped, and failed. The response is never all-or-nothing.
func (h *StatementHandler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := GetOrganizationIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or organization not found in context", http.StatusUnauthorized)
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Invalid commit request body", "orgID", organizationID, "error", err)
		utils.SendJSONError(w, "Invalid request body.", http.StatusBadRequest)
		return
	}
	if req.Filename == "" {
		utils.SendJSONError(w, "filename is required", http.StatusBadRequest)
		return
	}
	if len(req.Transactions) == 0 {
		utils.SendJSONError(w, "no transactions selected for import", http.StatusBadRequest)
		return
	}

	result, err := h.importService.CommitImport(r.Context(), organizationID, req.Filename, req.Transactions)
	if err != nil {
		logger.L.Error("Internal error committing import", "orgID", organizationID, "filename", req.Filename, "error", err)
		utils.SendJSONError(w, "An internal error occurred while committing the import.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for commit result", "orgID", organizationID, "error", err)
	}
}

// HandleListImports returns the organization's import activity log.
func (h *StatementHandler) HandleListImports(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := GetOrganizationIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or organization not found in context", http.StatusUnauthorized)
		return
	}

	imports, err := h.importService.ListImports(r.Context(), organizationID)
	if err != nil {
		logger.L.Error("Error retrieving import activity", "orgID", organizationID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving import activity for organization %d", organizationID), http.StatusInternalServerError)
		return
	}
	if imports == nil {
		imports = []models.ImportActivity{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(imports); err != nil {
		logger.L.Error("Error encoding JSON response for import activity", "orgID", organizationID, "error", err)
	}
}
