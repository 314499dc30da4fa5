package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/bankfolio/src/logger"
	"github.com/username/bankfolio/src/models"
	"github.com/username/bankfolio/src/services"
	"github.com/username/bankfolio/src/utils"
)

type TransactionHandler struct {
	importService services.ImportService
}

func NewTransactionHandler(service services.ImportService) *TransactionHandler {
	return &TransactionHandler{
		importService: service,
	}
}

// HandleGetTransactions returns the organization's committed ledger with
// ETag support, since the dashboard polls it during review sessions.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	organizationID, ok := GetOrganizationIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or organization not found in context", http.StatusUnauthorized)
		return
	}
	logger.L.Debug("Handling GetTransactions request", "orgID", organizationID)

	transactions, err := h.importService.ListTransactions(r.Context(), organizationID)
	if err != nil {
		logger.L.Error("Error retrieving transactions", "orgID", organizationID, "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving transactions for organization %d: %v", organizationID, err), http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []models.StoredTransaction{}
	}

	currentETag, etagErr := utils.GenerateETag(transactions)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for transactions", "orgID", organizationID, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Info("ETag match for transactions", "orgID", organizationID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transactions); err != nil {
		logger.L.Error("Error generating JSON response for transactions", "orgID", organizationID, "error", err)
	}
}
