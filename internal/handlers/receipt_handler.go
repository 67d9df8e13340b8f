package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shrdaa/backend/internal/services"
)

type ReceiptHandler struct {
	service *services.ReceiptService
	logger  *slog.Logger
}

func NewReceiptHandler(service *services.ReceiptService, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		service: service,
		logger:  logger.With("module", "receipt"),
	}
}

// GetReceipt renders the QR proof of a transaction
// @Summary Transaction receipt
// @Description QR code carrying the hashed fields and chain link of a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param txNo path string true "Transaction number"
// @Success 200 {object} services.Receipt
// @Failure 404 {object} services.ErrorResponse
// @Router /transactions/{txNo}/receipt [get]
func (h *ReceiptHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.GenerateReceipt(r.Context(), chi.URLParam(r, "txNo"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"receipt": receipt.Code,
		"qrImage": receipt.QRImage,
		"payload": receipt.Payload,
	})
}
