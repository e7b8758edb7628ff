package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/service"
)

// receiptFormField is the multipart field the admin client uploads into.
const receiptFormField = "bill"

// multipartOverhead is room for boundaries and part headers on top of the
// file size limit.
const multipartOverhead = 64 << 10

// ReceiptHandler uploads and downloads payment receipts.
type ReceiptHandler struct {
	receipts *service.ReceiptService
	logger   *slog.Logger
}

func NewReceiptHandler(receipts *service.ReceiptService, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts, logger: logger}
}

// HandleUpload streams the "bill" part of a multipart form to storage.
//
// HTTP: POST /api/participants/{id}/receipt
func (h *ReceiptHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.receipts.MaxBytes()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, h.logger, apperror.ValidationFailed(receiptFormField, "expected a multipart/form-data upload"))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, r, h.logger, h.uploadError(err))
			return
		}
		if part.FormName() != receiptFormField || part.FileName() == "" {
			part.Close()
			continue
		}

		name, err := h.receipts.Upload(r.Context(), chi.URLParam(r, "id"), part.FileName(), part)
		part.Close()
		if err != nil {
			writeError(w, r, h.logger, h.uploadError(err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"billFile": name})
		return
	}

	writeError(w, r, h.logger, apperror.ValidationFailed(receiptFormField, "no file in field \"bill\""))
}

func (h *ReceiptHandler) uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperror.TooLarge(h.receipts.MaxBytes())
	}
	return err
}

// HandleDownload streams the stored receipt as an attachment.
//
// HTTP: GET /api/participants/{id}/receipt
func (h *ReceiptHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.receipts.Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer receipt.Close()

	contentType := mime.TypeByExtension(filepath.Ext(receipt.Name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": receipt.DownloadName}))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, receipt); err != nil {
		h.logger.Warn("receipt download interrupted",
			slog.String("bill_file", receipt.Name),
			slog.String("error", err.Error()),
		)
	}
}
