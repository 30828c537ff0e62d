package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/markjakearzadon/paymentserver/internal/models"
	"github.com/markjakearzadon/paymentserver/internal/services"
	"github.com/markjakearzadon/paymentserver/internal/status"
)

const (
	defaultPageNumber = 1
	defaultPageSize   = 20

	// Evidence is stored inline in one MongoDB document, capped at 16 MiB.
	maxEvidenceBytes = 15 << 20
	multipartMemory  = 10 << 20
)

var evidenceTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
}

type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service, validate: newValidator()}
}

// GetPayments handles GET /payments?search=&page_number=&page_size=
func (h *PaymentHandler) GetPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	pageNumber, err := intParam(query, "page_number", defaultPageNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page number must be an integer", nil)
		return
	}
	if pageNumber < 0 {
		writeError(w, http.StatusBadRequest, "page number must be greater than 0", nil)
		return
	}

	pageSize, err := intParam(query, "page_size", defaultPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page size must be an integer", nil)
		return
	}
	if pageSize < 0 {
		writeError(w, http.StatusBadRequest, "page size must be greater than 0", nil)
		return
	}

	payments, total, err := h.service.ListPayments(r.Context(), query.Get("search"), pageNumber, pageSize)
	if err != nil {
		log.Printf("Failed to list payments: %v", err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"total":    total,
	})
}

// CreatePayment handles POST /payment/
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	payment, ok := h.decodePayment(w, r)
	if !ok {
		return
	}

	if payment.PayeePaymentStatus != status.Pending {
		writeError(w, http.StatusBadRequest, "payment status can only be pending when creating a payment", nil)
		return
	}

	id, err := h.service.CreatePayment(r.Context(), payment)
	if err != nil {
		log.Printf("Failed to create payment: %v", err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, id)
}

// UpdatePayment handles PUT /payment/{paymentID}
func (h *PaymentHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["paymentID"]

	payment, ok := h.decodePayment(w, r)
	if !ok {
		return
	}

	if !status.Valid(payment.PayeePaymentStatus) {
		writeError(w, http.StatusBadRequest, "payment status must be one of: pending, due_now, completed, overdue", nil)
		return
	}

	if err := h.service.UpdatePayment(r.Context(), paymentID, payment); err != nil {
		log.Printf("Failed to update payment %s: %v", paymentID, err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DeletePayment handles DELETE /payment/{paymentID}
func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["paymentID"]

	if err := h.service.DeletePayment(r.Context(), paymentID); err != nil {
		log.Printf("Failed to delete payment %s: %v", paymentID, err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// UploadEvidence handles POST /payment/{paymentID}/evidence with a multipart
// "file" part of type PDF, PNG or JPEG.
func (h *PaymentHandler) UploadEvidence(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["paymentID"]

	r.Body = http.MaxBytesReader(w, r.Body, maxEvidenceBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error(), nil)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required", nil)
		return
	}
	defer file.Close()

	contentType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || !evidenceTypes[contentType] {
		writeError(w, http.StatusBadRequest, "Unsupported file type", nil)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file: "+err.Error(), nil)
		return
	}

	if _, err := h.service.CreateEvidence(r.Context(), paymentID, content, header.Filename, contentType); err != nil {
		log.Printf("Failed to store evidence for payment %s: %v", paymentID, err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DownloadEvidence handles GET /payment/{paymentID}/evidence
func (h *PaymentHandler) DownloadEvidence(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["paymentID"]

	evidence, err := h.service.GetEvidence(r.Context(), paymentID)
	if err != nil {
		log.Printf("Failed to get evidence for payment %s: %v", paymentID, err)
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": evidence.Filename})
	if disposition == "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(evidence.Content)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(evidence.Content); err != nil {
		log.Printf("Failed to stream evidence for payment %s: %v", paymentID, err)
	}
}

func (h *PaymentHandler) decodePayment(w http.ResponseWriter, r *http.Request) (*models.Payment, bool) {
	var payment models.Payment
	if err := json.NewDecoder(r.Body).Decode(&payment); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error(), nil)
		return nil, false
	}

	if err := h.validate.Struct(payment); err != nil {
		if v := violations(err); v != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment", v)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}
	return &payment, true
}

func intParam(query url.Values, key string, def int) (int, error) {
	v := query.Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
