package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the payment API routes.
func NewRouter(payments *PaymentHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestLogger)

	router.HandleFunc("/", Health).Methods(http.MethodGet, http.MethodHead)

	router.HandleFunc("/payments", payments.GetPayments).Methods(http.MethodGet)
	router.HandleFunc("/payment/", payments.CreatePayment).Methods(http.MethodPost)
	router.HandleFunc("/payment", payments.CreatePayment).Methods(http.MethodPost)
	router.HandleFunc("/payment/{paymentID}", payments.UpdatePayment).Methods(http.MethodPut)
	router.HandleFunc("/payment/{paymentID}", payments.DeletePayment).Methods(http.MethodDelete)
	router.HandleFunc("/payment/{paymentID}/evidence", payments.UploadEvidence).Methods(http.MethodPost)
	router.HandleFunc("/payment/{paymentID}/evidence", payments.DownloadEvidence).Methods(http.MethodGet)

	return router
}

// Health handles GET /
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Payment API is up and running"})
}
