package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/service"
	"github.com/peerlend/loan-engine/pkg/response"
)

type PaymentHandler struct {
	service   *service.PaymentService
	validator *validator.Validate
}

func NewPaymentHandler(service *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validator.New(),
	}
}

// ApplyPayment handles POST /payments. The optional Idempotency-Key header
// protects against duplicate client retries.
func (h *PaymentHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	userID, _ := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	var request domain.ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}
	request.IdempotencyKey = r.Header.Get("Idempotency-Key")

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	payment, loan, err := h.service.ApplyPayment(r.Context(), userID, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, domain.ApplyPaymentResponse{Payment: payment, Loan: loan})
}

// ListPayments handles GET /payments?loan_id=...
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	payments, err := h.service.ListPayments(r.Context(), userID, role, r.URL.Query().Get("loan_id"))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, payments)
}

// AuditLoan handles GET /admin/loans/{loanId}/audit, the operator-facing
// ledger-vs-audit-trail consistency check.
func (h *PaymentHandler) AuditLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	audit, err := h.service.AuditLoan(r.Context(), loanID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, audit)
}
