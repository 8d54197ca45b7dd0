package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/peerlend/loan-engine/internal/domain"
	"github.com/peerlend/loan-engine/internal/risk"
	"github.com/peerlend/loan-engine/internal/service"
	"github.com/peerlend/loan-engine/pkg/response"
)

// Caller identity is established by the surrounding auth layer and passed
// through these headers.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

type LoanHandler struct {
	service   *service.LoanService
	scorer    risk.Scorer
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService, scorer risk.Scorer) *LoanHandler {
	return &LoanHandler{
		service:   service,
		scorer:    scorer,
		validator: validator.New(),
	}
}

// CreateLoan handles POST /loans. Only lenders originate loans.
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}
	if role != "lender" {
		response.Forbidden(w, "Only lenders can create loans")
		return
	}

	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	lenderName := r.Header.Get("X-User-Name")
	loan, err := h.service.CreateLoan(r.Context(), userID, lenderName, &request)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Created(w, loan)
}

// GetLoan handles GET /loans/{loanId}.
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	loan, err := h.service.GetLoan(r.Context(), loanID, userID, role)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

// ListLoans handles GET /loans?status=...
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	loans, err := h.service.ListLoans(r.Context(), userID, role, r.URL.Query().Get("status"))
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loans)
}

// UpdateStatus handles PATCH /loans/{loanId}/status.
func (h *LoanHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}
	if role != "lender" {
		response.Forbidden(w, "Only lenders can update loan status")
		return
	}

	loanID, err := uuid.Parse(mux.Vars(r)["loanId"])
	if err != nil {
		response.BadRequest(w, "Invalid loan ID", err)
		return
	}

	var request domain.UpdateLoanStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Validation failed", err)
		return
	}

	loan, err := h.service.UpdateStatus(r.Context(), loanID, userID, request.Status)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, loan)
}

// BorrowerSummary handles GET /loans/summary/borrower/{borrowerId}.
// Borrowers see only their own summary.
func (h *LoanHandler) BorrowerSummary(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}

	borrowerID := mux.Vars(r)["borrowerId"]
	if role == "borrower" && borrowerID != userID {
		response.Forbidden(w, "You can only view your own loan summary")
		return
	}

	summary, err := h.service.BorrowerSummary(r.Context(), borrowerID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, summary)
}

// BorrowerRisk handles GET /risk/borrower/{borrowerId}. Lenders only.
func (h *LoanHandler) BorrowerRisk(w http.ResponseWriter, r *http.Request) {
	userID, role := callerIdentity(r)
	if userID == "" {
		response.Unauthorized(w, "Missing caller identity")
		return
	}
	if role != "lender" {
		response.Forbidden(w, "Only lenders can analyze borrower risk")
		return
	}

	assessment, err := h.service.AssessBorrowerRisk(r.Context(), mux.Vars(r)["borrowerId"], h.scorer)
	if err != nil {
		response.BusinessError(w, err)
		return
	}

	response.Success(w, assessment)
}

func callerIdentity(r *http.Request) (userID, role string) {
	return r.Header.Get(HeaderUserID), r.Header.Get(HeaderUserRole)
}
