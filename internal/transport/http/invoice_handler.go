// Copyright 2026 The FleetWorks Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/billing"
)

// IssueInvoiceRequest represents invoice creation data
type IssueInvoiceRequest struct {
	CompanyID string              `json:"company_id"`
	Lines     []billing.LineInput `json:"lines"`
}

// IssueInvoice issues an invoice to a company. Admin only.
// @Summary Issue Invoice
// @Tags Invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body IssueInvoiceRequest true "Invoice Data"
// @Success 201 {object} billing.Invoice
// @Failure 403 {object} map[string]string
// @Router /invoices [post]
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	var req IssueInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.billingService.Issue(r.Context(), req.CompanyID, req.Lines, ident.UserID)
	if err != nil {
		if errors.Is(err, billing.ErrEmptyInvoice) {
			respondError(w, http.StatusBadRequest, "invoice requires at least one line")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid invoice")
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// ListInvoices lists invoices. Admins see all; fleet managers see their
// company's invoices.
// @Summary List Invoices
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {array} billing.Invoice
// @Router /invoices [get]
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	ctx := r.Context()

	if h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadAll}) == nil {
		limit, offset := pagination(r)
		invoices, err := h.billingService.List(ctx, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list invoices")
			return
		}
		respondJSON(w, http.StatusOK, invoices)
		return
	}

	if err := h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}

	invoices, err := h.billingService.ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

// ListCompanyInvoices lists invoices issued to a named company
// @Summary List Company Invoices
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} billing.Invoice
// @Failure 403 {object} map[string]string
// @Router /companies/{companyID}/invoices [get]
func (h *Handler) ListCompanyInvoices(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: companyID}); err != nil {
		respondDenial(w, err)
		return
	}

	invoices, err := h.billingService.ListByCompany(r.Context(), companyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}
	respondJSON(w, http.StatusOK, invoices)
}

// GetInvoice retrieves one invoice with its line items
// @Summary Get Invoice
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} billing.Invoice
// @Failure 404 {object} map[string]string
// @Router /invoices/{invoiceID} [get]
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	ref := auth.ResourceRef{Type: auth.ResourceInvoice, ID: invoiceID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	inv, err := h.billingService.Get(r.Context(), invoiceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "invoice not found")
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// MarkInvoicePaid marks an issued invoice as paid. Admin only.
// @Summary Mark Invoice Paid
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} billing.Invoice
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /invoices/{invoiceID}/pay [post]
func (h *Handler) MarkInvoicePaid(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	inv, err := h.billingService.MarkPaid(r.Context(), invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvoiceNotFound):
			respondError(w, http.StatusNotFound, "invoice not found")
		case errors.Is(err, billing.ErrInvoiceFinalized):
			respondError(w, http.StatusConflict, "invoice is not payable in its current status")
		default:
			respondError(w, http.StatusInternalServerError, "failed to mark invoice paid")
		}
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// VoidInvoice voids an invoice. Admin only.
// @Summary Void Invoice
// @Tags Invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} billing.Invoice
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /invoices/{invoiceID}/void [post]
func (h *Handler) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	invoiceID := chi.URLParam(r, "invoiceID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	inv, err := h.billingService.Void(r.Context(), invoiceID)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrInvoiceNotFound):
			respondError(w, http.StatusNotFound, "invoice not found")
		case errors.Is(err, billing.ErrInvoiceFinalized):
			respondError(w, http.StatusConflict, "invoice cannot be voided in its current status")
		default:
			respondError(w, http.StatusInternalServerError, "failed to void invoice")
		}
		return
	}

	respondJSON(w, http.StatusOK, inv)
}
