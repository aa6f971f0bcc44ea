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
	"github.com/fleetworks/fleetworks/internal/company"
)

// CompanyRequest represents company data
type CompanyRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// CreateCompany creates a company
// @Summary Create Company
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CompanyRequest true "Company Data"
// @Success 201 {object} company.Company
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /companies [post]
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.companyService.Create(r.Context(), req.Name, req.ContactEmail, req.ContactPhone, ident.UserID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyAlreadyExists) {
			respondError(w, http.StatusConflict, "company already exists")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid company")
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

// ListCompanies lists companies. Admins see all; fleet managers see only
// their own company.
// @Summary List Companies
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} company.Company
// @Router /companies [get]
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	ctx := r.Context()

	if h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadAll}) == nil {
		limit, offset := pagination(r)
		companies, err := h.companyService.List(ctx, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list companies")
			return
		}
		respondJSON(w, http.StatusOK, companies)
		return
	}

	if err := h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}

	c, err := h.companyService.Get(ctx, ident.CompanyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load company")
		return
	}
	respondJSON(w, http.StatusOK, []*company.Company{c})
}

// GetCompany retrieves one company
// @Summary Get Company
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} company.Company
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [get]
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	c, err := h.companyService.Get(r.Context(), companyID)
	if err != nil {
		respondError(w, http.StatusNotFound, "company not found")
		return
	}

	if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: c.ID}); err != nil {
		respondDenial(w, err)
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// UpdateCompany updates company information
// @Summary Update Company
// @Tags Companies
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CompanyRequest true "Company Data"
// @Success 200 {object} company.Company
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [put]
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.companyService.Update(r.Context(), companyID, req.Name, req.ContactEmail, req.ContactPhone)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid company")
		return
	}

	respondJSON(w, http.StatusOK, c)
}

// DeleteCompany deletes a company
// @Summary Delete Company
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /companies/{companyID} [delete]
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	if err := h.companyService.Delete(r.Context(), companyID, ident.UserID); err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "company not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete company")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "company deleted",
	})
}
