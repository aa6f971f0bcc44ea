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
	"github.com/fleetworks/fleetworks/internal/identity"
)

func userResponse(u *identity.User) map[string]any {
	return map[string]any{
		"user_id":           u.ID,
		"username":          u.Username,
		"email":             u.Email,
		"phone":             u.Phone,
		"role":              u.Role,
		"company_id":        u.CompanyID,
		"notify_preference": u.NotifyPreference,
		"created_at":        u.CreatedAt,
	}
}

// ProvisionUserRequest represents account creation data
type ProvisionUserRequest struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Password  string    `json:"password"`
	Role      auth.Role `json:"role"`
	CompanyID string    `json:"company_id"`
}

// ProvisionUser creates a user account
// @Summary Provision User
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProvisionUserRequest true "Account Data"
// @Success 201 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users [post]
func (h *Handler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryAdminOnly}); err != nil {
		respondDenial(w, err)
		return
	}

	var req ProvisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.identityService.Provision(r.Context(), req.Username, req.Email, req.Phone, req.Password, req.Role, req.CompanyID, ident.UserID)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserAlreadyExists):
			respondError(w, http.StatusConflict, "user already exists")
		case errors.Is(err, identity.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		case errors.Is(err, identity.ErrCompanyRequired):
			respondError(w, http.StatusBadRequest, "fleet manager requires a company")
		case errors.Is(err, auth.ErrForbidden):
			respondError(w, http.StatusBadRequest, "invalid role")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}

	respondJSON(w, http.StatusCreated, userResponse(user))
}

// ListUsers lists user accounts. Admins see all accounts; fleet managers see
// the accounts of their own company.
// @Summary List Users
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} map[string]any
// @Router /users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	ctx := r.Context()

	if h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadAll}) == nil {
		limit, offset := pagination(r)
		users, err := h.identityService.List(ctx, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list users")
			return
		}
		respondUserList(w, users)
		return
	}

	if err := h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}

	users, err := h.identityService.ListByCompany(ctx, ident.CompanyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	respondUserList(w, users)
}

func respondUserList(w http.ResponseWriter, users []*identity.User) {
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	respondJSON(w, http.StatusOK, out)
}

// GetUser retrieves one user account
// @Summary Get User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /users/{userID} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	targetID := chi.URLParam(r, "userID")

	user, err := h.identityService.Get(r.Context(), targetID)
	if err != nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if targetID != ident.UserID {
		if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: user.CompanyID}); err != nil {
			respondDenial(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// PatchUser applies a field-level update to a user account. The guard
// enforces who may set which fields before anything is written.
// @Summary Patch User
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body identity.UserPatch true "Fields to change"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{userID} [patch]
func (h *Handler) PatchUser(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	targetID := chi.URLParam(r, "userID")

	var patch identity.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	check := auth.UserPatchCheck{
		TargetUserID: targetID,
		SetsRole:     patch.SetsRole(),
		SetsCompany:  patch.SetsCompany(),
	}
	if err := h.guard.Check(r.Context(), ident, check); err != nil {
		respondDenial(w, err)
		return
	}

	user, err := h.identityService.ApplyPatch(r.Context(), targetID, patch, ident.UserID)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, identity.ErrCompanyRequired):
			respondError(w, http.StatusBadRequest, "fleet manager requires a company")
		default:
			respondError(w, http.StatusBadRequest, "invalid update")
		}
		return
	}

	respondJSON(w, http.StatusOK, userResponse(user))
}

// DeleteUser deletes a user account. Self-deletion is refused for everyone,
// admins included.
// @Summary Delete User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	targetID := chi.URLParam(r, "userID")

	if err := h.guard.Check(r.Context(), ident, auth.UserDeleteCheck{TargetUserID: targetID}); err != nil {
		respondDenial(w, err)
		return
	}

	if err := h.identityService.Delete(r.Context(), targetID, ident.UserID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "user deleted",
	})
}
