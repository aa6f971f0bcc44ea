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
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetworks/fleetworks/internal/auth"
	"github.com/fleetworks/fleetworks/internal/fleet"
)

// MachineRequest represents machine data
type MachineRequest struct {
	CompanyID    string            `json:"company_id"`
	Kind         fleet.MachineKind `json:"kind"`
	Name         string            `json:"name"`
	SerialNumber string            `json:"serial_number"`
	Registration string            `json:"registration"`
}

// RegisterMachine registers a machine. Fleet managers register into their
// own company; admins name any company in the body.
// @Summary Register Machine
// @Tags Machines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MachineRequest true "Machine Data"
// @Success 201 {object} fleet.Machine
// @Failure 403 {object} map[string]string
// @Router /machines [post]
func (h *Handler) RegisterMachine(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())

	var req MachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	companyID := req.CompanyID
	if companyID == "" {
		companyID = ident.CompanyID
	}

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: companyID}); err != nil {
		respondDenial(w, err)
		return
	}

	m, err := h.fleetService.RegisterMachine(r.Context(), companyID, req.Kind, req.Name, req.SerialNumber, req.Registration)
	if err != nil {
		if errors.Is(err, fleet.ErrInvalidMachineKind) {
			respondError(w, http.StatusBadRequest, "invalid machine kind")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid machine")
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

// ListMachines lists machines. Admins see all machines; fleet managers see
// their company's machines.
// @Summary List Machines
// @Tags Machines
// @Produce json
// @Security BearerAuth
// @Success 200 {array} fleet.Machine
// @Router /machines [get]
func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	ctx := r.Context()

	if h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadAll}) == nil {
		limit, offset := pagination(r)
		machines, err := h.fleetService.ListMachines(ctx, limit, offset)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to list machines")
			return
		}
		respondJSON(w, http.StatusOK, machines)
		return
	}

	if err := h.guard.Check(ctx, ident, auth.CategoryCheck{Category: auth.CategoryReadOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}

	machines, err := h.fleetService.ListCompanyMachines(ctx, ident.CompanyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list machines")
		return
	}
	respondJSON(w, http.StatusOK, machines)
}

// GetMachine retrieves one machine
// @Summary Get Machine
// @Tags Machines
// @Produce json
// @Security BearerAuth
// @Success 200 {object} fleet.Machine
// @Failure 404 {object} map[string]string
// @Router /machines/{machineID} [get]
func (h *Handler) GetMachine(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	machineID := chi.URLParam(r, "machineID")

	ref := auth.ResourceRef{Type: auth.ResourceMachine, ID: machineID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	m, err := h.fleetService.GetMachine(r.Context(), machineID)
	if err != nil {
		respondError(w, http.StatusNotFound, "machine not found")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// UpdateMachine updates machine information
// @Summary Update Machine
// @Tags Machines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MachineRequest true "Machine Data"
// @Success 200 {object} fleet.Machine
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /machines/{machineID} [put]
func (h *Handler) UpdateMachine(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	machineID := chi.URLParam(r, "machineID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMachine, ID: machineID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	var req MachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.fleetService.UpdateMachine(r.Context(), machineID, req.Name, req.SerialNumber, req.Registration)
	if err != nil {
		if errors.Is(err, fleet.ErrMachineNotFound) {
			respondError(w, http.StatusNotFound, "machine not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid machine")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// DeleteMachine deletes a machine and its maintenance history
// @Summary Delete Machine
// @Tags Machines
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /machines/{machineID} [delete]
func (h *Handler) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	machineID := chi.URLParam(r, "machineID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMachine, ID: machineID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	if err := h.fleetService.DeleteMachine(r.Context(), machineID); err != nil {
		if errors.Is(err, fleet.ErrMachineNotFound) {
			respondError(w, http.StatusNotFound, "machine not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete machine")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "machine deleted",
	})
}

// ListCompanyMachines lists machines of a named company
// @Summary List Company Machines
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} fleet.Machine
// @Failure 403 {object} map[string]string
// @Router /companies/{companyID}/machines [get]
func (h *Handler) ListCompanyMachines(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: companyID}); err != nil {
		respondDenial(w, err)
		return
	}

	machines, err := h.fleetService.ListCompanyMachines(r.Context(), companyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list machines")
		return
	}
	respondJSON(w, http.StatusOK, machines)
}

// MaintenanceRequest represents maintenance data
type MaintenanceRequest struct {
	Description string     `json:"description"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

// ScheduleMaintenance schedules a maintenance for a machine
// @Summary Schedule Maintenance
// @Tags Maintenances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MaintenanceRequest true "Maintenance Data"
// @Success 201 {object} fleet.Maintenance
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /machines/{machineID}/maintenances [post]
func (h *Handler) ScheduleMaintenance(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	machineID := chi.URLParam(r, "machineID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMachine, ID: machineID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	var req MaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ScheduledAt == nil {
		respondError(w, http.StatusBadRequest, "scheduled_at is required")
		return
	}

	m, err := h.fleetService.ScheduleMaintenance(r.Context(), machineID, req.Description, *req.ScheduledAt)
	if err != nil {
		if errors.Is(err, fleet.ErrMachineNotFound) {
			respondError(w, http.StatusNotFound, "machine not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid maintenance")
		return
	}

	respondJSON(w, http.StatusCreated, m)
}

// ListMachineMaintenances lists maintenances of a machine
// @Summary List Machine Maintenances
// @Tags Maintenances
// @Produce json
// @Security BearerAuth
// @Success 200 {array} fleet.Maintenance
// @Failure 404 {object} map[string]string
// @Router /machines/{machineID}/maintenances [get]
func (h *Handler) ListMachineMaintenances(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	machineID := chi.URLParam(r, "machineID")

	ref := auth.ResourceRef{Type: auth.ResourceMachine, ID: machineID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	maintenances, err := h.fleetService.ListMachineMaintenances(r.Context(), machineID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list maintenances")
		return
	}
	respondJSON(w, http.StatusOK, maintenances)
}

// ListCompanyMaintenances lists maintenances across all machines of a company
// @Summary List Company Maintenances
// @Tags Companies
// @Produce json
// @Security BearerAuth
// @Success 200 {array} fleet.Maintenance
// @Failure 403 {object} map[string]string
// @Router /companies/{companyID}/maintenances [get]
func (h *Handler) ListCompanyMaintenances(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	companyID := chi.URLParam(r, "companyID")

	if err := h.guard.Check(r.Context(), ident, auth.CompanyCheck{CompanyID: companyID}); err != nil {
		respondDenial(w, err)
		return
	}

	maintenances, err := h.fleetService.ListCompanyMaintenances(r.Context(), companyID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list maintenances")
		return
	}
	respondJSON(w, http.StatusOK, maintenances)
}

// GetMaintenance retrieves one maintenance
// @Summary Get Maintenance
// @Tags Maintenances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} fleet.Maintenance
// @Failure 404 {object} map[string]string
// @Router /maintenances/{maintenanceID} [get]
func (h *Handler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	maintenanceID := chi.URLParam(r, "maintenanceID")

	ref := auth.ResourceRef{Type: auth.ResourceMaintenance, ID: maintenanceID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	m, err := h.fleetService.GetMaintenance(r.Context(), maintenanceID)
	if err != nil {
		respondError(w, http.StatusNotFound, "maintenance not found")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// UpdateMaintenance updates a maintenance. Rescheduling clears the reminder
// flag so the new date triggers a fresh notification.
// @Summary Update Maintenance
// @Tags Maintenances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MaintenanceRequest true "Maintenance Data"
// @Success 200 {object} fleet.Maintenance
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /maintenances/{maintenanceID} [put]
func (h *Handler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	maintenanceID := chi.URLParam(r, "maintenanceID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMaintenance, ID: maintenanceID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	var req MaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.fleetService.UpdateMaintenance(r.Context(), maintenanceID, req.Description, req.ScheduledAt)
	if err != nil {
		if errors.Is(err, fleet.ErrMaintenanceNotFound) {
			respondError(w, http.StatusNotFound, "maintenance not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid maintenance")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// CompleteMaintenanceRequest carries an optional completion timestamp
type CompleteMaintenanceRequest struct {
	CompletedAt *time.Time `json:"completed_at"`
}

// CompleteMaintenance marks a maintenance as done
// @Summary Complete Maintenance
// @Tags Maintenances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} fleet.Maintenance
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /maintenances/{maintenanceID}/complete [post]
func (h *Handler) CompleteMaintenance(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	maintenanceID := chi.URLParam(r, "maintenanceID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMaintenance, ID: maintenanceID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	var req CompleteMaintenanceRequest
	if r.Body != nil {
		// Body is optional; a missing timestamp means "now".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	completedAt := time.Now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	m, err := h.fleetService.CompleteMaintenance(r.Context(), maintenanceID, completedAt)
	if err != nil {
		if errors.Is(err, fleet.ErrMaintenanceNotFound) {
			respondError(w, http.StatusNotFound, "maintenance not found")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid completion")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// DeleteMaintenance deletes a maintenance
// @Summary Delete Maintenance
// @Tags Maintenances
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /maintenances/{maintenanceID} [delete]
func (h *Handler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFrom(r.Context())
	maintenanceID := chi.URLParam(r, "maintenanceID")

	if err := h.guard.Check(r.Context(), ident, auth.CategoryCheck{Category: auth.CategoryWriteOwnScope}); err != nil {
		respondDenial(w, err)
		return
	}
	ref := auth.ResourceRef{Type: auth.ResourceMaintenance, ID: maintenanceID}
	if err := h.guard.Check(r.Context(), ident, auth.ResourceCheck{Resource: ref}); err != nil {
		respondDenial(w, err)
		return
	}

	if err := h.fleetService.DeleteMaintenance(r.Context(), maintenanceID); err != nil {
		if errors.Is(err, fleet.ErrMaintenanceNotFound) {
			respondError(w, http.StatusNotFound, "maintenance not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete maintenance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "maintenance deleted",
	})
}
