package api

import (
	"net/http"

	"apartmentng/internal/util"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req, "Email and password are required") {
		return
	}
	res, err := h.svc.AdminLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) AdminProfile(w http.ResponseWriter, r *http.Request) {
	admin, err := h.svc.AdminProfile(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, admin)
}

func (h *Handlers) AdminChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.bind(w, r, &req, "Current and new password are required") {
		return
	}
	if err := h.svc.ChangeAdminPassword(r.Context(), principal(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Password updated successfully")
}

func (h *Handlers) ListOrphanedMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListOrphanedMedia(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, items)
}

func (h *Handlers) ReconcileOrphanedMedia(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReconcileOrphanedMediaAs(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, res)
}
