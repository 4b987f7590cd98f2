package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"apartmentng/internal/captcha"
	"apartmentng/internal/middleware"
	"apartmentng/internal/models"
	"apartmentng/internal/service"
	"apartmentng/internal/util"
)

type registerRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required"`
	Password     string  `json:"password" validate:"required"`
	Phone        *string `json:"phone"`
	CompanyName  *string `json:"company_name"`
	CaptchaToken string  `json:"captcha_token"`
}

type profileRequest struct {
	Name        string  `json:"name" validate:"required"`
	Phone       *string `json:"phone"`
	CompanyName *string `json:"company_name"`
}

type emailChangeRequest struct {
	NewEmail string `json:"new_email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type approvalRequest struct {
	IsApproved *bool `json:"is_approved" validate:"required"`
}

type reviewRequest struct {
	Status          string `json:"status" validate:"required,oneof=approved rejected"`
	RejectionReason string `json:"rejection_reason"`
}

func (h *Handlers) AgentRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.bind(w, r, &req, "Name, email, and password are required") {
		return
	}
	if err := h.captcha.Verify(r.Context(), req.CaptchaToken, middleware.ClientIP(r, h.cfg.TrustProxy)); err != nil {
		switch {
		case errors.Is(err, captcha.ErrRequired):
			h.badRequest(w, r, "Captcha verification failed")
		case errors.Is(err, captcha.ErrUnavailable):
			h.log.WithError(err).Warn("captcha verifier unavailable")
			util.WriteError(w, http.StatusServiceUnavailable, "captcha_unavailable", "Captcha verification unavailable", middleware.RequestID(r.Context()))
		default:
			h.badRequest(w, r, "Captcha verification failed")
		}
		return
	}
	_, err := h.svc.RegisterAgent(r.Context(), service.RegisterAgentInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusCreated, "Registration successful. Waiting for admin approval.")
}

func (h *Handlers) AgentLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req, "Email and password are required") {
		return
	}
	res, err := h.svc.AgentLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, res)
}

func (h *Handlers) VerifyAgentEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyAgentEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Email verified successfully")
}

func (h *Handlers) VerifyNewEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyNewEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Email updated successfully")
}

func (h *Handlers) AgentProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := h.svc.AgentProfile(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, prof)
}

func (h *Handlers) UpdateAgentProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.bind(w, r, &req, "Name is required") {
		return
	}
	if err := h.svc.UpdateAgentProfile(r.Context(), principal(r), req.Name, req.Phone, req.CompanyName); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Profile updated successfully")
}

func (h *Handlers) ChangeAgentPassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !h.bind(w, r, &req, "Current and new passwords are required") {
		return
	}
	if err := h.svc.ChangeAgentPassword(r.Context(), principal(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *Handlers) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req emailChangeRequest
	if !h.bind(w, r, &req, "New email and password are required") {
		return
	}
	if err := h.svc.RequestEmailChange(r.Context(), principal(r), req.NewEmail, req.Password); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Verification email sent to new address")
}

func (h *Handlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ResendVerification(r.Context(), principal(r)); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Verification email sent")
}

func (h *Handlers) UploadAgentDocument(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	file, err := formFile(r, "document")
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	docType := models.DocumentType(strings.TrimSpace(r.FormValue("document_type")))
	doc, err := h.svc.UploadAgentDocument(r.Context(), principal(r), docType, file)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]any{
		"message":  "Document uploaded successfully",
		"document": doc,
	})
}

func (h *Handlers) DeleteAgentDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := h.pathID(w, r, "docID", "Document not found")
	if !ok {
		return
	}
	if err := h.svc.DeleteAgentDocument(r.Context(), principal(r), docID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Document deleted successfully")
}

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.svc.ListAgents(r.Context(), principal(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, agents)
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Agent not found")
	if !ok {
		return
	}
	detail, err := h.svc.GetAgentDetail(r.Context(), principal(r), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handlers) ApproveAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Agent not found")
	if !ok {
		return
	}
	var req approvalRequest
	if !h.bind(w, r, &req, "is_approved is required") {
		return
	}
	if err := h.svc.SetAgentApproval(r.Context(), principal(r), id, *req.IsApproved); err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, "Agent status updated")
}

func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Agent not found")
	if !ok {
		return
	}
	report, err := h.svc.DeleteAgent(r.Context(), principal(r), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Agent deleted successfully",
		"cascade": report,
	})
}

func (h *Handlers) ReviewAgentDocument(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.pathID(w, r, "id", "Agent not found")
	if !ok {
		return
	}
	docID, ok := h.pathID(w, r, "docID", "Document not found")
	if !ok {
		return
	}
	var req reviewRequest
	if !h.bind(w, r, &req, "") {
		return
	}
	doc, err := h.svc.ReviewAgentDocument(r.Context(), principal(r), agentID, docID, models.DocumentStatus(req.Status), req.RejectionReason)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"message":  "Document review saved",
		"document": doc,
	})
}
