package api

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"apartmentng/internal/util"
)

func TestRegisterAndPendingLogin(t *testing.T) {
	h := newHarness(t)
	body := map[string]any{"name": "Ada", "email": "Ada@Example.com", "password": "secret1"}

	rec := h.do(http.MethodPost, "/api/agents/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "Registration successful. Waiting for admin approval.", decode[util.Message](t, rec).Message)

	requireError(t, h.do(http.MethodPost, "/api/agents/register", "", body), http.StatusBadRequest, "Email already registered")
	requireError(t, h.do(http.MethodPost, "/api/agents/register", "", map[string]any{"email": "x@y.com"}),
		http.StatusBadRequest, "Name, email, and password are required")

	requireError(t, h.do(http.MethodPost, "/api/agents/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"}),
		http.StatusForbidden, "Your account is pending approval")
	requireError(t, h.do(http.MethodPost, "/api/agents/login", "", map[string]string{"email": "ada@example.com", "password": "wrong"}),
		http.StatusForbidden, "Your account is pending approval")
	requireError(t, h.do(http.MethodPost, "/api/agents/login", "", map[string]string{"email": "ada@example.com"}),
		http.StatusBadRequest, "Email and password are required")
}

func TestVerifyEmailLink(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")
	link := h.mail.tokenFor(t, "ada@x.com")

	rec := h.do(http.MethodGet, "/api/agents/verify/"+link, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireError(t, h.do(http.MethodGet, "/api/agents/verify/"+link, "", nil), http.StatusBadRequest, "")

	rec = h.do(http.MethodGet, "/api/agents/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	require.Equal(t, true, me["email_verified"])
	require.NotContains(t, me, "password_hash")

	requireError(t, h.do(http.MethodPost, "/api/agents/me/resend-verification", token, nil), http.StatusBadRequest, "")
}

func TestEmailChangeFlow(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")
	h.agent("taken@x.com")

	requireError(t, h.do(http.MethodPut, "/api/agents/me/email", token, map[string]string{"new_email": "taken@x.com", "password": "secret1"}),
		http.StatusBadRequest, "Email already registered")
	requireError(t, h.do(http.MethodPut, "/api/agents/me/email", token, map[string]string{"new_email": "new@x.com", "password": "bad"}),
		http.StatusUnauthorized, "Password is incorrect")
	requireError(t, h.do(http.MethodPut, "/api/agents/me/email", token, map[string]string{"new_email": "new@x.com"}),
		http.StatusBadRequest, "New email and password are required")

	rec := h.do(http.MethodPut, "/api/agents/me/email", token, map[string]string{"new_email": "new@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/agents/verify-new-email/"+h.mail.tokenFor(t, "new@x.com"), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	h.login("/api/agents/login", "new@x.com", "secret1")
}

func TestAgentProfileAndPassword(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")

	requireError(t, h.do(http.MethodPut, "/api/agents/me", token, map[string]string{"phone": "0800"}), http.StatusBadRequest, "Name is required")
	rec := h.do(http.MethodPut, "/api/agents/me", token, map[string]any{"name": "Ada L", "company_name": "Lovelace Homes"})
	require.Equal(t, http.StatusOK, rec.Code)

	requireError(t, h.do(http.MethodPut, "/api/agents/me/password", token, map[string]string{"current_password": "nope", "new_password": "secret2"}),
		http.StatusUnauthorized, "Current password is incorrect")
	rec = h.do(http.MethodPut, "/api/agents/me/password", token, map[string]string{"current_password": "secret1", "new_password": "secret2"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Password changed successfully", decode[util.Message](t, rec).Message)
	h.login("/api/agents/login", "ada@x.com", "secret2")
}

func TestAdminOnlyAgentRoutes(t *testing.T) {
	h := newHarness(t)
	id, token := h.agent("ada@x.com")

	requireError(t, h.do(http.MethodGet, "/api/agents", token, nil), http.StatusForbidden, "Access denied")
	requireError(t, h.do(http.MethodDelete, fmt.Sprintf("/api/agents/%d", id), token, nil), http.StatusForbidden, "")
	requireError(t, h.do(http.MethodGet, "/api/agents/me", h.admin, nil), http.StatusForbidden, "")

	rec := h.do(http.MethodGet, fmt.Sprintf("/api/agents/%d", id), h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	requireError(t, h.do(http.MethodGet, "/api/agents/99999", h.admin, nil), http.StatusNotFound, "Agent not found")
	requireError(t, h.do(http.MethodPut, fmt.Sprintf("/api/agents/%d/approve", id), h.admin, map[string]any{}),
		http.StatusBadRequest, "is_approved is required")

	h.apartment(token, "Owned")
	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/agents/%d", id), h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, err := h.st.GetAgentByID(context.Background(), id)
	require.Error(t, err)
}

func TestAgentDocumentUploadAndReview(t *testing.T) {
	h := newHarness(t)
	id, token := h.agent("ada@x.com")

	rec := h.upload("/api/agents/me/documents", token, map[string][]namedFile{"document": {pngFile(t, "id.png")}},
		map[string]string{"document_type": "id_card_front"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[struct {
		Document struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"document"`
	}](t, rec).Document
	require.Equal(t, "pending", doc.Status)

	requireError(t, h.upload("/api/agents/me/documents", token, nil, map[string]string{"document_type": "id_card_front"}),
		http.StatusBadRequest, "No file uploaded")

	path := fmt.Sprintf("/api/agents/%d/documents/%d/review", id, doc.ID)
	requireError(t, h.do(http.MethodPut, path, h.admin, map[string]string{"status": "maybe"}), http.StatusBadRequest, "")
	rec = h.do(http.MethodPut, path, h.admin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodDelete, fmt.Sprintf("/api/agents/me/documents/%d", doc.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	requireError(t, h.do(http.MethodDelete, fmt.Sprintf("/api/agents/me/documents/%d", doc.ID), token, nil), http.StatusNotFound, "")
}

func TestAdminProfileAndPassword(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/api/admin/profile", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin@apartmentng.test", decode[map[string]any](t, rec)["email"])

	rec = h.do(http.MethodPut, "/api/admin/password", h.admin, map[string]string{"current_password": "admin-pass", "new_password": "admin-pass-2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	h.login("/api/admin/login", "admin@apartmentng.test", "admin-pass-2")

	requireError(t, h.do(http.MethodPost, "/api/admin/login", "", map[string]string{"email": "admin@apartmentng.test", "password": "admin-pass"}),
		http.StatusUnauthorized, "Invalid credentials")
}
