package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type imageView struct {
	ID        int64  `json:"id"`
	ImageURL  string `json:"image_url"`
	IsPrimary bool   `json:"is_primary"`
}

func TestAmenityListForms(t *testing.T) {
	cases := map[string][]string{
		`["wifi","pool"]`:       {"wifi", "pool"},
		`"[\"wifi\",\"pool\"]"`: {"wifi", "pool"},
		`"wifi, pool ,"`:        {"wifi", "pool"},
		`""`:                    nil,
	}
	for in, want := range cases {
		var got amenityList
		require.NoError(t, json.Unmarshal([]byte(in), &got), in)
		require.Equal(t, want, []string(got), in)
	}
	var bad amenityList
	require.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestCreateApartmentByAgentAndAdmin(t *testing.T) {
	h := newHarness(t)
	agentID, token := h.agent("ada@x.com")

	rec := h.do(http.MethodPost, "/api/apartments", token, map[string]any{
		"title": "Flat", "location": "Yaba", "price_per_night": 30000, "amenities": []string{"wifi"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[apartmentResponse](t, rec)
	require.Equal(t, "Apartment created successfully", out.Message)
	require.Equal(t, "agent", out.Apartment.CreatedBy)
	require.Equal(t, agentID, *out.Apartment.AgentID)
	require.False(t, out.Apartment.IsApproved)

	rec = h.do(http.MethodPost, "/api/apartments", h.admin, map[string]any{"title": "Admin flat", "location": "Ikeja"})
	require.Equal(t, http.StatusCreated, rec.Code)
	out = decode[apartmentResponse](t, rec)
	require.Equal(t, "admin", out.Apartment.CreatedBy)
	require.Nil(t, out.Apartment.AgentID)
	require.True(t, out.Apartment.IsApproved)

	requireError(t, h.do(http.MethodPost, "/api/apartments", token, map[string]any{"title": "No location"}),
		http.StatusBadRequest, "Title and location are required")
}

func TestNonOwnerForbiddenBeforeValidation(t *testing.T) {
	h := newHarness(t)
	_, owner := h.agent("owner@x.com")
	_, other := h.agent("other@x.com")
	id := h.apartment(owner, "Owned")
	base := fmt.Sprintf("/api/apartments/%d", id)

	requireError(t, h.do(http.MethodPut, base, other, map[string]any{}), http.StatusForbidden, "You can only manage your own apartments")
	requireError(t, h.do(http.MethodPut, base+"/availability", other, map[string]any{}), http.StatusForbidden, "")
	requireError(t, h.do(http.MethodDelete, base, other, nil), http.StatusForbidden, "")
	requireError(t, h.upload(base+"/images", other, nil, nil), http.StatusForbidden, "")
	requireError(t, h.upload(base+"/videos", other, nil, nil), http.StatusForbidden, "")
	requireError(t, h.do(http.MethodDelete, base+"/images/424242", other, nil), http.StatusForbidden, "")

	requireError(t, h.do(http.MethodPut, base+"/featured", owner, map[string]bool{"is_featured": true}), http.StatusForbidden, "Access denied")
	requireError(t, h.do(http.MethodPut, base+"/approve", owner, map[string]bool{"is_approved": true}), http.StatusForbidden, "Access denied")

	requireError(t, h.do(http.MethodPut, base, owner, map[string]any{"title": ""}), http.StatusBadRequest, "Title and location are required")
	requireError(t, h.do(http.MethodPut, base+"/availability", owner, map[string]any{}), http.StatusBadRequest, "is_available is required")
}

func TestMissingApartmentIsNotFound(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")

	requireError(t, h.do(http.MethodGet, "/api/apartments/99999", "", nil), http.StatusNotFound, "Apartment not found")
	requireError(t, h.do(http.MethodGet, "/api/apartments/abc", "", nil), http.StatusNotFound, "Apartment not found")
	requireError(t, h.do(http.MethodPut, "/api/apartments/99999", token, map[string]any{}), http.StatusNotFound, "Apartment not found")
	requireError(t, h.do(http.MethodPut, "/api/apartments/99999/featured", h.admin, map[string]any{}), http.StatusNotFound, "Apartment not found")
	requireError(t, h.do(http.MethodDelete, "/api/apartments/99999", h.admin, nil), http.StatusNotFound, "")
}

func TestTogglesAndVisibility(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")
	id := h.apartment(token, "Pending")
	base := fmt.Sprintf("/api/apartments/%d", id)

	requireError(t, h.do(http.MethodGet, base, "", nil), http.StatusNotFound, "")
	require.Equal(t, http.StatusOK, h.do(http.MethodGet, base, token, nil).Code)

	list := decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments", "", nil))
	require.Empty(t, list)

	for i := 0; i < 2; i++ {
		rec := h.do(http.MethodPut, base+"/approve", h.admin, map[string]bool{"is_approved": true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = h.do(http.MethodPut, base+"/featured", h.admin, map[string]bool{"is_featured": true})
		require.Equal(t, http.StatusOK, rec.Code)
		rec = h.do(http.MethodPut, base+"/availability", token, map[string]bool{"is_available": false})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	list = decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments?featured=true&available=false", "", nil))
	require.Len(t, list, 1)
	list = decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments?available=true", "", nil))
	require.Empty(t, list)
	list = decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments?min_price=50000", "", nil))
	require.Empty(t, list)

	mine := decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments/agent/my-apartments", token, nil))
	require.Len(t, mine, 1)
	requireError(t, h.do(http.MethodGet, "/api/apartments/admin/all", token, nil), http.StatusForbidden, "")
	all := decode[[]map[string]any](t, h.do(http.MethodGet, "/api/apartments/admin/all", h.admin, nil))
	require.Len(t, all, 1)
}

func TestImageUploadPrimaryAndServing(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")
	id := h.apartment(token, "Gallery")
	base := fmt.Sprintf("/api/apartments/%d", id)

	requireError(t, h.upload(base+"/images", token, nil, nil), http.StatusBadRequest, "No images provided")

	rec := h.upload(base+"/images", token, map[string][]namedFile{"images": {pngFile(t, "a.png"), pngFile(t, "b.png")}}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	images := decode[struct {
		Images []imageView `json:"images"`
	}](t, rec).Images
	require.Len(t, images, 2)
	require.True(t, images[0].IsPrimary)
	require.False(t, images[1].IsPrimary)

	served := h.do(http.MethodGet, images[0].ImageURL, "", nil)
	require.Equal(t, http.StatusOK, served.Code)
	require.NotEmpty(t, served.Body.Bytes())

	rec = h.do(http.MethodDelete, fmt.Sprintf("%s/images/%d", base, images[0].ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, http.StatusNotFound, h.do(http.MethodGet, images[0].ImageURL, "", nil).Code)

	detail := decode[struct {
		Images []imageView `json:"images"`
	}](t, h.do(http.MethodGet, base, token, nil))
	require.Len(t, detail.Images, 1)
	require.True(t, detail.Images[0].IsPrimary)

	rec = h.do(http.MethodDelete, base, token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[struct {
		Cascade struct {
			Steps    []map[string]any `json:"steps"`
			Orphaned int              `json:"orphaned"`
		} `json:"cascade"`
	}](t, rec).Cascade
	require.Len(t, report.Steps, 1)
	require.Zero(t, report.Orphaned)
}

func TestOrphanedMediaRoutesAreAdminOnly(t *testing.T) {
	h := newHarness(t)
	_, token := h.agent("ada@x.com")
	requireError(t, h.do(http.MethodGet, "/api/admin/orphaned-media", token, nil), http.StatusForbidden, "")

	rec := h.do(http.MethodGet, "/api/admin/orphaned-media", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, "/api/admin/orphaned-media/reconcile", h.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"attempted": 0.0, "removed": 0.0, "remaining": 0.0}, decode[map[string]any](t, rec))
}
