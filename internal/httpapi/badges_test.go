package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrbadge/api/internal/model"
)

func TestValidateBadgeCreatesThenRenews(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]string{"qrCode": "ABCDE", "deviceBrand": "Acme", "deviceModel": "X1"}

	rec := a.do(t, http.MethodPost, "/api/badges/validate", body, "")
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, true, decode(t, rec)["success"])
	first := decodeInto[model.Badge](t, rec, "badge")
	assert.True(t, first.IsActive)
	assert.True(t, first.ExpirationTime.Equal(testCeiling))

	a.now = a.now.Add(5 * time.Minute)
	rec = a.do(t, http.MethodPost, "/api/badges/validate", body, "")
	requireStatus(t, rec, http.StatusOK)
	second := decodeInto[model.Badge](t, rec, "badge")
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.ValidationTime)
	assert.True(t, second.ValidationTime.After(*first.ValidationTime))

	accesses, err := a.store.ListAccessesByBadge(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Len(t, accesses, 2)
}

func TestValidateBadgeRecordsClient(t *testing.T) {
	a := newTestAPI(t)
	body := map[string]string{"qrCode": "CLIENT-1", "deviceBrand": "Acme", "deviceModel": "X1"}

	rec := a.do(t, http.MethodPost, "/api/badges/validate", body, "",
		"X-Forwarded-For", "203.0.113.7", "User-Agent", "badge-reader/2")
	requireStatus(t, rec, http.StatusOK)
	b := decodeInto[model.Badge](t, rec, "badge")

	rec = a.do(t, http.MethodPost, "/api/badges/validate", body, "")
	requireStatus(t, rec, http.StatusOK)

	list, err := a.store.ListAccessesByBadge(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ips := []string{list[0].IPAddress, list[1].IPAddress}
	assert.Contains(t, ips, "203.0.113.7")
	assert.Contains(t, ips, "192.0.2.1", "httptest peer address")
}

func TestValidateBadgeRejectsBadInput(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/api/badges/validate", map[string]string{"qrCode": "abc"}, "")
	requireErrorBody(t, rec, http.StatusBadRequest, "QR code invalide")

	rec = a.do(t, http.MethodPost, "/api/badges/validate", nil, "")
	requireErrorBody(t, rec, http.StatusBadRequest, "QR code invalide")

	rec = a.do(t, http.MethodPost, "/api/badges/validate", map[string]any{"qrCode": 12345}, "")
	requireErrorBody(t, rec, http.StatusBadRequest, msgInvalidBody)
}

func TestCheckBadge(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/api/badges/check/UNKNOWN", nil, "")
	requireErrorBody(t, rec, http.StatusNotFound, "Badge non trouvé")

	rec = a.do(t, http.MethodGet, "/api/badges/check/abc", nil, "")
	requireErrorBody(t, rec, http.StatusBadRequest, "QR code invalide")

	rec = a.do(t, http.MethodPost, "/api/badges/validate", map[string]string{"qrCode": "CHECK-1"}, "")
	requireStatus(t, rec, http.StatusOK)

	rec = a.do(t, http.MethodGet, "/api/badges/check/CHECK-1", nil, "")
	requireStatus(t, rec, http.StatusOK)

	a.now = testCeiling.Add(time.Minute)
	rec = a.do(t, http.MethodGet, "/api/badges/check/CHECK-1", nil, "")
	requireErrorBody(t, rec, http.StatusForbidden, "Badge expiré")

	rec = a.do(t, http.MethodPost, "/api/badges/close-event", nil, a.adminToken(t))
	requireStatus(t, rec, http.StatusOK)
	rec = a.do(t, http.MethodGet, "/api/badges/check/CHECK-1", nil, "")
	requireErrorBody(t, rec, http.StatusForbidden, "Badge inactif")
}

func TestCreateBadgeDuplicate(t *testing.T) {
	a := newTestAPI(t)
	tok := a.adminToken(t)

	rec := a.do(t, http.MethodPost, "/api/badges", map[string]string{"qrCode": "DUP-01", "name": "Guest"}, tok)
	requireStatus(t, rec, http.StatusCreated)
	b := decodeInto[model.Badge](t, rec, "badge")
	assert.True(t, b.ExpirationTime.Equal(testCeiling))
	assert.Nil(t, b.ValidationTime)

	rec = a.do(t, http.MethodPost, "/api/badges", map[string]string{"qrCode": "DUP-01"}, tok)
	requireErrorBody(t, rec, http.StatusBadRequest, "Ce QR code existe déjà")
}

func TestBadgeAdministration(t *testing.T) {
	a := newTestAPI(t)
	tok := a.adminToken(t)

	exp := a.now.Add(3 * time.Hour).Format(time.RFC3339)
	rec := a.do(t, http.MethodPost, "/api/badges", map[string]any{"qrCode": "ADM-01", "expirationTime": exp}, tok)
	requireStatus(t, rec, http.StatusCreated)
	b := decodeInto[model.Badge](t, rec, "badge")
	assert.Equal(t, exp, b.ExpirationTime.Format(time.RFC3339))

	rec = a.do(t, http.MethodPut, "/api/badges/"+b.ID, map[string]any{
		"name":           "Speaker",
		"isActive":       false,
		"expirationTime": "2031-01-01T00:00:00Z",
	}, tok)
	requireStatus(t, rec, http.StatusOK)
	updated := decodeInto[model.Badge](t, rec, "badge")
	assert.Equal(t, "Speaker", updated.Name)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.ExpirationTime.Equal(b.ExpirationTime))

	rec = a.do(t, http.MethodGet, "/api/badges", nil, tok)
	requireStatus(t, rec, http.StatusOK)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = a.do(t, http.MethodGet, "/api/badges/"+b.ID, nil, tok)
	requireStatus(t, rec, http.StatusOK)

	rec = a.do(t, http.MethodDelete, "/api/badges/"+b.ID, nil, tok)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Badge supprimé avec succès", decode(t, rec)["message"])

	rec = a.do(t, http.MethodGet, "/api/badges/"+b.ID, nil, tok)
	requireErrorBody(t, rec, http.StatusNotFound, "Badge non trouvé")

	rec = a.do(t, http.MethodPut, "/api/badges/not-a-uuid", map[string]any{"name": "x"}, tok)
	requireErrorBody(t, rec, http.StatusNotFound, "Badge non trouvé")
}

func TestCloseEventDeactivatesEveryBadge(t *testing.T) {
	a := newTestAPI(t)
	tok := a.adminToken(t)

	for _, qr := range []string{"CLOSE-1", "CLOSE-2", "CLOSE-3"} {
		rec := a.do(t, http.MethodPost, "/api/badges/validate", map[string]string{"qrCode": qr}, "")
		requireStatus(t, rec, http.StatusOK)
	}

	rec := a.do(t, http.MethodPost, "/api/badges/close-event", nil, tok)
	requireStatus(t, rec, http.StatusOK)
	out := decode(t, rec)
	assert.Equal(t, "Tous les badges ont été désactivés", out["message"])
	assert.EqualValues(t, 3, out["count"])

	rec = a.do(t, http.MethodGet, "/api/badges", nil, tok)
	requireStatus(t, rec, http.StatusOK)
	for _, b := range decodeInto[[]model.Badge](t, rec, "badges") {
		assert.False(t, b.IsActive, b.QRCode)
	}
}
