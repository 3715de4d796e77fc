package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scan(qr string) ScanRequest {
	return ScanRequest{QRCode: qr, DeviceBrand: "Acme", DeviceModel: "X1", IPAddress: "10.0.0.1", UserAgent: "scanner/1.0"}
}

func TestValidateOrCreateCreatesThenRenews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.badges.ValidateOrCreate(ctx, scan("ABCDE"))
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.True(t, first.ExpirationTime.Equal(ceiling))
	require.NotNil(t, first.ValidationTime)
	assert.True(t, first.ValidationTime.Equal(f.now))

	f.now = f.now.Add(10 * time.Minute)
	req := scan("ABCDE")
	req.DeviceModel = "X2"
	second, err := f.badges.ValidateOrCreate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "X2", second.DeviceModel)
	require.NotNil(t, second.ValidationTime)
	assert.True(t, second.ValidationTime.Equal(f.now))

	_, list, err := f.accesses.ListByBadge(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "10.0.0.1", list[0].IPAddress)
	assert.Equal(t, "scanner/1.0", list[0].UserAgent)

	all, err := f.badges.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestValidateOrCreateKeepsNameWhenOmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := scan("NAMED-1")
	req.Name = "Alice"
	_, err := f.badges.ValidateOrCreate(ctx, req)
	require.NoError(t, err)

	b, err := f.badges.ValidateOrCreate(ctx, scan("NAMED-1"))
	require.NoError(t, err)
	assert.Equal(t, "Alice", b.Name)

	req.Name = "Bob"
	b, err = f.badges.ValidateOrCreate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "Bob", b.Name)
}

func TestValidateOrCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.badges.ValidateOrCreate(ctx, scan("ABCD"))
	requireKind(t, err, KindInvalidInput, MsgInvalidQRCode)

	_, err = f.badges.ValidateOrCreate(ctx, scan(strings.Repeat("q", 101)))
	requireKind(t, err, KindInvalidInput, MsgInvalidQRCode)

	req := scan("ABCDE")
	req.DeviceBrand = strings.Repeat("b", 51)
	_, err = f.badges.ValidateOrCreate(ctx, req)
	requireKind(t, err, KindInvalidInput, MsgInvalidDeviceBrand)

	req = scan("ABCDE")
	req.DeviceModel = strings.Repeat("m", 101)
	_, err = f.badges.ValidateOrCreate(ctx, req)
	requireKind(t, err, KindInvalidInput, MsgInvalidDeviceModel)

	n, err := f.store.CountAccesses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCheckStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.badges.CheckStatus(ctx, "bad")
	requireKind(t, err, KindInvalidInput, MsgInvalidQRCode)

	_, err = f.badges.CheckStatus(ctx, "UNKNOWN")
	requireKind(t, err, KindNotFound, MsgBadgeNotFound)

	b, err := f.badges.ValidateOrCreate(ctx, scan("ACTIVE"))
	require.NoError(t, err)

	got, err := f.badges.CheckStatus(ctx, "ACTIVE")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	n, err := f.store.CountAccesses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "status checks are not logged")

	f.now = ceiling.Add(time.Second)
	_, err = f.badges.CheckStatus(ctx, "ACTIVE")
	requireKind(t, err, KindForbidden, MsgBadgeExpired)

	_, err = f.badges.Update(ctx, b.ID, UpdateBadgeRequest{IsActive: new(bool)})
	require.NoError(t, err)
	_, err = f.badges.CheckStatus(ctx, "ACTIVE")
	requireKind(t, err, KindForbidden, MsgBadgeInactive)
}

func TestCheckStatusAtCeilingIsUsable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.badges.ValidateOrCreate(ctx, scan("EDGE-1"))
	require.NoError(t, err)

	f.now = ceiling
	_, err = f.badges.CheckStatus(ctx, "EDGE-1")
	assert.NoError(t, err)
}

func TestCreateBadge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wanted := f.now.Add(2 * time.Hour)
	b, err := f.badges.Create(ctx, CreateBadgeRequest{QRCode: "ADMIN-1", Name: "Guest", ExpirationTime: &wanted})
	require.NoError(t, err)
	assert.True(t, b.IsActive)
	assert.Nil(t, b.ValidationTime)
	assert.True(t, b.ExpirationTime.Equal(wanted))

	_, err = f.badges.Create(ctx, CreateBadgeRequest{QRCode: "ADMIN-1"})
	requireKind(t, err, KindConflict, MsgQRCodeExists)

	_, err = f.badges.Create(ctx, CreateBadgeRequest{QRCode: "x"})
	requireKind(t, err, KindInvalidInput, MsgInvalidQRCode)
}

func TestCreateBadgeClampsExpiration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.now.Add(-time.Hour)
	late := ceiling.Add(time.Hour)

	for qr, exp := range map[string]*time.Time{"NONE-1": nil, "PAST-1": &past, "LATE-1": &late} {
		b, err := f.badges.Create(ctx, CreateBadgeRequest{QRCode: qr, ExpirationTime: exp})
		require.NoError(t, err, qr)
		assert.True(t, b.ExpirationTime.Equal(ceiling), qr)
	}
}

func TestUpdateBadge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.badges.Create(ctx, CreateBadgeRequest{QRCode: "UPD-01", Name: "Old", DeviceBrand: "Acme"})
	require.NoError(t, err)

	earlier := f.now.Add(time.Hour)
	got, err := f.badges.Update(ctx, b.ID, UpdateBadgeRequest{Name: strp("New"), ExpirationTime: &earlier})
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "Acme", got.DeviceBrand)
	assert.True(t, got.ExpirationTime.Equal(earlier))

	late := ceiling.Add(time.Hour)
	got, err = f.badges.Update(ctx, b.ID, UpdateBadgeRequest{ExpirationTime: &late})
	require.NoError(t, err)
	assert.True(t, got.ExpirationTime.Equal(earlier), "out of range expiration keeps the stored one")

	_, err = f.badges.Update(ctx, "2b1c1f7e-0000-4000-8000-000000000000", UpdateBadgeRequest{Name: strp("x")})
	requireKind(t, err, KindNotFound, MsgBadgeNotFound)

	_, err = f.badges.Update(ctx, "not-a-uuid", UpdateBadgeRequest{})
	requireKind(t, err, KindNotFound, MsgBadgeNotFound)
}

func TestDeleteBadgeCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.badges.ValidateOrCreate(ctx, scan("GONE-1"))
	require.NoError(t, err)
	_, err = f.badges.ValidateOrCreate(ctx, scan("GONE-1"))
	require.NoError(t, err)
	_, err = f.badges.ValidateOrCreate(ctx, scan("KEEP-1"))
	require.NoError(t, err)

	require.NoError(t, f.badges.Delete(ctx, b.ID))

	list, err := f.accesses.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "KEEP-1", list[0].QRCode)

	err = f.badges.Delete(ctx, b.ID)
	requireKind(t, err, KindNotFound, MsgBadgeNotFound)
}

func TestCloseEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, qr := range []string{"EVT-01", "EVT-02"} {
		_, err := f.badges.ValidateOrCreate(ctx, scan(qr))
		require.NoError(t, err)
	}
	n, err := f.badges.CloseEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.badges.ValidateOrCreate(ctx, scan("EVT-03"))
	require.NoError(t, err)

	n, err = f.badges.CloseEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := f.badges.List(ctx)
	require.NoError(t, err)
	for _, b := range all {
		assert.False(t, b.IsActive, b.QRCode)
	}
}

func TestValidateOrCreateAcceptsLongNameAndProxyChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := scan("LONG-01")
	req.Name = strings.Repeat("n", 300)
	req.IPAddress = strings.TrimSuffix(strings.Repeat("203.0.113.7, ", 40), ", ")

	b, err := f.badges.ValidateOrCreate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.Name, b.Name)

	_, list, err := f.accesses.ListByBadge(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, req.IPAddress, list[0].IPAddress)
}
