package service

import (
	"context"
	"testing"

	"github.com/harborline/backoffice/internal/data"
	domainauth "github.com/harborline/backoffice/internal/domain/auth"
	"github.com/harborline/backoffice/internal/domain/model"
	mockauth "github.com/harborline/backoffice/internal/mocks/auth"
	"github.com/harborline/backoffice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedShipments() []model.Shipment {
	return []model.Shipment{
		{ID: "s1", BOLNumber: "BOL-1", Organization: "acme", Status: model.ShipmentStatusInTransit},
		{ID: "s2", BOLNumber: "BOL-2", Organization: "globex", Status: model.ShipmentStatusDelivered},
		{ID: "s3", BOLNumber: "BOL-3", Organization: "acme", Status: model.ShipmentStatusDelivered},
	}
}

func newShipmentService(t *testing.T) (*ShipmentService, *mockauth.MemoryShipmentRepository, *mockauth.RecordingAuditSink) {
	t.Helper()
	repo := mockauth.NewMemoryShipmentRepository(seedShipments()...)
	audit := &mockauth.RecordingAuditSink{}
	clock := testutil.NewClock(testutil.TestTime())
	svc, err := NewShipmentService(ShipmentServiceOptions{
		Repo:  repo,
		Guard: NewGuard(GuardOptions{}),
		Audit: audit,
		Now:   clock.Now,
	})
	require.NoError(t, err)
	return svc, repo, audit
}

func clientSession(org string) *domainauth.Session {
	return &domainauth.Session{ID: "c", UserID: "u-c", Email: "c@acme.example", Role: domainauth.RoleClient, Organization: org}
}

func officeSession() *domainauth.Session {
	return &domainauth.Session{ID: "o", UserID: "u-o", Email: "o@harborline.example", Role: domainauth.RoleOffice}
}

func adminSession() *domainauth.Session {
	return &domainauth.Session{ID: "a", UserID: "u-a", Email: "a@harborline.example", Role: domainauth.RoleAdmin}
}

func TestNewShipmentService_RequiresDependencies(t *testing.T) {
	_, err := NewShipmentService(ShipmentServiceOptions{})
	assert.Error(t, err)
	_, err = NewShipmentService(ShipmentServiceOptions{Repo: mockauth.NewMemoryShipmentRepository()})
	assert.Error(t, err)
}

func TestShipmentService_ClientScopingIgnoresRequestedOrganization(t *testing.T) {
	svc, repo, _ := newShipmentService(t)

	got, err := svc.List(context.Background(), clientSession("acme"), model.ShipmentFilter{Organization: "globex"})
	require.NoError(t, err)
	assert.Equal(t, "acme", repo.LastFilter.Organization)
	require.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, "acme", s.Organization)
	}
}

func TestShipmentService_OfficeSeesEveryOrganization(t *testing.T) {
	svc, _, _ := newShipmentService(t)

	all, err := svc.List(context.Background(), officeSession(), model.ShipmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	globex, err := svc.List(context.Background(), officeSession(), model.ShipmentFilter{Organization: "globex"})
	require.NoError(t, err)
	assert.Len(t, globex, 1)
}

func TestShipmentService_ListRequiresSession(t *testing.T) {
	svc, _, _ := newShipmentService(t)
	_, err := svc.List(context.Background(), nil, model.ShipmentFilter{})
	assert.ErrorIs(t, err, domainauth.ErrUnauthorized)
}

func TestShipmentService_GetAcrossOrganizations(t *testing.T) {
	svc, _, _ := newShipmentService(t)
	ctx := context.Background()

	sh, err := svc.Get(ctx, clientSession("acme"), "s1")
	require.NoError(t, err)
	assert.Equal(t, "BOL-1", sh.BOLNumber)

	_, err = svc.Get(ctx, clientSession("acme"), "s2")
	assert.ErrorIs(t, err, data.ErrShipmentNotFound, "other organizations look absent to a client")

	sh, err = svc.Get(ctx, officeSession(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "globex", sh.Organization)

	_, err = svc.Get(ctx, officeSession(), "missing")
	assert.ErrorIs(t, err, data.ErrShipmentNotFound)
}

func TestShipmentService_Delete(t *testing.T) {
	svc, _, audit := newShipmentService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, officeSession(), "s1"), domainauth.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, clientSession("acme"), "s1"), domainauth.ErrForbidden)
	assert.Empty(t, audit.Events())

	require.NoError(t, svc.Delete(ctx, adminSession(), "s1"))
	assert.ErrorIs(t, svc.Delete(ctx, adminSession(), "s1"), data.ErrShipmentNotFound)

	events := audit.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.AuditShipmentDeleted, events[0].Action)
	assert.Equal(t, "a@harborline.example", events[0].Actor)
	assert.Equal(t, "s1", events[0].Target)
	assert.Equal(t, testutil.TestTime(), events[0].At)
}
