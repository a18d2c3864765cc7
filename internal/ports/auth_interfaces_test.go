package ports_test

import (
	"testing"

	"github.com/harborline/backoffice/internal/adapters/memory"
	mocks "github.com/harborline/backoffice/internal/mocks/auth"
	"github.com/harborline/backoffice/internal/ports"
)

// This test only verifies that our doubles conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.IdentityProvider = (*mocks.MockIdentityProvider)(nil)
	var _ ports.TokenVerifier = (*mocks.StubVerifier)(nil)
	var _ ports.StateStore = mocks.UnavailableStateStore{}
	var _ ports.StateStore = (*memory.StateStore)(nil)
	var _ ports.SessionStore = (*memory.SessionStore)(nil)
	var _ ports.UserRepository = (*mocks.MemoryUserRepository)(nil)
	var _ ports.ShipmentRepository = (*mocks.MemoryShipmentRepository)(nil)
	var _ ports.RoleDirectory = (*mocks.RecordingRoleDirectory)(nil)
	var _ ports.AuditSink = (*mocks.RecordingAuditSink)(nil)
}
