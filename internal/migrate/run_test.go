package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_SortedAndEmbedded(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users", "0002_shipments"}, versions)
}

func TestPending(t *testing.T) {
	versions := []string{"0001_users", "0002_shipments", "0003_indexes"}

	assert.Equal(t, versions, Pending(versions, nil))
	assert.Equal(t, []string{"0003_indexes"},
		Pending(versions, map[string]bool{"0001_users": true, "0002_shipments": true}))
	assert.Empty(t, Pending(versions, map[string]bool{"0001_users": true, "0002_shipments": true, "0003_indexes": true}))
}
