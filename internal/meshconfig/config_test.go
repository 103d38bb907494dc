package meshconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nodecore/mle/internal/meshconfig"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meshd.yaml")

	want := meshconfig.Default()
	want.NetworkName = "test-mesh"
	want.PanID = 0xface
	want.Channel = 20
	want.SetMasterKey([32]byte{1, 2, 3, 4})

	data, err := yaml.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err := meshconfig.Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(meshconfig.Config{})); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	key, err := got.MasterKey()
	require.NoError(t, err)
	require.Equal(t, [32]byte{1, 2, 3, 4}, key)

	// Save must round-trip back to the same bytes a second Load would see.
	require.NoError(t, got.Save())

	reloaded, err := meshconfig.Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(got, reloaded, cmpopts.IgnoreUnexported(meshconfig.Config{})); diff != "" {
		t.Errorf("Save()+Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestMasterKeyRejectsBadHex(t *testing.T) {
	c := meshconfig.Default()
	c.MasterKeyHex = "not-hex"

	_, err := c.MasterKey()
	require.ErrorIs(t, err, meshconfig.ErrBadMasterKey)
}
