package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesOnlyNamedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chain_id: my-chain\nno_price_feed: true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "my-chain", cfg.ChainID)
	require.True(t, cfg.NoPriceFeed)
	// Unmentioned fields keep their Default() value.
	require.Equal(t, Default().MempoolParkedMaxTxCount, cfg.MempoolParkedMaxTxCount)
	require.Equal(t, Default().GRPCAddr, cfg.GRPCAddr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}
