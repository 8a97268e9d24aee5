package dbarchive

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astria/sequencer/pkg/config"
)

// Archive tests need a real Postgres instance; they're skipped entirely
// when ASTRIA_TEST_ARCHIVE_DB isn't set, the same gate the teacher's own
// database tests use.
func testClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("ASTRIA_TEST_ARCHIVE_DB")
	if url == "" {
		t.Skip("ASTRIA_TEST_ARCHIVE_DB not set, skipping dbarchive tests")
	}

	cfg := config.Default()
	cfg.ArchiveDatabaseURL = url
	client, err := NewClient(cfg)
	require.NoError(t, err)
	require.NoError(t, client.MigrateUp(context.Background()))
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRecordAndFetchBlock(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	appHash := []byte{1, 2, 3, 4}
	txHashes := [][]byte{{0xaa}, {0xbb}}
	rollupTxs := RollupTransactions{
		Order: []string{"ab"},
		ByID:  map[string][][]byte{"ab": {{0x01}, {0x02}}},
	}
	fullTxs := [][]byte{{0x10}, {0x20}, {0x30}}
	require.NoError(t, client.RecordBlock(ctx, 42, appHash, txHashes, rollupTxs, fullTxs))

	got, err := client.BlockByHeight(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, int64(42), got.Height)
	require.Equal(t, appHash, got.AppHash)
	require.Equal(t, txHashes, got.TxHashes)
	require.Equal(t, rollupTxs, got.RollupTransactions)
	require.Equal(t, fullTxs, got.FullTxs)
}

func TestBlockByHeight_MissingReturnsNil(t *testing.T) {
	client := testClient(t)
	got, err := client.BlockByHeight(context.Background(), 999999)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestNewClient_RejectsEmptyURL(t *testing.T) {
	_, err := NewClient(config.Default())
	require.Error(t, err)
}
