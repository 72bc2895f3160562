package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "xpost/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop())
	require.Error(t, err)
}

func TestStoresRoundTripPerRun(t *testing.T) {
	t.Parallel()
	tests := []struct {
		driver string
		file   string
	}{
		{driver: "file", file: "journal.jsonl"},
		{driver: "sqlite", file: "journal.db"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.driver, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", tt.file)
			st, err := Open(Config{Driver: tt.driver, Path: path}, logx.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = st.Close() })

			ctx := context.Background()
			at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			require.NoError(t, st.AppendDelivery(ctx, Delivery{At: at, RunID: "r1", Destination: "alpha", Kind: "text", Title: "T", Status: "sent", TookMS: 12}))
			require.NoError(t, st.AppendDelivery(ctx, Delivery{At: at, RunID: "r2", Destination: "other", Kind: "text", Title: "T", Status: "sent"}))
			require.NoError(t, st.AppendDelivery(ctx, Delivery{At: at, RunID: "r1", Destination: "beta", Kind: "text", Title: "T", Status: "failed", Error: "http 500"}))

			got, err := st.Deliveries(ctx, "r1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "alpha", got[0].Destination)
			assert.Equal(t, int64(12), got[0].TookMS)
			assert.True(t, at.Equal(got[0].At))
			assert.Equal(t, "beta", got[1].Destination)
			assert.Equal(t, "failed", got[1].Status)
			assert.Equal(t, "http 500", got[1].Error)
		})
	}
}
