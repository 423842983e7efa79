package firestore

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/Sr-Chandan-Sahu/vibeone/internal/repository/room/roomtest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs against the Firestore emulator only.
func TestRepo(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	roomtest.Run(t, func(t *testing.T) roomtest.Store {
		client, err := firestore.NewClient(context.Background(), "vibeone-test-"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })

		return NewRepo(client, slog.Default())
	})
}
