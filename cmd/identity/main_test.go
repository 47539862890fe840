package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/calendar/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	emptyEnv := func(string) string { return "" }
	emptyWd := func() (string, error) { return t.TempDir(), nil }

	newAddr := func(t *testing.T) string {
		port, err := testutil.RandomPort()
		require.NoError(t, err, "failed to get random port to start server")
		return fmt.Sprintf("localhost:%d", port)
	}

	t.Run("stop with signal", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		t.Cleanup(cancel)

		err := run(ctx, emptyEnv, emptyWd, []string{
			"--address", newAddr(t),
			"--log-level", "debug",
			"--database", pg.DSN,
			"--access-secret", "access",
			"--refresh-secret", "refresh",
		})

		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("serve with redis sessions", func(t *testing.T) {
		rdb := testutil.StartRedisContainer(t)
		t.Cleanup(rdb.Terminate)

		addr := newAddr(t)
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)

		errCh := make(chan error, 1)
		go func() {
			errCh <- run(ctx, emptyEnv, emptyWd, []string{
				"--address", addr,
				"--database", pg.DSN,
				"--redis", rdb.URL,
				"--access-secret", "access",
				"--refresh-secret", "refresh",
			})
		}()

		body := `{"username":"alice","email":"alice-redis@example.com","password":"secret1"}`
		require.Eventually(t, func() bool {
			resp, err := http.Post("http://"+addr+"/api/identity/register", "application/json", strings.NewReader(body))
			if err != nil {
				return false
			}
			defer resp.Body.Close() // nolint:errcheck
			return resp.StatusCode == http.StatusOK
		}, 5*time.Second, 50*time.Millisecond, "server has to register user")

		cancel()
		require.NoError(t, <-errCh)
	})

	t.Run("stop with srv error", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		t.Cleanup(cancel)

		// Try to run without refresh secret. Must fail
		err := run(ctx, emptyEnv, emptyWd, []string{
			"--address", newAddr(t),
			"--log-level", "debug",
			"--database", pg.DSN,
			"--access-secret", "access",
		})

		require.Error(t, err, "on incorrect stop should return error")
	})
}
