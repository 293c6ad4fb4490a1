package pagebrowser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingSender) Send(ctx context.Context, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Fail(t, "condition not met in time")
}

func TestNotifierCoalescesBursts(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifier(sender, Config{CoalesceWindow: time.Minute, Workers: 1})
	notifier.Start(context.Background())
	defer notifier.Stop()

	for i := 0; i < 10; i++ {
		notifier.Refresh("ead-1", "12/23")
	}
	waitFor(t, func() bool { return sender.count() == 1 })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, sender.count())
}

func TestNotifierDistinguishesActionsAndTargets(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifier(sender, Config{CoalesceWindow: time.Minute, Workers: 1})
	notifier.Start(context.Background())
	defer notifier.Stop()

	notifier.Refresh("ead-1", "12/23")
	notifier.Delete("ead-1", "12/23")
	notifier.Refresh("ead-1", "12/24")

	waitFor(t, func() bool { return sender.count() == 3 })
}

func TestNotifierResendsAfterWindow(t *testing.T) {
	sender := &recordingSender{}
	notifier := NewNotifier(sender, Config{CoalesceWindow: 30 * time.Millisecond, Workers: 1})
	notifier.Start(context.Background())
	defer notifier.Stop()

	notifier.Refresh("", "12/23")
	waitFor(t, func() bool { return sender.count() == 1 })
	time.Sleep(50 * time.Millisecond)
	notifier.Refresh("", "12/23")
	waitFor(t, func() bool { return sender.count() == 2 })
}

func TestHTTPSender(t *testing.T) {
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.Clone(context.Background()))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL+"/refresh", server.URL+"/delete", "svc", "secret", time.Second)

	require.NoError(t, sender.Send(context.Background(), Notice{
		Action: ActionRefresh, EadID: "ead-1", ArchiveFileID: "12/23",
	}))
	require.NoError(t, sender.Send(context.Background(), Notice{
		Action: ActionDelete, ArchiveFileID: "12/24",
	}))

	require.Len(t, requests, 2)

	refresh := requests[0]
	require.Equal(t, "/refresh", refresh.URL.Path)
	require.Equal(t, "12/23", refresh.URL.Query().Get("archivefile"))
	require.Equal(t, "ead-1", refresh.URL.Query().Get("ead_id"))
	require.Equal(t, "1", refresh.URL.Query().Get("publish"))
	username, password, ok := refresh.BasicAuth()
	require.True(t, ok)
	require.Equal(t, "svc", username)
	require.Equal(t, "secret", password)

	del := requests[1]
	require.Equal(t, "/delete", del.URL.Path)
	require.Equal(t, "1", del.URL.Query().Get("delete"))
	require.Empty(t, del.URL.Query().Get("ead_id"))
}

func TestHTTPSenderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, server.URL, "", "", time.Second)
	require.Error(t, sender.Send(context.Background(), Notice{Action: ActionRefresh, ArchiveFileID: "1/1"}))
}
