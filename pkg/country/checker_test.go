package country

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCheckAll_Mixed(t *testing.T) {
	srv200 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv200.Close()

	srv404 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv404.Close()

	sdb := tempSourceDB(t)
	reg := NewRegistry(map[string]Params{
		"US": {SourceURL: srv200.URL, ArchiveEntry: "US.txt", LocalFile: "US.txt"},
		"CA": {SourceURL: srv404.URL, ArchiveEntry: "CA_full.txt", LocalFile: "CA_full.txt"},
	})
	if err := sdb.Seed(reg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	res := NewChecker(sdb, quietLogger, time.Hour).CheckAll(context.Background())
	if res.OK != 1 || res.Failed != 1 {
		t.Errorf("result = %+v, want 1 ok 1 failed", res)
	}

	sources, _ := sdb.ListSources()
	status := map[string]int{}
	for _, s := range sources {
		if s.LastStatus != nil {
			status[s.Country] = *s.LastStatus
		}
	}
	if status["US"] != 200 || status["CA"] != 404 {
		t.Errorf("statuses = %v", status)
	}
}

func TestCheckAll_NetworkError(t *testing.T) {
	sdb := tempSourceDB(t)
	reg := NewRegistry(map[string]Params{"US": {SourceURL: "http://127.0.0.1:1/US.zip"}})
	if err := sdb.Seed(reg); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	res := NewChecker(sdb, quietLogger, time.Hour).CheckAll(context.Background())
	if res.Failed != 1 {
		t.Fatalf("failed = %d, want 1", res.Failed)
	}
	sources, _ := sdb.ListSources()
	if sources[0].LastStatus == nil || *sources[0].LastStatus != 0 {
		t.Errorf("status should be 0 on network error")
	}
	if sources[0].LastError == nil {
		t.Error("network error not recorded")
	}
}

func TestStart_RepeatsOnTick(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	sdb := tempSourceDB(t)
	if err := sdb.Seed(NewRegistry(map[string]Params{"US": {SourceURL: srv.URL}})); err != nil {
		t.Fatalf("Seed: %v", err)
	}

	fake := clockwork.NewFakeClock()
	checker := NewChecker(sdb, quietLogger, time.Hour).WithClock(fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Start(ctx)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	if err := fake.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("ticker never created: %v", err)
	}
	fake.Advance(time.Hour)

	deadline := time.Now().Add(5 * time.Second)
	for hits.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hits.Load(); got < 2 {
		t.Errorf("hits = %d, want at least 2", got)
	}

	cancel()
	<-done
}
