package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/handiism/nizima-downloader/internal/config"
	httpclient "github.com/handiism/nizima-downloader/internal/http"
	ioutils "github.com/handiism/nizima-downloader/internal/io"
	"github.com/handiism/nizima-downloader/internal/model"
)

// fakeExporter resolves every handshake to a fixed direct URL.
type fakeExporter struct {
	directURL string
	err       error
	calls     int32
}

func (e *fakeExporter) RequestExportDownload(ctx context.Context, downloadURL string) (string, error) {
	atomic.AddInt32(&e.calls, 1)
	return e.directURL, e.err
}

func testSettings() *config.Settings {
	s := config.DefaultSettings()
	s.DownloadRetryCooldown = 0.001
	return s
}

func newTask(url string) model.DownloadTask {
	return model.DownloadTask{
		ID:            uuid.New(),
		ItemID:        model.ItemID(128477),
		Kind:          model.KindPreviewPackage,
		Method:        model.MethodGet,
		URL:           url,
		TargetRelPath: "downloads/export.zip",
	}
}

func TestManager_Run_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "payload")
	}))
	defer server.Close()

	m := NewManager(testSettings(), httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{newTask(server.URL)})

	if len(outcomes) != 1 {
		t.Fatalf("Run() returned %d outcomes, want 1", len(outcomes))
	}
	if !outcomes[0].OK() {
		t.Fatalf("outcome error = %v", outcomes[0].Err)
	}
	if string(outcomes[0].Data) != "payload" {
		t.Errorf("Data = %q, want %q", outcomes[0].Data, "payload")
	}
	if outcomes[0].Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", outcomes[0].Attempts)
	}

	downloaded, failed, total := m.GetProgress()
	if downloaded != 1 || failed != 0 || total != 1 {
		t.Errorf("GetProgress() = (%d, %d, %d), want (1, 0, 1)", downloaded, failed, total)
	}
}

func TestManager_Run_RetriesTransientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "payload")
	}))
	defer server.Close()

	m := NewManager(testSettings(), httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{newTask(server.URL)})

	if !outcomes[0].OK() {
		t.Fatalf("outcome error = %v", outcomes[0].Err)
	}
	if outcomes[0].Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", outcomes[0].Attempts)
	}
}

func TestManager_Run_ExhaustsRetries(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	failPath := filepath.Join(t.TempDir(), "fail_list.txt")
	m := NewManager(testSettings(), httpclient.NewClient(), nil, ioutils.NewFailureLog(failPath), nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{newTask(server.URL)})

	if outcomes[0].OK() {
		t.Fatal("outcome unexpectedly succeeded")
	}
	// One initial attempt plus DownloadMaxRetries retries.
	wantAttempts := config.DefaultSettings().DownloadMaxRetries + 1
	if outcomes[0].Attempts != wantAttempts {
		t.Errorf("Attempts = %d, want %d", outcomes[0].Attempts, wantAttempts)
	}
	if got := atomic.LoadInt32(&hits); int(got) != wantAttempts {
		t.Errorf("server hits = %d, want %d", got, wantAttempts)
	}

	data, err := os.ReadFile(failPath)
	if err != nil {
		t.Fatalf("failure log missing: %v", err)
	}
	if !strings.Contains(string(data), "preview_file") {
		t.Errorf("failure log does not mention the task kind: %q", data)
	}

	_, failed, _ := m.GetProgress()
	if failed != 1 {
		t.Errorf("failed counter = %d, want 1", failed)
	}
}

func TestManager_Run_StopsOnNonTransientError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	m := NewManager(testSettings(), httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{newTask(server.URL)})

	if outcomes[0].OK() {
		t.Fatal("outcome unexpectedly succeeded")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("server hits = %d, want 1", got)
	}
}

func TestManager_Run_FallbackURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/primary" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "from fallback")
	}))
	defer server.Close()

	task := newTask(server.URL + "/primary")
	task.FallbackURL = server.URL + "/fallback"

	m := NewManager(testSettings(), httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{task})

	if !outcomes[0].OK() {
		t.Fatalf("outcome error = %v", outcomes[0].Err)
	}
	if string(outcomes[0].Data) != "from fallback" {
		t.Errorf("Data = %q, want %q", outcomes[0].Data, "from fallback")
	}
	if outcomes[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", outcomes[0].Attempts)
	}
}

func TestManager_Run_FallbackAlsoMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	task := newTask(server.URL + "/primary")
	task.FallbackURL = server.URL + "/fallback"

	m := NewManager(testSettings(), httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{task})

	if outcomes[0].OK() {
		t.Fatal("outcome unexpectedly succeeded")
	}
	if outcomes[0].Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", outcomes[0].Attempts)
	}
}

func TestManager_Run_ExportHandshake(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "export payload")
	}))
	defer server.Close()

	exporter := &fakeExporter{directURL: server.URL + "/direct"}
	task := newTask(server.URL + "/api/items/555001/download")
	task.Kind = model.KindExportPackage
	task.Method = model.MethodPost

	m := NewManager(testSettings(), httpclient.NewClient(), exporter, nil, nil)
	outcomes := m.Run(context.Background(), []model.DownloadTask{task})

	if !outcomes[0].OK() {
		t.Fatalf("outcome error = %v", outcomes[0].Err)
	}
	if string(outcomes[0].Data) != "export payload" {
		t.Errorf("Data = %q, want %q", outcomes[0].Data, "export payload")
	}
	if got := atomic.LoadInt32(&exporter.calls); got != 1 {
		t.Errorf("exporter calls = %d, want 1", got)
	}
}

func TestManager_Run_BoundsConcurrency(t *testing.T) {
	var current, peak int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&current, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		fmt.Fprint(w, "x")
	}))
	defer server.Close()

	settings := testSettings()
	settings.MaxConcurrentFiles = 2

	tasks := make([]model.DownloadTask, 6)
	for i := range tasks {
		tasks[i] = newTask(server.URL)
	}

	m := NewManager(settings, httpclient.NewClient(), nil, nil, nil)
	outcomes := m.Run(context.Background(), tasks)

	for i, outcome := range outcomes {
		if !outcome.OK() {
			t.Errorf("task %d error = %v", i, outcome.Err)
		}
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
}

func TestManager_RetryDelaySchedule(t *testing.T) {
	m := NewManager(config.DefaultSettings(), httpclient.NewClient(), nil, nil, nil)

	want := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second}
	for tries, wantDelay := range want {
		if got := m.retryDelay(tries); got != wantDelay {
			t.Errorf("retryDelay(%d) = %v, want %v", tries, got, wantDelay)
		}
	}
}
