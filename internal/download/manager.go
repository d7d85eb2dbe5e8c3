package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/handiism/nizima-downloader/internal/config"
	httpclient "github.com/handiism/nizima-downloader/internal/http"
	ioutils "github.com/handiism/nizima-downloader/internal/io"
	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Exporter performs the export download handshake: a POST to the
// catalog that trades an entitlement for a short-lived direct URL.
type Exporter interface {
	RequestExportDownload(ctx context.Context, downloadURL string) (string, error)
}

// Manager downloads the files of one item with bounded concurrency.
// One Manager is shared by all items of a run; its progress counters
// span the whole run.
type Manager struct {
	settings   *config.Settings
	httpClient *httpclient.Client
	exporter   Exporter
	failures   *ioutils.FailureLog

	totalFiles      int32
	downloadedFiles int32
	failedFiles     int32

	onProgress func(ProgressEvent)
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, httpClient *httpclient.Client, exporter Exporter, failures *ioutils.FailureLog, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:   settings,
		httpClient: httpClient,
		exporter:   exporter,
		failures:   failures,
		onProgress: onProgress,
	}
}

// Run downloads all tasks and returns one outcome per task, in task
// order. A failed task never aborts its siblings; its outcome carries
// the terminal error and the failure is appended to the failure log.
func (m *Manager) Run(ctx context.Context, tasks []model.DownloadTask) []model.TaskOutcome {
	atomic.AddInt32(&m.totalFiles, int32(len(tasks)))

	outcomes := make([]model.TaskOutcome, len(tasks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.settings.MaxConcurrentFiles)

	for i, task := range tasks {
		g.Go(func() error {
			data, attempts, err := m.download(ctx, task)
			outcomes[i] = model.TaskOutcome{Task: task, Data: data, Err: err, Attempts: attempts}

			if err != nil {
				atomic.AddInt32(&m.failedFiles, 1)
				m.recordFailure(task, err)
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s for item %s: %v", task.Kind, task.ItemID, err), Level: LevelError})
				return nil // Continue with other files
			}

			atomic.AddInt32(&m.downloadedFiles, 1)
			m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded %s for item %s", task.Kind, task.ItemID), Level: LevelVerbose})
			return nil
		})
	}

	_ = g.Wait() // workers never return errors

	return outcomes
}

// GetProgress returns current download progress in files.
func (m *Manager) GetProgress() (downloaded, failed, total int32) {
	return atomic.LoadInt32(&m.downloadedFiles),
		atomic.LoadInt32(&m.failedFiles),
		atomic.LoadInt32(&m.totalFiles)
}

// download runs the retry loop for one task. Transient errors are
// retried with exponential backoff; a 404/410 on the primary URL
// switches to the fallback URL once without consuming a retry.
func (m *Manager) download(ctx context.Context, task model.DownloadTask) ([]byte, int, error) {
	url := task.URL
	usedFallback := task.FallbackURL == ""

	var (
		lastErr  error
		attempts int
	)

	tries := 0
	for {
		data, err := m.attempt(ctx, task, url)
		attempts++
		if err == nil {
			return data, attempts, nil
		}
		lastErr = err

		if httpclient.IsNotFound(err) && !usedFallback {
			usedFallback = true
			url = task.FallbackURL
			m.progress(ProgressEvent{Message: fmt.Sprintf("%s for item %s not found, trying fallback URL", task.Kind, task.ItemID), Level: LevelWarning})
			continue
		}

		if !httpclient.IsTransient(err) || tries >= m.settings.DownloadMaxRetries {
			break
		}

		m.progress(ProgressEvent{Message: fmt.Sprintf("Retry %d/%d for %s of item %s", tries+1, m.settings.DownloadMaxRetries, task.Kind, task.ItemID), Level: LevelWarning})
		m.waitForRetry(ctx, tries)
		tries++

		if ctx.Err() != nil {
			break
		}
	}

	if httpclient.IsTransient(lastErr) {
		lastErr = goerr.Wrap(lastErr, "retries exhausted",
			goerr.T(model.TagTransient), goerr.V("attempts", attempts))
	}
	return nil, attempts, lastErr
}

// attempt performs one network attempt. Export tasks do the POST
// handshake and then fetch the direct URL it returned; both steps
// belong to the same attempt.
func (m *Manager) attempt(ctx context.Context, task model.DownloadTask, url string) ([]byte, error) {
	if task.Method == model.MethodPost {
		directURL, err := m.exporter.RequestExportDownload(ctx, url)
		if err != nil {
			return nil, err
		}
		return m.httpClient.Get(ctx, directURL)
	}
	return m.httpClient.Get(ctx, url)
}

func (m *Manager) recordFailure(task model.DownloadTask, err error) {
	if m.failures == nil || errors.Is(err, context.Canceled) {
		return
	}

	rec := model.FailureRecord{
		Time:       time.Now(),
		ItemID:     task.ItemID,
		TaskKind:   task.Kind,
		URL:        task.URL,
		TargetPath: task.TargetRelPath,
		Message:    err.Error(),
	}
	if logErr := m.failures.Append(rec); logErr != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error writing failure log: %v", logErr), Level: LevelWarning})
	}
}

func (m *Manager) retryDelay(tries int) time.Duration {
	cooldown := m.settings.DownloadRetryCooldown * math.Pow(m.settings.DownloadRetryExponent, float64(tries))
	return time.Duration(cooldown * float64(time.Second))
}

func (m *Manager) waitForRetry(ctx context.Context, tries int) {
	select {
	case <-ctx.Done():
	case <-time.After(m.retryDelay(tries)):
	}
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
