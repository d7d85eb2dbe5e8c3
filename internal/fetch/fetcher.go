package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/handiism/nizima-downloader/internal/assets"
	"github.com/handiism/nizima-downloader/internal/config"
	"github.com/handiism/nizima-downloader/internal/download"
	httpclient "github.com/handiism/nizima-downloader/internal/http"
	ioutils "github.com/handiism/nizima-downloader/internal/io"
	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/handiism/nizima-downloader/internal/nizima"
	"github.com/handiism/nizima-downloader/internal/processor"
	"github.com/handiism/nizima-downloader/internal/safefile"
	"golang.org/x/sync/errgroup"
)

// FailListName is the failure log file under the output root.
const FailListName = "fail_list.txt"

// ItemStatus is the terminal state of one fetched item.
type ItemStatus int

const (
	// StatusCompleted means the item's directory was committed.
	StatusCompleted ItemStatus = iota

	// StatusSkipped means the item was not touched: it is already up to
	// date, or it has no preview model.
	StatusSkipped

	// StatusRolledBack means a required asset failed and the previous
	// version of the item, if any, was restored.
	StatusRolledBack

	// StatusFailed means the item could not be fetched or its staging
	// transaction could not resolve cleanly.
	StatusFailed
)

// String returns the status name.
func (s ItemStatus) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	case StatusRolledBack:
		return "rolled back"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemResult is the outcome of fetching one item.
type ItemResult struct {
	ItemID model.ItemID
	Status ItemStatus
	Err    error
}

// Fetcher coordinates item downloads end to end: manifest fetch, task
// planning, concurrent downloads, package processing and transactional
// commit of the item directory.
type Fetcher struct {
	settings     *config.Settings
	httpClient   *httpclient.Client
	catalog      *nizima.Client
	assets       *assets.Manager
	downloads    *download.Manager
	processor    *processor.Processor
	imageService *ioutils.ImageService
	failures     *ioutils.FailureLog

	onProgress func(download.ProgressEvent)
}

// NewFetcher creates a new Fetcher.
func NewFetcher(settings *config.Settings, onProgress func(download.ProgressEvent)) *Fetcher {
	httpClient := httpclient.NewClient()
	catalog := nizima.NewClient(httpClient, settings.CatalogBaseURL)
	failures := ioutils.NewFailureLog(filepath.Join(settings.OutputRoot, FailListName))

	return &Fetcher{
		settings:     settings,
		httpClient:   httpClient,
		catalog:      catalog,
		assets:       assets.NewManager(settings.StorageBaseURL, settings.CatalogBaseURL),
		downloads:    download.NewManager(settings, httpClient, catalog, failures, onProgress),
		processor:    processor.NewDefaultProcessor(),
		imageService: ioutils.NewImageService(),
		failures:     failures,
		onProgress:   onProgress,
	}
}

// GetProgress returns run-wide download progress in files.
func (f *Fetcher) GetProgress() (downloaded, failed, total int32) {
	return f.downloads.GetProgress()
}

// FetchAll fetches every item, at most MaxConcurrentItems in parallel,
// and returns one result per item in input order. Items never abort
// each other; cancellation of ctx stops the whole run.
func (f *Fetcher) FetchAll(ctx context.Context, ids []model.ItemID) []ItemResult {
	results := make([]ItemResult, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.settings.MaxConcurrentItems)

	for i, id := range ids {
		g.Go(func() error {
			results[i] = f.fetchItem(ctx, id)
			return nil
		})
	}

	_ = g.Wait() // workers never return errors

	return results
}

// fetchItem runs the full pipeline for one item.
func (f *Fetcher) fetchItem(ctx context.Context, id model.ItemID) ItemResult {
	f.progress(download.ProgressEvent{Message: fmt.Sprintf("Fetching item %s", id), Level: download.LevelInfo})

	if !f.settings.ForceRefresh && CheckLayoutVersion(f.settings.OutputRoot, id) {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Item %s is up to date, skipping", id), Level: download.LevelInfo})
		return ItemResult{ItemID: id, Status: StatusSkipped}
	}

	manifest, err := f.catalog.FetchItemDetail(ctx, id)
	if err != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error fetching detail for item %s: %v", id, err), Level: download.LevelError})
		return ItemResult{ItemID: id, Status: StatusFailed, Err: err}
	}

	if manifest.PreviewPackage == nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Item %s has no preview model, skipping", id), Level: download.LevelWarning})
		return ItemResult{ItemID: id, Status: StatusSkipped}
	}

	staging := safefile.NewManager(f.settings.OutputRoot, id)
	if err := staging.Begin(); err != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error preparing staging for item %s: %v", id, err), Level: download.LevelError})
		return ItemResult{ItemID: id, Status: StatusFailed, Err: err}
	}

	if err := f.stageItem(ctx, staging, manifest); err != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Rolling back item %s: %v", id, err), Level: download.LevelWarning})
		if rbErr := staging.Rollback(); rbErr != nil {
			f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error rolling back item %s: %v", id, rbErr), Level: download.LevelError})
			return ItemResult{ItemID: id, Status: StatusFailed, Err: rbErr}
		}
		return ItemResult{ItemID: id, Status: StatusRolledBack, Err: err}
	}

	if err := staging.Commit(); err != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error committing item %s: %v", id, err), Level: download.LevelError})
		return ItemResult{ItemID: id, Status: StatusFailed, Err: err}
	}

	f.progress(download.ProgressEvent{Message: fmt.Sprintf("Successfully downloaded item %s to %s", id, staging.FinalDir()), Level: download.LevelSuccess})
	return ItemResult{ItemID: id, Status: StatusCompleted}
}

// stageItem downloads and stages everything the manifest names. A
// non-nil error means a required asset is missing and the caller must
// roll back.
func (f *Fetcher) stageItem(ctx context.Context, staging *safefile.Manager, manifest *model.AssetManifest) error {
	if err := staging.Stage("detail.json", manifest.Detail); err != nil {
		return err
	}

	tasks, err := f.assets.BuildTasks(manifest, true)
	if err != nil {
		return err
	}

	outcomes := f.downloads.Run(ctx, tasks)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	modelName := processor.UnknownModelName
	var missingRequired error

	for _, outcome := range outcomes {
		task := outcome.Task

		if !outcome.OK() {
			// Export packages are best-effort; everything else the
			// manifest names must land for the item to commit.
			if task.Kind != model.KindExportPackage && missingRequired == nil {
				missingRequired = outcome.Err
			}
			continue
		}

		if f.settings.SaveRawDownloads {
			if err := staging.Stage(task.TargetRelPath, outcome.Data); err != nil {
				return err
			}
		}

		switch task.Kind {
		case model.KindPreviewPackage, model.KindExportPackage:
			if err := f.stagePackage(staging, task, outcome.Data, &modelName); err != nil {
				if task.Kind != model.KindExportPackage && missingRequired == nil {
					missingRequired = err
				}
			}
		case model.KindThumbnail:
			if err := staging.Stage(path.Join("thumbnailImage", path.Base(task.URL)), f.prepareThumbnail(ctx, outcome.Data)); err != nil {
				return err
			}
		case model.KindPreviewImage:
			if err := staging.Stage(path.Join("previewImages", path.Base(task.URL)), outcome.Data); err != nil {
				return err
			}
		}
	}

	if missingRequired != nil {
		return missingRequired
	}

	if err := f.stageVersion(staging, manifest.ItemID, modelName); err != nil {
		return err
	}

	if modelName != processor.UnknownModelName {
		name := ioutils.SanitizeFileName(modelName)
		if name != "" {
			if err := staging.SetFinalName(manifest.ItemID.String() + "_" + name); err != nil {
				return err
			}
		}
	}

	return nil
}

// stagePackage processes one downloaded package and stages its files
// under preview/ or export/. Processing failures are appended to the
// failure log.
func (f *Fetcher) stagePackage(staging *safefile.Manager, task model.DownloadTask, data []byte, modelName *string) error {
	pkg, err := f.processor.ProcessPackage(data)
	if err != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error processing %s for item %s: %v", task.Kind, task.ItemID, err), Level: download.LevelError})
		f.recordFailure(task, err)
		return err
	}

	base := "preview"
	if task.Kind == model.KindExportPackage {
		base = "export"
	}

	for rel, content := range pkg.Files {
		if err := staging.Stage(path.Join(base, rel), content); err != nil {
			return err
		}
	}

	if task.Kind == model.KindPreviewPackage && pkg.ModelName != processor.UnknownModelName {
		*modelName = pkg.ModelName
	}
	return nil
}

// prepareThumbnail applies the optional resize and JPEG conversion. On
// any processing error the original bytes are kept.
func (f *Fetcher) prepareThumbnail(ctx context.Context, data []byte) []byte {
	if f.settings.ResizeThumbnail {
		if resized, err := f.imageService.ResizeImage(ctx, data, f.settings.ThumbnailMaxSize, f.settings.ThumbnailMaxSize); err == nil {
			data = resized
		}
	}
	if f.settings.ConvertThumbnailToJPG {
		if converted, err := f.imageService.ConvertToJPEG(ctx, data); err == nil {
			data = converted
		}
	}
	return data
}

func (f *Fetcher) stageVersion(staging *safefile.Manager, id model.ItemID, modelName string) error {
	info := versionInfo{
		Version:   LayoutVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		ItemID:    id.String(),
		ModelName: modelName,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	return staging.Stage("version.json", data)
}

func (f *Fetcher) recordFailure(task model.DownloadTask, err error) {
	rec := model.FailureRecord{
		Time:       time.Now(),
		ItemID:     task.ItemID,
		TaskKind:   task.Kind,
		URL:        task.URL,
		TargetPath: task.TargetRelPath,
		Message:    err.Error(),
	}
	if logErr := f.failures.Append(rec); logErr != nil {
		f.progress(download.ProgressEvent{Message: fmt.Sprintf("Error writing failure log: %v", logErr), Level: download.LevelWarning})
	}
}

func (f *Fetcher) progress(event download.ProgressEvent) {
	if f.onProgress != nil {
		f.onProgress(event)
	}
}
