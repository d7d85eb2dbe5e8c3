package assets

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
)

// Manager turns an asset manifest into the ordered set of download tasks
// for one item.
type Manager struct {
	storageBase string
	catalogBase string
}

// NewManager creates a Manager with the storage and catalog base URLs.
func NewManager(storageBase, catalogBase string) *Manager {
	return &Manager{
		storageBase: strings.TrimRight(storageBase, "/"),
		catalogBase: strings.TrimRight(catalogBase, "/"),
	}
}

// BuildTasks builds the download tasks for a manifest, in deterministic
// order: preview package, export package, thumbnail, preview images.
//
// The export task is emitted only when the manifest carries an
// entitlement and wantExport is true; a missing entitlement is a
// deliberate omission, not an error. URL rules:
//
//	package/thumbnail:  {storageBase}/{itemId}/{fileName}
//	preview image:      {storageBase}/{itemId}/images/{fileName}
//	export:             POST {catalogBase}/api/items/{contentId}/download
func (m *Manager) BuildTasks(manifest *model.AssetManifest, wantExport bool) ([]model.DownloadTask, error) {
	if manifest == nil {
		return nil, goerr.New("nil manifest", goerr.T(model.TagManifest))
	}

	var tasks []model.DownloadTask

	if ref := manifest.PreviewPackage; ref != nil {
		tasks = append(tasks, model.DownloadTask{
			ID:            uuid.New(),
			ItemID:        manifest.ItemID,
			Kind:          model.KindPreviewPackage,
			Method:        model.MethodGet,
			URL:           m.assetURL(manifest.ItemID, ref),
			FallbackURL:   ref.FallbackURL,
			TargetRelPath: "downloads/" + ref.FileName,
		})
	}

	if manifest.Export != nil && wantExport {
		tasks = append(tasks, model.DownloadTask{
			ID:            uuid.New(),
			ItemID:        manifest.ItemID,
			Kind:          model.KindExportPackage,
			Method:        model.MethodPost,
			URL:           fmt.Sprintf("%s/api/items/%s/download", m.catalogBase, manifest.Export.ContentID),
			TargetRelPath: "downloads/export.zip",
		})
	}

	if ref := manifest.Thumbnail; ref != nil {
		tasks = append(tasks, model.DownloadTask{
			ID:            uuid.New(),
			ItemID:        manifest.ItemID,
			Kind:          model.KindThumbnail,
			Method:        model.MethodGet,
			URL:           m.assetURL(manifest.ItemID, ref),
			FallbackURL:   ref.FallbackURL,
			TargetRelPath: "downloads/thumb_" + ref.FileName,
		})
	}

	for i, ref := range manifest.PreviewImages {
		tasks = append(tasks, model.DownloadTask{
			ID:            uuid.New(),
			ItemID:        manifest.ItemID,
			Kind:          model.KindPreviewImage,
			Method:        model.MethodGet,
			URL:           m.imageURL(manifest.ItemID, &ref),
			FallbackURL:   ref.FallbackURL,
			TargetRelPath: fmt.Sprintf("downloads/preview_%d_%s", i, ref.FileName),
		})
	}

	return tasks, nil
}

// assetURL builds the storage URL for packages and thumbnails.
func (m *Manager) assetURL(itemID model.ItemID, ref *model.AssetRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	return fmt.Sprintf("%s/%s/%s", m.storageBase, itemID, ref.FileName)
}

// imageURL builds the storage URL for preview images, which live under an
// extra images/ path segment.
func (m *Manager) imageURL(itemID model.ItemID, ref *model.AssetRef) string {
	if ref.URL != "" {
		return ref.URL
	}
	return fmt.Sprintf("%s/%s/images/%s", m.storageBase, itemID, ref.FileName)
}
