package dto

import (
	"encoding/json"

	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/m-mizutani/goerr/v2"
)

// exportDataKey is the catalog's label for the export archive section
// inside itemContentDetails.
const exportDataKey = "書き出しデータ"

// JSONAssetRef is one asset entry inside assetsInfo.
type JSONAssetRef struct {
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	FallbackURL string `json:"fallbackUrl"`
}

// JSONAssetsInfo is the assetsInfo object of the detail response. All
// fields are optional; absent assets stay nil.
type JSONAssetsInfo struct {
	PreviewLive2DZip *JSONAssetRef  `json:"previewLive2DZip"`
	ThumbnailImage   *JSONAssetRef  `json:"thumbnailImage"`
	PreviewImages    []JSONAssetRef `json:"previewImages"`
}

// JSONItemContent is one entry of itemContentDetails, keyed by the
// catalog's content label.
type JSONItemContent struct {
	ItemContentID  json.Number `json:"itemContentId"`
	IsDownloadable bool        `json:"isDownloadable"`
	FileSize       json.Number `json:"fileSize"`
}

// JSONDetail represents the deserialized detail response for one item.
type JSONDetail struct {
	ItemID             json.Number                `json:"itemId"`
	AssetsInfo         *JSONAssetsInfo            `json:"assetsInfo"`
	ItemContentDetails map[string]JSONItemContent `json:"itemContentDetails"`
}

// ToManifest converts the detail response into a model.AssetManifest.
//
// raw is the verbatim response body, archived into the item's destination
// tree. Returns a manifest-tagged error when assetsInfo is missing or a
// present asset lacks its fileName.
func (d *JSONDetail) ToManifest(itemID model.ItemID, raw []byte) (*model.AssetManifest, error) {
	if d.AssetsInfo == nil {
		return nil, goerr.New("detail response has no assetsInfo",
			goerr.T(model.TagManifest), goerr.V("item_id", itemID))
	}

	manifest := &model.AssetManifest{
		ItemID: itemID,
		Detail: raw,
	}

	var err error
	if manifest.PreviewPackage, err = toAssetRef(d.AssetsInfo.PreviewLive2DZip, "previewLive2DZip", itemID); err != nil {
		return nil, err
	}
	if manifest.Thumbnail, err = toAssetRef(d.AssetsInfo.ThumbnailImage, "thumbnailImage", itemID); err != nil {
		return nil, err
	}
	for i, img := range d.AssetsInfo.PreviewImages {
		ref, err := toAssetRef(&img, "previewImages", itemID)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid preview image", goerr.V("index", i))
		}
		manifest.PreviewImages = append(manifest.PreviewImages, *ref)
	}

	// Export entitlement: only when the catalog marks the export archive
	// downloadable for the current user.
	if export, ok := d.ItemContentDetails[exportDataKey]; ok && export.IsDownloadable {
		if export.ItemContentID.String() == "" {
			return nil, goerr.New("downloadable export without itemContentId",
				goerr.T(model.TagManifest), goerr.V("item_id", itemID))
		}
		manifest.Export = &model.ExportEntitlement{
			ContentID:  export.ItemContentID.String(),
			FileSizeMB: export.FileSize.String(),
		}
	}

	return manifest, nil
}

func toAssetRef(ref *JSONAssetRef, field string, itemID model.ItemID) (*model.AssetRef, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.FileName == "" {
		return nil, goerr.New("asset entry without fileName",
			goerr.T(model.TagManifest),
			goerr.V("field", field), goerr.V("item_id", itemID))
	}
	return &model.AssetRef{
		FileName:    ref.FileName,
		URL:         ref.URL,
		FallbackURL: ref.FallbackURL,
	}, nil
}

// JSONDownload is the export download endpoint's response.
type JSONDownload struct {
	IsSucceeded bool   `json:"isSucceeded"`
	DownloadURL string `json:"downloadUrl"`
}
