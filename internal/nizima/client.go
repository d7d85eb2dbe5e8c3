package nizima

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	httpclient "github.com/handiism/nizima-downloader/internal/http"
	"github.com/handiism/nizima-downloader/internal/model"
	"github.com/handiism/nizima-downloader/internal/nizima/dto"
	"github.com/m-mizutani/goerr/v2"
)

// ExportFileName is the fixed output name requested from the export
// download endpoint.
const ExportFileName = "export.zip"

// Client talks to the nizima catalog API.
type Client struct {
	httpClient *httpclient.Client
	baseURL    string
}

// NewClient creates a catalog client for the given base URL
// (e.g. "https://nizima.com").
func NewClient(httpClient *httpclient.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// DetailURL returns the detail endpoint for an item id.
func (c *Client) DetailURL(itemID model.ItemID) string {
	return fmt.Sprintf("%s/api/items/%s/detail", c.baseURL, itemID)
}

// FetchItemDetail retrieves and parses the catalog metadata for one item.
//
// The raw response body is retained on the manifest so it can be archived
// as detail.json. An invalid item id (non-JSON answer) or a response
// without assetsInfo yields a manifest-tagged error.
func (c *Client) FetchItemDetail(ctx context.Context, itemID model.ItemID) (*model.AssetManifest, error) {
	var detail dto.JSONDetail
	raw, err := c.httpClient.GetJSON(ctx, c.DetailURL(itemID), &detail)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch item detail",
			goerr.T(model.TagManifest), goerr.V("item_id", itemID))
	}

	return detail.ToManifest(itemID, raw)
}

// RequestExportDownload performs the export handshake: a POST with the
// fixed fileName form field, whose JSON response carries a short-lived
// direct URL.
//
// An HTML response means the session is not authenticated; that is a
// definitive refusal, never retried.
func (c *Client) RequestExportDownload(ctx context.Context, downloadURL string) (string, error) {
	form := url.Values{"fileName": {ExportFileName}}

	body, contentType, err := c.httpClient.PostForm(ctx, downloadURL, form)
	if err != nil {
		return "", goerr.Wrap(err, "export download request failed")
	}

	if strings.Contains(contentType, "text/html") {
		return "", goerr.New("export download requires an authenticated session",
			goerr.T(model.TagNonTransient), goerr.V("url", downloadURL))
	}

	var result dto.JSONDownload
	if err := json.Unmarshal(body, &result); err != nil {
		return "", goerr.Wrap(err, "failed to decode export download response",
			goerr.V("url", downloadURL))
	}

	if !result.IsSucceeded || result.DownloadURL == "" {
		return "", goerr.New("export download API refused the request",
			goerr.T(model.TagNonTransient), goerr.V("url", downloadURL))
	}

	return result.DownloadURL, nil
}
