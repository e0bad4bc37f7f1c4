package api

import (
	"strconv"
	"time"

	"github.com/tonimelisma/drive-explorer/internal/drive"
)

// itemJSON is the wire form of drive.Item. Key names follow the provider's
// own JSON so the frontend can render either without translation.
type itemJSON struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MimeType       string `json:"mimeType"`
	ParentID       string `json:"parentId,omitempty"`
	Size           string `json:"size,omitempty"`
	ModifiedTime   string `json:"modifiedTime,omitempty"`
	IconLink       string `json:"iconLink,omitempty"`
	WebViewLink    string `json:"webViewLink,omitempty"`
	WebContentLink string `json:"webContentLink,omitempty"`
}

type listResponse struct {
	Items         []itemJSON `json:"items"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// exportResponse is returned with 202 for documents that have no binary form.
type exportResponse struct {
	Message     string `json:"message"`
	Name        string `json:"name"`
	FileID      string `json:"file_id"`
	WebViewLink string `json:"webViewLink,omitempty"`
}

func toItemJSON(it *drive.Item) itemJSON {
	out := itemJSON{
		ID:             it.ID,
		Name:           it.Name,
		MimeType:       it.MimeType,
		ParentID:       it.ParentID,
		IconLink:       it.IconLink,
		WebViewLink:    it.WebViewLink,
		WebContentLink: it.WebContentLink,
	}

	if it.Size != drive.SizeUnknown {
		out.Size = strconv.FormatInt(it.Size, 10)
	}

	if !it.ModifiedAt.IsZero() {
		out.ModifiedTime = it.ModifiedAt.UTC().Format(time.RFC3339)
	}

	return out
}

func toListResponse(p *drive.Page) listResponse {
	items := make([]itemJSON, 0, len(p.Items))
	for i := range p.Items {
		items = append(items, toItemJSON(&p.Items[i]))
	}

	return listResponse{Items: items, NextPageToken: p.NextPageToken}
}
