package drive

import (
	"io"
	"strings"
	"time"
)

// Well-known identifiers and MIME types.
const (
	RootID = "root"

	FolderMimeType = "application/vnd.google-apps.folder"

	// nativeMimePrefix marks provider-native documents (Docs, Sheets, ...)
	// that have no binary form and must be exported instead of downloaded.
	nativeMimePrefix = "application/vnd.google-apps."

	defaultContentType = "application/octet-stream"
)

// SizeUnknown indicates the provider reported no size (folders, native documents).
const SizeUnknown = -1

// Page size bounds for ListChildren.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Item is a file or folder as exposed by the proxy API. Fields are normalized
// from the provider response; callers never see raw API data.
type Item struct {
	ID             string
	Name           string
	MimeType       string
	ParentID       string
	Size           int64 // SizeUnknown if not reported
	ModifiedAt     time.Time
	IconLink       string
	WebViewLink    string
	WebContentLink string
}

// IsFolder reports whether the item is a folder.
func (i *Item) IsFolder() bool {
	return i.MimeType == FolderMimeType
}

// IsNativeDocument reports whether the item is a provider-native document
// with no direct binary form.
func (i *Item) IsNativeDocument() bool {
	return !i.IsFolder() && strings.HasPrefix(i.MimeType, nativeMimePrefix)
}

// Page is one page of a folder listing.
type Page struct {
	Items         []Item
	NextPageToken string
}

// Content is the result of FetchContent. Exactly one of Body or
// ExportRequired is set: native documents carry no byte stream.
type Content struct {
	Item           Item
	ContentType    string
	Body           io.ReadCloser
	ExportRequired bool
}
