package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// itemFields is the partial-response field mask for a single file.
const itemFields = "id, name, mimeType, parents, size, modifiedTime, iconLink, webViewLink, webContentLink"

// listFields is the partial-response field mask for files.list.
const listFields = "nextPageToken, files(" + itemFields + ")"

// listOrder puts folders first, then sorts by name.
const listOrder = "folder,name"

// LiveConnector builds Drive v3 clients bound to a session's access token.
type LiveConnector struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLiveConnector creates a LiveConnector. endpoint overrides the Drive API
// base URL (empty for the public endpoint). httpClient is the base transport
// the OAuth2 transport wraps; its Timeout bounds every provider call.
func NewLiveConnector(endpoint string, httpClient *http.Client, logger *slog.Logger) *LiveConnector {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &LiveConnector{endpoint: endpoint, httpClient: httpClient, logger: logger}
}

// Mode returns ModeLive.
func (c *LiveConnector) Mode() string { return ModeLive }

// Connect returns a Live provider that authenticates with tok.
func (c *LiveConnector) Connect(ctx context.Context, tok *oauth2.Token) (Provider, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrUnauthorized)
	}

	baseCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(baseCtx, oauth2.StaticTokenSource(tok))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: creating service: %w", err)
	}

	return &Live{svc: svc, logger: c.logger}, nil
}

// Live is the Google Drive v3 implementation of Provider.
type Live struct {
	svc    *gdrive.Service
	logger *slog.Logger
}

// ListChildren returns one page of the folder's non-trashed children.
// Non-root folders are looked up first so an unknown folder yields
// ErrNotFound rather than an empty page.
func (l *Live) ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*Page, error) {
	const op = "list"

	folderID = parentOrRoot(folderID)

	pageSize, err := ValidatePageSize(pageSize)
	if err != nil {
		return nil, err
	}

	l.logger.Info("listing children",
		slog.String("folder_id", folderID),
		slog.Int("page_size", pageSize),
	)

	if folderID != RootID {
		if err := l.requireFolder(ctx, op, folderID); err != nil {
			return nil, err
		}
	}

	call := l.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		PageSize(int64(pageSize)).
		OrderBy(listOrder).
		Fields(listFields).
		Context(ctx)

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, translate(op, err)
	}

	page := &Page{
		Items:         make([]Item, 0, len(res.Files)),
		NextPageToken: res.NextPageToken,
	}

	for _, f := range res.Files {
		page.Items = append(page.Items, toItem(f, l.logger))
	}

	l.logger.Info("listed children",
		slog.String("folder_id", folderID),
		slog.Int("count", len(page.Items)),
		slog.Bool("has_next_page", page.NextPageToken != ""),
	)

	return page, nil
}

// requireFolder fails with ErrNotFound for unknown ids and ErrBadRequest for
// ids that are not folders.
func (l *Live) requireFolder(ctx context.Context, op, folderID string) error {
	f, err := l.svc.Files.Get(folderID).Fields("id, mimeType").Context(ctx).Do()
	if err != nil {
		return translate(op, err)
	}

	if f.MimeType != FolderMimeType {
		return badRequest(op, "not a folder: "+folderID)
	}

	return nil
}

// CreateFolder creates a folder named name under parentID.
func (l *Live) CreateFolder(ctx context.Context, parentID, name string) (*Item, error) {
	const op = "create folder"

	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	parentID = parentOrRoot(parentID)

	l.logger.Info("creating folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
	)

	f, err := l.svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}).Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, translate(op, err)
	}

	item := toItem(f, l.logger)

	return &item, nil
}

// UploadContent streams r to a new file named name under parentID.
func (l *Live) UploadContent(ctx context.Context, parentID, name, contentType string, r io.Reader) (*Item, error) {
	const op = "upload"

	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	parentID = parentOrRoot(parentID)

	if contentType == "" {
		contentType = defaultContentType
	}

	l.logger.Info("uploading file",
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.String("content_type", contentType),
	)

	f, err := l.svc.Files.Create(&gdrive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(r, googleapi.ContentType(contentType)).Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, translate(op, err)
	}

	item := toItem(f, l.logger)

	l.logger.Info("upload complete",
		slog.String("item_id", item.ID),
		slog.Int64("size", item.Size),
	)

	return &item, nil
}

// RenameItem changes the name of itemID.
func (l *Live) RenameItem(ctx context.Context, itemID, newName string) (*Item, error) {
	const op = "rename"

	newName, err := ValidateName(newName)
	if err != nil {
		return nil, err
	}

	l.logger.Info("renaming item",
		slog.String("item_id", itemID),
		slog.String("new_name", newName),
	)

	f, err := l.svc.Files.Update(itemID, &gdrive.File{Name: newName}).
		Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, translate(op, err)
	}

	item := toItem(f, l.logger)

	return &item, nil
}

// DeleteItem permanently deletes itemID (and, for folders, its descendants).
func (l *Live) DeleteItem(ctx context.Context, itemID string) error {
	l.logger.Info("deleting item", slog.String("item_id", itemID))

	if err := l.svc.Files.Delete(itemID).Context(ctx).Do(); err != nil {
		return translate("delete", err)
	}

	return nil
}

// FetchContent returns a byte stream for regular files, or an
// ExportRequired result for native documents. The caller closes Body.
func (l *Live) FetchContent(ctx context.Context, itemID string) (*Content, error) {
	const op = "download"

	f, err := l.svc.Files.Get(itemID).Fields(itemFields).Context(ctx).Do()
	if err != nil {
		return nil, translate(op, err)
	}

	item := toItem(f, l.logger)

	if item.IsFolder() {
		return nil, badRequest(op, "cannot download a folder: "+itemID)
	}

	if item.IsNativeDocument() {
		l.logger.Info("native document requires export",
			slog.String("item_id", itemID),
			slog.String("mime_type", item.MimeType),
		)

		return &Content{Item: item, ExportRequired: true}, nil
	}

	resp, err := l.svc.Files.Get(itemID).Context(ctx).Download()
	if err != nil {
		return nil, translate(op, err)
	}

	contentType := item.MimeType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	if contentType == "" {
		contentType = defaultContentType
	}

	return &Content{Item: item, ContentType: contentType, Body: resp.Body}, nil
}

// escapeQuery escapes a value for interpolation into a Drive query string
// literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// toItem normalizes a Drive API file into an Item.
func toItem(f *gdrive.File, logger *slog.Logger) Item {
	item := Item{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Size:           f.Size,
		IconLink:       f.IconLink,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}

	if len(f.Parents) > 0 {
		item.ParentID = f.Parents[0]
	}

	if item.IsFolder() || item.IsNativeDocument() {
		item.Size = SizeUnknown
	}

	if f.ModifiedTime != "" {
		t, err := time.Parse(time.RFC3339, f.ModifiedTime)
		if err != nil {
			logger.Warn("invalid modifiedTime, leaving unset",
				slog.String("item_id", f.Id),
				slog.String("raw", f.ModifiedTime),
			)
		} else {
			item.ModifiedAt = t
		}
	}

	return item
}
