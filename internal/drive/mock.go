package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// mockNode is one entry of the in-memory tree.
type mockNode struct {
	item    Item
	content []byte
}

// Mock is an in-memory Provider. Mutations persist for the lifetime of the
// process and are visible to every caller. Safe for concurrent use.
type Mock struct {
	mu     sync.RWMutex
	nodes  map[string]*mockNode
	logger *slog.Logger

	nowFunc func() time.Time // injectable for deterministic tests
	newID   func() string
}

// NewMock creates a Mock seeded with a small fixed tree under root.
func NewMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Mock{
		nodes:   make(map[string]*mockNode),
		logger:  logger,
		nowFunc: time.Now,
		newID:   func() string { return "mock-" + uuid.NewString() },
	}

	m.seed()

	return m
}

// Seeded item ids, exported so tests and demos can address them.
const (
	SeedFileID     = "sim_id_1"
	SeedFolderID   = "sim_folder_1"
	SeedNestedID   = "sim_id_2"
	SeedDocumentID = "sim_doc_1"
)

func (m *Mock) seed() {
	modified := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)

	m.put(Item{ID: RootID, Name: "My Drive", MimeType: FolderMimeType, Size: SizeUnknown, ModifiedAt: modified}, nil)
	m.put(Item{
		ID: SeedFileID, Name: "Simulated File.txt", MimeType: "text/plain", ParentID: RootID,
		ModifiedAt: modified,
	}, []byte("simulated file content"))
	m.put(Item{
		ID: SeedFolderID, Name: "Simulated Folder", MimeType: FolderMimeType, ParentID: RootID,
		Size: SizeUnknown, ModifiedAt: modified,
	}, nil)
	m.put(Item{
		ID: SeedNestedID, Name: "notes.md", MimeType: "text/markdown", ParentID: SeedFolderID,
		ModifiedAt: modified,
	}, []byte("# Notes\n"))
	m.put(Item{
		ID: SeedDocumentID, Name: "Simulated Document", MimeType: "application/vnd.google-apps.document",
		ParentID: RootID, Size: SizeUnknown, ModifiedAt: modified,
	}, nil)
}

// put stores item with content, deriving the links and size. Caller holds mu
// (or is the constructor).
func (m *Mock) put(item Item, content []byte) {
	if !item.IsFolder() && !item.IsNativeDocument() {
		item.Size = int64(len(content))
		item.WebContentLink = "mock://download/" + item.ID
	}

	item.IconLink = "mock://icon/" + item.MimeType
	item.WebViewLink = "mock://view/" + item.ID

	m.nodes[item.ID] = &mockNode{item: item, content: content}
}

// ListChildren returns one page of folderID's children, folders first then
// by name. Page tokens are opaque offsets.
func (m *Mock) ListChildren(_ context.Context, folderID string, pageSize int, pageToken string) (*Page, error) {
	const op = "list"

	folderID = parentOrRoot(folderID)

	pageSize, err := ValidatePageSize(pageSize)
	if err != nil {
		return nil, err
	}

	offset := 0
	if pageToken != "" {
		offset, err = strconv.Atoi(pageToken)
		if err != nil || offset < 0 {
			return nil, badRequest(op, "invalid page token")
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.requireFolderLocked(op, folderID); err != nil {
		return nil, err
	}

	var children []Item

	for _, n := range m.nodes {
		if n.item.ParentID == folderID && n.item.ID != RootID {
			children = append(children, n.item)
		}
	}

	sort.Slice(children, func(i, j int) bool {
		if children[i].IsFolder() != children[j].IsFolder() {
			return children[i].IsFolder()
		}

		if children[i].Name != children[j].Name {
			return children[i].Name < children[j].Name
		}

		return children[i].ID < children[j].ID
	})

	page := &Page{Items: []Item{}}

	if offset < len(children) {
		end := min(offset+pageSize, len(children))
		page.Items = children[offset:end]

		if end < len(children) {
			page.NextPageToken = strconv.Itoa(end)
		}
	}

	m.logger.Info("mock: listed children",
		slog.String("folder_id", folderID),
		slog.Int("count", len(page.Items)),
	)

	return page, nil
}

// requireFolderLocked mirrors Live.requireFolder. Caller holds mu.
func (m *Mock) requireFolderLocked(op, folderID string) error {
	n, ok := m.nodes[folderID]
	if !ok {
		return notFound(op, folderID)
	}

	if !n.item.IsFolder() {
		return badRequest(op, "not a folder: "+folderID)
	}

	return nil
}

// CreateFolder creates a folder under parentID.
func (m *Mock) CreateFolder(_ context.Context, parentID, name string) (*Item, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	return m.create("create folder", Item{
		Name:     name,
		MimeType: FolderMimeType,
		ParentID: parentOrRoot(parentID),
		Size:     SizeUnknown,
	}, nil)
}

// UploadContent reads r fully into the tree under parentID.
func (m *Mock) UploadContent(ctx context.Context, parentID, name, contentType string, r io.Reader) (*Item, error) {
	const op = "upload"

	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = defaultContentType
	}

	if contentType == FolderMimeType {
		return nil, badRequest(op, "cannot upload content as a folder")
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		if ctx.Err() != nil {
			return nil, translate(op, ctx.Err())
		}

		return nil, translate(op, err)
	}

	return m.create(op, Item{
		Name:     name,
		MimeType: contentType,
		ParentID: parentOrRoot(parentID),
	}, buf.Bytes())
}

func (m *Mock) create(op string, item Item, content []byte) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireFolderLocked(op, item.ParentID); err != nil {
		return nil, err
	}

	item.ID = m.newID()
	item.ModifiedAt = m.nowFunc().UTC()
	m.put(item, content)

	created := m.nodes[item.ID].item

	m.logger.Info("mock: created item",
		slog.String("op", op),
		slog.String("item_id", created.ID),
		slog.String("parent_id", created.ParentID),
	)

	return &created, nil
}

// RenameItem renames itemID. The root folder cannot be renamed.
func (m *Mock) RenameItem(_ context.Context, itemID, newName string) (*Item, error) {
	const op = "rename"

	newName, err := ValidateName(newName)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[itemID]
	if !ok {
		return nil, notFound(op, itemID)
	}

	if itemID == RootID {
		return nil, badRequest(op, "the root folder cannot be renamed")
	}

	n.item.Name = newName
	n.item.ModifiedAt = m.nowFunc().UTC()
	renamed := n.item

	return &renamed, nil
}

// DeleteItem removes itemID and all of its descendants. Deleting an id that
// does not exist (including one already deleted) yields ErrNotFound.
func (m *Mock) DeleteItem(_ context.Context, itemID string) error {
	const op = "delete"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.nodes[itemID]; !ok {
		return notFound(op, itemID)
	}

	if itemID == RootID {
		return &ProviderError{
			Op: op, StatusCode: http.StatusForbidden,
			Message: "the root folder cannot be deleted", Err: ErrBadRequest,
		}
	}

	removed := m.deleteTreeLocked(itemID)

	m.logger.Info("mock: deleted item",
		slog.String("item_id", itemID),
		slog.Int("removed", removed),
	)

	return nil
}

// deleteTreeLocked removes id and its descendants. Caller holds mu.
func (m *Mock) deleteTreeLocked(id string) int {
	removed := 0

	for childID, n := range m.nodes {
		if n.item.ParentID == id && childID != RootID {
			removed += m.deleteTreeLocked(childID)
		}
	}

	delete(m.nodes, id)

	return removed + 1
}

// FetchContent returns a copy of the stored bytes, or ExportRequired for
// native documents.
func (m *Mock) FetchContent(_ context.Context, itemID string) (*Content, error) {
	const op = "download"

	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[itemID]
	if !ok {
		return nil, notFound(op, itemID)
	}

	if n.item.IsFolder() {
		return nil, badRequest(op, "cannot download a folder: "+itemID)
	}

	if n.item.IsNativeDocument() {
		return &Content{Item: n.item, ExportRequired: true}, nil
	}

	body := bytes.Clone(n.content)

	return &Content{
		Item:        n.item,
		ContentType: n.item.MimeType,
		Body:        io.NopCloser(bytes.NewReader(body)),
	}, nil
}

// MockConnector hands every session the same process-wide Mock.
type MockConnector struct {
	mock *Mock
}

// NewMockConnector wraps m.
func NewMockConnector(m *Mock) *MockConnector {
	return &MockConnector{mock: m}
}

// Mode returns ModeMock.
func (c *MockConnector) Mode() string { return ModeMock }

// Connect returns the shared Mock. The token must still carry an access token
// so the mock rejects the same credentials the live variant would.
func (c *MockConnector) Connect(_ context.Context, tok *oauth2.Token) (Provider, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrUnauthorized)
	}

	return c.mock, nil
}
