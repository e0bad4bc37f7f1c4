package drive

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/text/unicode/norm"
)

// Provider is the capability set the HTTP layer needs from a storage
// provider. Both variants return errors wrapping the package sentinels.
type Provider interface {
	ListChildren(ctx context.Context, folderID string, pageSize int, pageToken string) (*Page, error)
	CreateFolder(ctx context.Context, parentID, name string) (*Item, error)
	UploadContent(ctx context.Context, parentID, name, contentType string, r io.Reader) (*Item, error)
	RenameItem(ctx context.Context, itemID, newName string) (*Item, error)
	DeleteItem(ctx context.Context, itemID string) error
	FetchContent(ctx context.Context, itemID string) (*Content, error)
}

// Connector resolves a Provider for a session credential. A process picks
// one Connector at startup.
type Connector interface {
	Connect(ctx context.Context, tok *oauth2.Token) (Provider, error)
	Mode() string
}

// Connector modes.
const (
	ModeLive = "live"
	ModeMock = "mock"
)

// maxNameLength bounds item names; longer names are rejected locally.
const maxNameLength = 255

// NormalizeName trims surrounding whitespace and applies Unicode NFC so the
// same visual name from different clients maps to the same stored name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// ValidateName normalizes name and rejects empty names, overlong names and
// names containing NUL with ErrValidation.
func ValidateName(name string) (string, error) {
	n := NormalizeName(name)

	switch {
	case n == "":
		return "", fmt.Errorf("%w: name must not be empty", ErrValidation)
	case len(n) > maxNameLength:
		return "", fmt.Errorf("%w: name exceeds %d bytes", ErrValidation, maxNameLength)
	case strings.ContainsRune(n, 0):
		return "", fmt.Errorf("%w: name contains a NUL byte", ErrValidation)
	}

	return n, nil
}

// ValidatePageSize returns DefaultPageSize for zero and rejects values
// outside 1..MaxPageSize.
func ValidatePageSize(n int) (int, error) {
	if n == 0 {
		return DefaultPageSize, nil
	}

	if n < 1 || n > MaxPageSize {
		return 0, fmt.Errorf("%w: page_size must be between 1 and %d", ErrValidation, MaxPageSize)
	}

	return n, nil
}

// parentOrRoot maps an empty parent id to RootID.
func parentOrRoot(id string) string {
	if id == "" {
		return RootID
	}

	return id
}
