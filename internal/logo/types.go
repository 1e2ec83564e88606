package logo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Size is the requested logo size.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// ErrInvalidSize is returned by ParseSize for names outside the size enumeration.
var ErrInvalidSize = errors.New("invalid logo size")

// ParseSize parses a size name. An empty name yields SizeMedium.
func ParseSize(s string) (Size, error) {
	switch Size(strings.ToLower(strings.TrimSpace(s))) {
	case "", SizeMedium:
		return SizeMedium, nil
	case SizeSmall:
		return SizeSmall, nil
	case SizeLarge:
		return SizeLarge, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSize, s)
}

func (s Size) orDefault() Size {
	switch s {
	case SizeSmall, SizeLarge:
		return s
	}
	return SizeMedium
}

// Format is the image format a logo is requested in.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// Key identifies one cache slot. Format is the resolved format, not the caller's preference.
type Key struct {
	TeamID string
	Size   Size
	Format Format
}

func (k Key) String() string {
	return k.TeamID + ":" + string(k.Size) + ":" + string(k.Format)
}

// Result is what consumers receive for a resolved logo.
type Result struct {
	URL         string     `json:"url"`
	FallbackURL string     `json:"fallbackUrl,omitempty"`
	IsWebP      bool       `json:"isWebP"`
	TeamName    string     `json:"teamName,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
	Size        Size       `json:"size"`
	Format      Format     `json:"format"`
}

// Entry is a cached Result with its insertion time.
type Entry struct {
	Result   Result
	CachedAt time.Time
}

// Stats is a point-in-time view of the service state.
type Stats struct {
	Entries    int  `json:"entries"`
	Failures   int  `json:"failures"`
	Queued     int  `json:"queued"`
	Preloading bool `json:"preloading"`
}

// Request is the upstream lookup for a single key.
type Request struct {
	TeamID string
	Size   Size
	Format Format
}

// Metadata is the logo metadata document served by the upstream API.
type Metadata struct {
	URL          string    `json:"url"`
	FallbackURL  string    `json:"fallbackUrl"`
	SupportsWebP bool      `json:"supportsWebP"`
	TeamName     string    `json:"teamName"`
	UploadedAt   Timestamp `json:"uploadedAt"`
}

// Fetcher retrieves logo metadata from the upstream API.
type Fetcher interface {
	FetchLogo(ctx context.Context, req Request) (*Metadata, error)
}

// FetcherFunc adapts a plain function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (*Metadata, error)

func (f FetcherFunc) FetchLogo(ctx context.Context, req Request) (*Metadata, error) {
	return f(ctx, req)
}
