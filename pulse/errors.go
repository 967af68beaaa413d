package pulse

import (
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
)

//go:generate go tool stringer -type=Kind

// Kind classifies the failures of this package.
type Kind int

const (
	AdapterNotFound Kind = iota + 1
	DeviceRequestFailed
	SurfaceIncompatible
	TextureCreationFailed
	ImageDecodeFailed
	UnsupportedFormatConversion
)

var (
	ErrAdapterNotFound             = &Error{Kind: AdapterNotFound}
	ErrDeviceRequestFailed         = &Error{Kind: DeviceRequestFailed}
	ErrSurfaceIncompatible         = &Error{Kind: SurfaceIncompatible}
	ErrTextureCreationFailed       = &Error{Kind: TextureCreationFailed}
	ErrImageDecodeFailed           = &Error{Kind: ImageDecodeFailed}
	ErrUnsupportedFormatConversion = &Error{Kind: UnsupportedFormatConversion}
)

// Error is returned for all recoverable failures. Use errors.Is with one of
// the Err* values to test for a Kind, errors.As to inspect the details.
type Error struct {
	Kind Kind

	// Op names the operation that failed, e.g. "resolve" or "texture from image".
	Op string

	// Label of the resource, if any.
	Label string

	// Layout and Format are set for UnsupportedFormatConversion.
	Layout ChannelLayout
	Format gputypes.TextureFormat

	// Err is the underlying backend or decoder error.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString("pulse: ")

	if e.Op != "" {
		sb.WriteString(e.Op)

		if e.Label != "" {
			fmt.Fprintf(&sb, " %q", e.Label)
		}

		sb.WriteString(": ")
	}

	sb.WriteString(e.Kind.String())

	if e.Kind == UnsupportedFormatConversion {
		fmt.Fprintf(&sb, " from %s to %s", e.Layout, FormatName(e.Format))
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other != nil && other.Kind == e.Kind
}
