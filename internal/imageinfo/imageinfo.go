// Package imageinfo reads the format and dimensions of uploaded payloads
// without decoding the full image.
package imageinfo

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// OctetStream is reported for payloads that are not a known image format.
const OctetStream = "application/octet-stream"

// Info describes an inspected payload. Width and Height are zero for non-images.
type Info struct {
	Format      string
	ContentType string
	Width       int
	Height      int
}

// IsImage reports whether the payload decoded as an image.
func (i Info) IsImage() bool {
	return i.Format != ""
}

// Inspect sniffs data. It never fails: unknown payloads come back as OctetStream.
func Inspect(data []byte) Info {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{ContentType: OctetStream}
	}
	return Info{
		Format:      format,
		ContentType: ContentType(format),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}
}

// ContentType maps a decoder format name to its MIME type.
func ContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return OctetStream
	}
}
