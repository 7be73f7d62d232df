package jobs

import (
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultExtension = "jpg"

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"bmp": true, "webp": true, "tiff": true, "tif": true,
}

// Extension picks a file extension (without dot) for a fetched result. It
// tries the URL path, then the Content-Type, then the content itself, and
// falls back to jpg.
func Extension(r Result) string {
	if ext := extensionFromURL(r.URL); ext != "" {
		return ext
	}
	if ext := extensionFromContentType(r.ContentType); ext != "" {
		return ext
	}
	if ext := extensionFromBytes(r.Bytes); ext != "" {
		return ext
	}
	return defaultExtension
}

func extensionFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if imageExtensions[ext] {
		return ext
	}
	return ""
}

func extensionFromContentType(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(ct))
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return ""
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		return normalizeExtension(m.Extension())
	}
	return ""
}

func extensionFromBytes(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	m := mimetype.Detect(data)
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return normalizeExtension(m.Extension())
		}
	}
	return ""
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	if imageExtensions[ext] {
		return ext
	}
	return ""
}

// IsImageMIME reports whether a declared media type is an image.
func IsImageMIME(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
