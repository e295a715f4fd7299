package constants

import "strings"

// Document formats accepted by the parsing pipeline.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// Formats holds the allowed values for the format field on parse jobs.
var Formats = []string{PDF, IMAGE}

// mediaTypes maps declared media types to a pipeline format.
var mediaTypes = map[string]string{
	"application/pdf": PDF,
	"image/png":       IMAGE,
	"image/jpeg":      IMAGE,
	"image/jpg":       IMAGE,
	"image/tiff":      IMAGE,
}

// MapMediaType returns the pipeline format for a declared media type,
// or "" when the type is not accepted.
func MapMediaType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mediaTypes[mt]
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToMediaType maps a file extension to its declared media type,
// or "" when the extension is not accepted.
func MapExtToMediaType(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return ""
	}
}
