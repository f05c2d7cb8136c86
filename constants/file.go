package constants

import "strings"

// AllowedMimeTypes holds the bill upload formats the extraction call accepts.
// PDFs are rasterized to an image by the caller before reaching the pipeline.
var AllowedMimeTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"image/webp":      {},
	"application/pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeFromExtension resolves the upload mime type from a filename extension,
// defaulting to JPEG the way distributor app photo exports usually are.
func MimeFromExtension(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
