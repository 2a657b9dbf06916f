package converter

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/parsekit/parsekit-converter/internal/models"
)

// File extensions that need LibreOffice conversion to PDF.
var convertExtensions = map[string]struct{}{
	".doc":  {},
	".docx": {},
	".ppt":  {},
	".pptx": {},
	".xls":  {},
	".xlsx": {},
	".hwp":  {},
	".hwpx": {},
	".odt":  {},
	".odp":  {},
	".ods":  {},
}

var pdfExtensions = map[string]struct{}{
	".pdf": {},
}

var imageExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tiff": {},
	".webp": {},
}

// Classify maps a filename and declared content type to a file class. The
// extension wins over the content type; anything unrecognized is treated as
// convertible so LibreOffice gets a chance at it.
func Classify(filename, contentType string) models.FileClass {
	ext := strings.ToLower(filepath.Ext(filename))

	if _, ok := pdfExtensions[ext]; ok || contentType == "application/pdf" {
		return models.ClassPDF
	}
	if _, ok := imageExtensions[ext]; ok || strings.HasPrefix(contentType, "image/") {
		return models.ClassImage
	}
	return models.ClassConvertible
}

// ConvertibleExtensions returns the office extensions LibreOffice handles,
// sorted.
func ConvertibleExtensions() []string {
	return sortedKeys(convertExtensions)
}

// PassthroughExtensions returns the extensions returned unchanged (PDF and
// image formats), sorted.
func PassthroughExtensions() []string {
	merged := make(map[string]struct{}, len(pdfExtensions)+len(imageExtensions))
	for ext := range pdfExtensions {
		merged[ext] = struct{}{}
	}
	for ext := range imageExtensions {
		merged[ext] = struct{}{}
	}
	return sortedKeys(merged)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
