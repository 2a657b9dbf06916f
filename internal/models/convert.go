package models

// Upload is a file received from a client, fully read into memory.
type Upload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FileClass is the classifier verdict for an upload.
type FileClass string

const (
	ClassPDF         FileClass = "pdf"
	ClassImage       FileClass = "image"
	ClassConvertible FileClass = "convertible"
)

// PDFResult is the outcome of a to-PDF conversion. Converted is false when
// the input passed through unchanged.
type PDFResult struct {
	Filename  string
	Content   []byte
	Converted bool
}

// PageImage is one rasterized page. TotalPages is the same for every page of
// one document.
type PageImage struct {
	Page       int
	Content    []byte
	TotalPages int
}

// ConvertResponse is the structured to-PDF response body.
type ConvertResponse struct {
	Filename  string `json:"filename"`
	Content   string `json:"content"` // base64-encoded PDF
	Size      int    `json:"size"`
	Converted bool   `json:"converted"`
}

// ImagePage is one page of a structured image conversion response.
type ImagePage struct {
	Page    int    `json:"page"`
	Content string `json:"content"` // base64-encoded image
	Size    int    `json:"size"`
}

// ImageConvertResponse is the structured image conversion response body.
type ImageConvertResponse struct {
	Format     string      `json:"format"`
	Pages      []ImagePage `json:"pages"`
	TotalPages int         `json:"total_pages"`
}

// StreamPage is one NDJSON record of the streaming image route.
type StreamPage struct {
	Page       int    `json:"page"`
	Content    string `json:"content"` // base64-encoded image
	Size       int    `json:"size"`
	TotalPages int    `json:"total_pages"`
}

// FormatList is the supported-formats response body.
type FormatList struct {
	Convertible []string `json:"convertible"`
	Passthrough []string `json:"passthrough"`
}
