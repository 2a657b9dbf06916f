package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsekit/parsekit-converter/api/handlers"
	"github.com/parsekit/parsekit-converter/api/routes"
	"github.com/parsekit/parsekit-converter/internal/apperr"
	"github.com/parsekit/parsekit-converter/internal/converter"
	"github.com/parsekit/parsekit-converter/internal/models"
	"github.com/parsekit/parsekit-converter/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService scripts the orchestrator's behavior for handler tests.
type stubService struct {
	pdf       *models.PDFResult
	pdfErr    error
	pages     []models.PageImage
	imagesErr error
	stream    converter.PageStream
	streamErr error

	gotUpload *models.Upload
	gotFormat string
	gotDPI    int
}

func (s *stubService) ToPDF(ctx context.Context, up *models.Upload) (*models.PDFResult, error) {
	s.gotUpload = up
	return s.pdf, s.pdfErr
}

func (s *stubService) ToImages(ctx context.Context, up *models.Upload, format string, dpi int) ([]models.PageImage, error) {
	s.gotUpload, s.gotFormat, s.gotDPI = up, format, dpi
	return s.pages, s.imagesErr
}

func (s *stubService) StreamImages(ctx context.Context, up *models.Upload, format string, dpi int) (converter.PageStream, error) {
	s.gotUpload, s.gotFormat, s.gotDPI = up, format, dpi
	return s.stream, s.streamErr
}

// fakeStream serves scripted pages and records whether it was closed.
type fakeStream struct {
	pages  []models.PageImage
	next   int
	err    error
	closed bool
}

func (f *fakeStream) TotalPages() int { return len(f.pages) }

func (f *fakeStream) Next(ctx context.Context) (*models.PageImage, error) {
	if f.next >= len(f.pages) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	page := f.pages[f.next]
	f.next++
	return &page, nil
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func newRouter(svc converter.Converter) *gin.Engine {
	r := gin.New()
	routes.SetupRoutes(r, handlers.NewHandlers(svc, logger.NewTestLogger()))
	return r
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

// closeNotifyRecorder adds the http.CloseNotifier implementation that Gin's
// Stream helper requires but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return make(chan bool) }

func postFile(t *testing.T, r *gin.Engine, path, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, formContentType := multipartBody(t, filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", formContentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(&closeNotifyRecorder{rec}, req)
	return rec
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	r := newRouter(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSupportedFormats(t *testing.T) {
	r := newRouter(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/supported-formats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var list models.FormatList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Contains(t, list.Convertible, ".docx")
	assert.Contains(t, list.Convertible, ".hwp")
	assert.Contains(t, list.Passthrough, ".pdf")
	assert.Contains(t, list.Passthrough, ".png")
}

func TestConvertSuccess(t *testing.T) {
	pdfContent := []byte("%PDF converted bytes")
	svc := &stubService{
		pdf: &models.PDFResult{Filename: "report.pdf", Content: pdfContent, Converted: true},
	}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert", "report.docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", []byte("docx"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, 0, env.Code)

	var data models.ConvertResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "report.pdf", data.Filename)
	assert.True(t, data.Converted)
	assert.Equal(t, len(pdfContent), data.Size)

	decoded, err := base64.StdEncoding.DecodeString(data.Content)
	require.NoError(t, err)
	assert.Equal(t, pdfContent, decoded)

	require.NotNil(t, svc.gotUpload)
	assert.Equal(t, "report.docx", svc.gotUpload.Filename)
	assert.Equal(t, []byte("docx"), svc.gotUpload.Content)
}

func TestConvertTypedError(t *testing.T) {
	svc := &stubService{pdfErr: apperr.LibreOfficeNotFound()}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert", "report.docx", "application/octet-stream", []byte("docx"))

	// Application errors still ride HTTP 200; clients check the code field.
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeLibreOfficeNotFound, env.Code)
	assert.Equal(t, "LibreOffice is not installed", env.Message)
	assert.Equal(t, "null", string(env.Data))
}

func TestConvertEmptyFileError(t *testing.T) {
	svc := &stubService{pdfErr: apperr.EmptyFile()}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert", "report.docx", "application/octet-stream", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeEmptyFile, env.Code)
}

func TestConvertUnknownErrorIsHidden(t *testing.T) {
	svc := &stubService{pdfErr: errors.New("stat /var/lib/secret: permission denied")}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert", "report.docx", "application/octet-stream", []byte("x"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeInternal, env.Code)
	assert.Equal(t, "Internal server error", env.Message)
	assert.NotContains(t, rec.Body.String(), "/var/lib/secret")
}

func TestConvertMissingFileField(t *testing.T) {
	r := newRouter(&stubService{})
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeInvalidRequest, env.Code)
}

// panicService crashes instead of converting, standing in for a parser bug
// on hostile input.
type panicService struct {
	stubService
}

func (p *panicService) ToPDF(ctx context.Context, up *models.Upload) (*models.PDFResult, error) {
	panic("parser exploded")
}

func TestConvertPanicKeepsEnvelope(t *testing.T) {
	r := newRouter(&panicService{})

	rec := postFile(t, r, "/convert", "report.pdf", "application/pdf", []byte("%PDF"))

	// Even a crashed request keeps the uniform HTTP-200 envelope.
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeInternal, env.Code)
	assert.Equal(t, "Internal server error", env.Message)
	assert.Equal(t, "null", string(env.Data))
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestConvertRawSuccess(t *testing.T) {
	pdfContent := []byte("%PDF raw bytes")
	svc := &stubService{
		pdf: &models.PDFResult{Filename: "report.pdf", Content: pdfContent, Converted: true},
	}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/raw", "report.docx", "application/octet-stream", []byte("docx"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="report.pdf"`)
	assert.Equal(t, pdfContent, rec.Body.Bytes())
}

func TestConvertRawErrorUsesEnvelope(t *testing.T) {
	svc := &stubService{pdfErr: apperr.ConversionTimeout()}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/raw", "report.docx", "application/octet-stream", []byte("docx"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeConversionTimeout, env.Code)
}

func TestImagesStructured(t *testing.T) {
	svc := &stubService{
		pages: []models.PageImage{
			{Page: 1, Content: []byte("page one"), TotalPages: 2},
			{Page: 2, Content: []byte("page two"), TotalPages: 2},
		},
	}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/images?format=jpg&dpi=300", "report.pdf", "application/pdf", []byte("%PDF"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Equal(t, 0, env.Code)

	var data models.ImageConvertResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	// Metadata reports the requested name, not the encoder identifier.
	assert.Equal(t, "jpg", data.Format)
	assert.Equal(t, 2, data.TotalPages)
	require.Len(t, data.Pages, 2)
	assert.Equal(t, 1, data.Pages[0].Page)
	assert.Equal(t, len("page one"), data.Pages[0].Size)

	assert.Equal(t, "jpg", svc.gotFormat)
	assert.Equal(t, 300, svc.gotDPI)
}

func TestImagesDefaults(t *testing.T) {
	svc := &stubService{pages: []models.PageImage{{Page: 1, Content: []byte("x"), TotalPages: 1}}}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/images", "report.pdf", "application/pdf", []byte("%PDF"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", svc.gotFormat)
	assert.Equal(t, 150, svc.gotDPI)
}

func TestImagesInvalidDPI(t *testing.T) {
	r := newRouter(&stubService{})

	rec := postFile(t, r, "/convert/images?dpi=banana", "report.pdf", "application/pdf", []byte("%PDF"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodeInvalidRequest, env.Code)
}

func TestImagesStreamNDJSON(t *testing.T) {
	stream := &fakeStream{
		pages: []models.PageImage{
			{Page: 1, Content: []byte("one"), TotalPages: 3},
			{Page: 2, Content: []byte("two"), TotalPages: 3},
			{Page: 3, Content: []byte("three"), TotalPages: 3},
		},
	}
	svc := &stubService{stream: stream}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/images/stream", "report.pdf", "application/pdf", []byte("%PDF"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	for i, line := range lines {
		var page models.StreamPage
		require.NoError(t, json.Unmarshal([]byte(line), &page))
		assert.Equal(t, i+1, page.Page)
		assert.Equal(t, 3, page.TotalPages)

		decoded, err := base64.StdEncoding.DecodeString(page.Content)
		require.NoError(t, err)
		assert.Equal(t, len(decoded), page.Size)
	}

	assert.True(t, stream.closed)
}

func TestImagesStreamImagePassthrough(t *testing.T) {
	original := []byte("raw png bytes")
	stream := &fakeStream{
		pages: []models.PageImage{{Page: 1, Content: original, TotalPages: 1}},
	}
	r := newRouter(&stubService{stream: stream})

	rec := postFile(t, r, "/convert/images/stream", "photo.PNG", "image/png", original)

	require.Equal(t, http.StatusOK, rec.Code)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 1)

	var page models.StreamPage
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, len(original), page.Size)

	decoded, err := base64.StdEncoding.DecodeString(page.Content)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestImagesStreamErrorBeforeFirstPage(t *testing.T) {
	svc := &stubService{streamErr: apperr.PopplerNotFound()}
	r := newRouter(svc)

	rec := postFile(t, r, "/convert/images/stream", "report.pdf", "application/pdf", []byte("%PDF"))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, apperr.CodePopplerNotFound, env.Code)
}

func TestImagesStreamAbortsMidway(t *testing.T) {
	stream := &fakeStream{
		pages: []models.PageImage{{Page: 1, Content: []byte("one"), TotalPages: 3}},
		err:   apperr.ImageConversionFailed(errors.New("page 2 exploded")),
	}
	r := newRouter(&stubService{stream: stream})

	rec := postFile(t, r, "/convert/images/stream", "report.pdf", "application/pdf", []byte("%PDF"))

	// The first page was already written; the stream simply ends there.
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 1)
	assert.True(t, stream.closed)
}

func TestRequestIDHeader(t *testing.T) {
	r := newRouter(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
