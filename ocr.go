package mcqbank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
)

// DefaultOCRDPI is the resolution pages are rendered at for OCR
const DefaultOCRDPI = 200

// FitzDocument renders pages and reads plain text with MuPDF
type FitzDocument struct {
	doc *fitz.Document
}

// OpenFitz opens path with go-fitz
func OpenFitz(path string) (*FitzDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &FitzDocument{doc: doc}, nil
}

// NumPages returns the page count
func (f *FitzDocument) NumPages() int {
	return f.doc.NumPage()
}

// RenderPNG renders page (1-based) as a PNG image
func (f *FitzDocument) RenderPNG(page int, dpi float64) ([]byte, error) {
	if page < 1 || page > f.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range 1-%d", page, f.doc.NumPage())
	}
	img, err := f.doc.ImagePNG(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}
	return img, nil
}

// Text returns the plain text MuPDF finds on page (1-based)
func (f *FitzDocument) Text(page int) (string, error) {
	if page < 1 || page > f.doc.NumPage() {
		return "", fmt.Errorf("page %d out of range 1-%d", page, f.doc.NumPage())
	}
	return f.doc.Text(page - 1)
}

// Close releases the MuPDF document
func (f *FitzDocument) Close() error {
	return f.doc.Close()
}

// PageRenderer renders a page (1-based) to PNG
type PageRenderer interface {
	RenderPNG(page int, dpi float64) ([]byte, error)
}

// TextRecognizer turns an image into text
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, filename string) (string, error)
}

// OCRClient talks to the OCR HTTP service
type OCRClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// OCRResponse is the OCR service reply
type OCRResponse struct {
	Text      string `json:"text"`
	PageCount int    `json:"page_count"`
	Filename  string `json:"filename,omitempty"`
}

// NewOCRClient creates a client for the service at baseURL
func NewOCRClient(baseURL string, timeout time.Duration) *OCRClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8081"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OCRClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Recognize uploads image to /ocr/file and returns the recognised text
func (c *OCRClient) Recognize(ctx context.Context, image []byte, filename string) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ocr/file", body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("OCR service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out OCRResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}

// HealthCheck checks that the OCR service is up
func (c *OCRClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OCR service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// PageOCR recognises the text of rendered pages
type PageOCR struct {
	renderer   PageRenderer
	recognizer TextRecognizer
	dpi        float64
}

// NewPageOCR pairs a renderer with a recogniser
func NewPageOCR(renderer PageRenderer, recognizer TextRecognizer, dpi float64) *PageOCR {
	if dpi <= 0 {
		dpi = DefaultOCRDPI
	}
	return &PageOCR{renderer: renderer, recognizer: recognizer, dpi: dpi}
}

// Recognize renders page (1-based) and returns its OCR text
func (o *PageOCR) Recognize(ctx context.Context, page int) (string, error) {
	img, err := o.renderer.RenderPNG(page, o.dpi)
	if err != nil {
		return "", err
	}
	return o.recognizer.Recognize(ctx, img, fmt.Sprintf("page-%04d.png", page))
}
