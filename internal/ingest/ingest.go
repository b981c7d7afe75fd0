package ingest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/teachmate/teachmate/internal/index"
	"github.com/teachmate/teachmate/provider"
)

var (
	// ErrTooLarge means the upload exceeded the configured byte limit.
	ErrTooLarge = errors.New("document exceeds upload size limit")
	// ErrUnsupportedFormat means the file extension is not ingestible.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmptyContent means extraction produced no usable text.
	ErrEmptyContent = errors.New("no text could be extracted")
)

// Result describes a completed ingestion.
type Result struct {
	Document string `json:"document"` // file name or URL
	Chunks   int    `json:"chunks"`
}

// Ingestor extracts text from uploads and URLs, chunks it and feeds the
// session's vector index.
type Ingestor struct {
	llm            provider.Provider
	index          *index.Manager
	maxUploadBytes int64
	chunkSize      int
	chunkOverlap   int
	httpClient     *http.Client
	logger         *log.Logger
}

func NewIngestor(llm provider.Provider, idx *index.Manager, maxUploadBytes int64, chunkSize, chunkOverlap int, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Ingestor{
		llm:            llm,
		index:          idx,
		maxUploadBytes: maxUploadBytes,
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		httpClient:     &http.Client{},
		logger:         logger,
	}
}

var imageMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// IngestFile extracts text from an uploaded file and indexes it under
// the session. The reader is consumed incrementally so oversized
// uploads fail without buffering the whole body.
func (ing *Ingestor) IngestFile(ctx context.Context, sessionID, filename string, r io.Reader) (Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	_, isImage := imageMimeTypes[ext]
	if ext != ".pdf" && ext != ".txt" && ext != ".md" && !isImage {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := readLimited(r, ing.maxUploadBytes)
	if err != nil {
		return Result{}, err
	}

	var text string
	sourceType := "document"
	switch {
	case ext == ".pdf":
		text, err = extractPDF(data)
		if err != nil {
			return Result{}, fmt.Errorf("pdf extraction failed: %w", err)
		}
	case isImage:
		sourceType = "image"
		text, err = ing.llm.DescribeImage(ctx, imageMimeTypes[ext], data)
		if err != nil {
			return Result{}, fmt.Errorf("image description failed: %w", err)
		}
	default:
		text = string(data)
	}

	return ing.indexText(ctx, sessionID, filename, sourceType, text)
}

// IngestURL fetches a page, strips boilerplate with readability and
// indexes the article text under the session.
func (ing *Ingestor) IngestURL(ctx context.Context, sessionID, rawURL string) (Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return Result{}, fmt.Errorf("%w: not a fetchable url", ErrUnsupportedFormat)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := ing.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	}

	body, err := readLimited(resp.Body, ing.maxUploadBytes)
	if err != nil {
		return Result{}, err
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsed)
	if err != nil {
		return Result{}, fmt.Errorf("readability failed: %w", err)
	}

	return ing.indexText(ctx, sessionID, rawURL, "web", article.TextContent)
}

func (ing *Ingestor) indexText(ctx context.Context, sessionID, document, sourceType, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyContent
	}

	hash := sha1Hex(text)
	parts := makeChunks(text, ing.chunkSize, ing.chunkOverlap)
	chunks := make([]index.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = index.Chunk{
			ID:         fmt.Sprintf("%s#%03d", hash, i),
			Document:   document,
			SourceType: sourceType,
			Text:       part,
		}
	}
	if err := ing.index.Upsert(ctx, sessionID, chunks); err != nil {
		return Result{}, fmt.Errorf("indexing failed: %w", err)
	}
	ing.logger.Printf("indexed %s: %d chunks for session %s", document, len(chunks), sessionID)
	return Result{Document: document, Chunks: len(chunks)}, nil
}

// readLimited reads at most max bytes and fails with ErrTooLarge when
// the source has more.
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, ErrTooLarge
	}
	return data, nil
}

func sha1Hex(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

func makeChunks(text string, approx, overlap int) []string {
	text = strings.TrimSpace(text)
	if len(text) <= approx {
		return []string{text}
	}
	var chunks []string
	for start := 0; start < len(text); {
		end := start + approx
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
