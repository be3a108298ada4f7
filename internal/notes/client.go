package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Note store failure taxonomy. Persistence failures are never masked:
// a request that claims success must have actually stored data.
var (
	// ErrUnreachable means the note store could not be reached at all.
	ErrUnreachable = errors.New("note store unreachable")

	// ErrRejected means the note store answered with a non-success status.
	ErrRejected = errors.New("note store rejected request")
)

// Note is the backend's representation of a stored note. The gateway
// holds no copy after a create call returns.
type Note struct {
	NoteID   string `json:"noteId"`
	Title    string `json:"title"`
	Content  string `json:"content,omitempty"`
	ParentID string `json:"parentNoteId,omitempty"`
}

// Config contains note store client configuration
type Config struct {
	BaseURL string
	Token   string
	// ParentNoteID is the default parent when a request names none.
	ParentNoteID string
	Timeout      time.Duration
}

// Client talks to a Trilium-style note store over its ETAPI surface.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new note store client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

type createNoteRequest struct {
	ParentNoteID string `json:"parentNoteId"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Content      string `json:"content"`
}

type createNoteResponse struct {
	Note Note `json:"note"`
}

// CreateNote persists a note and returns the backend's record of it.
// parentID may be empty, in which case the configured default parent
// (or the store's root) receives the note.
func (c *Client) CreateNote(ctx context.Context, title, content, parentID string) (*Note, error) {
	if parentID == "" {
		parentID = c.config.ParentNoteID
	}
	if parentID == "" {
		parentID = "root"
	}

	reqBody, err := json.Marshal(createNoteRequest{
		ParentNoteID: parentID,
		Title:        title,
		Type:         "text",
		Content:      content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/etapi/create-note", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}

	var created createNoteResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: malformed create response: %s", ErrRejected, err.Error())
	}

	c.logger.Info("Note created",
		slog.String("note_id", created.Note.NoteID),
		slog.String("parent_id", parentID),
		slog.Int("content_length", len(content)),
	)

	note := created.Note
	note.ParentID = parentID
	return &note, nil
}

type searchResponse struct {
	Results []Note `json:"results"`
}

// Search runs a full-text query against the store and returns matches in
// store-provided order. Failures surface so API consumers can distinguish
// "no matches" from "backend unavailable".
func (c *Client) Search(ctx context.Context, query string) ([]Note, error) {
	path := "/etapi/notes?search=" + url.QueryEscape(query)

	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var found searchResponse
	if err := json.Unmarshal(respBody, &found); err != nil {
		return nil, fmt.Errorf("%w: malformed search response: %s", ErrRejected, err.Error())
	}

	return found.Results, nil
}

// do performs one request against the store and maps failures onto the
// note store error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	reqURL := strings.TrimRight(c.config.BaseURL, "/") + path

	httpReq, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", c.config.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %s", ErrUnreachable, err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRejected, resp.StatusCode,
			strings.TrimSpace(string(respBody)))
	}

	return respBody, nil
}
