package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/poiesic/inflow/core"
)

// PaginationType selects how the REST connector advances through a
// multi-page resource.
type PaginationType string

const (
	PaginationNone   PaginationType = "none"
	PaginationOffset PaginationType = "offset"
	PaginationCursor PaginationType = "cursor"
	PaginationPage   PaginationType = "page"
)

// RESTConfig parametrizes the paginator: the pagination mode, the query
// parameter names the remote API expects, and dotted paths locating the
// result list and next cursor inside a possibly nested response body.
type RESTConfig struct {
	PaginationType PaginationType

	// Query parameter names. Zero values take the defaults below.
	PageParam   string // default "page"
	SizeParam   string // default "page_size"
	OffsetParam string // default "offset"
	LimitParam  string // default "limit"
	CursorParam string // default "cursor"

	// PageSize is the requested page length. Default 100.
	PageSize int

	// MaxPages caps the number of requests; zero means no cap.
	MaxPages int

	// ResultsPath is the dotted path to the item list within the response
	// body. Empty means the body itself is the list.
	ResultsPath string

	// CursorPath is the dotted path to the next-cursor value; required
	// for cursor pagination.
	CursorPath string

	// Headers are sent with every request.
	Headers map[string]string

	// Client overrides the HTTP client. Default http.DefaultClient.
	Client *http.Client
}

func (c *RESTConfig) applyDefaults() {
	if c.PaginationType == "" {
		c.PaginationType = PaginationNone
	}
	if c.PageParam == "" {
		c.PageParam = "page"
	}
	if c.SizeParam == "" {
		c.SizeParam = "page_size"
	}
	if c.OffsetParam == "" {
		c.OffsetParam = "offset"
	}
	if c.LimitParam == "" {
		c.LimitParam = "limit"
	}
	if c.CursorParam == "" {
		c.CursorParam = "cursor"
	}
	if c.PageSize < 1 {
		c.PageSize = 100
	}
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
}

// RESTConnector pages through a JSON HTTP API, yielding one item per
// element of each page's result list. Every item records the pagination
// coordinates that produced it so a partial ingest can be reproduced.
type RESTConnector struct {
	cfg RESTConfig
}

// NewRESTConnector validates the config and returns a connector.
func NewRESTConnector(cfg RESTConfig) (*RESTConnector, error) {
	cfg.applyDefaults()
	switch cfg.PaginationType {
	case PaginationNone, PaginationOffset, PaginationCursor, PaginationPage:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPagination, cfg.PaginationType)
	}
	if cfg.PaginationType == PaginationCursor && cfg.CursorPath == "" {
		return nil, fmt.Errorf("%w: cursor pagination needs a cursor path", ErrUnsupportedPagination)
	}
	return &RESTConnector{cfg: cfg}, nil
}

// Open returns a stream over the paginated resource at source. No request
// is made until the first Next call.
func (c *RESTConnector) Open(ctx context.Context, source string) (Stream, error) {
	if _, err := url.Parse(source); err != nil {
		return nil, fmt.Errorf("parsing source url %q: %w", source, err)
	}
	return &restStream{cfg: c.cfg, source: source, page: 1}, nil
}

type restStream struct {
	cfg    RESTConfig
	source string

	page   int // 1-based
	offset int
	cursor string
	pages  int // requests made

	buf  []core.ProcessedData
	pos  int
	done bool
}

func (s *restStream) Next(ctx context.Context) (core.ProcessedData, error) {
	for {
		if s.pos < len(s.buf) {
			item := s.buf[s.pos]
			s.pos++
			return item, nil
		}
		if s.done {
			return core.ProcessedData{}, io.EOF
		}
		if err := s.fetchPage(ctx); err != nil {
			s.done = true
			return core.ProcessedData{}, err
		}
	}
}

func (s *restStream) fetchPage(ctx context.Context) error {
	requestURL, err := s.buildURL()
	if err != nil {
		return err
	}

	body, err := s.get(ctx, requestURL)
	if err != nil {
		return err
	}
	s.pages++

	results, ok := lookupPath(body, s.cfg.ResultsPath)
	if !ok {
		return fmt.Errorf("response from %s has no value at results path %q", requestURL, s.cfg.ResultsPath)
	}
	items, ok := results.([]any)
	if !ok {
		return fmt.Errorf("results path %q in response from %s is not a list", s.cfg.ResultsPath, requestURL)
	}

	s.buf = s.buf[:0]
	s.pos = 0
	for i, raw := range items {
		item, err := s.makeItem(raw, requestURL, i, len(items))
		if err != nil {
			return err
		}
		s.buf = append(s.buf, item)
	}

	s.advance(body, len(items))
	return nil
}

// advance applies the per-mode termination rules and moves the pagination
// state to the next request.
func (s *restStream) advance(body any, count int) {
	if s.cfg.MaxPages > 0 && s.pages >= s.cfg.MaxPages {
		s.done = true
		return
	}

	switch s.cfg.PaginationType {
	case PaginationNone:
		s.done = true
	case PaginationPage:
		if count == 0 || count < s.cfg.PageSize {
			s.done = true
			return
		}
		s.page++
	case PaginationOffset:
		if count == 0 {
			s.done = true
			return
		}
		s.offset += count
	case PaginationCursor:
		next, ok := lookupPath(body, s.cfg.CursorPath)
		cursor, isString := next.(string)
		if !ok || !isString || cursor == "" {
			s.done = true
			return
		}
		s.cursor = cursor
	}
}

func (s *restStream) buildURL() (string, error) {
	parsed, err := url.Parse(s.source)
	if err != nil {
		return "", err
	}
	query := parsed.Query()

	switch s.cfg.PaginationType {
	case PaginationPage:
		query.Set(s.cfg.PageParam, strconv.Itoa(s.page))
		query.Set(s.cfg.SizeParam, strconv.Itoa(s.cfg.PageSize))
	case PaginationOffset:
		query.Set(s.cfg.OffsetParam, strconv.Itoa(s.offset))
		query.Set(s.cfg.LimitParam, strconv.Itoa(s.cfg.PageSize))
	case PaginationCursor:
		if s.cursor != "" {
			query.Set(s.cfg.CursorParam, s.cursor)
		}
		query.Set(s.cfg.LimitParam, strconv.Itoa(s.cfg.PageSize))
	}

	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (s *restStream) get(ctx context.Context, requestURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("requesting %s: unexpected status %s", requestURL, resp.Status)
	}

	var body any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w", requestURL, err)
	}
	return body, nil
}

func (s *restStream) makeItem(raw any, requestURL string, index, total int) (core.ProcessedData, error) {
	content, err := json.Marshal(raw)
	if err != nil {
		return core.ProcessedData{}, fmt.Errorf("serializing item %d from %s: %w", index, requestURL, err)
	}

	return core.ProcessedData{
		Raw:        raw,
		Content:    string(content),
		SourceType: core.SourceTypeREST,
		SourceURL:  requestURL,
		Checksum:   core.FingerprintBytes(content),
		Metadata: map[string]string{
			"page":       strconv.Itoa(s.page),
			"offset":     strconv.Itoa(s.offset),
			"cursor":     s.cursor,
			"item_index": strconv.Itoa(index),
		},
		Stats: core.ProcessingStats{
			Page:       s.page,
			Offset:     s.offset,
			Cursor:     s.cursor,
			ItemIndex:  index,
			TotalItems: total,
		},
	}, nil
}

// lookupPath resolves a dotted path ("data.items") within nested JSON
// objects. An empty path resolves to value itself.
func lookupPath(value any, path string) (any, bool) {
	if path == "" {
		return value, true
	}
	current := value
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
