package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/poiesic/inflow/core"
)

// GraphQLConfig describes the single query a GraphQL connector executes.
type GraphQLConfig struct {
	Query         string
	Variables     map[string]any
	OperationName string

	// Headers are sent with the request.
	Headers map[string]string

	// Client overrides the HTTP client. Default http.DefaultClient.
	Client *http.Client
}

// GraphQLConnector executes one query and flattens the response into
// items: list-valued fields yield one item per element, nested objects
// are recursed into, and an all-scalar object is a single item. A
// top-level errors array becomes error-tagged items rather than a failed
// call, so a partially errored response still yields its data.
type GraphQLConnector struct {
	cfg GraphQLConfig
}

// NewGraphQLConnector validates the config and returns a connector.
func NewGraphQLConnector(cfg GraphQLConfig) (*GraphQLConnector, error) {
	if cfg.Query == "" {
		return nil, ErrQueryRequired
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &GraphQLConnector{cfg: cfg}, nil
}

// Open returns a stream over the query response. The request is made on
// the first Next call.
func (c *GraphQLConnector) Open(ctx context.Context, source string) (Stream, error) {
	return &graphqlStream{cfg: c.cfg, source: source}, nil
}

type graphqlStream struct {
	cfg    GraphQLConfig
	source string

	fetched bool
	items   []core.ProcessedData
	pos     int
}

func (s *graphqlStream) Next(ctx context.Context) (core.ProcessedData, error) {
	if !s.fetched {
		if err := s.execute(ctx); err != nil {
			s.fetched = true
			return core.ProcessedData{}, err
		}
		s.fetched = true
	}
	if s.pos >= len(s.items) {
		return core.ProcessedData{}, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	return item, nil
}

type graphqlResponse struct {
	Data   map[string]any   `json:"data"`
	Errors []map[string]any `json:"errors"`
}

func (s *graphqlStream) execute(ctx context.Context) error {
	payload, err := json.Marshal(map[string]any{
		"query":         s.cfg.Query,
		"variables":     s.cfg.Variables,
		"operationName": s.cfg.OperationName,
	})
	if err != nil {
		return fmt.Errorf("serializing graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.source, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", s.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("requesting %s: unexpected status %s", s.source, resp.Status)
	}

	var body graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding graphql response from %s: %w", s.source, err)
	}

	for _, gqlErr := range body.Errors {
		message, _ := gqlErr["message"].(string)
		if message == "" {
			message = "graphql error"
		}
		s.items = append(s.items, core.ProcessedData{
			SourceType: core.SourceTypeGraphQL,
			SourceURL:  s.source,
			Err:        message,
		})
	}
	if body.Data != nil {
		if err := s.flatten("", body.Data); err != nil {
			return err
		}
	}
	return nil
}

// flatten applies the extraction rules to one object: list fields emit
// their elements as items, object fields recurse, and an object with only
// scalar fields is itself one item.
func (s *graphqlStream) flatten(path string, obj map[string]any) error {
	var nested bool

	// Sorted keys keep item order stable across runs.
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fieldPath := key
		if path != "" {
			fieldPath = path + "." + key
		}
		switch value := obj[key].(type) {
		case []any:
			nested = true
			for i, element := range value {
				if err := s.emit(element, fieldPath, i, len(value)); err != nil {
					return err
				}
			}
		case map[string]any:
			nested = true
			if err := s.flatten(fieldPath, value); err != nil {
				return err
			}
		}
	}

	if !nested {
		return s.emit(obj, path, 0, 1)
	}
	return nil
}

func (s *graphqlStream) emit(raw any, fieldPath string, index, total int) error {
	content, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("serializing graphql item at %q: %w", fieldPath, err)
	}
	s.items = append(s.items, core.ProcessedData{
		Raw:        raw,
		Content:    string(content),
		SourceType: core.SourceTypeGraphQL,
		SourceURL:  s.source,
		Checksum:   core.FingerprintBytes(content),
		Metadata: map[string]string{
			"field":      fieldPath,
			"item_index": strconv.Itoa(index),
		},
		Stats: core.ProcessingStats{
			ItemIndex:  index,
			TotalItems: total,
		},
	})
	return nil
}
