package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	to "github.com/d-kimuson/ts-type-expand/internal/typeobject"
)

// Client calls a running server. It implements render.PropertyFetcher, so
// a renderer or tree can expand objects held by another process.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the server at baseURL. A nil hc uses a
// client with a 10s timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Status int
	Body   ErrorBody
}

func (e *RemoteError) Error() string {
	if e.Body.Message != "" {
		return fmt.Sprintf("server: %d %s: %s", e.Status, e.Body.Reason, e.Body.Message)
	}
	return fmt.Sprintf("server: %d %s", e.Status, e.Body.Reason)
}

func post[T any](ctx context.Context, c *Client, path string, req any) (T, error) {
	var zero T
	body, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("server: encode %s: %w", path, err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("server: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")
	return do[T](c, r)
}

func do[T any](c *Client, r *http.Request) (T, error) {
	var zero T
	resp, err := c.http.Do(r)
	if err != nil {
		return zero, fmt.Errorf("server: %s %s: %w", r.Method, r.URL.Path, err)
	}
	defer resp.Body.Close()

	var out Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return zero, fmt.Errorf("server: decode %s: %w", r.URL.Path, err)
	}
	if !out.Success {
		re := &RemoteError{Status: resp.StatusCode}
		if out.Error != nil {
			re.Body = *out.Error
		}
		return zero, re
	}
	return out.Data, nil
}

// IsActivated probes the server.
func (c *Client) IsActivated(ctx context.Context) (bool, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/is_activated", nil)
	if err != nil {
		return false, fmt.Errorf("server: %w", err)
	}
	res, err := do[IsActivatedResponse](c, r)
	if err != nil {
		return false, err
	}
	return res.IsActivated, nil
}

// TypeFromPos classifies the node at a position.
func (c *Client) TypeFromPos(ctx context.Context, path string, line, character int) (string, to.TypeObject, error) {
	res, err := post[TypeFromPosResponse](ctx, c, "/get_type_from_pos",
		TypeFromPosRequest{FilePath: path, Line: line, Character: character})
	if err != nil {
		return "", nil, err
	}
	t, err := to.Deserialize(res.Type)
	if err != nil {
		return "", nil, fmt.Errorf("server: %w", err)
	}
	return res.DeclareName, t, nil
}

// ExtractTypes lists the exported declarations of a file.
func (c *Client) ExtractTypes(ctx context.Context, path string) ([]to.Declaration, error) {
	res, err := post[ExtractTypesResponse](ctx, c, "/extract_types", ExtractTypesRequest{FilePath: path})
	if err != nil {
		return nil, err
	}
	out := make([]to.Declaration, 0, len(res.Declarations))
	for _, d := range res.Declarations {
		t, err := to.Deserialize(d.Type)
		if err != nil {
			return nil, fmt.Errorf("server: %s: %w", d.DeclareName, err)
		}
		out = append(out, to.Declaration{DeclaredName: d.DeclareName, Type: t})
	}
	return out, nil
}

// Properties fetches the members registered under storeKey.
func (c *Client) Properties(ctx context.Context, storeKey string) ([]to.Property, error) {
	res, err := post[ObjectPropsResponse](ctx, c, "/get_object_props", ObjectPropsRequest{StoreKey: storeKey})
	if err != nil {
		return nil, err
	}
	props, err := to.DeserializeProperties(res.Props)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	return props, nil
}
