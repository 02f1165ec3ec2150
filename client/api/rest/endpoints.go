package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

type CollectionRef struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
}

type Workspace struct {
	UID          string          `json:"uid"`
	Name         string          `json:"name"`
	Path         string          `json:"pathname"`
	Docs         string          `json:"docs"`
	Collections  []CollectionRef `json:"collections"`
	LoadingState string          `json:"loadingState"`
}

type WorkspaceResult struct {
	WorkspaceConfig json.RawMessage `json:"workspaceConfig"`
	WorkspaceUID    string          `json:"workspaceUid"`
	WorkspacePath   string          `json:"workspacePath"`
}

type ConvertReply struct {
	Value     json.RawMessage `json:"value,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"errorType,omitempty"`
}

type Filters struct {
	Category string          `json:"category"`
	Filters  map[string]bool `json:"filters"`
}

type Records struct {
	Kind    string          `json:"kind"`
	Records json.RawMessage `json:"records"`
	Filters map[string]bool `json:"filters"`
}

func (c *Client) CreateWorkspace(ctx context.Context, name, folderName, location string) (*WorkspaceResult, error) {
	in := map[string]string{"name": name, "folderName": folderName, "location": location}
	var out WorkspaceResult
	if err := c.Do(ctx, http.MethodPost, "/v1/workspaces", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) OpenWorkspace(ctx context.Context, path string) (*WorkspaceResult, error) {
	var out WorkspaceResult
	if err := c.Do(ctx, http.MethodPost, "/v1/workspaces/open", nil, map[string]string{"path": path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WorkspaceCollections(ctx context.Context, path string) ([]CollectionRef, error) {
	var out struct {
		Collections []CollectionRef `json:"collections"`
	}
	err := c.Do(ctx, http.MethodGet, "/v1/workspaces/collections", url.Values{"path": {path}}, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.Collections, nil
}

func (c *Client) AddCollection(ctx context.Context, path string, ref CollectionRef) ([]CollectionRef, error) {
	in := struct {
		Path       string        `json:"path"`
		Collection CollectionRef `json:"collection"`
	}{Path: path, Collection: ref}
	var out struct {
		Collections []CollectionRef `json:"collections"`
	}
	if err := c.Do(ctx, http.MethodPost, "/v1/workspaces/collections", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

func (c *Client) LastOpened(ctx context.Context) ([]*Workspace, error) {
	var out struct {
		Workspaces []*Workspace `json:"workspaces"`
	}
	if err := c.Do(ctx, http.MethodGet, "/v1/workspaces/recent", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Workspaces, nil
}

func (c *Client) SaveDocs(ctx context.Context, path, docs string) (string, error) {
	var out struct {
		Docs string `json:"docs"`
	}
	err := c.Do(ctx, http.MethodPut, "/v1/workspaces/docs", nil, map[string]string{"path": path, "docs": docs}, &out)
	if err != nil {
		return "", err
	}
	return out.Docs, nil
}

// Browse asks the daemon to confirm hint as a directory. The second return value is false when it is not one.
func (c *Client) Browse(ctx context.Context, hint string) (string, bool, error) {
	var out struct {
		Path     string `json:"path"`
		Selected bool   `json:"selected"`
	}
	if err := c.Do(ctx, http.MethodPost, "/v1/browse", nil, map[string]string{"hint": hint}, &out); err != nil {
		return "", false, err
	}
	return out.Path, out.Selected, nil
}

// Convert runs one conversion. data is sent as is, so text must already be a JSON string.
func (c *Client) Convert(ctx context.Context, kind, op string, data json.RawMessage, filename string) (*ConvertReply, error) {
	in := struct {
		Kind     string          `json:"kind"`
		Op       string          `json:"op"`
		Data     json.RawMessage `json:"data"`
		Filename string          `json:"filename,omitempty"`
	}{Kind: kind, Op: op, Data: data, Filename: filename}
	var out ConvertReply
	if err := c.Do(ctx, http.MethodPost, "/v1/convert", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Collections(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/v1/collections", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Entries(ctx context.Context, uid string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/v1/collections/"+url.PathEscape(uid)+"/entries", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveItem writes item, a request model, to path inside the collection.
func (c *Client) SaveItem(ctx context.Context, uid, path string, item json.RawMessage) (json.RawMessage, error) {
	in := struct {
		Path string          `json:"path"`
		Item json.RawMessage `json:"item"`
	}{Path: path, Item: item}
	var out json.RawMessage
	if err := c.Do(ctx, http.MethodPost, "/v1/collections/"+url.PathEscape(uid)+"/items", nil, in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Diagnostics(ctx context.Context, section string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.Do(ctx, http.MethodGet, "/v1/diagnostics/"+url.PathEscape(section), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Records(ctx context.Context, kind string, unfiltered bool) (*Records, error) {
	var query url.Values
	if unfiltered {
		query = url.Values{"unfiltered": {"true"}}
	}
	var out Records
	if err := c.Do(ctx, http.MethodGet, "/v1/diagnostics/records/"+url.PathEscape(kind), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearRecords(ctx context.Context, kind string) error {
	return c.Do(ctx, http.MethodDelete, "/v1/diagnostics/records/"+url.PathEscape(kind), nil, nil, nil)
}

func (c *Client) Filters(ctx context.Context, category string) (*Filters, error) {
	var out Filters
	if err := c.Do(ctx, http.MethodGet, "/v1/diagnostics/filters/"+url.PathEscape(category), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetFilter toggles the filter key of a category, or sets every filter of it when all is non-nil.
func (c *Client) SetFilter(ctx context.Context, category, key string, all *bool) (*Filters, error) {
	in := struct {
		Key string `json:"key,omitempty"`
		All *bool  `json:"all,omitempty"`
	}{Key: key, All: all}
	var out Filters
	if err := c.Do(ctx, http.MethodPost, "/v1/diagnostics/filters/"+url.PathEscape(category), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ConvertReply) Failed() bool {
	return r.Error != ""
}
