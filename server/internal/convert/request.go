package convert

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindRequest     Kind = "request"
	KindCollection  Kind = "collection"
	KindEnvironment Kind = "environment"
)

type Op string

const (
	OpEncode Op = "encode"
	OpDecode Op = "decode"
)

// ErrorType classifies a failed conversion.
type ErrorType string

const (
	ErrorSyntax  ErrorType = "syntax"
	ErrorParsing ErrorType = "parsing"
	ErrorRuntime ErrorType = "runtime"
)

type Options struct {
	// Filename is the path of the file being converted. Its stem names a request or environment whose meta carries
	// no name.
	Filename string `json:"filename,omitempty"`
}

func (o Options) fallbackName() string {
	base := filepath.Base(o.Filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Request is one unit of conversion work. For decodes Data is the file text (string or []byte); for encodes it is
// the model, either typed (*bru.Item, *bru.Collection, *bru.Environment) or its JSON form (json.RawMessage).
type Request struct {
	Kind    Kind    `json:"kind"`
	Op      Op      `json:"op"`
	Data    any     `json:"data"`
	Options Options `json:"options"`
}

func (r Request) Validate() error {
	switch r.Kind {
	case KindRequest, KindCollection, KindEnvironment:
	default:
		return fmt.Errorf("unknown conversion kind %q", r.Kind)
	}
	switch r.Op {
	case OpEncode, OpDecode:
	default:
		return fmt.Errorf("unknown conversion op %q", r.Op)
	}
	if r.Data == nil {
		return fmt.Errorf("missing conversion data")
	}
	return nil
}

// Reply carries either the converted value or a failure. A reply with a non-empty Error is a failure even when
// Value holds a placeholder model.
type Reply struct {
	Value     any       `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorType ErrorType `json:"errorType,omitempty"`
}

func (r Reply) Failed() bool {
	return r.Error != ""
}

func textFrom(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.RawMessage:
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", fmt.Errorf("unmarshal text: %w", err)
		}
		return s, nil
	}
	return "", fmt.Errorf("decode expects text, got %T", data)
}

func modelFrom[T any](data any) (*T, error) {
	switch v := data.(type) {
	case *T:
		if v == nil {
			return nil, fmt.Errorf("nil %T model", v)
		}
		return v, nil
	case T:
		return &v, nil
	case json.RawMessage:
		var m T
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, fmt.Errorf("unmarshal model: %w", err)
		}
		return &m, nil
	}
	var zero *T
	return nil, fmt.Errorf("encode expects %T, got %T", zero, data)
}
