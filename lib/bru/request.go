package bru

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var httpMethods = []string{"get", "post", "put", "delete", "patch", "options", "head", "connect", "trace"}

var requestTextBlocks = []string{
	"body:json", "body:text", "body:xml", "body:sparql", "body:graphql", "body:graphql:vars",
	"script:pre-request", "script:post-response", "tests", "docs",
}

// body mode <-> block name
var bodyBlocks = map[string]string{
	BodyModeJSON:           "body:json",
	BodyModeText:           "body:text",
	BodyModeXML:            "body:xml",
	BodyModeSparql:         "body:sparql",
	BodyModeFormURLEncoded: "body:form-urlencoded",
	BodyModeMultipartForm:  "body:multipart-form",
	BodyModeFile:           "body:file",
}

// ModelError is returned when the text is well formed but does not describe a request.
type ModelError struct {
	Msg string
}

func (e *ModelError) Error() string {
	return "invalid request: " + e.Msg
}

func requestBlockKind(name string) BlockKind {
	if slices.Contains(requestTextBlocks, name) {
		return TextBlock
	}
	return DictBlock
}

// Decode converts request text into an Item. It always returns a usable item: when the text cannot be decoded the
// placeholder from ErrorItem is returned together with the error describing why.
// fallbackName is used when the text carries no meta name, usually the file name without its extension.
func Decode(text, fallbackName string) (*Item, error) {
	item, err := decodeItem(text, fallbackName)
	if err != nil {
		return ErrorItem(), err
	}
	return item, nil
}

func decodeItem(text, fallbackName string) (*Item, error) {
	doc, err := Parse(text, requestBlockKind)
	if err != nil {
		return nil, err
	}

	item := &Item{
		Type: HTTPRequest,
		Name: fallbackName,
		Seq:  1,
		Request: Request{
			Params:     []Param{},
			Headers:    []Pair{},
			Auth:       Auth{Mode: AuthModeNone},
			Body:       Body{Mode: BodyModeNone},
			Vars:       Vars{Req: []Pair{}, Res: []Pair{}},
			Assertions: []Pair{},
		},
	}

	if meta, ok := doc.Block("meta"); ok {
		for p := range slices.Values(meta.Pairs) {
			switch p.Name {
			case "name":
				if p.Value != "" {
					item.Name = p.Value
				}
			case "type":
				if p.Value == "graphql" {
					item.Type = GraphQLRequest
				}
			case "seq":
				if seq, err := strconv.Atoi(p.Value); err == nil {
					item.Seq = seq
				}
			}
		}
	}

	foundMethod := false
	req := &item.Request
	for b := range slices.Values(doc.Blocks) {
		switch {
		case slices.Contains(httpMethods, b.Name):
			if foundMethod {
				return nil, &ModelError{Msg: fmt.Sprintf("more than one http method block, second is %q", b.Name)}
			}
			foundMethod = true
			req.Method = strings.ToUpper(b.Name)
			for p := range slices.Values(b.Pairs) {
				switch p.Name {
				case "url":
					req.URL = p.Value
				case "body":
					req.Body.Mode = p.Value
				case "auth":
					req.Auth.Mode = p.Value
				}
			}
		case b.Name == "params:query" || b.Name == "params:path":
			typ := strings.TrimPrefix(b.Name, "params:")
			for p := range slices.Values(b.Pairs) {
				req.Params = append(req.Params, Param{Name: p.Name, Value: p.Value, Type: typ, Enabled: p.Enabled})
			}
		case b.Name == "headers":
			req.Headers = append(req.Headers, b.Pairs...)
		case strings.HasPrefix(b.Name, "auth:"):
			decodeAuth(&req.Auth, strings.TrimPrefix(b.Name, "auth:"), b.Pairs)
		case strings.HasPrefix(b.Name, "body:"):
			decodeBody(&req.Body, b)
		case b.Name == "script:pre-request":
			req.Script.Req = b.Text
		case b.Name == "script:post-response":
			req.Script.Res = b.Text
		case b.Name == "vars:pre-request":
			req.Vars.Req = append(req.Vars.Req, b.Pairs...)
		case b.Name == "vars:post-response":
			req.Vars.Res = append(req.Vars.Res, b.Pairs...)
		case b.Name == "assert":
			req.Assertions = append(req.Assertions, b.Pairs...)
		case b.Name == "tests":
			req.Tests = b.Text
		case b.Name == "docs":
			req.Docs = b.Text
		}
	}
	if !foundMethod {
		return nil, &ModelError{Msg: "no http method block"}
	}

	return item, nil
}

func pairValue(pairs []Pair, name string) string {
	for p := range slices.Values(pairs) {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func decodeAuth(auth *Auth, mode string, pairs []Pair) {
	switch mode {
	case AuthModeBasic:
		auth.Basic = &BasicAuth{Username: pairValue(pairs, "username"), Password: pairValue(pairs, "password")}
	case AuthModeDigest:
		auth.Digest = &BasicAuth{Username: pairValue(pairs, "username"), Password: pairValue(pairs, "password")}
	case AuthModeBearer:
		auth.Bearer = &BearerAuth{Token: pairValue(pairs, "token")}
	case AuthModeAPIKey:
		auth.APIKey = &APIKeyAuth{
			Key:       pairValue(pairs, "key"),
			Value:     pairValue(pairs, "value"),
			Placement: pairValue(pairs, "placement"),
		}
	}
}

func decodeBody(body *Body, b Block) {
	switch b.Name {
	case "body:json":
		body.JSON = b.Text
	case "body:text":
		body.Text = b.Text
	case "body:xml":
		body.XML = b.Text
	case "body:sparql":
		body.Sparql = b.Text
	case "body:graphql":
		if body.GraphQL == nil {
			body.GraphQL = &GraphQLBody{}
		}
		body.GraphQL.Query = b.Text
	case "body:graphql:vars":
		if body.GraphQL == nil {
			body.GraphQL = &GraphQLBody{}
		}
		body.GraphQL.Variables = b.Text
	case "body:form-urlencoded":
		body.FormURLEncoded = append(body.FormURLEncoded, b.Pairs...)
	case "body:multipart-form":
		for p := range slices.Values(b.Pairs) {
			value, contentType := splitContentType(p.Value)
			row := MultipartRow{Name: p.Name, Value: value, Type: "text", ContentType: contentType, Enabled: p.Enabled}
			if inner, ok := unwrapFile(value); ok {
				row.Type = "file"
				row.Value = inner
			}
			body.MultipartForm = append(body.MultipartForm, row)
		}
	case "body:file":
		for p := range slices.Values(b.Pairs) {
			value, contentType := splitContentType(p.Value)
			path, _ := unwrapFile(value)
			body.File = append(body.File, FileRow{FilePath: path, ContentType: contentType, Selected: p.Enabled})
		}
	}
}

func unwrapFile(v string) (string, bool) {
	if strings.HasPrefix(v, "@file(") && strings.HasSuffix(v, ")") {
		return strings.TrimSuffix(strings.TrimPrefix(v, "@file("), ")"), true
	}
	return v, false
}

func splitContentType(v string) (value, contentType string) {
	idx := strings.LastIndex(v, " @contentType(")
	if idx < 0 || !strings.HasSuffix(v, ")") {
		return v, ""
	}
	return strings.TrimSpace(v[:idx]), strings.TrimSuffix(v[idx+len(" @contentType("):], ")")
}

func withContentType(v, contentType string) string {
	if contentType == "" {
		return v
	}
	return v + " @contentType(" + contentType + ")"
}

// Encode renders an Item as request text. Sections without data are left out.
func Encode(it *Item) string {
	var blocks []Block
	req := it.Request

	typ := "http"
	if it.Type == GraphQLRequest {
		typ = "graphql"
	}
	seq := it.Seq
	if seq == 0 {
		seq = 1
	}
	blocks = append(blocks, Block{Name: "meta", Kind: DictBlock, Pairs: []Pair{
		{Name: "name", Value: it.Name, Enabled: true},
		{Name: "type", Value: typ, Enabled: true},
		{Name: "seq", Value: strconv.Itoa(seq), Enabled: true},
	}})

	method := strings.ToLower(req.Method)
	if method == "" {
		method = "get"
	}
	blocks = append(blocks, Block{Name: method, Kind: DictBlock, Pairs: []Pair{
		{Name: "url", Value: req.URL, Enabled: true},
		{Name: "body", Value: orDefault(req.Body.Mode, BodyModeNone), Enabled: true},
		{Name: "auth", Value: orDefault(req.Auth.Mode, AuthModeNone), Enabled: true},
	}})

	var query, path []Pair
	for p := range slices.Values(req.Params) {
		pair := Pair{Name: p.Name, Value: p.Value, Enabled: p.Enabled}
		if p.Type == "path" {
			path = append(path, pair)
			continue
		}
		query = append(query, pair)
	}
	blocks = appendDict(blocks, "params:query", query)
	blocks = appendDict(blocks, "params:path", path)
	blocks = appendDict(blocks, "headers", req.Headers)

	if auth, ok := encodeAuth(req.Auth); ok {
		blocks = append(blocks, auth)
	}
	blocks = append(blocks, encodeBody(req.Body)...)

	blocks = appendDict(blocks, "vars:pre-request", req.Vars.Req)
	blocks = appendDict(blocks, "vars:post-response", req.Vars.Res)
	blocks = appendDict(blocks, "assert", req.Assertions)
	blocks = appendText(blocks, "script:pre-request", req.Script.Req)
	blocks = appendText(blocks, "script:post-response", req.Script.Res)
	blocks = appendText(blocks, "tests", req.Tests)
	blocks = appendText(blocks, "docs", req.Docs)

	return Format(blocks)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func appendDict(blocks []Block, name string, pairs []Pair) []Block {
	if len(pairs) == 0 {
		return blocks
	}
	return append(blocks, Block{Name: name, Kind: DictBlock, Pairs: pairs})
}

func appendText(blocks []Block, name, text string) []Block {
	if strings.TrimSpace(text) == "" {
		return blocks
	}
	return append(blocks, Block{Name: name, Kind: TextBlock, Text: text})
}

func encodeAuth(auth Auth) (Block, bool) {
	var pairs []Pair
	switch {
	case auth.Mode == AuthModeBasic && auth.Basic != nil:
		pairs = []Pair{
			{Name: "username", Value: auth.Basic.Username, Enabled: true},
			{Name: "password", Value: auth.Basic.Password, Enabled: true},
		}
	case auth.Mode == AuthModeDigest && auth.Digest != nil:
		pairs = []Pair{
			{Name: "username", Value: auth.Digest.Username, Enabled: true},
			{Name: "password", Value: auth.Digest.Password, Enabled: true},
		}
	case auth.Mode == AuthModeBearer && auth.Bearer != nil:
		pairs = []Pair{{Name: "token", Value: auth.Bearer.Token, Enabled: true}}
	case auth.Mode == AuthModeAPIKey && auth.APIKey != nil:
		pairs = []Pair{
			{Name: "key", Value: auth.APIKey.Key, Enabled: true},
			{Name: "value", Value: auth.APIKey.Value, Enabled: true},
			{Name: "placement", Value: auth.APIKey.Placement, Enabled: true},
		}
	default:
		return Block{}, false
	}
	return Block{Name: "auth:" + auth.Mode, Kind: DictBlock, Pairs: pairs}, true
}

func encodeBody(body Body) []Block {
	var blocks []Block
	blocks = appendText(blocks, bodyBlocks[BodyModeJSON], body.JSON)
	blocks = appendText(blocks, bodyBlocks[BodyModeText], body.Text)
	blocks = appendText(blocks, bodyBlocks[BodyModeXML], body.XML)
	blocks = appendText(blocks, bodyBlocks[BodyModeSparql], body.Sparql)
	if body.GraphQL != nil {
		blocks = appendText(blocks, "body:graphql", body.GraphQL.Query)
		blocks = appendText(blocks, "body:graphql:vars", body.GraphQL.Variables)
	}
	blocks = appendDict(blocks, bodyBlocks[BodyModeFormURLEncoded], body.FormURLEncoded)

	var multipart []Pair
	for row := range slices.Values(body.MultipartForm) {
		value := row.Value
		if row.Type == "file" {
			value = "@file(" + value + ")"
		}
		multipart = append(multipart, Pair{Name: row.Name, Value: withContentType(value, row.ContentType), Enabled: row.Enabled})
	}
	blocks = appendDict(blocks, bodyBlocks[BodyModeMultipartForm], multipart)

	var files []Pair
	for row := range slices.Values(body.File) {
		files = append(files, Pair{
			Name:    "file",
			Value:   withContentType("@file("+row.FilePath+")", row.ContentType),
			Enabled: row.Selected,
		})
	}
	blocks = appendDict(blocks, bodyBlocks[BodyModeFile], files)

	return blocks
}
