package bru

const (
	HTTPRequest    = "http-request"
	GraphQLRequest = "graphql-request"

	// ErrorItemName names the placeholder returned when a request file cannot be decoded.
	ErrorItemName = "Error Parsing Request"
)

const (
	AuthModeNone    = "none"
	AuthModeInherit = "inherit"
	AuthModeBasic   = "basic"
	AuthModeBearer  = "bearer"
	AuthModeDigest  = "digest"
	AuthModeAPIKey  = "apikey"

	BodyModeNone           = "none"
	BodyModeJSON           = "json"
	BodyModeText           = "text"
	BodyModeXML            = "xml"
	BodyModeSparql         = "sparql"
	BodyModeGraphQL        = "graphql"
	BodyModeFormURLEncoded = "formUrlEncoded"
	BodyModeMultipartForm  = "multipartForm"
	BodyModeFile           = "file"
)

// Item is the in-memory model of one request file.
type Item struct {
	UID     string  `json:"uid,omitempty"`
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Seq     int     `json:"seq"`
	Request Request `json:"request"`

	// PersistedPath is empty for transient items that have never been saved.
	PersistedPath string `json:"persistedPath,omitempty"`
}

// Failed reports whether the item is the placeholder produced by a failed decode.
func (it *Item) Failed() bool {
	return it != nil && it.Name == ErrorItemName
}

// Transient reports whether the item has never been written to disk.
func (it *Item) Transient() bool {
	return it.PersistedPath == ""
}

type Request struct {
	Method     string  `json:"method"`
	URL        string  `json:"url"`
	Params     []Param `json:"params"`
	Headers    []Pair  `json:"headers"`
	Auth       Auth    `json:"auth"`
	Body       Body    `json:"body"`
	Script     Script  `json:"script"`
	Vars       Vars    `json:"vars"`
	Assertions []Pair  `json:"assertions"`
	Tests      string  `json:"tests"`
	Docs       string  `json:"docs"`
}

type Param struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Type    string `json:"type"` // query or path
	Enabled bool   `json:"enabled"`
}

type Auth struct {
	Mode   string      `json:"mode"`
	Basic  *BasicAuth  `json:"basic,omitempty"`
	Digest *BasicAuth  `json:"digest,omitempty"`
	Bearer *BearerAuth `json:"bearer,omitempty"`
	APIKey *APIKeyAuth `json:"apikey,omitempty"`
}

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type BearerAuth struct {
	Token string `json:"token"`
}

type APIKeyAuth struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Placement string `json:"placement"`
}

type Body struct {
	Mode           string         `json:"mode"`
	JSON           string         `json:"json,omitempty"`
	Text           string         `json:"text,omitempty"`
	XML            string         `json:"xml,omitempty"`
	Sparql         string         `json:"sparql,omitempty"`
	GraphQL        *GraphQLBody   `json:"graphql,omitempty"`
	FormURLEncoded []Pair         `json:"formUrlEncoded,omitempty"`
	MultipartForm  []MultipartRow `json:"multipartForm,omitempty"`
	File           []FileRow      `json:"file,omitempty"`
}

type GraphQLBody struct {
	Query     string `json:"query"`
	Variables string `json:"variables"`
}

type MultipartRow struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Type        string `json:"type"` // text or file
	ContentType string `json:"contentType,omitempty"`
	Enabled     bool   `json:"enabled"`
}

type FileRow struct {
	FilePath    string `json:"filePath"`
	ContentType string `json:"contentType"`
	Selected    bool   `json:"selected"`
}

type Script struct {
	Req string `json:"req"`
	Res string `json:"res"`
}

type Vars struct {
	Req []Pair `json:"req"`
	Res []Pair `json:"res"`
}

// ErrorItem returns the placeholder used in place of an unparseable request.
func ErrorItem() *Item {
	return &Item{
		Type: HTTPRequest,
		Name: ErrorItemName,
		Seq:  1,
		Request: Request{
			Method:     "GET",
			Params:     []Param{},
			Headers:    []Pair{},
			Auth:       Auth{Mode: AuthModeNone},
			Body:       Body{Mode: BodyModeNone},
			Vars:       Vars{Req: []Pair{}, Res: []Pair{}},
			Assertions: []Pair{},
		},
	}
}
