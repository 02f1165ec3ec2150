package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"

	"github.com/sirupsen/logrus"
)

var (
	pathParamRegex = regexp.MustCompile(`{([^}]+)}`)
)

// Err defines an error type that can be enriched with a http status code.
type Err struct {
	Message string
	Status  int
}

// Error implements the std error type.
func (e *Err) Error() string {
	return fmt.Sprintf("Error Code: %d Message: %s", e.Status, e.Message)
}

func NewErrf(status int, msg string, a ...any) *Err {
	return &Err{
		Message: fmt.Sprintf(msg, a...),
		Status:  status,
	}
}

// ErrorResponse is the body of every failed command.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Func defines a server Func that implements a command endpoint.
type Func[Req any, Resp any] func(ctx context.Context, req *Req) (*Resp, error)

type Mux interface {
	HandleFunc(pattern string, f func(w http.ResponseWriter, r *http.Request))
}

func RegisterFunc[Req any, Resp any](logger *logrus.Logger, mux Mux, method, endpoint string, f Func[Req, Resp]) {
	var pathParamKeys []string
	matches := pathParamRegex.FindAllStringSubmatch(endpoint, -1)
	for match := range slices.Values(matches) {
		pathParamKeys = append(pathParamKeys, match[1])
	}
	pattern := fmt.Sprintf("%s %s", method, endpoint)
	mux.HandleFunc(pattern, FuncAdapter(logger, f, pathParamKeys...))
}

// FuncAdapter accepts a server Func and returns a http.HandlerFunc that can be used for endpoint registration.
// Request fields are merged from the JSON body, then query params, then path values; later sources win. A Func
// either returns a response, written as JSON, or an error, written as an ErrorResponse with the status of an *Err
// (500 for any other error).
func FuncAdapter[Req any, Resp any](log *logrus.Logger, f Func[Req, Resp], pathParamKeys ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"pattern": r.Pattern,
			"query":   r.URL.Query(),
		})
		logger.Debug("Handling request in FuncAdapter")

		reqData := make(map[string]any)

		// populate the request body values first, if any.
		if r.Body != nil && r.ContentLength > 0 {
			err := json.NewDecoder(r.Body).Decode(&reqData)
			if err != nil {
				logger.WithError(err).Error("Failed to unmarshal request body in FuncAdapter")
				writeError(w, logger, http.StatusBadRequest, fmt.Sprintf("unmarshal request body: %q", err.Error()))
				return
			}
		}

		// then populate query param values, replacing request body values if there's any conflict.
		for qParam, val := range r.URL.Query() {
			switch {
			case len(val) == 1:
				reqData[qParam] = val[0]
			case len(val) > 1:
				reqData[qParam] = val
			}
		}

		// final step, populate url path values which can replace existing values populated
		// from query params and req body values
		for param := range slices.Values(pathParamKeys) {
			if val := r.PathValue(param); val != "" {
				reqData[param] = val
			}
		}

		reqBody, err := json.Marshal(reqData)
		if err != nil {
			logger.WithError(err).Error("Failed to marshal merged request data in FuncAdapter")
			writeError(w, logger, http.StatusInternalServerError, fmt.Sprintf("marshal merged request data: %q", err.Error()))
			return
		}

		var req Req
		err = json.Unmarshal(reqBody, &req)
		if err != nil {
			logger.WithError(err).Warn("Failed to unmarshal merged request body in FuncAdapter")
			writeError(w, logger, http.StatusBadRequest, fmt.Sprintf("unmarshal merged request body: %q", err.Error()))
			return
		}

		resp, err := f(r.Context(), &req)
		if err != nil {
			var stErr *Err
			if !errors.As(err, &stErr) {
				stErr = &Err{
					Message: err.Error(),
					Status:  http.StatusInternalServerError,
				}
			}
			writeError(w, logger, stErr.Status, stErr.Message)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = json.NewEncoder(w).Encode(resp)
		if err != nil {
			logger.WithError(err).Error("Failed to write response body in FuncAdapter")
		}
	}
}

func writeError(w http.ResponseWriter, logger *logrus.Entry, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(&ErrorResponse{Error: msg})
	if err != nil {
		logger.WithError(err).Error("Failed to write error body in FuncAdapter")
	}
}
