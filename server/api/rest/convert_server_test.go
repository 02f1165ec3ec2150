package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedisam/brunosync/server/api/rest"
	"github.com/hedisam/brunosync/server/api/rest/mocks"
	"github.com/hedisam/brunosync/server/internal/convert"
)

//go:generate moq -out mocks/converter.go -pkg mocks -skip-ensure . Converter

func TestConvertServer(t *testing.T) {
	tests := map[string]struct {
		body           map[string]any
		reply          convert.Reply
		convertErr     error
		expectedStatus int
		expectedCalls  int
		expectedReply  *convert.Reply
	}{
		"converted": {
			body:           map[string]any{"kind": "request", "op": "decode", "data": "get {\n  url: x\n}\n", "filename": "ping.bru"},
			reply:          convert.Reply{Value: map[string]any{"name": "ping"}},
			expectedStatus: http.StatusOK,
			expectedCalls:  1,
			expectedReply:  &convert.Reply{Value: map[string]any{"name": "ping"}},
		},
		"failed conversion is still answered": {
			body:           map[string]any{"kind": "request", "op": "decode", "data": "get {"},
			reply:          convert.Reply{Error: "line 1: unterminated block", ErrorType: convert.ErrorSyntax},
			expectedStatus: http.StatusOK,
			expectedCalls:  1,
			expectedReply:  &convert.Reply{Error: "line 1: unterminated block", ErrorType: convert.ErrorSyntax},
		},
		"unknown kind": {
			body:           map[string]any{"kind": "folder", "op": "decode", "data": "x"},
			expectedStatus: http.StatusBadRequest,
		},
		"missing data": {
			body:           map[string]any{"kind": "request", "op": "encode"},
			expectedStatus: http.StatusBadRequest,
		},
		"worker closed": {
			body:           map[string]any{"kind": "request", "op": "decode", "data": "x"},
			convertErr:     convert.ErrClosed,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCalls:  1,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			converter := &mocks.ConverterMock{
				ConvertFunc: func(ctx context.Context, req convert.Request) (convert.Reply, error) {
					raw, ok := req.Data.(json.RawMessage)
					require.True(t, ok)
					var text string
					require.NoError(t, json.Unmarshal(raw, &text))
					assert.Equal(t, tc.body["data"], text)
					return tc.reply, tc.convertErr
				},
			}
			mux := http.NewServeMux()
			rest.NewConvertServer(newTestLogger(), converter).Register(mux)

			rr := serve(t, mux, http.MethodPost, "/v1/convert", tc.body)
			assert.Equal(t, tc.expectedStatus, rr.Code)
			assert.Len(t, converter.ConvertCalls(), tc.expectedCalls)
			if tc.expectedReply != nil {
				assert.Equal(t, tc.expectedReply, decode[convert.Reply](t, rr))
			}
		})
	}
}
