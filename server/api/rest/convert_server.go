package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/hedisam/brunosync/server/internal/convert"
)

type Converter interface {
	Convert(ctx context.Context, req convert.Request) (convert.Reply, error)
}

// ConvertServer exposes the conversion worker. A failed conversion is still a successful command: the reply carries
// the error.
type ConvertServer struct {
	logger    *logrus.Logger
	converter Converter
}

func NewConvertServer(logger *logrus.Logger, converter Converter) *ConvertServer {
	return &ConvertServer{
		logger:    logger,
		converter: converter,
	}
}

func (s *ConvertServer) Register(mux Mux) {
	RegisterFunc(s.logger, mux, http.MethodPost, "/v1/convert", s.Convert)
}

func (s *ConvertServer) Convert(ctx context.Context, req *ConvertRequest) (*convert.Reply, error) {
	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"kind":     req.Kind,
		"op":       req.Op,
		"filename": req.Filename,
	})

	creq := convert.Request{
		Kind:    req.Kind,
		Op:      req.Op,
		Options: convert.Options{Filename: req.Filename},
	}
	if len(req.Data) > 0 {
		creq.Data = req.Data
	}
	if err := creq.Validate(); err != nil {
		logger.WithError(err).Warn("Invalid conversion request")
		return nil, NewErrf(http.StatusBadRequest, "invalid conversion request: %s", err)
	}

	reply, err := s.converter.Convert(ctx, creq)
	if err != nil {
		if errors.Is(err, convert.ErrClosed) {
			return nil, NewErrf(http.StatusServiceUnavailable, "convert: %s", err)
		}
		logger.WithError(err).Error("Failed to convert")
		return nil, NewErrf(http.StatusInternalServerError, "convert: %s", err)
	}
	if reply.Failed() {
		logger.WithField("error_type", reply.ErrorType).Debug("Conversion failed")
	}

	return &reply, nil
}

type ConvertRequest struct {
	Kind     convert.Kind    `json:"kind"`
	Op       convert.Op      `json:"op"`
	Data     json.RawMessage `json:"data"`
	Filename string          `json:"filename"`
}
