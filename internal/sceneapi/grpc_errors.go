package sceneapi

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/viewer"
	"github.com/signalsfoundry/globeview/kb"
	"github.com/signalsfoundry/globeview/model"
)

// ErrInvalidRequest is returned for requests missing required fields.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps scene errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrEntityNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, model.ErrParse),
		errors.Is(err, dynamic.ErrInvalidValue),
		errors.Is(err, czml.ErrUnsupportedDocument):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, viewer.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus returns the HTTP status code matching err.
func HTTPStatus(err error) int {
	switch status.Code(ToStatusError(err)) {
	case codes.OK:
		return 200
	case codes.NotFound:
		return 404
	case codes.InvalidArgument:
		return 400
	case codes.Unavailable:
		return 503
	default:
		return 500
	}
}
