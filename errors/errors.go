package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Caller-facing taxonomy. Call sites wrap these with fmt.Errorf("%w: ...")
// so transports can classify with errors.Is.
var (
	ErrValidation         = fmt.Errorf("validation error")
	ErrNotFound           = fmt.Errorf("not found")
	ErrAuth               = fmt.Errorf("unauthenticated")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrConflict           = fmt.Errorf("conflict")
	ErrTransientStorage   = fmt.Errorf("transient storage error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
)

// Runtime errors, never returned to a publisher.
var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrSlowConsumer   = fmt.Errorf("subscriber buffer overflow")
	ErrUnsubscribed   = fmt.Errorf("subscription closed")
	ErrHubClosed      = fmt.Errorf("hub closed")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrInvalidPayload = fmt.Errorf("invalid telemetry payload")
	ErrInvalidCursor  = fmt.Errorf("%w: invalid cursor", ErrValidation)
	ErrMissingToken   = fmt.Errorf("%w: authorization token is missing", ErrAuth)
)

// Is and As are re-exported so packages importing this one under the name
// "errors" keep access to the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }

// MapToGRPCError converts the taxonomy into a gRPC status. Unknown errors are
// reported as Internal without leaking their text.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isTaxonomy(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrAuth):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrTransientStorage):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrSlowConsumer):
		return status.Error(codes.ResourceExhausted, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// HTTPStatus is the HTTP counterpart of MapToGRPCError.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrTransientStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isTaxonomy(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrAuth, ErrForbidden,
		ErrConflict, ErrTransientStorage, ErrServiceUnavailable, ErrSlowConsumer} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
