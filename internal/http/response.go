package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chainview/internal/core"
	"chainview/internal/log"
	"chainview/internal/rpc"
	"chainview/internal/services"
	"chainview/internal/votevalue"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, retryable bool) {
	writeJSON(w, status, errorResponse{Error: msg, Retryable: retryable})
}

// writeFailure maps a service error to a status code and logs it at a level
// matching its cause.
func (s *Server) writeFailure(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logger := log.FromContext(ctx)
	var pe *paramError

	switch {
	case errors.As(err, &pe),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, rpc.ErrInvalidLimit),
		errors.Is(err, votevalue.ErrInvalidWeight):
		writeError(w, http.StatusBadRequest, err.Error(), false)

	case errors.Is(err, rpc.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account not found", false)

	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "Request timed out",
			log.NewFields().WithOperation(op).WithErrorType(log.ErrorTypeTimeout).ToSlice()...)
		writeError(w, http.StatusGatewayTimeout, "timed out", true)

	case errors.Is(err, context.Canceled):
		logger.DebugContext(ctx, "Request cancelled", log.NewFields().WithOperation(op).ToSlice()...)
		writeError(w, http.StatusServiceUnavailable, "request cancelled", true)

	case errors.Is(err, services.ErrSuperseded):
		logger.InfoContext(ctx, "Request superseded",
			log.NewFields().WithOperation(op).WithErrorType(log.ErrorTypeSuperseded).ToSlice()...)
		writeError(w, http.StatusConflict, "superseded by a newer request", true)

	case errors.Is(err, votevalue.ErrIncompleteInputs):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), false)

	case errors.Is(err, services.ErrFetchFailed), rpc.IsFetchError(err):
		logger.WarnContext(ctx, "Chain fetch failed",
			log.NewFields().WithOperation(op).WithErrorType(fetchErrorType(err)).WithError(err).ToSlice()...)
		writeError(w, http.StatusBadGateway, "failed to load", true)

	default:
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithErrorType(log.ErrorTypeInternal))
		writeError(w, http.StatusInternalServerError, "internal error", false)
	}
}

func fetchErrorType(err error) string {
	var pe *rpc.RemoteProtocolError
	if errors.As(err, &pe) {
		return log.ErrorTypeProtocol
	}
	return log.ErrorTypeNetwork
}
