package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/TxnLab/splstake/internal/lib/staking"
)

type httpError struct {
	cause  error
	status int
}

func (e *httpError) Error() string {
	return e.cause.Error()
}

func (e *httpError) Unwrap() error {
	return e.cause
}

// BadRequest marks cause as the client's fault.
func BadRequest(cause error) error {
	return &httpError{cause: cause, status: http.StatusBadRequest}
}

// HandlerFunc like http.HandlerFunc, but it returns an error.  httpErrors are responded w/ their status,
// staking errors w/ a status matching their kind.
type HandlerFunc func(http.ResponseWriter, *http.Request) error

type errorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func WrapHandlerFunc(f HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := f(w, r)
		if err == nil {
			return
		}
		var (
			status int
			he     *httpError
		)
		if errors.As(err, &he) {
			status = he.status
		} else {
			status = statusForKind(err)
		}
		w.Header().Set("Content-Type", JSONContentType)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Error:   err.Error(),
			Kind:    staking.Classify(err).String(),
			Message: staking.UserMessage(err),
		})
	}
}

func statusForKind(err error) int {
	if errors.Is(err, staking.ErrOperationInFlight) {
		return http.StatusConflict
	}
	switch staking.Classify(err) {
	case staking.KindValidation:
		return http.StatusBadRequest
	case staking.KindAccountNotFound:
		return http.StatusNotFound
	case staking.KindProgramRejection:
		return http.StatusUnprocessableEntity
	case staking.KindIndeterminateOutcome:
		return http.StatusGatewayTimeout
	case staking.KindTransientNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

const (
	JSONContentType = "application/json; charset=utf-8"
)

// ParseJSON parse a JSON object using strict mode.
func ParseJSON(r io.Reader, v any) error {
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// WriteJSON response an object in JSON encoding.
func WriteJSON(w http.ResponseWriter, obj any) error {
	w.Header().Set("Content-Type", JSONContentType)
	return json.NewEncoder(w).Encode(obj)
}
