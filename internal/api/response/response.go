// internal/api/response/response.go
package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/tradelab/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data wrapped in the envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	Raw(w, status, SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	})
}

// ErrEncode reports a body that could not be rendered as JSON.
var ErrEncode = errors.New("response could not be encoded")

// Raw writes v as the whole body, without the envelope. The body is encoded
// before the status is sent; a value that cannot be encoded becomes a 500
// error response.
func Raw(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		json.NewEncoder(&buf).Encode(ErrorResponse{Error: ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: ErrEncode.Error(),
			Cause:   err.Error(),
		}})
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	Raw(w, status, ErrorResponse{Error: Detail(err)})
}

// Fail writes an error response with the status derived from err.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// Detail extracts the code, message and cause of err.
func Detail(err error) ErrorDetail {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	switch {
	case errors.As(err, &coreErr):
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	case errors.Is(err, context.DeadlineExceeded):
		detail.Code = "TIMEOUT"
		detail.Message = "request timed out"
	}
	return detail
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}

	switch coreErr.Code {
	case core.ErrSchemaInvalid.Code, core.ErrConfigInvalid.Code,
		core.ErrConfigMissing.Code, core.ErrUnknownStrategy.Code:
		return http.StatusBadRequest
	case core.ErrNoData.Code, core.ErrSymbolNotFound.Code,
		core.ErrJobNotFound.Code, core.ErrRunNotFound.Code:
		return http.StatusNotFound
	case core.ErrCollectorFailed.Code, core.ErrLLMFailed.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
