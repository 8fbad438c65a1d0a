package errors

import (
	"github.com/gin-gonic/gin"
)

// ErrorHandler converts application errors to HTTP responses with
// standardized logging.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Respond writes the error to the response and logs it. The response body
// carries the public code and message only; details stay in the logs. Masked
// authorization failures are rendered as a plain not-found body.
func (h *ErrorHandler) Respond(c *gin.Context, err error) {
	stdErr := AsStandard(err)
	status := HTTPStatusFor(stdErr)

	fields := map[string]interface{}{
		"code":    string(stdErr.Code),
		"status":  status,
		"details": stdErr.Details,
		"path":    c.FullPath(),
	}
	if status >= 500 {
		h.logger.Error("request failed", fields)
	} else {
		h.logger.Warn("request rejected", fields)
	}

	body := gin.H{"code": string(stdErr.Code), "message": stdErr.Message}
	if status == 404 && stdErr.Code == ErrCodeAuthorization {
		body = gin.H{"code": string(ErrCodeNotFound), "message": "order not found"}
	}
	c.AbortWithStatusJSON(status, body)
}
