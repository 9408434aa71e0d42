package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Envelope is the JSON body every endpoint returns. Exactly one of Data or
// Error is populated; Metadata is always present so clients can correlate
// a response with server-side logs.
type Envelope struct {
	Data     any        `json:"data"`
	Error    *ErrorBody `json:"error,omitempty"`
	Metadata Metadata   `json:"metadata"`
}

// ErrorBody carries a machine-readable code plus an optional per-field
// breakdown for validation failures.
type ErrorBody struct {
	Code    ErrCode           `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Metadata ties the response back to a request for tracing.
type Metadata struct {
	RequestID string `json:"request_id"`
	Timestamp string `json:"timestamp"`
}

// Success writes data under the standard envelope.
func Success(c *gin.Context, status int, data any) {
	c.JSON(status, Envelope{Data: data, Metadata: metadataFrom(c)})
}

// Fail writes an error envelope for the given code.
func Fail(c *gin.Context, status int, code ErrCode) {
	c.JSON(status, Envelope{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: metadataFrom(c),
	})
}

// FailWithFields writes an error envelope with field-level validation detail.
func FailWithFields(c *gin.Context, status int, code ErrCode, fields map[string]string) {
	c.JSON(status, Envelope{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code), Fields: fields},
		Metadata: metadataFrom(c),
	})
}

// AbortFail writes an error envelope and stops the handler chain. Middleware
// must use this instead of Fail so downstream handlers never run.
func AbortFail(c *gin.Context, status int, code ErrCode) {
	c.AbortWithStatusJSON(status, Envelope{
		Error:    &ErrorBody{Code: code, Message: GetMessage(code)},
		Metadata: metadataFrom(c),
	})
}

func metadataFrom(c *gin.Context) Metadata {
	id := c.GetString(ContextKeyRequestID)
	if id == "" {
		// Request ID middleware was not applied on this route.
		id = uuid.New().String()
	}
	return Metadata{
		RequestID: id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
