package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler gin.HandlerFunc, header map[string]string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/probe", handler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/probe", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestSuccessEnvelope(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		Success(c, http.StatusOK, gin.H{"ok": true})
	}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.Error)
	assert.NotEmpty(t, env.Metadata.RequestID)
	assert.NotEmpty(t, env.Metadata.Timestamp)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["ok"])
}

func TestFailEnvelopeCarriesCodeAndMessage(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrExamNotFound)
	}, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, ErrExamNotFound, env.Error.Code)
	assert.Equal(t, GetMessage(ErrExamNotFound), env.Error.Message)
	assert.Empty(t, env.Error.Fields)
}

func TestFailWithFieldsIncludesFieldDetail(t *testing.T) {
	_, env := serve(t, func(c *gin.Context) {
		FailWithFields(c, http.StatusBadRequest, ErrValidation, map[string]string{
			"username": "Username is required.",
		})
	}, nil)

	require.NotNil(t, env.Error)
	assert.Equal(t, ErrValidation, env.Error.Code)
	assert.Equal(t, "Username is required.", env.Error.Fields["username"])
}

func TestRequestIDHonoursClientHeader(t *testing.T) {
	w, env := serve(t, func(c *gin.Context) {
		Success(c, http.StatusOK, nil)
	}, map[string]string{"X-Request-ID": "trace-123"})

	assert.Equal(t, "trace-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "trace-123", env.Metadata.RequestID)
}

func TestMetadataFallsBackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/bare", func(c *gin.Context) {
		Success(c, http.StatusOK, nil)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/bare", nil))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Metadata.RequestID)
}

func TestGetMessageUnknownCode(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred.", GetMessage(ErrCode("NO_SUCH_CODE")))
}
