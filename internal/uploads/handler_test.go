package uploads

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func serve(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func uploadHandler(t *testing.T, store *fakeStore, policy Policy) *Handler {
	t.Helper()
	return NewHandler(HandlerDeps{Pipeline: newTestPipeline(t, store, policy)})
}

func TestUploadEndpointSuccess(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(uploadHandler(t, store, NewPolicy(5<<20, []string{"text/plain"})))

	body, ct := multipartBody(t, fileField("hello.txt", "text/plain", []byte("hello world")))
	rec := serve(r, http.MethodPost, "/api/upload", body, map[string]string{"Content-Type": ct})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	assert.Regexp(t, keyPattern, resp["key"])
	assert.Contains(t, resp["url"], resp["key"])
	assert.Equal(t, "unknown", store.objects[resp["key"]].metadata[MetaUploadedBy])
}

func TestUploadEndpointClientHint(t *testing.T) {
	store := newFakeStore()
	r := newTestRouter(uploadHandler(t, store, NewPolicy(0, nil)))

	body, ct := multipartBody(t, fileField("hello.txt", "text/plain", []byte("hello")))
	rec := serve(r, http.MethodPost, "/api/upload", body, map[string]string{
		"Content-Type":    ct,
		"X-Upload-Client": "mobile-app/" + strings.Repeat("v", 100),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	hint := store.objects[decodeBody(t, rec)["key"]].metadata[MetaUploadedBy]
	assert.Len(t, hint, 64)
	assert.True(t, strings.HasPrefix(hint, "mobile-app/"))
}

func TestUploadEndpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		body    func(t *testing.T) (io.Reader, string)
		status  int
		message string
	}{
		{
			name:   "not multipart",
			policy: NewPolicy(0, nil),
			body: func(*testing.T) (io.Reader, string) {
				return strings.NewReader("hello"), "text/plain"
			},
			status:  http.StatusBadRequest,
			message: "Invalid content-type; expected multipart/form-data",
		},
		{
			name:   "no file",
			policy: NewPolicy(0, nil),
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, testPart{field: "note", data: []byte("x")})
			},
			status:  http.StatusBadRequest,
			message: "No file uploaded. Field name: file",
		},
		{
			name:   "unsupported type",
			policy: NewPolicy(0, []string{"image/*"}),
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, fileField("hello.txt", "text/plain", []byte("hello")))
			},
			status:  http.StatusUnsupportedMediaType,
			message: "Unsupported file type: text/plain",
		},
		{
			name:   "too large",
			policy: NewPolicy(1024, nil),
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, fileField("big.txt", "text/plain", bytes.Repeat([]byte("x"), 64<<10)))
			},
			status:  http.StatusRequestEntityTooLarge,
			message: "File too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			r := newTestRouter(uploadHandler(t, store, tt.policy))
			body, ct := tt.body(t)

			rec := serve(r, http.MethodPost, "/api/upload", body, map[string]string{"Content-Type": ct})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.message}, decodeBody(t, rec))
			assert.Zero(t, store.objectCount())
		})
	}
}

func TestUploadEndpointStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.err = errStoreDown
	r := newTestRouter(uploadHandler(t, store, NewPolicy(0, nil)))

	body, ct := multipartBody(t, fileField("hello.txt", "text/plain", []byte("hello")))
	rec := serve(r, http.MethodPost, "/api/upload", body, map[string]string{"Content-Type": ct})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Upload failed", decodeBody(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), errStoreDown.Error())
}

func TestUploadEndpointNotConfigured(t *testing.T) {
	r := newTestRouter(NewHandler(HandlerDeps{}))

	body, ct := multipartBody(t, fileField("hello.txt", "text/plain", []byte("hello")))
	rec := serve(r, http.MethodPost, "/api/upload", body, map[string]string{"Content-Type": ct})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server not configured: missing S3_BUCKET or AWS_REGION", decodeBody(t, rec)["error"])

	rec = serve(r, http.MethodPost, "/api/presign", strings.NewReader(`{"filename":"a.txt"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPostOnlyRoutes(t *testing.T) {
	r := newTestRouter(NewHandler(HandlerDeps{}))

	for _, path := range []string{"/api/upload", "/api/presign"} {
		for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
			rec := serve(r, method, path, nil, nil)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "%s %s", method, path)
			assert.Equal(t, "POST", rec.Header().Get("Allow"))
			assert.Equal(t, "Method not allowed", decodeBody(t, rec)["error"])
		}
	}
}

func presignHandler(p object.Presigner) *Handler {
	return NewHandler(HandlerDeps{
		Presigner: p,
		Location:  object.Location{Bucket: "files", Region: "eu-west-1"},
		Keys:      NewKeyGenerator("uploads"),
	})
}

func TestPresignEndpoint(t *testing.T) {
	r := newTestRouter(presignHandler(fakeSigner{}))

	rec := serve(r, http.MethodPost, "/api/presign", strings.NewReader(`{"filename":"my report.pdf","contentType":"application/pdf"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody(t, rec)
	assert.Equal(t, "files", resp["bucket"])
	assert.Equal(t, "eu-west-1", resp["region"])
	assert.Regexp(t, keyPattern, resp["key"])
	assert.True(t, strings.HasSuffix(resp["key"], "-my_report.pdf"))
	assert.Contains(t, resp["putUrl"], "ct=application/pdf")
	assert.Contains(t, resp["putUrl"], "ttl=900")
	assert.Contains(t, resp["getUrl"], "ttl=3600")
}

func TestPresignEndpointDefaultsContentType(t *testing.T) {
	r := newTestRouter(presignHandler(fakeSigner{}))

	rec := serve(r, http.MethodPost, "/api/presign", strings.NewReader(`{"filename":"a.bin"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["putUrl"], "ct=application/octet-stream")
}

func TestPresignEndpointValidation(t *testing.T) {
	r := newTestRouter(presignHandler(fakeSigner{}))

	tests := []struct {
		body    string
		message string
	}{
		{`{not json`, "Invalid JSON body"},
		{`[1,2]`, "Invalid JSON body"},
		{``, "filename is required"},
		{`{}`, "filename is required"},
		{`{"filename":"   "}`, "filename is required"},
	}
	for _, tt := range tests {
		rec := serve(r, http.MethodPost, "/api/presign", strings.NewReader(tt.body), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tt.body)
		assert.Equal(t, tt.message, decodeBody(t, rec)["error"], tt.body)
	}
}

func TestPresignEndpointSigningFailure(t *testing.T) {
	r := newTestRouter(presignHandler(fakeSigner{err: errors.New("expired token")}))

	rec := serve(r, http.MethodPost, "/api/presign", strings.NewReader(`{"filename":"a.txt"}`), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to presign URL", decodeBody(t, rec)["error"])
}
