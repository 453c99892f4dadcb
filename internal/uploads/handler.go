package uploads

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/server/respond"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/storage/object"
)

const clientHintHeader = "X-Upload-Client"

// HandlerDeps configure the upload HTTP handlers. A nil Pipeline or
// Presigner makes the matching endpoint answer 500 not configured.
type HandlerDeps struct {
	Pipeline  *Pipeline
	Presigner object.Presigner
	Location  object.Location
	Keys      *KeyGenerator
	PutTTL    time.Duration
	GetTTL    time.Duration
}

// Handler serves the upload and presign endpoints.
type Handler struct {
	pipeline  *Pipeline
	presigner object.Presigner
	location  object.Location
	keys      *KeyGenerator
	putTTL    time.Duration
	getTTL    time.Duration
}

// NewHandler builds the upload handlers.
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		pipeline:  deps.Pipeline,
		presigner: deps.Presigner,
		location:  deps.Location,
		keys:      deps.Keys,
		putTTL:    deps.PutTTL,
		getTTL:    deps.GetTTL,
	}
	if h.keys == nil {
		h.keys = NewKeyGenerator(DefaultKeyPrefix)
	}
	if h.putTTL <= 0 {
		h.putTTL = DefaultPresignPutTTL
	}
	if h.getTTL <= 0 {
		h.getTTL = DefaultSignedURLTTL
	}
	return h
}

// RegisterRoutes mounts the endpoints on rg. Both only accept POST.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	postOnly(rg, "/upload", h.upload)
	postOnly(rg, "/presign", h.presign)
}

func postOnly(rg *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	rg.POST(path, handler)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rg.Handle(method, path, methodNotAllowed)
	}
}

func methodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	respond.Error(c, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}

type uploadResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

func (h *Handler) upload(c *gin.Context) {
	if h.pipeline == nil {
		respond.Error(c, http.StatusInternalServerError, "not_configured", msgNotConfigured)
		return
	}

	hint := strings.TrimSpace(c.GetHeader(clientHintHeader))
	if hint == "" {
		hint = defaultClientHint
	}
	c.Set("uploadClient", hint)

	if h.pipeline.timeout > 0 {
		// Not every writer supports deadlines (Lambda proxies do not).
		_ = http.NewResponseController(c.Writer).SetReadDeadline(time.Now().Add(h.pipeline.timeout))
	}

	out, err := h.pipeline.Run(c.Request.Context(), Request{
		Body:          c.Request.Body,
		ContentType:   c.GetHeader("Content-Type"),
		ContentLength: c.Request.ContentLength,
		Method:        c.Request.Method,
		ClientHint:    hint,
		RequestID:     c.GetString("requestId"),
	})
	c.Set("statusTransition", out.Transition)
	if out.Key != "" {
		c.Set("objectKey", out.Key)
	}

	if err != nil {
		if out.State == StateAborted || out.State == StateFailed {
			// The rest of the body was never read.
			c.Header("Connection", "close")
		}
		status, code, message := errorResponse(err)
		respond.Error(c, status, code, message)
		return
	}

	respond.OK(c, uploadResponse{URL: out.URL, Key: out.Key})
}
