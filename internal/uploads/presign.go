package uploads

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/server/respond"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/telemetry"
)

// DefaultPresignPutTTL is how long a presigned PUT URL stays valid.
const DefaultPresignPutTTL = 15 * time.Minute

const maxPresignBody = 64 << 10

type presignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

type presignResponse struct {
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Key    string `json:"key"`
	PutURL string `json:"putUrl"`
	GetURL string `json:"getUrl"`
}

// presign issues a PUT URL for a direct client upload plus a GET URL for the
// same key. No bytes pass through this service.
func (h *Handler) presign(c *gin.Context) {
	if h.presigner == nil {
		respond.Error(c, http.StatusInternalServerError, "not_configured", msgNotConfigured)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPresignBody)
	raw, err := c.GetRawData()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}
	var req presignRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Invalid JSON body")
		return
	}

	req.Filename = strings.TrimSpace(req.Filename)
	req.ContentType = strings.TrimSpace(req.ContentType)
	if req.Filename == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "filename is required")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "application/octet-stream"
	}

	key := h.keys.Generate(req.Filename)
	ctx := c.Request.Context()

	putURL, err := h.presigner.PresignPut(ctx, key, req.ContentType, h.putTTL)
	if err != nil {
		h.presignFailed(c, key, req.ContentType, err)
		return
	}
	getURL, err := h.presigner.PresignGet(ctx, key, h.getTTL)
	if err != nil {
		h.presignFailed(c, key, req.ContentType, err)
		return
	}

	respond.OK(c, presignResponse{
		Bucket: h.location.Bucket,
		Region: h.location.Region,
		Key:    key,
		PutURL: putURL,
		GetURL: getURL,
	})
}

func (h *Handler) presignFailed(c *gin.Context, key, contentType string, err error) {
	telemetry.Error("presign.failed", map[string]any{
		"err":          err.Error(),
		"bucket":       h.location.Bucket,
		"key":          key,
		"content_type": contentType,
		"request_id":   c.GetString("requestId"),
	})
	respond.Error(c, http.StatusInternalServerError, "presign_failed", "Failed to presign URL")
}
