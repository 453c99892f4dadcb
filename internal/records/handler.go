package records

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pradeep0711/FIle-Uploader/internal/shared/server/respond"
	"github.com/pradeep0711/FIle-Uploader/internal/shared/telemetry"
)

// Handler serves the upload ledger.
type Handler struct {
	repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the ledger endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/uploads", h.list)
}

type listResponse struct {
	Items  []Record `json:"items"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

func (h *Handler) list(c *gin.Context) {
	limit, err := queryInt(c, "limit", DefaultListLimit)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a number")
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be a number")
		return
	}
	limit, offset = clampPage(limit, offset)

	items, err := h.repo.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		telemetry.Error("records.list_failed", map[string]any{
			"err":        err.Error(),
			"request_id": c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to list uploads")
		return
	}
	respond.OK(c, listResponse{Items: items, Limit: limit, Offset: offset})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
