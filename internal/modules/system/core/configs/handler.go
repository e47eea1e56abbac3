package configs

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/pkg/response"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/settings")
	g.GET("", h.get)
	g.PATCH("", h.patch)
}

// get returns the settings with the token masked unless ?reveal=true.
func (h *Handler) get(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, present(c, cfg))
}

// patch applies a partial update, e.g. {"max_width": 1024, "enable_resize": true}.
func (h *Handler) patch(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	updated, err := h.svc.Patch(body)
	if err != nil {
		if IsValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, present(c, updated))
}

func present(c *gin.Context, cfg config.Settings) config.Settings {
	if reveal, _ := strconv.ParseBool(c.Query("reveal")); !reveal {
		cfg.Token = MaskToken(cfg.Token)
	}
	return cfg
}
