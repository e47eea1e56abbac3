package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/modules/paste"
	appconfigs "github.com/mx-space/paste-uploader/internal/modules/system/core/configs"
	"github.com/mx-space/paste-uploader/internal/modules/system/core/health"
	"github.com/mx-space/paste-uploader/internal/pkg/response"
)

func (a *App) registerRoutes() {
	rg := a.router.Group("")

	health.RegisterRoutes(rg, a.settings, a.cfg.VaultDir(), a.cfg.LogDir())
	appconfigs.NewHandler(a.settings).RegisterRoutes(rg)
	paste.NewHandler(a.session).RegisterRoutes(rg)

	rg.GET("/notices", func(c *gin.Context) {
		response.OK(c, gin.H{"data": a.notices.Active()})
	})

	a.router.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, http.StatusText(http.StatusNotFound))
	})
}
