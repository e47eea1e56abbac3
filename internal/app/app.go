package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/middleware"
	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/mx-space/paste-uploader/internal/modules/editor"
	"github.com/mx-space/paste-uploader/internal/modules/paste"
	"github.com/mx-space/paste-uploader/internal/modules/processing/imaging"
	"github.com/mx-space/paste-uploader/internal/modules/storage/imagebed"
	appconfigs "github.com/mx-space/paste-uploader/internal/modules/system/core/configs"
	"github.com/mx-space/paste-uploader/internal/pkg/notice"
	"go.uber.org/zap"
)

// Encoding names accepted by Upload.
const (
	EncodingMultipart = "multipart"
	EncodingQuery     = "query"
)

// Options tweak how New wires the application.
type Options struct {
	// NoticeOut receives user-visible notices. Nil keeps them in the log only.
	NoticeOut io.Writer
	// SettingsStore overrides the YAML settings file.
	SettingsStore appconfigs.Store
}

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	settings *appconfigs.Service
	client   *imagebed.Client
	encoder  *imaging.Encoder
	notices  *notice.Board
	session  *paste.Session
	router   *gin.Engine
}

// New wires config → settings → upload client → interceptor → routes.
func New(logger *zap.Logger, cfg *config.AppConfig, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := opts.SettingsStore
	if store == nil {
		store = appconfigs.NewFileStore(cfg.SettingsPath())
	}
	settings := appconfigs.NewService(store, logger)
	if _, err := settings.Get(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}

	board := notice.NewBoard()
	client := imagebed.NewClient(logger, cfg.HTTPTimeout)
	encoder := imaging.NewEncoder(logger)
	interceptor := paste.New(settings, client, encoder, buildNotifier(cfg, logger, board, opts.NoticeOut), paste.Options{
		Logger:         logger,
		NoticeDuration: cfg.NoticeDuration,
	})

	a := &App{
		cfg:      cfg,
		logger:   logger,
		settings: settings,
		client:   client,
		encoder:  encoder,
		notices:  board,
		session:  paste.NewSession(cfg.VaultDir(), editor.NewWorkspace(), interceptor),
	}
	a.router = a.newRouter()
	a.registerRoutes()
	return a, nil
}

func (a *App) newRouter() *gin.Engine {
	if a.cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(a.logger))

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	if len(a.cfg.AllowedOrigins) > 0 {
		patterns := a.cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if pattern == origin || matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = isLocalOrigin
	}
	router.Use(cors.New(corsConfig))
	return router
}

// Addr returns the listen address.
func (a *App) Addr() string { return a.cfg.Addr() }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

func (a *App) Settings() *appconfigs.Service { return a.settings }

func (a *App) Session() *paste.Session { return a.session }

func (a *App) Notices() *notice.Board { return a.notices }

// Activate subscribes paste handling, notifying when settings are incomplete.
func (a *App) Activate() bool { return a.session.Activate() }

// Upload sends a single file without touching any document. activePath only
// drives album selection.
func (a *App) Upload(ctx context.Context, file *models.Attachment, encoding, activePath string) (string, error) {
	settings := a.settings.Snapshot()
	if settings.EnableResize {
		encoded, err := a.encoder.Encode(ctx, file, settings.MaxWidth)
		if err != nil {
			return "", err
		}
		file = encoded
	}

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingMultipart:
		return a.client.Upload(ctx, file, settings, activePath)
	case EncodingQuery:
		return a.client.UploadQuery(ctx, file, settings, activePath)
	default:
		return "", fmt.Errorf("unknown encoding %q, expected %s or %s", encoding, EncodingMultipart, EncodingQuery)
	}
}

// Shutdown stops paste handling and waits for in-flight uploads.
func (a *App) Shutdown() {
	a.session.Close()
}
