package paste

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/mx-space/paste-uploader/internal/modules/editor"
	"github.com/mx-space/paste-uploader/internal/modules/processing/markdown"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// SetupNotice is shown when the plugin is activated without an endpoint or token.
const SetupNotice = "Image Uploader: please check the image hosting settings."

const defaultNoticeDuration = 5 * time.Second

type Uploader interface {
	Upload(ctx context.Context, file *models.Attachment, settings config.Settings, activePath string) (string, error)
}

type Encoder interface {
	Encode(ctx context.Context, file *models.Attachment, maxWidth int) (*models.Attachment, error)
}

// Notifier shows a message to the user for roughly d.
type Notifier interface {
	Notify(message string, d time.Duration)
}

type SettingsSource interface {
	Snapshot() config.Settings
}

type Options struct {
	Logger         *zap.Logger
	NoticeDuration time.Duration
}

// Interceptor turns pasted images into uploads and swaps their placeholders
// for hosted image links.
type Interceptor struct {
	settings SettingsSource
	uploader Uploader
	encoder  Encoder
	notifier Notifier
	logger   *zap.Logger
	notice   time.Duration

	mu          sync.Mutex
	inflight    map[*conc.WaitGroup]struct{}
	notified    bool
	replaceMu   sync.Mutex
	unsubscribe func()
}

func New(settings SettingsSource, uploader Uploader, encoder Encoder, notifier Notifier, opts Options) *Interceptor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notice := opts.NoticeDuration
	if notice <= 0 {
		notice = defaultNoticeDuration
	}
	return &Interceptor{
		settings: settings,
		uploader: uploader,
		encoder:  encoder,
		notifier: notifier,
		logger:   logger,
		notice:   notice,
		inflight: make(map[*conc.WaitGroup]struct{}),
	}
}

// Setup subscribes to paste events. Without an endpoint and token it stays
// unsubscribed and notifies the user, only on the first such call.
func (i *Interceptor) Setup(ws *editor.Workspace) bool {
	if !i.settings.Snapshot().Ready() {
		i.mu.Lock()
		first := !i.notified
		i.notified = true
		i.mu.Unlock()
		if first {
			i.notifier.Notify(SetupNotice, i.notice)
			i.logger.Warn("image hosting is not configured, paste upload disabled")
		}
		return false
	}
	i.unsubscribe = ws.OnEditorPaste(i.HandlePaste)
	return true
}

// Close unsubscribes from paste events. In-flight uploads keep running.
func (i *Interceptor) Close() {
	if i.unsubscribe != nil {
		i.unsubscribe()
		i.unsubscribe = nil
	}
}

// Wait blocks until every upload started so far has settled.
func (i *Interceptor) Wait() {
	i.mu.Lock()
	groups := make([]*conc.WaitGroup, 0, len(i.inflight))
	for wg := range i.inflight {
		groups = append(groups, wg)
	}
	i.mu.Unlock()

	for _, wg := range groups {
		wg.Wait()
	}
}

// track registers a fully started group and drops it once it settles.
func (i *Interceptor) track(wg *conc.WaitGroup) {
	i.mu.Lock()
	i.inflight[wg] = struct{}{}
	i.mu.Unlock()

	go func() {
		if r := wg.WaitAndRecover(); r != nil {
			i.logger.Error("upload panicked", zap.String("panic", r.String()))
		}
		i.mu.Lock()
		delete(i.inflight, wg)
		i.mu.Unlock()
	}()
}

type pendingUpload struct {
	id          string
	file        *models.Attachment
	token       string
	placeholder string
	settings    config.Settings
	activePath  string
}

// HandlePaste handles one paste event. Events without images are left to the
// host. Otherwise the default paste is suppressed, non-image files are dropped
// and each image gets a placeholder and its own upload. The uploads are
// tracked on evt so callers can wait for exactly this paste.
func (i *Interceptor) HandlePaste(evt *editor.Event, ed editor.Editor) {
	images := make([]*models.Attachment, 0, len(evt.Files))
	for _, f := range evt.Files {
		if f.IsImage() {
			images = append(images, f)
		}
	}
	if len(images) == 0 {
		return
	}
	evt.PreventDefault()

	wg := &conc.WaitGroup{}
	for _, file := range images {
		up := i.begin(file, ed)
		wg.Go(func() {
			i.run(up, ed)
		})
	}
	i.track(wg)
	evt.Track(wg.Wait)
}

func (i *Interceptor) begin(file *models.Attachment, ed editor.Editor) *pendingUpload {
	token := markdown.NewToken()
	up := &pendingUpload{
		id:          uuid.NewString(),
		file:        file,
		token:       token,
		placeholder: markdown.PlaceholderText(token),
		settings:    i.settings.Snapshot(),
		activePath:  ed.ActivePath(),
	}
	ed.ReplaceSelection(up.placeholder)
	i.logger.Debug("placeholder inserted",
		zap.String("upload_id", up.id),
		zap.String("token", token),
		zap.String("file", file.Name),
	)
	return up
}

func (i *Interceptor) run(up *pendingUpload, ed editor.Editor) {
	// Paste handlers carry no context; nothing cancels an upload once started.
	ctx := context.Background()
	log := i.logger.With(zap.String("upload_id", up.id), zap.String("file", up.file.Name))

	url, err := i.upload(ctx, up)
	if err != nil {
		log.Error("image upload failed", zap.Error(err))
		i.notifier.Notify(err.Error(), i.notice)
		return
	}

	if !i.replaceFirst(ed, up.placeholder, markdown.ImageLink(url)) {
		log.Warn("placeholder not found, link dropped", zap.String("token", up.token))
		return
	}
	log.Info("placeholder replaced", zap.String("url", url))
}

func (i *Interceptor) upload(ctx context.Context, up *pendingUpload) (string, error) {
	file := up.file
	if up.settings.EnableResize {
		encoded, err := i.encoder.Encode(ctx, file, up.settings.MaxWidth)
		if err != nil {
			return "", err
		}
		file = encoded
	}
	return i.uploader.Upload(ctx, file, up.settings, up.activePath)
}

// replaceFirst swaps the first occurrence of the trimmed placeholder, scanning
// line by line from the top.
func (i *Interceptor) replaceFirst(ed editor.Editor, placeholder, replacement string) bool {
	target := strings.TrimSpace(placeholder)

	i.replaceMu.Lock()
	defer i.replaceMu.Unlock()

	for n := 0; n < ed.LineCount(); n++ {
		idx := strings.Index(ed.Line(n), target)
		if idx < 0 {
			continue
		}
		ed.ReplaceRange(replacement,
			editor.Position{Line: n, Ch: idx},
			editor.Position{Line: n, Ch: idx + len(target)},
		)
		return true
	}
	return false
}
