package app

import (
	"io"

	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/pkg/bark"
	"github.com/mx-space/paste-uploader/internal/pkg/notice"
	"go.uber.org/zap"
)

// buildNotifier fans notices out to the board, the log (and out), and Bark
// when a device key is configured.
func buildNotifier(cfg *config.AppConfig, logger *zap.Logger, board *notice.Board, out io.Writer) notice.Notifier {
	notifiers := notice.Multi{board, notice.NewLogNotifier(logger, out)}
	if cfg.Bark.Key != "" {
		barkCfg := cfg.Bark
		notifiers = append(notifiers, bark.New(func() (string, string, string) {
			return barkCfg.Key, barkCfg.ServerURL, barkCfg.Title
		}, logger))
	}
	return notifiers
}
