package health

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/config"
	"github.com/mx-space/paste-uploader/internal/pkg/nativelog"
	"github.com/mx-space/paste-uploader/internal/pkg/response"
)

type SettingsSource interface {
	Snapshot() config.Settings
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Index    int    `json:"index"`
	Created  int64  `json:"created"`
}

func RegisterRoutes(rg *gin.RouterGroup, settings SettingsSource, vaultDir, logDir string) {
	rg.GET("/health", func(c *gin.Context) {
		configured := settings.Snapshot().Ready()
		info, err := os.Stat(vaultDir)
		vaultOK := err == nil && info.IsDir()

		status := "ok"
		if !configured {
			status = "unconfigured"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"configured": configured,
			"vault":      vaultOK,
		})
	})

	logGroup := rg.Group("/health/log")
	{
		logGroup.GET("/list", func(c *gin.Context) {
			items, err := listLogs(nativelog.ResolveDir(logDir))
			if err != nil {
				response.InternalError(c, err)
				return
			}
			response.OK(c, gin.H{"data": items})
		})

		logGroup.GET("", func(c *gin.Context) {
			filename := strings.TrimSpace(c.Query("filename"))
			if filename == "" {
				filename = nativelog.TodayFilename(time.Now())
			}
			if filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".log") {
				response.BadRequest(c, "invalid log filename")
				return
			}
			path := filepath.Join(nativelog.ResolveDir(logDir), filename)
			if _, err := os.Stat(path); err != nil {
				response.NotFoundMsg(c, "log file not found")
				return
			}
			c.File(path)
		})
	}
}

func listLogs(dir string) ([]logItem, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []logItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]logItem, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		items = append(items, logItem{
			Size:     formatByteSize(info.Size()),
			Filename: entry.Name(),
			Created:  info.ModTime().UnixMilli(),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Created > items[j].Created
	})
	for i := range items {
		items[i].Index = i
	}
	return items, nil
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
