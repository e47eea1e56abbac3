package paste

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mx-space/paste-uploader/internal/models"
	"github.com/mx-space/paste-uploader/internal/modules/editor"
	"github.com/mx-space/paste-uploader/internal/pkg/response"
)

type Handler struct{ session *Session }

func NewHandler(session *Session) *Handler { return &Handler{session: session} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/paste", h.paste)
	rg.GET("/pending", h.pending)
}

// paste accepts multipart form data: path, optional line and ch, and one or
// more files.
func (h *Handler) paste(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	relPath := c.PostForm("path")
	if strings.TrimSpace(relPath) == "" {
		response.BadRequest(c, "path is required")
		return
	}
	cursor, err := parseCursor(c.PostForm("line"), c.PostForm("ch"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	headers := form.File["files"]
	files := make([]*models.Attachment, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		file, err := models.ReadAttachment(fh.Filename, fh.Header.Get("Content-Type"), time.Now(), f)
		f.Close()
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		files = append(files, file)
	}

	result, err := h.session.Paste(relPath, cursor, files)
	switch {
	case errors.Is(err, ErrInactive):
		response.ServiceUnavailable(c, err.Error())
	case errors.Is(err, editor.ErrOutsideVault):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.OK(c, result)
	}
}

func (h *Handler) pending(c *gin.Context) {
	relPath := c.Query("path")
	if strings.TrimSpace(relPath) == "" {
		response.BadRequest(c, "path is required")
		return
	}
	placeholders, err := h.session.Pending(relPath)
	if err != nil {
		if errors.Is(err, editor.ErrOutsideVault) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"path": relPath, "pending": placeholders})
}

func parseCursor(line, ch string) (*editor.Position, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	l, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || l < 0 {
		return nil, fmt.Errorf("invalid line %q", line)
	}
	pos := &editor.Position{Line: l}
	if strings.TrimSpace(ch) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(ch))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid ch %q", ch)
		}
		pos.Ch = n
	}
	return pos, nil
}
