package mockbackend

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/dbtest-platform/services/dashboard-service/internal/model"
)

// Handler serves the backend endpoints from a Store
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a new backend handler
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

// GetHistoryCount handles GET /history_count
func (h *Handler) GetHistoryCount(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.HistoryCount())
}

// GetBugCount handles GET /bug_count
func (h *Handler) GetBugCount(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.BugCount())
}

// StartRun handles POST /run
func (h *Handler) StartRun(c *gin.Context) {
	var params model.RunParams
	if err := c.ShouldBindJSON(&params); err != nil {
		sendError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	h.store.Enqueue(params)
	h.logger.Info("Run queued", zap.String("db_type", params.DBType))

	c.JSON(http.StatusOK, gin.H{})
}

// ListBugs handles GET /bug_list
func (h *Handler) ListBugs(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Bugs())
}

// ListRuns handles GET /run_list
func (h *Handler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Runs())
}

// GetBugGraph handles GET /view/:bug_id
func (h *Handler) GetBugGraph(c *gin.Context) {
	graph, err := h.store.BugGraph(c.Param("bug_id"))
	if err != nil {
		h.sendStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// DownloadBug handles GET /download/:bug_id
func (h *Handler) DownloadBug(c *gin.Context) {
	files, err := h.store.BugFiles(c.Param("bug_id"))
	if err != nil {
		h.sendStoreError(c, err)
		return
	}
	h.sendZip(c, files)
}

// DownloadRun handles GET /download_run/:run_id
func (h *Handler) DownloadRun(c *gin.Context) {
	files, err := h.store.RunFiles(c.Param("run_id"))
	if err != nil {
		h.sendStoreError(c, err)
		return
	}
	h.sendZip(c, files)
}

// DownloadDot handles GET /download_dot/:bug_id
func (h *Handler) DownloadDot(c *gin.Context) {
	dot, err := h.store.BugDot(c.Param("bug_id"))
	if err != nil {
		h.sendStoreError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="conflict.dot"`)
	c.Data(http.StatusOK, "application/octet-stream", []byte(dot))
}

// GetCurrentLog handles GET /current_log
func (h *Handler) GetCurrentLog(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.CurrentLog())
}

// SetBugTag handles POST /bug/tag/
func (h *Handler) SetBugTag(c *gin.Context) {
	var request model.TagRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		sendError(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.store.SetTag(request.BugID, request.TagName, request.TagType); err != nil {
		h.sendStoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, nil)
}

// GetRunProfile handles GET /run_profile/:run_id
func (h *Handler) GetRunProfile(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.RunProfile(c.Param("run_id")))
}

// GetRuntimeInfo handles GET /runtime_info/:run_id
func (h *Handler) GetRuntimeInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.RuntimeInfo(c.Param("run_id")))
}

// GetCurrentRunID handles GET /current_run_id
func (h *Handler) GetCurrentRunID(c *gin.Context) {
	id, running := h.store.CurrentRunID()
	if !running {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, id)
}

// GetCurrentRuntimeInfo handles GET /current_runtime_info. It answers ""
// when nothing has been sampled yet.
func (h *Handler) GetCurrentRuntimeInfo(c *gin.Context) {
	info := h.store.CurrentRuntimeInfo()
	if info == nil {
		c.JSON(http.StatusOK, "")
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetCurrentProfile handles GET /current_profile. Profiles are written when
// a checker finishes, so a running run never has one.
func (h *Handler) GetCurrentProfile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{})
}

// UploadHistory handles POST /upload/
func (h *Handler) UploadHistory(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.UploadResult{Message: "Upload failed!", Details: err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.UploadResult{Message: "Upload failed!", Details: err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.UploadResult{Message: "Upload failed!", Details: err.Error()})
		return
	}

	h.store.SaveUpload(fileHeader.Filename, data)
	c.JSON(http.StatusOK, model.UploadResult{Message: "Upload succeeded!"})
}

// StopRun handles PUT /stop/
func (h *Handler) StopRun(c *gin.Context) {
	if h.store.Stop() {
		h.logger.Info("Run stopped")
	}
	c.JSON(http.StatusOK, nil)
}

func (h *Handler) sendZip(c *gin.Context, files map[string]string) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		w, err := zw.Create(name)
		if err == nil {
			_, err = io.WriteString(w, files[name])
		}
		if err != nil {
			h.logger.Error("Failed to build archive", zap.Error(err))
			sendError(c, http.StatusInternalServerError, "Failed to build archive")
			return
		}
	}
	if err := zw.Close(); err != nil {
		h.logger.Error("Failed to build archive", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Failed to build archive")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="download.zip"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func (h *Handler) sendStoreError(c *gin.Context, err error) {
	if errors.Is(err, ErrNotFound) {
		sendError(c, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error("Store failure", zap.Error(err))
	sendError(c, http.StatusInternalServerError, "Internal Server Error")
}

// sendError writes a FastAPI style error body
func sendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"detail": message})
}
