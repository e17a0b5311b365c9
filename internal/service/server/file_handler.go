package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

type directoryRequest struct {
	DirName string `json:"dirName" binding:"required"`
}

type fileRequest struct {
	DirName  string `json:"dirName" binding:"required"`
	FileName string `json:"fileName" binding:"required"`
}

type artifactRequest struct {
	DirName  string `json:"dirName" binding:"required"`
	FileName string `json:"fileName" binding:"required"`
	Content  string `json:"content" binding:"required"`
}

type imageRequest struct {
	DirName   string `json:"dirName" binding:"required"`
	ImageURL  string `json:"imageUrl" binding:"required"`
	ImageName string `json:"imageName" binding:"required"`
}

// WriteResult is the JSON body returned by every file operation
type WriteResult struct {
	Success     bool     `json:"success"`
	Message     string   `json:"message"`
	Path        string   `json:"path,omitempty"`
	Status      string   `json:"status,omitempty"`
	ErrorKind   string   `json:"errorKind,omitempty"`
	Pruned      []string `json:"pruned,omitempty"`
	Bytes       int64    `json:"bytes,omitempty"`
	ContentType string   `json:"contentType,omitempty"`
	Transport   string   `json:"transport,omitempty"`

	// Older clients read these instead of path
	FilePath  string `json:"filePath,omitempty"`
	ImagePath string `json:"imagePath,omitempty"`
}

// FileHandler serves the file operation routes
type FileHandler struct {
	ops    Operations
	logger *zap.Logger
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(ops Operations, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		ops:    ops,
		logger: logger,
	}
}

// HandleDeleteFile handles POST /delete-file
func (h *FileHandler) HandleDeleteFile(c *gin.Context) {
	var req fileRequest
	if !h.bind(c, domain.OpDeleteFile, &req) {
		return
	}

	result, err := h.ops.DeleteFile(c.Request.Context(), req.DirName, req.FileName)
	if err != nil {
		h.fail(c, err)
		return
	}

	msg := "file deleted"
	if result.Status == domain.StatusNotFound {
		msg = "file not found"
	}
	c.JSON(http.StatusOK, success(result, msg))
}

// HandleCreateDirectory handles POST /create-directory
func (h *FileHandler) HandleCreateDirectory(c *gin.Context) {
	var req directoryRequest
	if !h.bind(c, domain.OpCreateDirectory, &req) {
		return
	}

	result, err := h.ops.CreateDirectory(c.Request.Context(), req.DirName)
	if err != nil {
		h.fail(c, err)
		return
	}

	msg := "directory created"
	if result.Status == domain.StatusExists {
		msg = "directory already exists"
	}
	c.JSON(http.StatusOK, success(result, msg))
}

// HandleDeleteDirectory handles POST /delete-directory
func (h *FileHandler) HandleDeleteDirectory(c *gin.Context) {
	var req directoryRequest
	if !h.bind(c, domain.OpDeleteDirectory, &req) {
		return
	}

	result, err := h.ops.DeleteDirectory(c.Request.Context(), req.DirName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success(result, directoryMessage(result)))
}

// HandleDeleteDirectoryAndPrune handles POST /delete-directory-empty
func (h *FileHandler) HandleDeleteDirectoryAndPrune(c *gin.Context) {
	var req directoryRequest
	if !h.bind(c, domain.OpDeleteDirectoryPrune, &req) {
		return
	}

	result, err := h.ops.DeleteDirectoryAndPrune(c.Request.Context(), req.DirName)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, success(result, directoryMessage(result)))
}

// HandleWriteArtifact handles POST /generate-nfo and POST /generate-strm
func (h *FileHandler) HandleWriteArtifact(c *gin.Context) {
	var req artifactRequest
	if !h.bind(c, domain.OpWriteArtifact, &req) {
		return
	}

	result, err := h.ops.WriteArtifact(c.Request.Context(), req.DirName, req.FileName, req.Content)
	if err != nil {
		h.fail(c, err)
		return
	}

	body := success(result, "file saved")
	body.FilePath = result.Path
	c.JSON(http.StatusOK, body)
}

// HandleDownloadImage handles POST /download-image
func (h *FileHandler) HandleDownloadImage(c *gin.Context) {
	var req imageRequest
	if !h.bind(c, domain.OpFetchToFile, &req) {
		return
	}

	result, err := h.ops.FetchToFile(c.Request.Context(), domain.DownloadRequest{
		TargetDirectory:     req.DirName,
		SourceURL:           req.ImageURL,
		DestinationFileName: req.ImageName,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	body := success(result, "image downloaded")
	body.ImagePath = result.Path
	c.JSON(http.StatusOK, body)
}

// HandleJournal returns a handler for GET /journal?limit=N
func (h *FileHandler) HandleJournal(defaultLimit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		entries, err := h.ops.RecentOperations(c.Request.Context(), limit)
		if err != nil {
			h.logger.Error("failed to read journal", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read journal"})
			return
		}
		if entries == nil {
			entries = []*domain.JournalEntry{}
		}

		c.JSON(http.StatusOK, gin.H{
			"count":   len(entries),
			"entries": entries,
		})
	}
}

// bind decodes the JSON body. A missing required field is answered with
// the same validation error the service would produce.
func (h *FileHandler) bind(c *gin.Context, op string, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		h.fail(c, domain.MissingField(op, jsonFieldName(verrs[0].Field())))
		return false
	}

	h.fail(c, domain.NewValidationError(op, "", errors.New("invalid JSON body")))
	return false
}

// fail maps an operation error onto an HTTP status and body
func (h *FileHandler) fail(c *gin.Context, err error) {
	kind := domain.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNetwork:
		status = http.StatusBadGateway
	case "":
		kind = domain.KindWrite
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	c.JSON(status, WriteResult{
		Success:   false,
		Message:   err.Error(),
		ErrorKind: string(kind),
	})
}

func success(result *domain.OpResult, msg string) WriteResult {
	return WriteResult{
		Success:     true,
		Message:     msg,
		Path:        result.Path,
		Status:      string(result.Status),
		Pruned:      result.Pruned,
		Bytes:       result.Bytes,
		ContentType: result.ContentType,
		Transport:   result.Transport,
	}
}

func directoryMessage(result *domain.OpResult) string {
	if result.Status == domain.StatusNotFound {
		return "directory not found"
	}
	return "directory deleted"
}

// jsonFieldName maps a request struct field to its JSON key
func jsonFieldName(field string) string {
	if field == "ImageURL" {
		return "imageUrl"
	}
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
