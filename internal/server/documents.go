package server

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
	"github.com/joseph-ayodele/docindex/internal/pipeline"
	"github.com/joseph-ayodele/docindex/internal/search"
	"github.com/joseph-ayodele/docindex/internal/storage"
)

// multipart framing allowance on top of the file size limit
const multipartOverhead = 1 << 20

func tooLarge(max int64) error {
	return common.NewAppError(common.CodeTooLarge,
		fmt.Sprintf("file exceeds the maximum size of %d bytes", max), common.ErrTooLarge)
}

// handleUpload accepts a multipart "file" field and runs it through the pipeline.
func (s *Server) handleUpload(c *gin.Context) {
	max := s.deps.Pipeline.MaxUploadBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.handleError(c, tooLarge(max))
			return
		}
		s.handleError(c, badRequest("multipart field \"file\" is required"))
		return
	}
	// filename problems win over size, as in the pipeline
	if err := s.deps.Pipeline.Validate(fh.Filename, 1); err != nil {
		s.handleError(c, err)
		return
	}
	if fh.Size > max {
		s.handleError(c, tooLarge(max))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.handleError(c, common.InternalError("failed to read upload", err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		s.handleError(c, common.InternalError("failed to read upload", err))
		return
	}

	res, err := s.deps.Pipeline.Ingest(c.Request.Context(), pipeline.Upload{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Source:      constants.SourceAPI,
	})
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.Header("X-Processing-Status", string(res.Status()))
	c.JSON(http.StatusOK, res.Metadata)
}

func (s *Server) handleSearch(c *gin.Context) {
	limit, err := intQuery(c, "limit", search.DefaultLimit, 1, search.MaxLimit)
	if err != nil {
		s.handleError(c, err)
		return
	}
	offset, err := intQuery(c, "offset", 0, 0, math.MaxInt32)
	if err != nil {
		s.handleError(c, err)
		return
	}
	q := search.Query{
		Q:      strings.TrimSpace(c.Query("query")),
		Limit:  limit,
		Offset: offset,
		Filter: strings.TrimSpace(c.Query("filter")),
		Sort:   splitList(c.Query("sort")),
	}

	res, err := s.deps.Search.Search(c.Request.Context(), q)
	if err != nil {
		s.audit(c, currentUserID(c), constants.EventSearchError, map[string]any{
			"query": q.Q,
			"error": err.Error(),
		}, constants.SeverityError)
		if errors.Is(err, common.ErrInvalidInput) {
			s.handleError(c, err)
			return
		}
		s.handleError(c, common.NewAppError(common.CodeInternal, "search failed", err))
		return
	}
	s.audit(c, currentUserID(c), constants.EventDocumentSearch, map[string]any{
		"query":         q.Q,
		"limit":         q.Limit,
		"offset":        q.Offset,
		"results_count": len(res.Hits),
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, res)
}

func (s *Server) downloadFailed(c *gin.Context, details map[string]any, err error) {
	sev := constants.SeverityError
	if errors.Is(err, common.ErrNotFound) {
		sev = constants.SeverityWarning
	}
	details["error"] = err.Error()
	s.audit(c, currentUserID(c), constants.EventDownloadError, details, sev)
	s.handleError(c, err)
}

func (s *Server) handleDownload(c *gin.Context) {
	id := c.Param("id")
	meta, err := s.deps.Documents.Get(id)
	if err != nil {
		s.downloadFailed(c, map[string]any{"document_id": id}, err)
		return
	}
	data, obj, err := s.deps.Store.Get(c.Request.Context(), meta.StoragePath)
	if err != nil {
		s.downloadFailed(c, map[string]any{"document_id": id, "storage_path": meta.StoragePath}, err)
		return
	}
	contentType := meta.MediaType
	if contentType == "" {
		contentType = obj.ContentType
	}
	s.audit(c, currentUserID(c), constants.EventDocumentDownloaded, map[string]any{
		"document_id":  id,
		"filename":     meta.Filename,
		"storage_path": meta.StoragePath,
		"file_size":    len(data),
	}, constants.SeverityInfo)
	attachment(c, meta.Filename, contentType, data)
}

func validObjectPath(p string) bool {
	return p != "" && !strings.Contains(p, "..") && !strings.HasPrefix(p, "/") && !strings.Contains(p, "\\")
}

func (s *Server) handleDownloadByPath(c *gin.Context) {
	p := strings.TrimSpace(c.Query("path"))
	if p == "" {
		s.handleError(c, badRequest("path is required"))
		return
	}
	if !validObjectPath(p) {
		s.handleError(c, badRequest("invalid file path"))
		return
	}
	data, obj, err := s.deps.Store.Get(c.Request.Context(), p)
	if err != nil {
		s.downloadFailed(c, map[string]any{"storage_path": p}, err)
		return
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = constants.GuessMediaType(path.Ext(p))
	}
	s.audit(c, currentUserID(c), constants.EventDocumentDownloadedByPath, map[string]any{
		"storage_path": p,
		"file_size":    len(data),
	}, constants.SeverityInfo)
	attachment(c, path.Base(p), contentType, data)
}

func (s *Server) handleList(c *gin.Context) {
	docs, err := s.deps.Documents.List()
	if err != nil {
		s.handleError(c, common.InternalError("failed to list documents", err))
		return
	}
	s.audit(c, currentUserID(c), constants.EventDocumentsListed, map[string]any{
		"documents_count": len(docs),
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (s *Server) handleStorage(c *gin.Context) {
	prefix := strings.TrimSpace(c.DefaultQuery("prefix", storage.DefaultPrefix))
	if strings.Contains(prefix, "..") || strings.HasPrefix(prefix, "/") {
		s.handleError(c, badRequest("invalid prefix"))
		return
	}
	files, err := s.deps.Store.List(c.Request.Context(), prefix)
	if err != nil {
		s.handleError(c, common.NewAppError(common.CodeStorage, "failed to list storage", err))
		return
	}
	s.audit(c, currentUserID(c), constants.EventStorageExplored, map[string]any{
		"prefix":      prefix,
		"files_count": len(files),
	}, constants.SeverityInfo)
	c.JSON(http.StatusOK, gin.H{"files": files, "prefix": prefix})
}

type documentStats struct {
	TotalDocuments int              `json:"total_documents"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	TotalSizeMB    float64          `json:"total_size_mb"`
	FileTypes      map[string]int64 `json:"file_types"`
	AverageSizeMB  float64          `json:"average_size_mb"`
	LastUpdated    time.Time        `json:"last_updated"`
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }

func summarize(docs []entity.DocumentMetadata, now time.Time) documentStats {
	st := documentStats{FileTypes: map[string]int64{}, LastUpdated: now}
	for _, d := range docs {
		st.TotalDocuments++
		st.TotalSizeBytes += d.FileSizeBytes
		ext := d.FileExtension
		if ext == "" {
			ext = "unknown"
		}
		st.FileTypes[ext]++
	}
	const mb = 1024 * 1024
	st.TotalSizeMB = round2(float64(st.TotalSizeBytes) / mb)
	if st.TotalDocuments > 0 {
		st.AverageSizeMB = round2(float64(st.TotalSizeBytes) / float64(st.TotalDocuments) / mb)
	}
	return st
}

func (s *Server) handleDocumentStats(c *gin.Context) {
	docs, err := s.deps.Documents.List()
	if err != nil {
		s.handleError(c, common.InternalError("failed to compute document statistics", err))
		return
	}
	c.JSON(http.StatusOK, summarize(docs, s.now().UTC()))
}
