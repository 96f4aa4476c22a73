package server

import (
	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docindex/internal/common"
)

// writeError renders err as {"error": {"code", "message"}}. Wrapped causes
// never reach the client.
func writeError(c *gin.Context, err error) {
	code, msg := common.PublicError(err)
	c.JSON(common.HTTPStatus(err), gin.H{"error": gin.H{"code": code, "message": msg}})
}

func (s *Server) handleError(c *gin.Context, err error) {
	status := common.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("http.request.error",
			"req_id", common.RequestIDFromContext(c.Request.Context()),
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
	}
	writeError(c, err)
}

func badRequest(msg string) error {
	return common.InvalidInputError(msg)
}
