package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// estimateHeight runs the pipeline synchronously on the uploaded video.
func (h *Handler) estimateHeight(c *gin.Context) {
	const op = "estimate height"

	file, header, err := c.Request.FormFile("video")
	if err != nil {
		h.respondError(c, wrapFormErr(op, "video file is required", err))
		return
	}
	defer file.Close()

	est, err := h.estimator.Execute(c.Request.Context(), file, header.Filename)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, est)
}
