package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mrpbom/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func errorResponse(c *gin.Context, statusCode int, message string, err error) {
	logger.Log.Error().Err(err).Int("status", statusCode).Msg(message)
	body := gin.H{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(statusCode, body)
}

func attachment(c *gin.Context, filename, contentType string) {
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
