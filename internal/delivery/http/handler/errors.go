package handler

import (
	"net/http"

	"device-fleet-manager/internal/middleware"
	appErrors "device-fleet-manager/pkg/errors"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func respondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	if appErrors.CodeOf(err) == "" {
		middleware.RequestLogger(c).Error("Internal server error",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		utils.ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	utils.ErrorResponse(c, appErrors.HTTPStatus(err), appErrors.MessageOf(err))
}

// parseID reads a uuid path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}
