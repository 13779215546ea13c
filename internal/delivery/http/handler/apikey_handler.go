package handler

import (
	"net/http"

	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/apikey"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type APIKeyHandler struct {
	service *apikey.Service
}

func NewAPIKeyHandler(service *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

func (h *APIKeyHandler) RegisterRoutes(router *gin.RouterGroup) {
	keys := router.Group("/api-keys")
	{
		keys.POST("", middleware.ManagerAndSuperuser(), h.Create)
		keys.GET("", middleware.ManagerAndSuperuser(), h.ListMine)
		keys.GET("/all", middleware.SuperuserOnly(), h.ListAll)
		keys.DELETE("/:id", middleware.ManagerAndSuperuser(), h.Deactivate)
	}
}

// Create returns the plaintext key. It is never shown again.
func (h *APIKeyHandler) Create(c *gin.Context) {
	var req apikey.CreateAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "API key created successfully", resp)
}

func (h *APIKeyHandler) ListMine(c *gin.Context) {
	resp, err := h.service.ListMine(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "API keys retrieved successfully", resp)
}

func (h *APIKeyHandler) ListAll(c *gin.Context) {
	resp, err := h.service.ListAll(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "API keys retrieved successfully", resp)
}

func (h *APIKeyHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id", "API key")
	if !ok {
		return
	}

	resp, err := h.service.Deactivate(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "API key deactivated successfully", resp)
}
