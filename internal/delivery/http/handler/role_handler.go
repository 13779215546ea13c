package handler

import (
	"net/http"

	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/role"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type RoleHandler struct {
	service *role.Service
}

func NewRoleHandler(service *role.Service) *RoleHandler {
	return &RoleHandler{service: service}
}

func (h *RoleHandler) RegisterRoutes(router *gin.RouterGroup) {
	roles := router.Group("/roles")
	{
		roles.GET("", h.List)
		roles.POST("", middleware.SuperuserOnly(), h.Create)
		roles.PUT("/:id", middleware.SuperuserOnly(), h.Update)
		roles.DELETE("/:id", middleware.SuperuserOnly(), h.Delete)
	}
}

func (h *RoleHandler) List(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Roles retrieved successfully", resp)
}

func (h *RoleHandler) Create(c *gin.Context) {
	var req role.RoleRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Role created successfully", resp)
}

func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "role")
	if !ok {
		return
	}

	var req role.RoleRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Update(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Role updated successfully", resp)
}

func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "role")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Role deleted successfully", nil)
}
