package handler

import (
	"net/http"
	"strconv"

	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/device"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	service *device.Service
	stream  LogStream
}

func NewDeviceHandler(service *device.Service, stream LogStream) *DeviceHandler {
	return &DeviceHandler{service: service, stream: stream}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.POST("", middleware.ManagerAndSuperuser(), h.CreateDevice)
		devices.GET("", middleware.SuperuserOnly(), h.ListDevices)
		devices.GET("/owned", middleware.ManagerAndSuperuser(), h.ListOwnedDevices)
		devices.GET("/assigned/:userId", h.ListAssignedDevices)

		devices.GET("/:id", h.GetDevice)
		devices.PUT("/:id", h.UpdateDevice)
		devices.DELETE("/:id", h.DeleteDevice)
		devices.POST("/:id/activate", middleware.StaffAndSuperuser(), h.ActivateDevice)
		devices.POST("/:id/deactivate", middleware.StaffAndSuperuser(), h.DeactivateDevice)
		devices.POST("/:id/users", middleware.StaffAndSuperuser(), h.AssignUser)
		devices.DELETE("/:id/users/:userId", middleware.StaffAndSuperuser(), h.UnassignUser)
		devices.POST("/:id/allocate", middleware.SuperuserOnly(), h.AllocateToAgent)
		devices.GET("/:id/logs", h.GetLogs)
		devices.GET("/:id/logs/stream", h.StreamLogs)
	}
}

// RegisterDeviceRoutes mounts the routes devices call with an API key.
func (h *DeviceHandler) RegisterDeviceRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices/mac")
	{
		devices.GET("/:mac/metadata", h.GetConfig)
		devices.PUT("/:mac/device_users/:userId", h.UpdateDeviceUser)
	}
}

func (h *DeviceHandler) CreateDevice(c *gin.Context) {
	var req device.CreateDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateDevice(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device created successfully", resp)
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	resp, err := h.service.ListDevices(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", resp)
}

func (h *DeviceHandler) ListOwnedDevices(c *gin.Context) {
	resp, err := h.service.ListOwnedDevices(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", resp)
}

func (h *DeviceHandler) ListAssignedDevices(c *gin.Context) {
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	resp, err := h.service.ListAssignedDevices(c.Request.Context(), middleware.GetCaller(c), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", resp)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	resp, err := h.service.GetDevice(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", resp)
}

func (h *DeviceHandler) UpdateDevice(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	var req device.UpdateDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateDevice(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device updated successfully", resp)
}

func (h *DeviceHandler) DeleteDevice(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	if err := h.service.DeleteDevice(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device deleted successfully", nil)
}

func (h *DeviceHandler) ActivateDevice(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	resp, err := h.service.ActivateDevice(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device activated successfully", resp)
}

func (h *DeviceHandler) DeactivateDevice(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	resp, err := h.service.DeactivateDevice(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device deactivated successfully", resp)
}

func (h *DeviceHandler) AssignUser(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	var req device.AssignRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.AssignUser(c.Request.Context(), middleware.GetCaller(c), id, req.UserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User assigned successfully", resp)
}

func (h *DeviceHandler) UnassignUser(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	resp, err := h.service.UnassignUser(c.Request.Context(), middleware.GetCaller(c), id, userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User unassigned successfully", resp)
}

func (h *DeviceHandler) AllocateToAgent(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}

	var req device.AllocateRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.AllocateToAgent(c.Request.Context(), middleware.GetCaller(c), id, req.AgentUserID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device allocated successfully", resp)
}

func (h *DeviceHandler) GetLogs(c *gin.Context) {
	id, ok := parseID(c, "id", "device")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	resp, err := h.service.GetLogs(c.Request.Context(), middleware.GetCaller(c), id, limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device logs retrieved successfully", resp)
}

func (h *DeviceHandler) GetConfig(c *gin.Context) {
	resp, err := h.service.GetConfig(c.Request.Context(), c.Param("mac"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device metadata retrieved successfully", resp)
}

func (h *DeviceHandler) UpdateDeviceUser(c *gin.Context) {
	userID, ok := parseID(c, "userId", "user")
	if !ok {
		return
	}

	var req device.UpdateDeviceUserRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateDeviceUser(c.Request.Context(), c.Param("mac"), userID, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device user updated successfully", resp)
}
