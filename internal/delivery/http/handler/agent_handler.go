package handler

import (
	"net/http"

	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/agent"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AgentHandler struct {
	service *agent.Service
}

func NewAgentHandler(service *agent.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

func (h *AgentHandler) RegisterRoutes(router *gin.RouterGroup) {
	agents := router.Group("/agents")
	{
		agents.POST("", middleware.SuperuserOnly(), h.CreateAgent)
		agents.GET("", middleware.SuperuserOnly(), h.ListAgents)
		agents.GET("/:id", middleware.StaffAndSuperuser(), h.AgentProfile)
	}
}

func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var req agent.CreateAgentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateAgent(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Agent created successfully", resp)
}

func (h *AgentHandler) ListAgents(c *gin.Context) {
	resp, err := h.service.ListAgents(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Agents retrieved successfully", resp)
}

func (h *AgentHandler) AgentProfile(c *gin.Context) {
	id, ok := parseID(c, "id", "agent")
	if !ok {
		return
	}

	resp, err := h.service.AgentProfile(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Agent profile retrieved successfully", resp)
}
