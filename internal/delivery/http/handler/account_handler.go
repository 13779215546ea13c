package handler

import (
	"net/http"

	"device-fleet-manager/internal/middleware"
	"device-fleet-manager/internal/usecase/account"
	"device-fleet-manager/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	service *account.Service
}

func NewAccountHandler(service *account.Service) *AccountHandler {
	return &AccountHandler{service: service}
}

// RegisterAuthRoutes mounts the routes reachable without a token.
func (h *AccountHandler) RegisterAuthRoutes(router *gin.RouterGroup) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}
}

func (h *AccountHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.GET("/me", h.Me)
		users.PUT("/me", h.UpdateProfile)

		users.GET("", middleware.SuperuserOnly(), h.ListAll)
		users.POST("/managers", middleware.SuperuserOnly(), h.CreateManager)
		users.POST("/employees", middleware.ManagerAndSuperuser(), h.CreateEmployee)
		users.GET("/employees", middleware.ManagerAndSuperuser(), h.ListEmployees)

		users.GET("/:id", middleware.StaffAndSuperuser(), h.Profile)
		users.GET("/:id/history", middleware.SuperuserOnly(), h.History)
		users.POST("/:id/activate", middleware.StaffAndSuperuser(), h.Activate)
		users.POST("/:id/deactivate", middleware.StaffAndSuperuser(), h.Deactivate)
		users.POST("/:id/superuser", middleware.SuperuserOnly(), h.GrantSuperuser)
		users.DELETE("/:id/superuser", middleware.SuperuserOnly(), h.RemoveSuperuser)
		users.POST("/:id/agent", middleware.SuperuserOnly(), h.ChangeAgent)
	}
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req account.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Login successful", resp)
}

func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req account.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "If the email exists, a password reset link has been sent", nil)
}

func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req account.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.service.ConfirmPasswordReset(c.Request.Context(), &req); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Password reset successfully", nil)
}

func (h *AccountHandler) Me(c *gin.Context) {
	resp, err := h.service.Me(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile retrieved successfully", resp)
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req account.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.UpdateProfile(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Profile updated successfully", resp)
}

func (h *AccountHandler) CreateManager(c *gin.Context) {
	var req account.CreateManagerRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateManager(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Manager created successfully", resp)
}

func (h *AccountHandler) CreateEmployee(c *gin.Context) {
	var req account.CreateEmployeeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.CreateEmployee(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Employee created successfully", resp)
}

func (h *AccountHandler) ListEmployees(c *gin.Context) {
	resp, err := h.service.ListEmployees(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Employees retrieved successfully", resp)
}

func (h *AccountHandler) ListAll(c *gin.Context) {
	resp, err := h.service.ListAll(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Users retrieved successfully", resp)
}

func (h *AccountHandler) Profile(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.Profile(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User retrieved successfully", resp)
}

func (h *AccountHandler) History(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.History(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "History retrieved successfully", resp)
}

func (h *AccountHandler) Activate(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.Activate(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User activated successfully", resp)
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.Deactivate(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "User deactivated successfully", resp)
}

func (h *AccountHandler) GrantSuperuser(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.GrantSuperuser(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Superuser status granted", resp)
}

func (h *AccountHandler) RemoveSuperuser(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	resp, err := h.service.RemoveSuperuser(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Superuser status removed", resp)
}

func (h *AccountHandler) ChangeAgent(c *gin.Context) {
	id, ok := parseID(c, "id", "user")
	if !ok {
		return
	}

	var req account.ChangeAgentRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.service.ChangeAgent(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Agent changed successfully", resp)
}
