package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/dto"
	"github.com/fitloop/backend-auth/internal/middleware"
	"github.com/fitloop/backend-auth/internal/service"
	"github.com/fitloop/backend-auth/pkg/response"
)

// RoleHandler handles role assignment HTTP requests
type RoleHandler struct {
	roleService service.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService service.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// AssignRole handles the role assignment RPC. The caller identity comes
// from the validated Bearer token, never from the request body.
// POST /api/v1/roles/assign
func (h *RoleHandler) AssignRole(c *gin.Context) {
	callerID := middleware.UserID(c)
	if callerID == "" {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	role, err := h.roleService.AssignRole(c.Request.Context(), callerID, domain.Role(req.Role), req.TargetUserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, "INVALID_ROLE", "Role must be one of admin, coach, client", "")
		case errors.Is(err, domain.ErrAlreadyAssigned):
			response.Error(c, http.StatusBadRequest, "ALREADY_ASSIGNED", "User already has a role assigned", "")
		case errors.Is(err, domain.ErrForbidden):
			response.Forbidden(c, "Only admins can assign roles to other users")
		default:
			response.InternalError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, dto.AssignRoleResponse{
		Success: true,
		Role:    string(role),
	})
}
