package admin

import (
	handlershared "github.com/unitshop/internal/http/handlers/shared"
	"github.com/unitshop/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SetAdminRolesRequest 覆盖管理员角色
type SetAdminRolesRequest struct {
	Roles []string `json:"roles"`
}

// ListRoles 角色及其策略
func (h *Handler) ListRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	items := make([]gin.H, 0, len(roles))
	for _, role := range roles {
		policies, err := h.AuthzService.RolePolicies(role)
		if err != nil {
			respondError(c, response.CodeInternal, "error.internal", err)
			return
		}
		items = append(items, gin.H{"role": role, "policies": policies})
	}
	response.Success(c, items)
}

// SetAdminRoles 设置管理员角色
func (h *Handler) SetAdminRoles(c *gin.Context) {
	operatorID, ok := getAdminID(c)
	if !ok {
		return
	}
	targetID, ok := handlershared.ParamUint(c, "id", "error.admin_id_invalid")
	if !ok {
		return
	}
	var req SetAdminRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.SetAdminRoles(targetID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.authz_failed", err)
		return
	}
	roles, err := h.AuthzService.AdminRoles(targetID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	handlershared.RequestLog(c).Infow("admin_roles_updated", "operator_id", operatorID, "admin_id", targetID, "roles", roles)
	response.Success(c, gin.H{"admin_id": targetID, "roles": roles})
}
