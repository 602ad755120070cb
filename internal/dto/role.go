package dto

// AssignRoleRequest represents the role assignment RPC body.
// TargetUserID is optional: absent means self-assignment.
type AssignRoleRequest struct {
	Role         string `json:"role" binding:"required"`
	TargetUserID string `json:"target_user_id"`
}

// AssignRoleResponse represents a successful role assignment
type AssignRoleResponse struct {
	Success bool   `json:"success"`
	Role    string `json:"role"`
}
