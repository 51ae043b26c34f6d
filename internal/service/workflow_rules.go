package service

import (
	"github.com/noah-isme/desa-layanan-api/internal/models"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
)

// Operation names a role-gated action on service requests.
type Operation string

const (
	OpSubmit              Operation = "submit"
	OpApproveByLocalChief Operation = "approve_local_chief"
	OpApproveByAdmin      Operation = "approve_admin"
	OpReject              Operation = "reject"
	OpComplete            Operation = "complete"
	OpAutoEscalate        Operation = "auto_escalate"
	OpDelete              Operation = "delete"
	OpAnnotate            Operation = "annotate_village_head"
	OpListAll             Operation = "list_all"
	OpStats               Operation = "stats"
	OpExport              Operation = "export"
)

var permissionTable = map[Operation][]models.UserRole{
	OpSubmit:              {models.RoleCitizen, models.RoleLocalChief, models.RoleAdmin},
	OpApproveByLocalChief: {models.RoleLocalChief, models.RoleAdmin},
	OpApproveByAdmin:      {models.RoleAdmin},
	OpReject:              {models.RoleLocalChief, models.RoleAdmin, models.RoleVillageHead},
	OpComplete:            {models.RoleAdmin},
	OpAutoEscalate:        {models.RoleSystem},
	OpDelete:              {models.RoleAdmin},
	OpAnnotate:            {models.RoleVillageHead, models.RoleAdmin},
	OpListAll:             {models.RoleLocalChief, models.RoleAdmin, models.RoleVillageHead},
	OpStats:               {models.RoleLocalChief, models.RoleAdmin, models.RoleVillageHead},
	OpExport:              {models.RoleLocalChief, models.RoleAdmin, models.RoleVillageHead},
}

// Allowed reports whether role may perform op.
func Allowed(op Operation, role models.UserRole) bool {
	for _, candidate := range permissionTable[op] {
		if candidate == role {
			return true
		}
	}
	return false
}

// RolesFor returns the roles permitted to perform op.
func RolesFor(op Operation) []models.UserRole {
	return append([]models.UserRole(nil), permissionTable[op]...)
}

func authorize(op Operation, actor models.Actor) error {
	if actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if !Allowed(op, actor.Role) {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrForbidden, "role is not permitted to perform this action"), map[string]interface{}{
			"operation": string(op),
			"role":      string(actor.Role),
		})
	}
	return nil
}

type transitionRule struct {
	from []models.RequestStatus
	to   models.RequestStatus
}

// auto_approved sits beside approved_local_chief: both wait for the admin.
var transitionTable = map[Operation]transitionRule{
	OpApproveByLocalChief: {
		from: []models.RequestStatus{models.StatusPendingLocalChief},
		to:   models.StatusApprovedLocalChief,
	},
	OpApproveByAdmin: {
		from: []models.RequestStatus{models.StatusApprovedLocalChief, models.StatusAutoApproved},
		to:   models.StatusApprovedAdmin,
	},
	OpReject: {
		from: []models.RequestStatus{
			models.StatusPendingLocalChief,
			models.StatusApprovedLocalChief,
			models.StatusAutoApproved,
			models.StatusApprovedAdmin,
		},
		to: models.StatusRejected,
	},
	OpComplete: {
		from: []models.RequestStatus{models.StatusApprovedAdmin},
		to:   models.StatusCompleted,
	},
	OpAutoEscalate: {
		from: []models.RequestStatus{models.StatusPendingLocalChief},
		to:   models.StatusAutoApproved,
	},
}

// CanTransition reports whether op may start from status.
func CanTransition(op Operation, status models.RequestStatus) bool {
	rule, ok := transitionTable[op]
	if !ok {
		return false
	}
	for _, from := range rule.from {
		if from == status {
			return true
		}
	}
	return false
}

// TargetStatus returns the status op moves a request into.
func TargetStatus(op Operation) (models.RequestStatus, bool) {
	rule, ok := transitionTable[op]
	return rule.to, ok
}

func invalidTransition(op Operation, current models.RequestStatus) error {
	return appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{
		"currentStatus": string(current),
		"transition":    string(op),
	})
}
