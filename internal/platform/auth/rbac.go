package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Feature names gated by role.
const (
	FeatureAISummary   = "ai-summary"
	FeatureAuditReview = "audit-review"
)

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// Authorizer answers whether a role may use a feature. The summarization
// pipeline consults it before any identifier is touched.
type Authorizer interface {
	IsAuthorized(role, feature string) bool
}

// FeatureGate is a static role-to-feature policy. The policy is fixed at
// construction; concurrent reads need no locking.
type FeatureGate struct {
	policy map[string][]string // feature -> allowed roles
}

// NewFeatureGate returns the default policy: clinicians may run AI summaries,
// compliance staff may review the audit trail, and admin may do both.
func NewFeatureGate() *FeatureGate {
	return &FeatureGate{policy: map[string][]string{
		FeatureAISummary:   {"admin", "physician", "nurse"},
		FeatureAuditReview: {"admin", "compliance"},
	}}
}

func (g *FeatureGate) IsAuthorized(role, feature string) bool {
	for _, allowed := range g.policy[feature] {
		if role == allowed {
			return true
		}
	}
	return false
}
