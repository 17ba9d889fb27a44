// Package service implements the administrative and query-path use cases on
// top of the domain repositories and the policy engine.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"sqlgate/internal/domain"
)

// requireAdmin checks that the caller in context has admin privileges.
// Returns AccessDeniedError if not authenticated or not admin.
func requireAdmin(ctx context.Context) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		return domain.ErrAccessDenied("admin privileges required")
	}
	return nil
}

// callerName returns the username of the authenticated principal from context.
func callerName(ctx context.Context) string {
	p, _ := domain.PrincipalFromContext(ctx)
	return p.Username
}

// callerID returns the user ID of the authenticated principal from context.
func callerID(ctx context.Context) string {
	p, _ := domain.PrincipalFromContext(ctx)
	return p.UserID
}

// newExceptionID generates an EXC-XXXXXXXX identifier.
func newExceptionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "EXC-" + strings.ToUpper(hex[:8])
}
