package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vendorgraph/vendorgraph/internal/types"
)

// TenantMiddleware resolves the calling tenant from the X-Tenant-ID header
// and stores it on the request context. Requests without a tenant are
// rejected, every entitlement decision is tenant-scoped.
func TenantMiddleware(c *gin.Context) {
	tenantID := c.GetHeader(types.HeaderTenantID)
	if tenantID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing tenant"})
		c.Abort()
		return
	}

	userID := c.GetHeader(types.HeaderUserID)
	if userID == "" {
		userID = types.DefaultUserID
	}

	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, types.CtxTenantID, tenantID)
	ctx = context.WithValue(ctx, types.CtxUserID, userID)
	if envID := c.GetHeader(types.HeaderEnvironmentID); envID != "" {
		ctx = context.WithValue(ctx, types.CtxEnvironmentID, envID)
	}
	c.Request = c.Request.WithContext(ctx)
	c.Next()
}
