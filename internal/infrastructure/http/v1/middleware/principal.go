package middleware

import (
	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
)

// Headers set by the upstream auth gateway.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
	HeaderRole      = "X-Role"
)

// Principal puts the caller identity forwarded by the auth gateway into the
// request context. Company and user are required; role is passed through.
// Nothing here checks permissions.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := &appctx.Principal{
			CompanyID: c.GetHeader(HeaderCompanyID),
			UserID:    c.GetHeader(HeaderUserID),
			Role:      c.GetHeader(HeaderRole),
		}
		if p.CompanyID == "" || p.UserID == "" {
			_ = c.Error(apperror.NewUnauthorized("missing caller identity").
				WithDetail("headers", []string{HeaderCompanyID, HeaderUserID}))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(appctx.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}
