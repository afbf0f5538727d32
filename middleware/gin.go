package middleware

import (
	"github.com/bookwell/authcore"
	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the authcore.Identity.
const IdentityKey = "authcore.identity"

// GinGuard is Guard for gin routers. The identity is stored in the request context
// and under IdentityKey.
func GinGuard(auth Authenticator, opts ...Option) gin.HandlerFunc {
	o := buildOptions(opts)
	return func(c *gin.Context) {
		if auth == nil {
			o.onDeny(c.Writer, c.Request, authcore.Outcome{Status: authcore.StatusUnauthenticated})
			c.Abort()
			return
		}

		out := auth.Authenticate(c.Request)
		if out.Status != authcore.StatusAuthenticated {
			if staleCookie(out) {
				auth.ClearCookie(c.Writer)
			}
			o.onDeny(c.Writer, c.Request, out)
			c.Abort()
			return
		}

		setGinIdentity(c, out.Identity)
		c.Next()
	}
}

// GinOptional is Optional for gin routers.
func GinOptional(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth != nil {
			out := auth.Authenticate(c.Request)
			if out.Status == authcore.StatusAuthenticated {
				setGinIdentity(c, out.Identity)
			} else if staleCookie(out) {
				auth.ClearCookie(c.Writer)
			}
		}
		c.Next()
	}
}

// GinIdentity returns the identity set by GinGuard or GinOptional.
func GinIdentity(c *gin.Context) (authcore.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return authcore.Identity{}, false
	}
	id, ok := v.(authcore.Identity)
	return id, ok
}

func setGinIdentity(c *gin.Context, id authcore.Identity) {
	c.Set(IdentityKey, id)
	c.Request = c.Request.WithContext(authcore.WithIdentity(c.Request.Context(), id))
}
