package authorization

import (
	"context"
	"strings"

	"MamaCare/role"
	"MamaCare/util"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Revoker reports whether the token carrying id was revoked by a sign out
// or a role change after it was issued.
type Revoker interface {
	Revoked(ctx context.Context, id Identity) (bool, error)
}

/*
* Read the bearer token from the Authorization header
* Verify it and reject revoked sessions
* Store the identity in the context for the handlers
 */
func JWTAuth(issuer *Issuer, revoker Revoker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, util.Unauthenticated(util.MISSING_AUTH_TOKEN))
			return
		}
		id, err := issuer.ParseJWT(strings.TrimSpace(token))
		if err != nil {
			abort(c, util.Unauthenticated(util.INVALID_AUTH_TOKEN))
			return
		}
		if revoker != nil {
			revoked, err := revoker.Revoked(c.Request.Context(), id)
			if err != nil {
				abort(c, err)
				return
			}
			if revoked {
				abort(c, util.Unauthenticated(util.INVALID_AUTH_TOKEN))
				return
			}
		}
		SetIdentity(c, id)
		c.Next()
	}
}

// Authorize requires the "<module>:<action>" permission.
func Authorize(module, action string) gin.HandlerFunc {
	want := role.Of(module, action)
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			abort(c, util.Unauthenticated(util.MISSING_AUTH_TOKEN))
			return
		}
		if !id.Can(want) {
			abort(c, util.PermissionDenied(util.NOT_ALLOWED))
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	return id, ok
}

func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(util.HTTPStatus(err), util.FailedResponse(err))
}
