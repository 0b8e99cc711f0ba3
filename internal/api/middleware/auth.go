package middleware

import (
	"errors"

	"video-recipe-generator/internal/api/response"
	"video-recipe-generator/internal/infrastructure/auth"
	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// BearerAuth 驗證 Authorization: Bearer <token>，通過後將身分放入 context
func BearerAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := common.ExtractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, common.ErrUnauthorized)
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				response.Error(c, common.ErrUnauthorized)
				return
			}
			common.LogError("Token verification unavailable",
				zap.Error(err),
				zap.String("request_id", requestid.Get(c)),
			)
			response.Error(c, common.ErrInternalError)
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// IdentityFrom 取出已驗證的呼叫者，未驗證時回傳 nil
func IdentityFrom(c *gin.Context) *auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*auth.Identity)
	return identity
}
