package middleware

import (
	"net/http"
	"strings"

	"marketplace-core/internal/identity"
	"marketplace-core/internal/service"
	"marketplace-core/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthRequired проверяет Bearer-токен через introspect сервиса идентификации
// и кладёт user_id и роль в контекст запроса. Дальше сервисы берут идентичность
// только из контекста.
func AuthRequired(idClient *identity.Client, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		token, ok := ExtractBearerToken(authz)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}

		resp, err := idClient.Introspect(c.Request.Context(), token)
		if err != nil || !resp.Active {
			if err != nil {
				log.Warn("introspect failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		uid, err := uuid.Parse(resp.UserID)
		if err != nil {
			log.Warn("introspect returned malformed user id", zap.String("user_id", resp.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		ctx := service.WithUserID(c.Request.Context(), uid)
		ctx = service.WithRole(ctx, service.Role(resp.Role))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ExtractBearerToken извлекает токен из заголовка Authorization, устойчиво к лишним символам
func ExtractBearerToken(authz string) (string, bool) {
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return strings.Trim(t, " \"'"), true
}
