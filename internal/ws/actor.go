package ws

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"arabica/internal/domain"
)

// Заголовки идентичности от фронтового слоя аутентификации; сама
// аутентификация вне зоны ответственности сервиса.
const (
	headerUserID   = "X-User-Id"
	headerUserName = "X-User-Name"
	headerUserRole = "X-User-Role"
)

// ActorFromContext собирает явную идентичность вызывающего из заголовков
// запроса; без заголовков — гостевой клиент
func ActorFromContext(c *gin.Context) domain.Actor {
	actor := domain.Actor{Role: domain.RoleCustomer, FullName: "Guest"}
	if v := c.GetHeader(headerUserID); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			actor.UserID = id
		}
	}
	if v := c.GetHeader(headerUserName); v != "" {
		actor.FullName = v
	}
	switch domain.Role(c.GetHeader(headerUserRole)) {
	case domain.RoleStaff:
		actor.Role = domain.RoleStaff
	case domain.RoleManager:
		actor.Role = domain.RoleManager
	}
	return actor
}
