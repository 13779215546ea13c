package middleware

import (
	"device-fleet-manager/internal/permission"

	"github.com/gin-gonic/gin"
)

// RoleMiddleware lets through callers whose role is in allowed. It must run
// after AuthMiddleware.
func RoleMiddleware(allowed permission.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := permission.Require(GetCaller(c), allowed); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

func SuperuserOnly() gin.HandlerFunc {
	return RoleMiddleware(permission.SuperuserOnly)
}

func ManagerAndSuperuser() gin.HandlerFunc {
	return RoleMiddleware(permission.ManagerAndSuperuser)
}

func StaffAndSuperuser() gin.HandlerFunc {
	return RoleMiddleware(permission.StaffAndSuperuser)
}
