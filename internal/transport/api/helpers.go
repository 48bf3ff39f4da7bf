package api

import (
	"github.com/fsdevblog/credit-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
)

// getAccountIDFromContext берет из контекста gin ID текущего аккаунта. ID устанавливается в
// middlewares.AuthRequired. Если значения в контексте нет, вернется пустая строка.
func getAccountIDFromContext(c *gin.Context) string {
	return c.GetString(middlewares.CurrentAccountIDKey)
}
