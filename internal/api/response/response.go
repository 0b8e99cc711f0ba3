// Package response 統一的 JSON 回應格式
package response

import (
	"net/http"

	"video-recipe-generator/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// Error 以 ErrorResponse 中止請求，不帶任何內部細節。
// 帶有原始錯誤時記入 c.Errors，由 Logger 中間件輸出
func Error(c *gin.Context, err *common.CustomError) {
	if err.Err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(err.Status, err.Response())
}

// Result 成功回應，包在 result 欄位中
func Result(c *gin.Context, message string, result interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"result":  result,
	})
}
