package recipe

import (
	"errors"

	"recipe-keeper/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError 依錯誤類型回傳對應的狀態碼與錯誤內容
func (h *Handler) respondError(c *gin.Context, err error) {
	status := common.StatusOf(err)
	resp := common.ErrorResponse{
		Code:    common.CodeOf(err),
		Message: errorMessage(err),
	}
	if h.debug {
		resp.Details = err.Error()
	}

	fields := []zap.Field{
		zap.String("request_id", requestid.Get(c)),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= 500 {
		common.LogError("Request failed", fields...)
	} else {
		common.LogWarn("Request rejected", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

func errorMessage(err error) string {
	var ce *common.CustomError
	if errors.As(err, &ce) {
		return ce.Message
	}
	if common.IsValidationError(err) {
		return err.Error()
	}
	return common.ErrInternalError.Message
}
