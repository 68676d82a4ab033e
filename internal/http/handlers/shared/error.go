package shared

import (
	"github.com/unitshop/internal/http/response"
	"github.com/unitshop/internal/i18n"
	"github.com/unitshop/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 携带 request_id 的日志实例
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 按请求语言翻译错误键；err 非空时记录日志
func RespondError(c *gin.Context, code int, key string, err error) {
	appErr := response.WrapError(code, i18n.T(i18n.ResolveLocale(c), key), err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", key,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// RespondErrorWithData 带附加数据的错误响应
func RespondErrorWithData(c *gin.Context, code int, key string, data interface{}) {
	response.ErrorWithData(c, code, i18n.T(i18n.ResolveLocale(c), key), data)
}
