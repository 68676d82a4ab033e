package response

// 业务状态码，放在响应体 status_code 中
const (
	CodeOK                 = 0
	CodePending            = 202 // 网关扣款已创建，等待付款
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeNotFound           = 404
	CodeConflict           = 409 // 库存竞争，可直接重试
	CodeTooManyRequests    = 429
	CodeInternal           = 500
	CodeBadGateway         = 502 // 支付网关未确认到账
	CodeServiceUnavailable = 503 // 服务正在停止
)
