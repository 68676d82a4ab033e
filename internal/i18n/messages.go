package i18n

var messagesEN = map[string]string{
	"error.bad_request":              "Invalid request",
	"error.unauthorized":             "Please sign in again",
	"error.forbidden":                "Permission denied",
	"error.not_found":                "Not found",
	"error.internal":                 "Internal error, please retry later",
	"error.too_many_requests":        "Too many requests, retry after %d seconds",
	"error.user_id_invalid":          "Invalid user",
	"error.user_id_type_invalid":     "Invalid user context",
	"error.admin_id_invalid":         "Invalid admin",
	"error.admin_id_type_invalid":    "Invalid admin context",
	"error.user_not_found":           "User not found",
	"error.user_fetch_failed":        "Failed to load users",
	"error.user_update_failed":       "Failed to update user",
	"error.user_blocked":             "Your account has been blocked",
	"error.bot_secret_invalid":       "Invalid bot credentials",
	"error.login_invalid":            "Wrong username or password",
	"error.token_invalid":            "Session expired, please sign in again",
	"error.product_not_found":        "Product not found",
	"error.product_not_available":    "This product is not available for purchase",
	"error.product_invalid":          "Invalid product data",
	"error.product_fetch_failed":     "Failed to load products",
	"error.product_save_failed":      "Failed to save product",
	"error.quantity_out_of_range":    "Quantity is outside the allowed range",
	"error.invalid_quantity":         "Invalid quantity",
	"error.insufficient_stock":       "Not enough stock left",
	"error.insufficient_balance":     "Insufficient balance",
	"error.invalid_amount":           "Invalid amount",
	"error.cart_item_not_found":      "Cart item not found",
	"error.cart_fetch_failed":        "Failed to load cart",
	"error.cart_update_failed":       "Failed to update cart",
	"error.payment_failed":           "Payment was not received",
	"error.service_unavailable":      "Service is restarting, please retry shortly",
	"error.captcha_required":         "Please enter the captcha",
	"error.captcha_invalid":          "Wrong captcha",
	"error.captcha_failed":           "Failed to generate captcha",
	"error.gateway_not_supported":    "Payment method not supported",
	"error.settlement_failed":        "Checkout failed, please retry",
	"error.sale_not_found":           "Purchase not found",
	"error.sale_fetch_failed":        "Failed to load purchases",
	"error.charge_not_found":         "Payment not found",
	"error.wallet_fetch_failed":      "Failed to load wallet",
	"error.top_up_failed":            "Top-up failed",
	"error.unit_payload_invalid":     "Unit content is invalid",
	"error.unit_import_failed":       "Failed to import units",
	"error.stock_fetch_failed":       "Failed to load stock",
	"error.bonus_invalid":            "Invalid bonus rule",
	"error.bonus_not_found":          "Bonus rule not found",
	"error.bonus_save_failed":        "Failed to save bonus rule",
	"error.reconciliation_not_found": "Reconciliation entry not found",
	"error.reconciliation_resolved":  "Reconciliation entry already resolved",
	"error.reconciliation_failed":    "Failed to resolve reconciliation entry",
	"error.balance_adjust_failed":    "Failed to adjust balance",
	"error.authz_failed":             "Failed to update permissions",
	"settlement.awaiting_payment":    "Waiting for payment",
	"settlement.completed":           "Purchase completed",
	"wallet.top_up_awaiting_payment": "Waiting for top-up payment",
}

var messagesZH = map[string]string{
	"error.bad_request":              "请求参数错误",
	"error.unauthorized":             "请重新登录",
	"error.forbidden":                "无权限访问",
	"error.not_found":                "资源不存在",
	"error.internal":                 "服务器内部错误，请稍后重试",
	"error.too_many_requests":        "请求过于频繁，请 %d 秒后重试",
	"error.user_id_invalid":          "用户无效",
	"error.user_id_type_invalid":     "用户上下文无效",
	"error.admin_id_invalid":         "管理员无效",
	"error.admin_id_type_invalid":    "管理员上下文无效",
	"error.user_not_found":           "用户不存在",
	"error.user_fetch_failed":        "获取用户失败",
	"error.user_update_failed":       "更新用户失败",
	"error.user_blocked":             "账号已被封禁",
	"error.bot_secret_invalid":       "机器人凭证无效",
	"error.login_invalid":            "用户名或密码错误",
	"error.token_invalid":            "登录已失效，请重新登录",
	"error.product_not_found":        "商品不存在",
	"error.product_not_available":    "商品当前不可购买",
	"error.product_invalid":          "商品数据无效",
	"error.product_fetch_failed":     "获取商品失败",
	"error.product_save_failed":      "保存商品失败",
	"error.quantity_out_of_range":    "购买数量超出限制",
	"error.invalid_quantity":         "数量无效",
	"error.insufficient_stock":       "库存不足",
	"error.insufficient_balance":     "余额不足",
	"error.invalid_amount":           "金额无效",
	"error.cart_item_not_found":      "购物车项不存在",
	"error.cart_fetch_failed":        "获取购物车失败",
	"error.cart_update_failed":       "更新购物车失败",
	"error.payment_failed":           "未收到付款",
	"error.service_unavailable":      "服务正在重启，请稍后重试",
	"error.captcha_required":         "请输入验证码",
	"error.captcha_invalid":          "验证码错误",
	"error.captcha_failed":           "验证码生成失败",
	"error.gateway_not_supported":    "不支持的支付方式",
	"error.settlement_failed":        "结算失败，请重试",
	"error.sale_not_found":           "购买记录不存在",
	"error.sale_fetch_failed":        "获取购买记录失败",
	"error.charge_not_found":         "支付记录不存在",
	"error.wallet_fetch_failed":      "获取钱包失败",
	"error.top_up_failed":            "充值失败",
	"error.unit_payload_invalid":     "单元内容无效",
	"error.unit_import_failed":       "导入单元失败",
	"error.stock_fetch_failed":       "获取库存失败",
	"error.bonus_invalid":            "赠送规则无效",
	"error.bonus_not_found":          "赠送规则不存在",
	"error.bonus_save_failed":        "保存赠送规则失败",
	"error.reconciliation_not_found": "对账记录不存在",
	"error.reconciliation_resolved":  "对账记录已处理",
	"error.reconciliation_failed":    "处理对账记录失败",
	"error.balance_adjust_failed":    "调整余额失败",
	"error.authz_failed":             "更新权限失败",
	"settlement.awaiting_payment":    "等待付款",
	"settlement.completed":           "购买成功",
	"wallet.top_up_awaiting_payment": "等待充值付款",
}
