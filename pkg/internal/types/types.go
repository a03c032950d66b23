// Package types 定义 HTTP 接口的请求与响应结构体.
package types

// ErrorResponse 统一错误响应.
type ErrorResponse struct {
	Error string `json:"error"`
	// Fields 参数校验失败时按字段给出原因
	Fields map[string]string `json:"fields,omitempty"`
}

// HealthResponse 组件健康检查响应.
type HealthResponse struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// HealthSummary 全部组件的健康状态，任一异常时 Status 为 degraded.
type HealthSummary struct {
	Status     string           `json:"status"`
	Components []HealthResponse `json:"components"`
}
