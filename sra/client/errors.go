package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/betbot/gosra/sra/types"
)

// ErrMissingParameter 必填参数为空，请求不会发出
var ErrMissingParameter = errors.New("missing required parameter")

// APIError 非 2xx 响应；不重试，也不自动解析响应体
type APIError struct {
	Operation  string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *APIError) Error() string {
	body := string(e.Body)
	if len(body) > 512 {
		body = body[:512] + "...(truncated)"
	}
	return fmt.Sprintf("%s: http %d: %s", e.Operation, e.StatusCode, body)
}

// ErrorResponse 按 SRA 错误结构解析响应体
func (e *APIError) ErrorResponse() (*types.ErrorResponse, error) {
	var out types.ErrorResponse
	if err := json.Unmarshal(e.Body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransportError 连接失败、超时、取消等
type TransportError struct {
	Operation string
	Method    string
	URL       string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Operation, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError 2xx 响应体不符合声明的模型
type DecodeError struct {
	Operation  string
	StatusCode int
	Body       []byte
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Operation, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsNotFound 是否为 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
