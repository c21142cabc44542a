package types

import (
	"fmt"
	"strings"
)

// SRA 错误码
const (
	ErrorCodeValidationFailed        = 100
	ErrorCodeMalformedJSON           = 101
	ErrorCodeOrderSubmissionDisabled = 102
	ErrorCodeThrottled               = 103

	ValidationCodeRequiredField       = 1000
	ValidationCodeIncorrectFormat     = 1001
	ValidationCodeInvalidAddress      = 1002
	ValidationCodeAddressNotSupported = 1003
	ValidationCodeValueOutOfRange     = 1004
	ValidationCodeInvalidSignature    = 1005
	ValidationCodeUnsupportedOption   = 1006
	ValidationCodeInvalidOrder        = 1007
	ValidationCodeInternalError       = 1008
)

// ValidationErrorSchema 单个字段的校验错误
var ValidationErrorSchema = &Schema{Name: "ValidationError", Fields: []Field{
	{Name: "field", Kind: KindString, Required: true},
	{Name: "code", Kind: KindInteger, Required: true},
	{Name: "reason", Kind: KindString, Required: true},
}}

// ErrorResponseSchema 非 2xx 响应体
var ErrorResponseSchema = &Schema{Name: "ErrorResponse", Fields: []Field{
	{Name: "code", Kind: KindInteger, Required: true},
	{Name: "reason", Kind: KindString, Required: true},
	{Name: "validationErrors", Kind: KindArray, Elem: &Field{Kind: KindObject, Schema: ValidationErrorSchema}},
}}

// ValidationError 单个字段的校验错误
type ValidationError struct {
	Field  string `json:"field"`
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// ErrorResponse relayer 返回的错误
type ErrorResponse struct {
	Code             int               `json:"code"`
	Reason           string            `json:"reason"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
}

func (r *ErrorResponse) UnmarshalJSON(data []byte) error {
	type plain ErrorResponse
	var v plain
	if err := Decode(data, ErrorResponseSchema, &v); err != nil {
		return err
	}
	// 空数组与缺省等价，编码时同样会被省略
	if len(v.ValidationErrors) == 0 {
		v.ValidationErrors = nil
	}
	*r = ErrorResponse(v)
	return nil
}

func (r *ErrorResponse) Error() string {
	if len(r.ValidationErrors) == 0 {
		return fmt.Sprintf("sra error %d: %s", r.Code, r.Reason)
	}
	parts := make([]string, 0, len(r.ValidationErrors))
	for _, ve := range r.ValidationErrors {
		parts = append(parts, fmt.Sprintf("%s(%d): %s", ve.Field, ve.Code, ve.Reason))
	}
	return fmt.Sprintf("sra error %d: %s [%s]", r.Code, r.Reason, strings.Join(parts, "; "))
}

// ValidationFailed 由 DecodeError 构造 100 号错误
func ValidationFailed(err *DecodeError) *ErrorResponse {
	code := ValidationCodeIncorrectFormat
	reason := fmt.Sprintf("expected %s, got %s", err.Expected, err.Actual)
	if err.Missing {
		code = ValidationCodeRequiredField
		reason = "requires property"
	}
	return &ErrorResponse{
		Code:   ErrorCodeValidationFailed,
		Reason: "Validation failed",
		ValidationErrors: []ValidationError{
			{Field: err.Path, Code: code, Reason: reason},
		},
	}
}
