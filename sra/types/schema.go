package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Kind JSON 值的形状
type Kind int

const (
	KindAny Kind = iota
	KindNull
	KindBool
	KindNumber
	KindInteger
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "any"
	}
}

// Format 字符串字段的附加格式约束
type Format int

const (
	FormatNone    Format = iota
	FormatAddress        // 0x + 40 位十六进制
	FormatNumeric        // 十进制无符号整数字符串
	FormatHex            // 0x 前缀的十六进制字节串
)

func (f Format) String() string {
	switch f {
	case FormatAddress:
		return "address"
	case FormatNumeric:
		return "numeric string"
	case FormatHex:
		return "hex string"
	default:
		return "string"
	}
}

// Field 一个线上字段的声明
type Field struct {
	Name     string // 线上（JSON）字段名
	Kind     Kind
	Required bool
	Format   Format
	Schema   *Schema // KindObject 的嵌套结构
	Elem     *Field  // KindArray 的元素声明
}

// Schema 模型类型的静态声明表
type Schema struct {
	Name   string
	Fields []Field
}

// Extend 在已有声明上追加字段，返回新的 Schema
func (s *Schema) Extend(name string, fields ...Field) *Schema {
	all := make([]Field, 0, len(s.Fields)+len(fields))
	all = append(all, s.Fields...)
	all = append(all, fields...)
	return &Schema{Name: name, Fields: all}
}

// Field 按线上字段名查找声明
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DecodeError 反序列化失败，Path 指向出错的字段
type DecodeError struct {
	Schema   string
	Path     string
	Missing  bool
	Expected string
	Actual   string
}

func (e *DecodeError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	if e.Missing {
		return fmt.Sprintf("%s: required field %q is missing", e.Schema, path)
	}
	return fmt.Sprintf("%s: field %q: expected %s, got %s", e.Schema, path, e.Expected, e.Actual)
}

var numericPattern = regexp.MustCompile(`^[0-9]+$`)

// Validate 按声明检查一个已解码的通用 JSON 值（json.Unmarshal 到 any 的结果）
func (s *Schema) Validate(v any) error {
	return s.validate(s.Name, "", v)
}

func (s *Schema) validate(root, path string, v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		return &DecodeError{Schema: root, Path: path, Expected: KindObject.String(), Actual: kindOf(v).String()}
	}
	for _, f := range s.Fields {
		fieldPath := joinPath(path, f.Name)
		raw, present := obj[f.Name]
		if !present || raw == nil {
			// 显式 null 与缺失等价
			if f.Required {
				return &DecodeError{Schema: root, Path: fieldPath, Missing: true}
			}
			continue
		}
		if err := f.validate(root, fieldPath, raw); err != nil {
			return err
		}
	}
	return nil
}

func (f *Field) validate(root, path string, v any) error {
	actual := kindOf(v)
	switch f.Kind {
	case KindAny:
		return nil
	case KindInteger:
		if actual != KindInteger {
			return &DecodeError{Schema: root, Path: path, Expected: f.Kind.String(), Actual: actual.String()}
		}
		return nil
	case KindNumber:
		if actual != KindNumber && actual != KindInteger {
			return &DecodeError{Schema: root, Path: path, Expected: f.Kind.String(), Actual: actual.String()}
		}
		return nil
	}
	if actual != f.Kind {
		return &DecodeError{Schema: root, Path: path, Expected: f.Kind.String(), Actual: actual.String()}
	}
	switch f.Kind {
	case KindString:
		if !checkFormat(f.Format, v.(string)) {
			return &DecodeError{Schema: root, Path: path, Expected: f.Format.String(), Actual: strconv.Quote(v.(string))}
		}
	case KindObject:
		if f.Schema != nil {
			return f.Schema.validate(root, path, v)
		}
	case KindArray:
		if f.Elem == nil {
			return nil
		}
		for i, item := range v.([]any) {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				return &DecodeError{Schema: root, Path: itemPath, Expected: f.Elem.Kind.String(), Actual: KindNull.String()}
			}
			if err := f.Elem.validate(root, itemPath, item); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkFormat(format Format, s string) bool {
	switch format {
	case FormatAddress:
		return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
	case FormatNumeric:
		return numericPattern.MatchString(s)
	case FormatHex:
		_, err := hexutil.Decode(s)
		return err == nil
	default:
		return true
	}
}

func kindOf(v any) Kind {
	switch t := v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number:
		if isIntegral(t.String()) {
			return KindInteger
		}
		return KindNumber
	case float64:
		if t == float64(int64(t)) {
			return KindInteger
		}
		return KindNumber
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindAny
	}
}

func isIntegral(s string) bool {
	return !strings.ContainsAny(s, ".eE")
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// parseGeneric 把原始 JSON 解成通用值，数字保留为 json.Number
func parseGeneric(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Decode 先按 schema 校验原始 JSON，再解码到 out
func Decode(data []byte, schema *Schema, out any) error {
	v, err := parseGeneric(data)
	if err != nil {
		return &DecodeError{Schema: schema.Name, Expected: "valid JSON", Actual: err.Error()}
	}
	if err := schema.Validate(v); err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &DecodeError{Schema: schema.Name, Expected: schema.Name, Actual: err.Error()}
	}
	return nil
}
