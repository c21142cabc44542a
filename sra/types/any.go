package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Any 任意 JSON 值的变体类型
// 响应类型未声明时使用，也用于 metaData 这类自由结构
type Any struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	String string
	Array  []Any
	Object map[string]Any
}

// AnyFromValue 由通用解码值（map[string]any / []any / json.Number ...）构造
func AnyFromValue(v any) (Any, error) {
	switch t := v.(type) {
	case nil:
		return Any{Kind: KindNull}, nil
	case bool:
		return Any{Kind: KindBool, Bool: t}, nil
	case json.Number:
		return Any{Kind: kindOf(t), Number: t}, nil
	case float64:
		return Any{Kind: kindOf(t), Number: json.Number(fmt.Sprint(t))}, nil
	case string:
		return Any{Kind: KindString, String: t}, nil
	case []any:
		arr := make([]Any, 0, len(t))
		for i, item := range t {
			a, err := AnyFromValue(item)
			if err != nil {
				return Any{}, fmt.Errorf("[%d]: %w", i, err)
			}
			arr = append(arr, a)
		}
		return Any{Kind: KindArray, Array: arr}, nil
	case map[string]any:
		obj := make(map[string]Any, len(t))
		for k, item := range t {
			a, err := AnyFromValue(item)
			if err != nil {
				return Any{}, fmt.Errorf("%s: %w", k, err)
			}
			obj[k] = a
		}
		return Any{Kind: KindObject, Object: obj}, nil
	default:
		return Any{}, fmt.Errorf("unsupported JSON value of type %T", v)
	}
}

// EmptyObject 空对象 {}
func EmptyObject() Any {
	return Any{Kind: KindObject, Object: map[string]Any{}}
}

// IsNull 是否为 null（零值也视为 null）
func (a Any) IsNull() bool {
	return a.Kind == KindNull || a.Kind == KindAny
}

// Get 取对象字段
func (a Any) Get(key string) (Any, bool) {
	if a.Kind != KindObject {
		return Any{}, false
	}
	v, ok := a.Object[key]
	return v, ok
}

// Interface 还原为通用 Go 值
func (a Any) Interface() any {
	switch a.Kind {
	case KindBool:
		return a.Bool
	case KindNumber, KindInteger:
		return a.Number
	case KindString:
		return a.String
	case KindArray:
		out := make([]any, len(a.Array))
		for i, item := range a.Array {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(a.Object))
		for k, item := range a.Object {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Decode 把变体值按 schema 解码到具体模型
func (a Any) Decode(schema *Schema, out any) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return Decode(data, schema, out)
}

func (a Any) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case KindBool:
		return json.Marshal(a.Bool)
	case KindNumber, KindInteger:
		return []byte(a.Number.String()), nil
	case KindString:
		return json.Marshal(a.String)
	case KindArray:
		if a.Array == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.Array)
	case KindObject:
		// 键排序，保证输出稳定
		keys := make([]string, 0, len(a.Object))
		for k := range a.Object {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			vb, err := a.Object[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(vb)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return []byte("null"), nil
	}
}

func (a *Any) UnmarshalJSON(data []byte) error {
	v, err := parseGeneric(data)
	if err != nil {
		return err
	}
	parsed, err := AnyFromValue(v)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
