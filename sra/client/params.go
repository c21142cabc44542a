package client

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// CollectionFormat 数组型查询参数的拼接方式
type CollectionFormat string

const (
	CollectionCSV   CollectionFormat = "csv"   // a,b,c
	CollectionSSV   CollectionFormat = "ssv"   // a b c
	CollectionTSV   CollectionFormat = "tsv"   // a\tb\tc
	CollectionPipes CollectionFormat = "pipes" // a|b|c
	CollectionMulti CollectionFormat = "multi" // k=a&k=b&k=c
)

func (f CollectionFormat) separator() string {
	switch f {
	case CollectionSSV:
		return " "
	case CollectionTSV:
		return "\t"
	case CollectionPipes:
		return "|"
	default:
		return ","
	}
}

var pathParamPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// expandPath 用百分号编码后的值替换路径模板中的 {name}
func expandPath(template string, params map[string]string) (string, error) {
	var missing []string
	out := pathParamPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := params[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", errors.Wrapf(ErrMissingParameter, "path %s: %s", template, strings.Join(missing, ", "))
	}
	return out, nil
}

// buildQuery 只输出非 nil、非空的参数；切片按 formats 中登记的格式拼接，默认 csv
func buildQuery(params map[string]any, formats map[string]CollectionFormat) url.Values {
	values := url.Values{}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		rv, ok := deref(params[k])
		if !ok {
			continue
		}
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			// nil 与空切片一样不输出，各种拼接格式行为一致
			if rv.Len() == 0 {
				continue
			}
			// []byte 之类的字节串当作标量
			if rv.Type().Elem().Kind() != reflect.Uint8 {
				items := make([]string, 0, rv.Len())
				for i := 0; i < rv.Len(); i++ {
					if item, ok := deref(rv.Index(i).Interface()); ok {
						items = append(items, formatScalar(item))
					}
				}
				format := formats[k]
				if format == CollectionMulti {
					for _, item := range items {
						values.Add(k, item)
					}
				} else {
					values.Set(k, strings.Join(items, format.separator()))
				}
				continue
			}
		}
		values.Set(k, formatScalar(rv))
	}
	return values
}

// deref 解开指针；nil 返回 false
func deref(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	return rv, true
}

func formatScalar(rv reflect.Value) string {
	if s, ok := rv.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(rv.Interface())
}
