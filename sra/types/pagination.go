package types

import (
	"encoding/json"
	"fmt"
)

// 分页默认值，与 SRA v2 约定一致
const (
	DefaultPage    = 1
	DefaultPerPage = 20
)

// paginationFields 所有分页集合共有的字段
var paginationFields = []Field{
	{Name: "total", Kind: KindInteger, Required: true},
	{Name: "page", Kind: KindInteger, Required: true},
	{Name: "perPage", Kind: KindInteger, Required: true},
}

// PaginatedCollectionSchema 构造 records 元素为 elem 的分页集合声明
func PaginatedCollectionSchema(name string, elem Field) *Schema {
	fields := make([]Field, 0, len(paginationFields)+1)
	fields = append(fields, paginationFields...)
	fields = append(fields, Field{Name: "records", Kind: KindArray, Required: true, Elem: &elem})
	return &Schema{Name: name, Fields: fields}
}

// PaginatedCollection 分页集合
type PaginatedCollection[T any] struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Records []T `json:"records"`
}

func (p PaginatedCollection[T]) MarshalJSON() ([]byte, error) {
	records := p.Records
	if records == nil {
		records = []T{}
	}
	return json.Marshal(struct {
		Total   int `json:"total"`
		Page    int `json:"page"`
		PerPage int `json:"perPage"`
		Records []T `json:"records"`
	}{p.Total, p.Page, p.PerPage, records})
}

// decodePage 按 schema 校验整棵树，然后逐条解码 records
func decodePage[T any](data []byte, schema *Schema, out *PaginatedCollection[T]) error {
	v, err := parseGeneric(data)
	if err != nil {
		return &DecodeError{Schema: schema.Name, Expected: "valid JSON", Actual: err.Error()}
	}
	if err := schema.Validate(v); err != nil {
		return err
	}
	var head struct {
		Total   int               `json:"total"`
		Page    int               `json:"page"`
		PerPage int               `json:"perPage"`
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return &DecodeError{Schema: schema.Name, Expected: schema.Name, Actual: err.Error()}
	}
	records := make([]T, len(head.Records))
	for i, raw := range head.Records {
		if err := json.Unmarshal(raw, &records[i]); err != nil {
			return &DecodeError{Schema: schema.Name, Path: fmt.Sprintf("records[%d]", i), Expected: fmt.Sprintf("%T", records[i]), Actual: err.Error()}
		}
	}
	*out = PaginatedCollection[T]{Total: head.Total, Page: head.Page, PerPage: head.PerPage, Records: records}
	return nil
}

// OrdersResponseSchema GET /orders 响应
var OrdersResponseSchema = PaginatedCollectionSchema("OrdersResponse",
	Field{Kind: KindObject, Schema: OrderRecordSchema})

// OrdersResponse GET /orders 响应
type OrdersResponse struct {
	PaginatedCollection[OrderRecord]
}

func (r *OrdersResponse) UnmarshalJSON(data []byte) error {
	return decodePage(data, OrdersResponseSchema, &r.PaginatedCollection)
}

// FeeRecipientsResponseSchema GET /fee_recipients 响应
var FeeRecipientsResponseSchema = PaginatedCollectionSchema("FeeRecipientsResponse",
	Field{Kind: KindString, Format: FormatAddress})

// FeeRecipientsResponse GET /fee_recipients 响应
type FeeRecipientsResponse struct {
	PaginatedCollection[Address]
}

func (r *FeeRecipientsResponse) UnmarshalJSON(data []byte) error {
	return decodePage(data, FeeRecipientsResponseSchema, &r.PaginatedCollection)
}
