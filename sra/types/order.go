package types

// OrderSchema 0x v2 订单
var OrderSchema = &Schema{Name: "Order", Fields: []Field{
	{Name: "makerAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "takerAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "makerFee", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "takerFee", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "senderAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "makerAssetAmount", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "takerAssetAmount", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "makerAssetData", Kind: KindString, Required: true, Format: FormatHex},
	{Name: "takerAssetData", Kind: KindString, Required: true, Format: FormatHex},
	{Name: "salt", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "exchangeAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "feeRecipientAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "expirationTimeSeconds", Kind: KindString, Required: true, Format: FormatNumeric},
}}

// SignedOrderSchema 订单 + 签名
var SignedOrderSchema = OrderSchema.Extend("SignedOrder",
	Field{Name: "signature", Kind: KindString, Required: true, Format: FormatHex},
)

// OrderRecordSchema relayer 返回的订单记录
var OrderRecordSchema = &Schema{Name: "OrderRecord", Fields: []Field{
	{Name: "order", Kind: KindObject, Required: true, Schema: SignedOrderSchema},
	{Name: "metaData", Kind: KindObject, Required: true},
}}

// Order 未签名订单
type Order struct {
	MakerAddress          Address  `json:"makerAddress"`
	TakerAddress          Address  `json:"takerAddress"`
	MakerFee              Amount   `json:"makerFee"`
	TakerFee              Amount   `json:"takerFee"`
	SenderAddress         Address  `json:"senderAddress"`
	MakerAssetAmount      Amount   `json:"makerAssetAmount"`
	TakerAssetAmount      Amount   `json:"takerAssetAmount"`
	MakerAssetData        HexBytes `json:"makerAssetData"`
	TakerAssetData        HexBytes `json:"takerAssetData"`
	Salt                  Amount   `json:"salt"`
	ExchangeAddress       Address  `json:"exchangeAddress"`
	FeeRecipientAddress   Address  `json:"feeRecipientAddress"`
	ExpirationTimeSeconds Amount   `json:"expirationTimeSeconds"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	type plain Order
	var v plain
	if err := Decode(data, OrderSchema, &v); err != nil {
		return err
	}
	*o = Order(v)
	return nil
}

// SignedOrder 已签名订单
type SignedOrder struct {
	Order
	Signature HexBytes `json:"signature"`
}

// Sign 附上签名（签名本身由外部库产生）
func (o Order) Sign(signature HexBytes) SignedOrder {
	return SignedOrder{Order: o, Signature: signature}
}

func (o *SignedOrder) UnmarshalJSON(data []byte) error {
	// 嵌入的 Order 带有 UnmarshalJSON，这里展开成平铺结构解码
	var v struct {
		plainOrder
		Signature HexBytes `json:"signature"`
	}
	if err := Decode(data, SignedOrderSchema, &v); err != nil {
		return err
	}
	o.Order = Order(v.plainOrder)
	o.Signature = v.Signature
	return nil
}

// plainOrder 与 Order 字段一致但没有自定义解码
type plainOrder struct {
	MakerAddress          Address  `json:"makerAddress"`
	TakerAddress          Address  `json:"takerAddress"`
	MakerFee              Amount   `json:"makerFee"`
	TakerFee              Amount   `json:"takerFee"`
	SenderAddress         Address  `json:"senderAddress"`
	MakerAssetAmount      Amount   `json:"makerAssetAmount"`
	TakerAssetAmount      Amount   `json:"takerAssetAmount"`
	MakerAssetData        HexBytes `json:"makerAssetData"`
	TakerAssetData        HexBytes `json:"takerAssetData"`
	Salt                  Amount   `json:"salt"`
	ExchangeAddress       Address  `json:"exchangeAddress"`
	FeeRecipientAddress   Address  `json:"feeRecipientAddress"`
	ExpirationTimeSeconds Amount   `json:"expirationTimeSeconds"`
}

// OrderRecord 订单及 relayer 附加的元数据
type OrderRecord struct {
	Order    SignedOrder `json:"order"`
	MetaData Any         `json:"metaData"`
}

func (r *OrderRecord) UnmarshalJSON(data []byte) error {
	type plain OrderRecord
	var v plain
	if err := Decode(data, OrderRecordSchema, &v); err != nil {
		return err
	}
	*r = OrderRecord(v)
	return nil
}
