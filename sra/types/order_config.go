package types

// OrderConfigPayloadSchema POST /order_config 请求体
var OrderConfigPayloadSchema = &Schema{Name: "OrderConfigPayload", Fields: []Field{
	{Name: "makerAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "takerAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "makerAssetAmount", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "takerAssetAmount", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "makerAssetData", Kind: KindString, Required: true, Format: FormatHex},
	{Name: "takerAssetData", Kind: KindString, Required: true, Format: FormatHex},
	{Name: "exchangeAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "expirationTimeSeconds", Kind: KindString, Required: true, Format: FormatNumeric},
}}

// OrderConfigResponseSchema POST /order_config 响应
var OrderConfigResponseSchema = &Schema{Name: "OrderConfigResponse", Fields: []Field{
	{Name: "makerFee", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "takerFee", Kind: KindString, Required: true, Format: FormatNumeric},
	{Name: "feeRecipientAddress", Kind: KindString, Required: true, Format: FormatAddress},
	{Name: "senderAddress", Kind: KindString, Required: true, Format: FormatAddress},
}}

// OrderConfigPayload 未签名的部分订单，用于向 relayer 询问费用配置
type OrderConfigPayload struct {
	MakerAddress          Address  `json:"makerAddress"`
	TakerAddress          Address  `json:"takerAddress"`
	MakerAssetAmount      Amount   `json:"makerAssetAmount"`
	TakerAssetAmount      Amount   `json:"takerAssetAmount"`
	MakerAssetData        HexBytes `json:"makerAssetData"`
	TakerAssetData        HexBytes `json:"takerAssetData"`
	ExchangeAddress       Address  `json:"exchangeAddress"`
	ExpirationTimeSeconds Amount   `json:"expirationTimeSeconds"`
}

func (p *OrderConfigPayload) UnmarshalJSON(data []byte) error {
	type plain OrderConfigPayload
	var v plain
	if err := Decode(data, OrderConfigPayloadSchema, &v); err != nil {
		return err
	}
	*p = OrderConfigPayload(v)
	return nil
}

// OrderConfigResponse relayer 要求的费用与地址
type OrderConfigResponse struct {
	MakerFee            Amount  `json:"makerFee"`
	TakerFee            Amount  `json:"takerFee"`
	FeeRecipientAddress Address `json:"feeRecipientAddress"`
	SenderAddress       Address `json:"senderAddress"`
}

func (r *OrderConfigResponse) UnmarshalJSON(data []byte) error {
	type plain OrderConfigResponse
	var v plain
	if err := Decode(data, OrderConfigResponseSchema, &v); err != nil {
		return err
	}
	*r = OrderConfigResponse(v)
	return nil
}

// Apply 把费用配置与 payload 合成为一个待签名订单
func (r OrderConfigResponse) Apply(p OrderConfigPayload, salt Amount) Order {
	return Order{
		MakerAddress:          p.MakerAddress,
		TakerAddress:          p.TakerAddress,
		MakerFee:              r.MakerFee,
		TakerFee:              r.TakerFee,
		SenderAddress:         r.SenderAddress,
		MakerAssetAmount:      p.MakerAssetAmount,
		TakerAssetAmount:      p.TakerAssetAmount,
		MakerAssetData:        p.MakerAssetData,
		TakerAssetData:        p.TakerAssetData,
		Salt:                  salt,
		ExchangeAddress:       p.ExchangeAddress,
		FeeRecipientAddress:   r.FeeRecipientAddress,
		ExpirationTimeSeconds: p.ExpirationTimeSeconds,
	}
}
