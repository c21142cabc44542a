package types

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testZRXAssetData  = "0xf47261b0000000000000000000000000871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c"
	testWETHAssetData = "0xf47261b00000000000000000000000000b1ba0af832d7c05fd64161e0db78e85978e8082"
)

func sampleOrder() Order {
	return Order{
		MakerAddress:          "0x5409ed021d9299bf6814279a6a1411a7e866a631",
		TakerAddress:          NullAddress,
		MakerFee:              "0",
		TakerFee:              "0",
		SenderAddress:         NullAddress,
		MakerAssetAmount:      "2",
		TakerAssetAmount:      "2",
		MakerAssetData:        MustHexBytes(testZRXAssetData),
		TakerAssetData:        MustHexBytes(testWETHAssetData),
		Salt:                  "67006738228878699843088602623665307406148487219438534730168799356281242528500",
		ExchangeAddress:       "0x48bacb9266a570d521063ef5dd96e61686dbe788",
		FeeRecipientAddress:   NullAddress,
		ExpirationTimeSeconds: "1553553429",
	}
}

func sampleSignedOrder() SignedOrder {
	return sampleOrder().Sign(MustHexBytes("0x1b5b2d6bb9a6a5f2c4e0c9d8b4ee3d6f1e0a9d8c7b6a5f4e3d2c1b0a99887766550403"))
}

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestRoundTrip(t *testing.T) {
	minAmount := Amount("0")
	maxAmount := Amount("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	precision := 18
	record := OrderRecord{
		Order:    sampleSignedOrder(),
		MetaData: Any{Kind: KindObject, Object: map[string]Any{"orderHash": {Kind: KindString, String: "0xabc"}}},
	}
	orders := OrdersResponse{PaginatedCollection[OrderRecord]{Total: 1, Page: 1, PerPage: 20, Records: []OrderRecord{record}}}

	t.Run("Order", func(t *testing.T) {
		assert.Equal(t, sampleOrder(), roundTrip(t, sampleOrder()))
	})
	t.Run("SignedOrder", func(t *testing.T) {
		assert.Equal(t, sampleSignedOrder(), roundTrip(t, sampleSignedOrder()))
	})
	t.Run("OrderRecord", func(t *testing.T) {
		assert.Equal(t, record, roundTrip(t, record))
	})
	t.Run("OrdersResponse", func(t *testing.T) {
		assert.Equal(t, orders, roundTrip(t, orders))
	})
	t.Run("OrderbookResponse", func(t *testing.T) {
		book := OrderbookResponse{Bids: orders, Asks: OrdersResponse{PaginatedCollection[OrderRecord]{Page: 1, PerPage: 20, Records: []OrderRecord{}}}}
		assert.Equal(t, book, roundTrip(t, book))
	})
	t.Run("AssetPairsResponse", func(t *testing.T) {
		pairs := AssetPairsResponse{PaginatedCollection[AssetPair]{Total: 1, Page: 1, PerPage: 20, Records: []AssetPair{{
			AssetDataA: AssetDataTradeInfo{AssetData: MustHexBytes(testZRXAssetData), MinAmount: &minAmount, MaxAmount: &maxAmount, Precision: &precision},
			AssetDataB: AssetDataTradeInfo{AssetData: MustHexBytes(testWETHAssetData)},
		}}}}
		assert.Equal(t, pairs, roundTrip(t, pairs))
	})
	t.Run("OrderConfig", func(t *testing.T) {
		payload := OrderConfigPayload{
			MakerAddress:          "0x5409ed021d9299bf6814279a6a1411a7e866a631",
			TakerAddress:          NullAddress,
			MakerAssetAmount:      "100",
			TakerAssetAmount:      "200",
			MakerAssetData:        MustHexBytes(testZRXAssetData),
			TakerAssetData:        MustHexBytes(testWETHAssetData),
			ExchangeAddress:       "0x48bacb9266a570d521063ef5dd96e61686dbe788",
			ExpirationTimeSeconds: "1553553429",
		}
		assert.Equal(t, payload, roundTrip(t, payload))
		resp := OrderConfigResponse{MakerFee: "0", TakerFee: "1", FeeRecipientAddress: NullAddress, SenderAddress: NullAddress}
		assert.Equal(t, resp, roundTrip(t, resp))
	})
	t.Run("FeeRecipientsResponse", func(t *testing.T) {
		fees := FeeRecipientsResponse{PaginatedCollection[Address]{Total: 1, Page: 1, PerPage: 20, Records: []Address{NullAddress}}}
		assert.Equal(t, fees, roundTrip(t, fees))
	})
	t.Run("ErrorResponse", func(t *testing.T) {
		e := ErrorResponse{Code: 100, Reason: "Validation failed", ValidationErrors: []ValidationError{{Field: "salt", Code: 1000, Reason: "requires property"}}}
		assert.Equal(t, e, roundTrip(t, e))
	})
	t.Run("OrdersChannel", func(t *testing.T) {
		networkID := 50
		sub := OrdersChannelSubscribe{Type: MessageTypeSubscribe, Channel: ChannelOrders, RequestID: "r-1",
			Payload: &OrdersChannelSubscribePayload{NetworkID: &networkID}}
		assert.Equal(t, sub, roundTrip(t, sub))
		upd := OrdersChannelUpdate{Type: MessageTypeUpdate, Channel: ChannelOrders, RequestID: "r-1", Payload: []OrderRecord{record}}
		assert.Equal(t, upd, roundTrip(t, upd))
	})
}

func TestOptionalFieldsOmitted(t *testing.T) {
	info := AssetDataTradeInfo{AssetData: MustHexBytes(testZRXAssetData)}
	data, err := json.Marshal(info)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "assetData")
	assert.NotContains(t, raw, "minAmount")
	assert.NotContains(t, raw, "maxAmount")
	assert.NotContains(t, raw, "precision")

	data, err = json.Marshal(ErrorResponse{Code: 103, Reason: "Throttled"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":103,"reason":"Throttled"}`, string(data))
}

func TestErrorResponseEmptyValidationErrors(t *testing.T) {
	var e ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(`{"code":100,"reason":"Validation failed","validationErrors":[]}`), &e))
	assert.Nil(t, e.ValidationErrors)

	// 空切片编码时被省略，解码回来与缺省一致
	in := ErrorResponse{Code: 100, Reason: "Validation failed", ValidationErrors: []ValidationError{}}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":100,"reason":"Validation failed"}`, string(data))

	var out ErrorResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, ErrorResponse{Code: 100, Reason: "Validation failed"}, out)
}

func TestExplicitNullTreatedAsAbsent(t *testing.T) {
	var info AssetDataTradeInfo
	require.NoError(t, json.Unmarshal([]byte(`{"assetData":"`+testZRXAssetData+`","minAmount":null}`), &info))
	assert.Nil(t, info.MinAmount)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "minAmount")
}

func TestMissingRequiredField(t *testing.T) {
	data, err := json.Marshal(sampleSignedOrder())
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, field := range SignedOrderSchema.Fields {
		t.Run(field.Name, func(t *testing.T) {
			trimmed := make(map[string]any, len(raw))
			for k, v := range raw {
				if k != field.Name {
					trimmed[k] = v
				}
			}
			body, _ := json.Marshal(trimmed)

			var out SignedOrder
			err := json.Unmarshal(body, &out)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
			assert.True(t, de.Missing)
			assert.Equal(t, field.Name, de.Path)
			assert.Contains(t, err.Error(), field.Name)
		})
	}
}

func TestNestedMissingFieldPath(t *testing.T) {
	body := `{"total":1,"page":1,"perPage":20,"records":[{"metaData":{},"order":{"makerAddress":"0x5409ed021d9299bf6814279a6a1411a7e866a631"}}]}`
	var out OrdersResponse
	err := json.Unmarshal([]byte(body), &out)
	var de *DecodeError
	require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
	assert.Equal(t, "records[0].order.takerAddress", de.Path)
	assert.Equal(t, "OrdersResponse", de.Schema)
}

func TestWrongShape(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		target   any
		path     string
		expected string
		actual   string
	}{
		{"records scalar", `{"total":0,"page":1,"perPage":20,"records":5}`, &OrdersResponse{}, "records", "array", "integer"},
		{"amount as number", `{"makerFee":0,"takerFee":"0","feeRecipientAddress":"0x0000000000000000000000000000000000000000","senderAddress":"0x0000000000000000000000000000000000000000"}`, &OrderConfigResponse{}, "makerFee", "string", "integer"},
		{"root not object", `[1,2]`, &ErrorResponse{}, "", "object", "array"},
		{"precision float", `{"assetData":"0x","precision":1.5}`, &AssetDataTradeInfo{}, "precision", "integer", "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := json.Unmarshal([]byte(tt.body), tt.target)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want DecodeError, got %v", err)
			assert.False(t, de.Missing)
			assert.Equal(t, tt.path, de.Path)
			assert.Equal(t, tt.expected, de.Expected)
			assert.Equal(t, tt.actual, de.Actual)
		})
	}
}

func TestFormatViolations(t *testing.T) {
	var cfg OrderConfigResponse
	err := json.Unmarshal([]byte(`{"makerFee":"-1","takerFee":"0","feeRecipientAddress":"0x0000000000000000000000000000000000000000","senderAddress":"0x0000000000000000000000000000000000000000"}`), &cfg)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "makerFee", de.Path)
	assert.Equal(t, FormatNumeric.String(), de.Expected)

	err = json.Unmarshal([]byte(`{"makerFee":"0","takerFee":"0","feeRecipientAddress":"0xnothex","senderAddress":"0x0000000000000000000000000000000000000000"}`), &cfg)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "feeRecipientAddress", de.Path)
}

func TestAddressNormalisedToLowercase(t *testing.T) {
	var resp FeeRecipientsResponse
	body := `{"total":1,"page":1,"perPage":20,"records":["0x5409ED021D9299bf6814279A6A1411A7e866A631"]}`
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, Address("0x5409ed021d9299bf6814279a6a1411a7e866a631"), resp.Records[0])

	addr := NewAddress(common.HexToAddress("0x5409ED021D9299bf6814279A6A1411A7e866A631"))
	assert.Equal(t, resp.Records[0], addr)
}

func TestAmountConversions(t *testing.T) {
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	a := NewAmount(maxUint)

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"`+maxUint.String()+`"`, string(data))

	back, err := a.BigInt()
	require.NoError(t, err)
	assert.Equal(t, 0, back.Cmp(maxUint))

	d, err := AmountFromUint64(1500).Decimal()
	require.NoError(t, err)
	assert.Equal(t, "1500", d.String())

	_, err = ParseAmount("1.5")
	assert.Error(t, err)
}

func TestAnyDecode(t *testing.T) {
	var v Any
	require.NoError(t, json.Unmarshal([]byte(`{"a":[1,"x",true,null],"b":{"c":2.5}}`), &v))
	assert.Equal(t, KindObject, v.Kind)
	a, ok := v.Get("a")
	require.True(t, ok)
	require.Len(t, a.Array, 4)
	assert.Equal(t, KindInteger, a.Array[0].Kind)
	assert.Equal(t, "x", a.Array[1].String)
	assert.True(t, a.Array[2].Bool)
	assert.True(t, a.Array[3].IsNull())

	b, _ := v.Get("b")
	c, _ := b.Get("c")
	assert.Equal(t, KindNumber, c.Kind)

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":[1,"x",true,null],"b":{"c":2.5}}`, string(data))
}

func TestAnyDecodeIntoModel(t *testing.T) {
	var v Any
	require.NoError(t, json.Unmarshal([]byte(`{"code":100,"reason":"Validation failed"}`), &v))
	var e ErrorResponse
	require.NoError(t, v.Decode(ErrorResponseSchema, &e))
	assert.Equal(t, 100, e.Code)
}

func TestSubscribePayloadMatches(t *testing.T) {
	o := sampleSignedOrder()
	zrx := MustHexBytes(testZRXAssetData)
	weth := MustHexBytes(testWETHAssetData)
	proxy := MustHexBytes("0xf47261b0")
	zrxAddr := Address("0x871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c")

	assert.True(t, (*OrdersChannelSubscribePayload)(nil).Matches(&o))
	assert.True(t, (&OrdersChannelSubscribePayload{MakerAssetData: &zrx}).Matches(&o))
	assert.False(t, (&OrdersChannelSubscribePayload{MakerAssetData: &weth}).Matches(&o))
	assert.True(t, (&OrdersChannelSubscribePayload{TraderAssetData: &weth}).Matches(&o))
	assert.True(t, (&OrdersChannelSubscribePayload{MakerAssetProxyID: &proxy}).Matches(&o))
	assert.True(t, (&OrdersChannelSubscribePayload{MakerAssetAddress: &zrxAddr}).Matches(&o))
	assert.False(t, (&OrdersChannelSubscribePayload{TakerAssetAddress: &zrxAddr}).Matches(&o))
}

func TestOrderConfigApply(t *testing.T) {
	payload := OrderConfigPayload{MakerAddress: "0x5409ed021d9299bf6814279a6a1411a7e866a631", TakerAddress: NullAddress,
		MakerAssetAmount: "1", TakerAssetAmount: "2", ExchangeAddress: NullAddress, ExpirationTimeSeconds: "10"}
	cfg := OrderConfigResponse{MakerFee: "5", TakerFee: "6", FeeRecipientAddress: NullAddress, SenderAddress: NullAddress}
	o := cfg.Apply(payload, "42")
	assert.Equal(t, Amount("5"), o.MakerFee)
	assert.Equal(t, Amount("42"), o.Salt)
	assert.Equal(t, payload.MakerAssetAmount, o.MakerAssetAmount)
}
