package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gosra/sra/types"
)

func newTestAPI(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*DefaultAPI, *[]recorded) {
	t.Helper()
	c, seen := newTestServer(t, handler)
	api, err := NewDefaultAPI(c)
	require.NoError(t, err)
	return api, seen
}

func recordJSON(t *testing.T) string {
	t.Helper()
	data, err := json.Marshal(types.OrderRecord{Order: testSignedOrder(), MetaData: types.EmptyObject()})
	require.NoError(t, err)
	return string(data)
}

func TestGetOrder(t *testing.T) {
	body := recordJSON(t)
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	})

	rec, err := api.GetOrder(context.Background(), "0xabc", &GetOrderOpts{NetworkID: Ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, testSignedOrder(), rec.Order)

	got := (*seen)[0]
	assert.Equal(t, "/orders/0xabc", got.Path)
	assert.Equal(t, []string{"50"}, got.Query["networkId"])
}

func TestGetOrderMissingHash(t *testing.T) {
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})

	_, err := api.GetOrder(context.Background(), "", nil)
	assert.True(t, errors.Is(err, ErrMissingParameter))
	assert.Empty(t, *seen)
}

func TestGetOrdersFilters(t *testing.T) {
	page := `{"total":1,"page":2,"perPage":10,"records":[` + recordJSON(t) + `]}`
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, page)
	})

	maker := types.Address("0x5409ed021d9299bf6814279a6a1411a7e866a631")
	resp, err := api.GetOrders(context.Background(), &GetOrdersOpts{
		MakerAddress:      &maker,
		MakerAssetData:    types.MustHexBytes(testZRXAssetData),
		MakerAssetProxyID: types.MustHexBytes("0xf47261b0"),
		NetworkID:         Ptr(50),
		Pagination:        Pagination{Page: Ptr(2), PerPage: Ptr(10)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Records, 1)

	got := (*seen)[0]
	assert.Equal(t, "/orders", got.Path)
	assert.Equal(t, map[string][]string{
		"makerAddress":      {string(maker)},
		"makerAssetData":    {testZRXAssetData},
		"makerAssetProxyId": {"0xf47261b0"},
		"networkId":         {"50"},
		"page":              {"2"},
		"perPage":           {"10"},
	}, got.Query)

	// 不带任何过滤条件时不输出查询参数
	_, err = api.GetOrders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, (*seen)[1].Query)
}

func TestGetAssetPairs(t *testing.T) {
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"total":1,"page":1,"perPage":20,"records":[
			{"assetDataA":{"assetData":"`+testZRXAssetData+`","minAmount":"0","maxAmount":"1000","precision":5},
			 "assetDataB":{"assetData":"`+testWETHAssetData+`"}}]}`)
	})

	resp, err := api.GetAssetPairs(context.Background(), &GetAssetPairsOpts{AssetDataA: types.MustHexBytes(testZRXAssetData)})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	pair := resp.Records[0]
	require.NotNil(t, pair.AssetDataA.Precision)
	assert.Equal(t, 5, *pair.AssetDataA.Precision)
	assert.Nil(t, pair.AssetDataB.MinAmount)
	assert.Equal(t, []string{testZRXAssetData}, (*seen)[0].Query["assetDataA"])
}

func TestGetOrderbook(t *testing.T) {
	empty := `{"total":0,"page":1,"perPage":20,"records":[]}`
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"bids":`+empty+`,"asks":`+empty+`}`)
	})

	base, quote := types.MustHexBytes(testZRXAssetData), types.MustHexBytes(testWETHAssetData)
	book, err := api.GetOrderbook(context.Background(), base, quote, nil)
	require.NoError(t, err)
	assert.Empty(t, book.Bids.Records)
	assert.Equal(t, []string{testZRXAssetData}, (*seen)[0].Query["baseAssetData"])
	assert.Equal(t, []string{testWETHAssetData}, (*seen)[0].Query["quoteAssetData"])

	_, err = api.GetOrderbook(context.Background(), nil, quote, nil)
	assert.True(t, errors.Is(err, ErrMissingParameter))
	assert.Len(t, *seen, 1)
}

func TestGetOrderConfig(t *testing.T) {
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"makerFee":"0","takerFee":"1000","feeRecipientAddress":"0xb046140686d052fff581f63f8136cce132e857da","senderAddress":"0x0000000000000000000000000000000000000000"}`)
	})

	order := testSignedOrder()
	payload := &types.OrderConfigPayload{
		MakerAddress:          order.MakerAddress,
		TakerAddress:          order.TakerAddress,
		MakerAssetAmount:      order.MakerAssetAmount,
		TakerAssetAmount:      order.TakerAssetAmount,
		MakerAssetData:        order.MakerAssetData,
		TakerAssetData:        order.TakerAssetData,
		ExchangeAddress:       order.ExchangeAddress,
		ExpirationTimeSeconds: order.ExpirationTimeSeconds,
	}
	cfg, err := api.GetOrderConfig(context.Background(), payload, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Amount("1000"), cfg.TakerFee)
	assert.Equal(t, types.NullAddress, cfg.SenderAddress)

	got := (*seen)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/order_config", got.Path)
	var sent types.OrderConfigPayload
	require.NoError(t, json.Unmarshal(got.Body, &sent))
	assert.Equal(t, *payload, sent)

	_, err = api.GetOrderConfig(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrMissingParameter))
}

func TestGetFeeRecipients(t *testing.T) {
	api, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"total":1,"page":1,"perPage":20,"records":["0xB046140686d052fff581f63f8136cce132e857da"]}`)
	})

	resp, err := api.GetFeeRecipients(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{"0xb046140686d052fff581f63f8136cce132e857da"}, resp.Records)
}

func TestPostOrder(t *testing.T) {
	api, seen := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	order := testSignedOrder()
	resp, err := api.PostOrderWithHTTPInfo(context.Background(), &order, &PostOrderOpts{NetworkID: Ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	got := (*seen)[0]
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/orders", got.Path)
	assert.Equal(t, []string{"50"}, got.Query["networkId"])
	var sent types.SignedOrder
	require.NoError(t, json.Unmarshal(got.Body, &sent))
	assert.Equal(t, order, sent)

	assert.True(t, errors.Is(api.PostOrder(context.Background(), nil, nil), ErrMissingParameter))
}

func TestPostOrderRejected(t *testing.T) {
	api, _ := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"code":100,"reason":"Validation failed","validationErrors":[{"field":"signature","code":1005,"reason":"Invalid signature"}]}`)
	})

	order := testSignedOrder()
	err := api.PostOrder(context.Background(), &order, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	er, err := apiErr.ErrorResponse()
	require.NoError(t, err)
	require.Len(t, er.ValidationErrors, 1)
	assert.Equal(t, types.ValidationCodeInvalidSignature, er.ValidationErrors[0].Code)
}
