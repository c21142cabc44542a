package relayer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/gosra/sra/client"
	"github.com/betbot/gosra/sra/orderstream"
	"github.com/betbot/gosra/sra/types"
)

const (
	zrxAssetData  = "0xf47261b0000000000000000000000000871dd7c2b4b25e1aa18728e9d5f2af4c4e431f5c"
	wethAssetData = "0xf47261b00000000000000000000000000b1ba0af832d7c05fd64161e0db78e85978e8082"
	makerAddress  = "0x5409ed021d9299bf6814279a6a1411a7e866a631"
	feeRecipient  = "0xb046140686d052fff581f63f8136cce132e857da"
)

type testRelayer struct {
	srv  *Server
	http *httptest.Server
	api  *client.DefaultAPI
}

func newTestRelayer(t *testing.T) *testRelayer {
	t.Helper()
	s, err := New(Config{DBPath: ":memory:", NetworkID: 50, FeeRecipients: []types.Address{feeRecipient}})
	require.NoError(t, err)
	hs := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		hs.Close()
		_ = s.Close()
	})

	cfg := client.NewConfiguration()
	cfg.Host = hs.URL
	c, err := client.NewAPIClient(cfg)
	require.NoError(t, err)
	api, err := client.NewDefaultAPI(c)
	require.NoError(t, err)
	return &testRelayer{srv: s, http: hs, api: api}
}

func newOrder(makerAsset, takerAsset string, makerAmount, takerAmount, salt string) types.SignedOrder {
	return types.Order{
		MakerAddress:          makerAddress,
		TakerAddress:          types.NullAddress,
		MakerFee:              "0",
		TakerFee:              "0",
		SenderAddress:         types.NullAddress,
		MakerAssetAmount:      types.Amount(makerAmount),
		TakerAssetAmount:      types.Amount(takerAmount),
		MakerAssetData:        types.MustHexBytes(makerAsset),
		TakerAssetData:        types.MustHexBytes(takerAsset),
		Salt:                  types.Amount(salt),
		ExchangeAddress:       "0x48bacb9266a570d521063ef5dd96e61686dbe788",
		FeeRecipientAddress:   types.NullAddress,
		ExpirationTimeSeconds: "1553553429",
	}.Sign(types.MustHexBytes("0x1b5b2d6bb9a6a5f2c4e0c9d8b4ee3d6f1e0a9d8c7b6a5f4e3d2c1b0a9988776655040303"))
}

func (r *testRelayer) post(t *testing.T, o types.SignedOrder) string {
	t.Helper()
	require.NoError(t, r.api.PostOrder(context.Background(), &o, &client.PostOrderOpts{NetworkID: client.Ptr(50)}))
	hash, err := orderHash(&o)
	require.NoError(t, err)
	return hash
}

func TestPostThenGetOrder(t *testing.T) {
	r := newTestRelayer(t)
	ctx := context.Background()
	order := newOrder(zrxAssetData, wethAssetData, "10000000000000000", "20000000000000000", "1")

	resp, err := r.api.PostOrderWithHTTPInfo(ctx, &order, &client.PostOrderOpts{NetworkID: client.Ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)

	hash, err := orderHash(&order)
	require.NoError(t, err)

	rec, err := r.api.GetOrder(ctx, hash, &client.GetOrderOpts{NetworkID: client.Ptr(50)})
	require.NoError(t, err)
	assert.Equal(t, types.Amount("10000000000000000"), rec.Order.MakerAssetAmount)
	assert.Equal(t, order, rec.Order)
	got, ok := rec.MetaData.Get("orderHash")
	require.True(t, ok)
	assert.Equal(t, hash, got.String)

	// 重复提交是幂等的
	require.NoError(t, r.api.PostOrder(ctx, &order, nil))
	page, err := r.api.GetOrders(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestGetUnknownOrder(t *testing.T) {
	r := newTestRelayer(t)

	_, err := r.api.GetOrder(context.Background(), "0xdeadbeef", nil)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, client.IsNotFound(err))

	er, err := apiErr.ErrorResponse()
	require.NoError(t, err)
	assert.Contains(t, er.Reason, "0xdeadbeef")
	assert.Equal(t, http.StatusNotFound, er.Code)
	assert.Empty(t, er.ValidationErrors)
}

func TestInternalErrorBody(t *testing.T) {
	r := newTestRelayer(t)
	// 关掉数据库，让查询失败
	require.NoError(t, r.srv.db.Close())

	resp, err := http.Get(r.http.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &er))
	assert.Equal(t, http.StatusInternalServerError, er.Code)
	assert.NotEqual(t, types.ErrorCodeValidationFailed, er.Code)
	assert.Nil(t, er.ValidationErrors)
	assert.NotContains(t, string(data), "validationErrors")
}

func TestPostInvalidOrder(t *testing.T) {
	r := newTestRelayer(t)

	body, err := json.Marshal(newOrder(zrxAssetData, wethAssetData, "1", "1", "1"))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	delete(raw, "signature")
	body, _ = json.Marshal(raw)

	resp, err := http.Post(r.http.URL+"/orders", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &er), string(data))
	assert.Equal(t, types.ErrorCodeValidationFailed, er.Code)
	require.Len(t, er.ValidationErrors, 1)
	assert.Equal(t, "signature", er.ValidationErrors[0].Field)
	assert.Equal(t, types.ValidationCodeRequiredField, er.ValidationErrors[0].Code)

	resp2, err := http.Post(r.http.URL+"/orders", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestNetworkMismatch(t *testing.T) {
	r := newTestRelayer(t)

	_, err := r.api.GetOrders(context.Background(), &client.GetOrdersOpts{NetworkID: client.Ptr(1)})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	er, err := apiErr.ErrorResponse()
	require.NoError(t, err)
	assert.Equal(t, "networkId", er.ValidationErrors[0].Field)
}

func TestGetOrdersFiltersAndPaging(t *testing.T) {
	r := newTestRelayer(t)
	ctx := context.Background()

	for _, salt := range []string{"1", "2", "3"} {
		r.post(t, newOrder(zrxAssetData, wethAssetData, "100", "200", salt))
	}
	r.post(t, newOrder(wethAssetData, zrxAssetData, "100", "200", "4"))

	all, err := r.api.GetOrders(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, types.DefaultPage, all.Page)
	assert.Equal(t, types.DefaultPerPage, all.PerPage)

	zrx, err := r.api.GetOrders(ctx, &client.GetOrdersOpts{MakerAssetData: types.MustHexBytes(zrxAssetData)})
	require.NoError(t, err)
	assert.Equal(t, 3, zrx.Total)

	trader, err := r.api.GetOrders(ctx, &client.GetOrdersOpts{TraderAssetData: types.MustHexBytes(wethAssetData)})
	require.NoError(t, err)
	assert.Equal(t, 4, trader.Total)

	wethAddr := types.Address("0x0b1ba0af832d7c05fd64161e0db78e85978e8082")
	byAddr, err := r.api.GetOrders(ctx, &client.GetOrdersOpts{MakerAssetAddress: &wethAddr})
	require.NoError(t, err)
	assert.Equal(t, 1, byAddr.Total)

	byProxy, err := r.api.GetOrders(ctx, &client.GetOrdersOpts{TakerAssetProxyID: types.MustHexBytes("0xf47261b0")})
	require.NoError(t, err)
	assert.Equal(t, 4, byProxy.Total)

	maker := types.Address(makerAddress)
	paged, err := r.api.GetOrders(ctx, &client.GetOrdersOpts{
		MakerAddress: &maker,
		Pagination:   client.Pagination{Page: client.Ptr(2), PerPage: client.Ptr(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, paged.Total)
	assert.Equal(t, 2, paged.Page)
	require.Len(t, paged.Records, 1)
	assert.Equal(t, types.Amount("4"), paged.Records[0].Order.Salt)

	_, err = r.api.GetOrders(ctx, &client.GetOrdersOpts{Pagination: client.Pagination{PerPage: client.Ptr(MaxPerPage + 1)}})
	assert.Error(t, err)
}

func TestOrderbook(t *testing.T) {
	r := newTestRelayer(t)
	ctx := context.Background()
	base, quote := zrxAssetData, wethAssetData

	// asks: 卖出 base；价格 = quote/base
	r.post(t, newOrder(base, quote, "100", "300", "1")) // 3
	r.post(t, newOrder(base, quote, "100", "200", "2")) // 2
	// bids: 买入 base；价格 = quote/base
	r.post(t, newOrder(quote, base, "100", "100", "3")) // 1
	r.post(t, newOrder(quote, base, "150", "100", "4")) // 1.5

	book, err := r.api.GetOrderbook(ctx, types.MustHexBytes(base), types.MustHexBytes(quote), nil)
	require.NoError(t, err)

	require.Len(t, book.Asks.Records, 2)
	assert.Equal(t, types.Amount("2"), book.Asks.Records[0].Order.Salt)
	assert.Equal(t, types.Amount("1"), book.Asks.Records[1].Order.Salt)

	require.Len(t, book.Bids.Records, 2)
	assert.Equal(t, types.Amount("4"), book.Bids.Records[0].Order.Salt)
	assert.Equal(t, types.Amount("3"), book.Bids.Records[1].Order.Salt)

	resp, err := http.Get(r.http.URL + "/orderbook?baseAssetData=" + base)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAssetPairs(t *testing.T) {
	r := newTestRelayer(t)
	ctx := context.Background()
	r.post(t, newOrder(zrxAssetData, wethAssetData, "1", "1", "1"))
	r.post(t, newOrder(wethAssetData, zrxAssetData, "1", "1", "2"))

	pairs, err := r.api.GetAssetPairs(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, pairs.Total)
	pair := pairs.Records[0]
	require.NotNil(t, pair.AssetDataA.Precision)
	assert.Equal(t, defaultPrecision, *pair.AssetDataA.Precision)
	assert.Equal(t, maxAmount, *pair.AssetDataB.MaxAmount)

	none, err := r.api.GetAssetPairs(ctx, &client.GetAssetPairsOpts{AssetDataA: types.MustHexBytes("0xf47261b0")})
	require.NoError(t, err)
	assert.Equal(t, 0, none.Total)
	assert.Empty(t, none.Records)
}

func TestOrderConfigAndFeeRecipients(t *testing.T) {
	r := newTestRelayer(t)
	ctx := context.Background()
	o := newOrder(zrxAssetData, wethAssetData, "1", "1", "1")

	cfg, err := r.api.GetOrderConfig(ctx, &types.OrderConfigPayload{
		MakerAddress:          o.MakerAddress,
		TakerAddress:          o.TakerAddress,
		MakerAssetAmount:      o.MakerAssetAmount,
		TakerAssetAmount:      o.TakerAssetAmount,
		MakerAssetData:        o.MakerAssetData,
		TakerAssetData:        o.TakerAssetData,
		ExchangeAddress:       o.ExchangeAddress,
		ExpirationTimeSeconds: o.ExpirationTimeSeconds,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, types.Address(feeRecipient), cfg.FeeRecipientAddress)
	assert.Equal(t, types.Amount("0"), cfg.MakerFee)

	fees, err := r.api.GetFeeRecipients(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.Address{feeRecipient}, fees.Records)
}

func TestOrdersChannel(t *testing.T) {
	r := newTestRelayer(t)

	wsURL, err := orderstream.URLFromHost(r.http.URL)
	require.NoError(t, err)
	stream, err := orderstream.Dial(context.Background(), orderstream.DefaultConfig(wsURL))
	require.NoError(t, err)
	defer stream.Close()

	updates := make(chan *types.OrdersChannelUpdate, 4)
	zrx := types.MustHexBytes(zrxAssetData)
	requestID, err := stream.Subscribe(&types.OrdersChannelSubscribePayload{MakerAssetData: &zrx}, func(u *types.OrdersChannelUpdate) {
		updates <- u
	})
	require.NoError(t, err)

	// 等待服务端登记订阅
	require.Eventually(t, func() bool { return r.srv.hub.subscriptions() == 1 }, 5*time.Second, 10*time.Millisecond)

	r.post(t, newOrder(wethAssetData, zrxAssetData, "1", "1", "1")) // 不匹配
	hash := r.post(t, newOrder(zrxAssetData, wethAssetData, "1", "1", "2"))

	select {
	case u := <-updates:
		assert.Equal(t, requestID, u.RequestID)
		require.Len(t, u.Payload, 1)
		got, _ := u.Payload[0].MetaData.Get("orderHash")
		assert.Equal(t, hash, got.String)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到订单推送")
	}
	assert.Empty(t, updates)
}

func TestOrderHashStable(t *testing.T) {
	a := newOrder(zrxAssetData, wethAssetData, "1", "1", "1")
	b := newOrder(zrxAssetData, wethAssetData, "1", "1", "1")
	c := newOrder(zrxAssetData, wethAssetData, "1", "1", "2")

	ha, err := orderHash(&a)
	require.NoError(t, err)
	hb, _ := orderHash(&b)
	hc, _ := orderHash(&c)
	assert.Equal(t, ha, hb)
	assert.NotEqual(t, ha, hc)
	assert.Len(t, ha, 66)
}
