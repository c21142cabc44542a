package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/betbot/gosra/pkg/config"
	"github.com/betbot/gosra/pkg/logger"
	"github.com/betbot/gosra/sra/client"
	"github.com/betbot/gosra/sra/orderstream"
	"github.com/betbot/gosra/sra/types"
)

const usage = `用法: sra-cli [全局参数] <命令> [参数]

命令:
  get-order       按 hash 查询订单
  get-orders      按条件分页查询订单
  asset-pairs     查询交易对
  orderbook       查询某个交易对的订单簿
  order-config    查询下单所需的费用配置（JSON 文件或 - 表示 stdin）
  fee-recipients  查询手续费接收地址
  post-order      提交签名订单（JSON 文件或 - 表示 stdin）
  watch-orders    订阅 orders 频道，逐行打印推送

全局参数:
`

type app struct {
	cfg *config.Config
	api *client.DefaultAPI
	out io.Writer
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"get-order":      runGetOrder,
	"get-orders":     runGetOrders,
	"asset-pairs":    runAssetPairs,
	"orderbook":      runOrderbook,
	"order-config":   runOrderConfig,
	"fee-recipients": runFeeRecipients,
	"post-order":     runPostOrder,
	"watch-orders":   runWatchOrders,
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}

	global := flag.NewFlagSet("sra-cli", flag.ExitOnError)
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}
	configPath := global.String("config", os.Getenv("SRA_CONFIG"), "YAML 配置文件路径")
	host := global.String("host", "", "relayer 根地址（覆盖配置）")
	networkID := global.Int("network-id", 0, "networkId（覆盖配置）")
	_ = global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}
	run, ok := commands[global.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "未知命令: %s\n\n", global.Arg(0))
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *host != "" {
		cfg.Client.Host = *host
	}
	if *networkID > 0 {
		id := *networkID
		cfg.Client.NetworkID = &id
	}

	// 日志走 stderr，stdout 只输出 JSON
	logCfg := cfg.Log
	logCfg.Console = os.Stderr
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	code := execute(cfg, run, global.Args()[1:])
	// os.Exit 不会执行 defer
	_ = logger.Close()
	os.Exit(code)
}

// execute 运行子命令，返回进程退出码
func execute(cfg *config.Config, run command, args []string) int {
	apiCfg, err := cfg.Client.APIConfiguration(logger.Component("sra-client"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "客户端配置错误: %v\n", err)
		return 1
	}
	apiClient, err := client.NewAPIClient(apiCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建客户端失败: %v\n", err)
		return 1
	}
	api, err := client.NewDefaultAPI(apiClient)
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建客户端失败: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, api: api, out: os.Stdout}
	if err := run(ctx, a, args); err != nil {
		reportError(err)
		return 1
	}
	return 0
}

// reportError 非 2xx 时打印 relayer 返回的错误结构
func reportError(err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "%s: http %d\n", apiErr.Operation, apiErr.StatusCode)
		if body, perr := apiErr.ErrorResponse(); perr == nil {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(body)
			return
		}
		fmt.Fprintln(os.Stderr, string(apiErr.Body))
		return
	}
	fmt.Fprintf(os.Stderr, "错误: %v\n", err)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) networkID() *int {
	return a.cfg.Client.NetworkID
}

// pageFlags 给子命令加上 -page / -per-page
func pageFlags(fs *flag.FlagSet) func() client.Pagination {
	page := fs.Int("page", 0, "页码（从 1 开始，0 表示默认）")
	perPage := fs.Int("per-page", 0, "每页条数（0 表示默认）")
	return func() client.Pagination {
		return client.Pagination{Page: optInt(*page), PerPage: optInt(*perPage)}
	}
}

func optInt(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}

func optHex(name, v string) (types.HexBytes, error) {
	if v == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return b, nil
}

func optAddress(name, v string) (*types.Address, error) {
	if v == "" {
		return nil, nil
	}
	addr, err := types.ParseAddress(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &addr, nil
}

// readInput 读取文件内容，"-" 表示 stdin
func readInput(path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("缺少输入文件（使用 - 表示 stdin）")
	}
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runGetOrder(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("get-order", flag.ExitOnError)
	_ = fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("用法: get-order <orderHash>")
	}
	rec, err := a.api.GetOrder(ctx, fs.Arg(0), &client.GetOrderOpts{NetworkID: a.networkID()})
	if err != nil {
		return err
	}
	return a.print(rec)
}

func runGetOrders(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("get-orders", flag.ExitOnError)
	hexFlags := map[string]*string{}
	for _, name := range []string{"maker-asset-proxy-id", "taker-asset-proxy-id", "maker-asset-data", "taker-asset-data", "trader-asset-data"} {
		hexFlags[name] = fs.String(name, "", "hex")
	}
	addrFlags := map[string]*string{}
	for _, name := range []string{"maker-asset-address", "taker-asset-address", "exchange-address", "sender-address", "maker-address", "taker-address", "trader-address", "fee-recipient-address"} {
		addrFlags[name] = fs.String(name, "", "address")
	}
	paging := pageFlags(fs)
	_ = fs.Parse(args)

	opts := &client.GetOrdersOpts{NetworkID: a.networkID(), Pagination: paging()}
	hexDst := map[string]*types.HexBytes{
		"maker-asset-proxy-id": &opts.MakerAssetProxyID,
		"taker-asset-proxy-id": &opts.TakerAssetProxyID,
		"maker-asset-data":     &opts.MakerAssetData,
		"taker-asset-data":     &opts.TakerAssetData,
		"trader-asset-data":    &opts.TraderAssetData,
	}
	for name, dst := range hexDst {
		v, err := optHex(name, *hexFlags[name])
		if err != nil {
			return err
		}
		*dst = v
	}
	addrDst := map[string]**types.Address{
		"maker-asset-address":   &opts.MakerAssetAddress,
		"taker-asset-address":   &opts.TakerAssetAddress,
		"exchange-address":      &opts.ExchangeAddress,
		"sender-address":        &opts.SenderAddress,
		"maker-address":         &opts.MakerAddress,
		"taker-address":         &opts.TakerAddress,
		"trader-address":        &opts.TraderAddress,
		"fee-recipient-address": &opts.FeeRecipientAddress,
	}
	for name, dst := range addrDst {
		v, err := optAddress(name, *addrFlags[name])
		if err != nil {
			return err
		}
		*dst = v
	}

	resp, err := a.api.GetOrders(ctx, opts)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runAssetPairs(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("asset-pairs", flag.ExitOnError)
	dataA := fs.String("asset-data-a", "", "hex")
	dataB := fs.String("asset-data-b", "", "hex")
	paging := pageFlags(fs)
	_ = fs.Parse(args)

	opts := &client.GetAssetPairsOpts{NetworkID: a.networkID(), Pagination: paging()}
	var err error
	if opts.AssetDataA, err = optHex("asset-data-a", *dataA); err != nil {
		return err
	}
	if opts.AssetDataB, err = optHex("asset-data-b", *dataB); err != nil {
		return err
	}
	resp, err := a.api.GetAssetPairs(ctx, opts)
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runOrderbook(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("orderbook", flag.ExitOnError)
	base := fs.String("base", "", "base asset data（必填）")
	quote := fs.String("quote", "", "quote asset data（必填）")
	paging := pageFlags(fs)
	_ = fs.Parse(args)

	baseData, err := optHex("base", *base)
	if err != nil {
		return err
	}
	quoteData, err := optHex("quote", *quote)
	if err != nil {
		return err
	}
	resp, err := a.api.GetOrderbook(ctx, baseData, quoteData, &client.GetOrderbookOpts{NetworkID: a.networkID(), Pagination: paging()})
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runOrderConfig(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("order-config", flag.ExitOnError)
	_ = fs.Parse(args)
	data, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	var payload types.OrderConfigPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("解析 order config payload 失败: %w", err)
	}
	resp, err := a.api.GetOrderConfig(ctx, &payload, &client.GetOrderConfigOpts{NetworkID: a.networkID()})
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runFeeRecipients(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("fee-recipients", flag.ExitOnError)
	paging := pageFlags(fs)
	_ = fs.Parse(args)
	resp, err := a.api.GetFeeRecipients(ctx, &client.GetFeeRecipientsOpts{NetworkID: a.networkID(), Pagination: paging()})
	if err != nil {
		return err
	}
	return a.print(resp)
}

func runPostOrder(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("post-order", flag.ExitOnError)
	_ = fs.Parse(args)
	data, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}
	var order types.SignedOrder
	if err := json.Unmarshal(data, &order); err != nil {
		return fmt.Errorf("解析签名订单失败: %w", err)
	}
	if err := a.api.PostOrder(ctx, &order, &client.PostOrderOpts{NetworkID: a.networkID()}); err != nil {
		return err
	}
	logger.Info("订单已提交")
	return nil
}

func runWatchOrders(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("watch-orders", flag.ExitOnError)
	makerAssetData := fs.String("maker-asset-data", "", "hex")
	takerAssetData := fs.String("taker-asset-data", "", "hex")
	traderAssetData := fs.String("trader-asset-data", "", "hex")
	makerAssetAddress := fs.String("maker-asset-address", "", "address")
	takerAssetAddress := fs.String("taker-asset-address", "", "address")
	_ = fs.Parse(args)

	payload := &types.OrdersChannelSubscribePayload{NetworkID: a.networkID()}
	for _, f := range []struct {
		name string
		val  string
		dst  **types.HexBytes
	}{
		{"maker-asset-data", *makerAssetData, &payload.MakerAssetData},
		{"taker-asset-data", *takerAssetData, &payload.TakerAssetData},
		{"trader-asset-data", *traderAssetData, &payload.TraderAssetData},
	} {
		b, err := optHex(f.name, f.val)
		if err != nil {
			return err
		}
		if b != nil {
			*f.dst = &b
		}
	}
	var err error
	if payload.MakerAssetAddress, err = optAddress("maker-asset-address", *makerAssetAddress); err != nil {
		return err
	}
	if payload.TakerAssetAddress, err = optAddress("taker-asset-address", *takerAssetAddress); err != nil {
		return err
	}

	wsURL, err := orderstream.URLFromHost(a.cfg.Client.Host)
	if err != nil {
		return err
	}
	wsCfg := orderstream.DefaultConfig(wsURL)
	wsCfg.ProxyURL = a.cfg.Client.Proxy
	wsCfg.Logger = logger.Component("orderstream")

	stream, err := orderstream.Dial(ctx, wsCfg)
	if err != nil {
		return err
	}
	defer stream.Close()

	enc := json.NewEncoder(a.out)
	requestID, err := stream.Subscribe(payload, func(update *types.OrdersChannelUpdate) {
		for _, rec := range update.Payload {
			_ = enc.Encode(rec)
		}
	})
	if err != nil {
		return err
	}
	logger.Infof("已订阅 orders 频道 %s (requestId=%s)", wsURL, requestID)

	select {
	case <-ctx.Done():
		return nil
	case <-stream.Done():
		return stream.Err()
	}
}
