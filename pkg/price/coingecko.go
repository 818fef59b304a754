// 文件: pkg/price/coingecko.go
// CoinGecko simple/price 行情源
//
// GET {base}/simple/price?ids=bitcoin,ethereum&vs_currencies=usd
// 响应: {"bitcoin":{"usd":64000.5},"ethereum":{"usd":3100.2}}

package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

const (
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"
	vsCurrency          = "usd"
)

// CoinGeckoConfig 行情源配置
type CoinGeckoConfig struct {
	BaseURL   string
	Timeout   time.Duration
	PaceDelay time.Duration // 请求前等待, 公共接口限频
}

// DefaultCoinGeckoConfig 默认配置
func DefaultCoinGeckoConfig() CoinGeckoConfig {
	return CoinGeckoConfig{
		BaseURL:   DefaultCoinGeckoURL,
		Timeout:   10 * time.Second,
		PaceDelay: 3 * time.Second,
	}
}

// CoinGeckoFeed 实现 Feed
type CoinGeckoFeed struct {
	cfg    CoinGeckoConfig
	client *http.Client
	log    *zap.Logger
}

var _ Feed = (*CoinGeckoFeed)(nil)

// NewCoinGeckoFeed 创建行情源
func NewCoinGeckoFeed(cfg CoinGeckoConfig, log *zap.Logger) *CoinGeckoFeed {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCoinGeckoURL
	}
	log = logger.OrNop(log)
	return &CoinGeckoFeed{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.Named("coingecko"),
	}
}

// Prices 批量查询
func (f *CoinGeckoFeed) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	if f.cfg.PaceDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.cfg.PaceDelay):
		}
	}

	ids := append([]string(nil), symbols...)
	sort.Strings(ids)

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", vsCurrency)
	endpoint := strings.TrimRight(f.cfg.BaseURL, "/") + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request simple/price")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("simple/price: status %d", resp.StatusCode)
	}

	var payload map[string]map[string]float64
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decode simple/price")
	}

	out := make(map[string]float64, len(payload))
	for id, quotes := range payload {
		if p, ok := quotes[vsCurrency]; ok {
			out[id] = p
		}
	}

	f.log.Debug("prices fetched",
		zap.Int("requested", len(ids)),
		zap.Int("resolved", len(out)))
	return out, nil
}
