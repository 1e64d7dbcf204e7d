package tests

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"

	"github.com/elazarl/goproxy"

	"github.com/iTrooz/ardemo/internal/cache"
	"github.com/iTrooz/ardemo/internal/config"
	"github.com/iTrooz/ardemo/internal/content"
	"github.com/iTrooz/ardemo/internal/content/contenttest"
	"github.com/iTrooz/ardemo/internal/deeplink"
	"github.com/iTrooz/ardemo/internal/demo"
	"github.com/iTrooz/ardemo/internal/rules"
	"github.com/iTrooz/ardemo/internal/server"
	"github.com/iTrooz/ardemo/internal/urlcache"
)

const channelToken = "123"

// fixture_upstream creates a delivery API serving one mug
func fixture_upstream() *contenttest.Server {
	upstream := contenttest.New(channelToken)
	upstream.AddItem(map[string]any{
		"id":   "CORE456",
		"name": "Coffee Mug",
		"type": "Mug",
		"fields": map[string]any{
			"price": 15,
			"model": map[string]any{
				"id": "MODEL1",
				"fields": map[string]any{
					"primarymeshname": "Mug",
					"imagemeshnames":  []string{"Decal"},
					"textmeshnames":   []string{"Text"},
					"usdz":            map[string]any{"id": "USDZ1"},
				},
			},
		},
	})
	upstream.SetNative("USDZ1", "mug.usdz", "usdz-bytes", `"u1"`)
	upstream.SetNative("CONT789", "decal.png", "png-bytes", `"d1"`)
	return upstream
}

// countingProxy is an HTTP forward proxy that counts the requests it relays
type countingProxy struct {
	*httptest.Server
	requests atomic.Int32
}

// fixture_proxy creates a goproxy forward proxy
func fixture_proxy() *countingProxy {
	p := &countingProxy{}
	proxy := goproxy.NewProxyHttpServer()
	proxy.OnRequest().DoFunc(func(r *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		p.requests.Add(1)
		return r, nil
	})
	p.Server = httptest.NewServer(proxy)
	return p
}

// fixture_config creates a test config with optional rules and proxy
func fixture_config(tempDir string, rulesCfg *config.RulesConfig, proxyURL string) *config.Config {
	cfg := config.Default()
	cfg.Server.Port = 0 // Will be set by test server
	cfg.Cache.Folder = tempDir
	cfg.Content.ProxyURL = proxyURL

	if rulesCfg != nil {
		cfg.Rules = *rulesCfg
	}

	return &cfg
}

// fixture_server wires the launcher like main does and serves it over httptest
func fixture_server(cfg *config.Config) (*httptest.Server, *cache.FileCache, error) {
	fc, err := cache.NewFile(cfg.Cache.Folder)
	if err != nil {
		return nil, nil, err
	}

	timeout, err := cfg.GetContentTimeout()
	if err != nil {
		return nil, nil, err
	}
	client, err := content.New(fc, content.Options{
		Timeout:     timeout,
		ProxyURL:    cfg.Content.ProxyURL,
		DownloadDir: filepath.Join(cfg.Cache.Folder, "downloads"),
	})
	if err != nil {
		return nil, nil, err
	}

	recent := urlcache.OpenLists(cfg.Cache.Folder, string(deeplink.DemoMug), string(deeplink.DemoPanorama))
	router := demo.NewRouter(client, recent, rules.NewPolicy(cfg.Rules))

	return httptest.NewServer(server.New(cfg, router, fc, nil).Handler()), fc, nil
}
