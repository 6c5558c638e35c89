package service

import (
	"net/http"
	"net/url"
	"os"

	"portfolio_monitor/pkg/logger"
)

// proxyFromEnv: сначала all_proxy (обычно socks5, для WS надёжнее), потом https_proxy.
func proxyFromEnv() func(*http.Request) (*url.URL, error) {
	raw := firstEnv("all_proxy", "ALL_PROXY", "https_proxy", "HTTPS_PROXY")
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		logger.Warn("[WS] bad proxy url %q, connecting directly", raw)
		return nil
	}
	return http.ProxyURL(u)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
