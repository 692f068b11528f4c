package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/AutoCareLink/AutoCareLink/internal/common/middleware"
)

// 边缘入口：把 /api 流量转发到 workshop-service，并在转发前套
// 令牌桶限流 + 熔断。后端多实例时可换成 Consul 健康实例轮询
// （discovery.HealthyAddresses），单实例部署直接指定 upstream 即可。

var (
	listenAddr   = flag.String("listen", ":8080", "HTTP listen address")
	upstreamAddr = flag.String("upstream", "http://127.0.0.1:8081", "workshop-service base URL")
	rateCapacity = flag.Int64("rate-capacity", 200, "令牌桶容量")
	rateRefill   = flag.Int64("rate-refill", 100, "每秒补充令牌数")
)

func main() {
	flag.Parse()

	upstream, err := url.Parse(*upstreamAddr)
	if err != nil {
		panic(fmt.Sprintf("invalid upstream %q: %v", *upstreamAddr, err))
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	breaker := middleware.NewCircuitBreaker("workshop-service", 5, 30*time.Second)

	proxied := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := breaker.Call(r.Context(), func() error {
			proxy.ServeHTTP(w, r)
			return nil
		})
		if err != nil {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		}
	}))
	proxied = middleware.RateLimitHandler(
		middleware.NewTokenBucket(*rateCapacity, *rateRefill), proxied)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/api/", proxied)

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Printf("api-gateway listening on %s -> %s\n", *listenAddr, upstream)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}
