package main

import (
	"net/http"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/gateway"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
)

func setupRouter(gatewayHandler *gateway.Handler, metricsCollector *metrics.Collector, strategy string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", gatewayHandler.ServeHTTP)
	mux.HandleFunc("/metrics", metricsCollector.Handler(strategy))

	return mux
}
