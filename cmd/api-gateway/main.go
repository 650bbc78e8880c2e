package main

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shopgrid/internal/pkg/bootstrap"
	"shopgrid/internal/pkg/logger"
	"shopgrid/internal/pkg/registry"
)

// The gateway fronts the services under /api, resolving the target through
// the registry per request. Authentication happens upstream of this gateway;
// the X-User-Id / X-User-Name headers it forwards are trusted by the
// services behind it.
func main() {
	bootstrap.Run(bootstrap.Options{
		ServiceName: "api-gateway",
		Setup: func(app *bootstrap.App) (func(), error) {
			tracer := otel.Tracer("api-gateway")

			app.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			app.Mux.Handle("/metrics", promhttp.Handler())
			app.Mux.Handle("/api/orders", proxyTo(app.Registry, "order-service", tracer))
			app.Mux.Handle("/api/orders/", proxyTo(app.Registry, "order-service", tracer))
			app.Mux.Handle("/api/products", proxyTo(app.Registry, "inventory-service", tracer))
			app.Mux.Handle("/api/products/", proxyTo(app.Registry, "inventory-service", tracer))
			return nil, nil
		},
	})
}

// proxyTo builds a reverse proxy that resolves service through the registry
// on every request and strips the /api prefix before forwarding.
func proxyTo(reg registry.Registry, service string, tracer trace.Tracer) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			target := pr.In.Context().Value(targetKey{}).(*url.URL)
			pr.SetURL(target)
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, "/api")
			pr.SetXForwarded()
			otel.GetTextMapPropagator().Inject(pr.Out.Context(), propagation.HeaderCarrier(pr.Out.Header))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Ctx(r.Context()).Error().Err(err).
				Str("service", service).
				Str("path", r.URL.Path).
				Msg("proxy request failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream service unavailable"}`))
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "gateway."+service, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		addr, err := reg.Resolve(ctx, service)
		if err != nil {
			span.RecordError(err)
			logger.Ctx(ctx).Error().Err(err).Str("service", service).Msg("resolve service")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"no instance available"}`))
			return
		}

		target := &url.URL{Scheme: "http", Host: addr}
		r = r.WithContext(context.WithValue(ctx, targetKey{}, target))
		proxy.ServeHTTP(w, r)
	})
}

type targetKey struct{}
