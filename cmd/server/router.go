package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ownage/approvedeny-go/internal/checks"
	"github.com/ownage/approvedeny-go/internal/metrics"
	"github.com/ownage/approvedeny-go/internal/middleware"
	"github.com/ownage/approvedeny-go/internal/webhooks"
)

type routerDeps struct {
	logger          *slog.Logger
	encryptionKey   string
	signatureHeader string
	webhooks        *webhooks.Handler
	checks          *checks.Handler
	metrics         *metrics.Metrics
	gatherer        prometheus.Gatherer
}

func newRouter(d routerDeps) http.Handler {
	router := chi.NewRouter()

	router.Route("/webhooks", func(r chi.Router) {
		r.With(middleware.VerifySignature(d.logger, d.encryptionKey, d.signatureHeader, d.metrics)).
			Post("/", d.webhooks.HandleWebhook)
		r.Get("/responses/{requestID}", d.webhooks.HandleStoredResponse)
	})

	d.checks.Routes(router)

	router.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	return router
}
