// Package metrics exposes authentication counters to prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/domain/service"
)

// Collector records authentication outcomes.
type Collector struct {
	logins        *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	registrations prometheus.Counter
	legacyHashes  prometheus.Counter
}

var _ service.AuthMetrics = (*Collector)(nil)

// NewRegistry creates the registry served on the metrics endpoint, preloaded with the
// process and go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg
}

// NewCollector creates the collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_auth_login_total",
			Help: "Login attempts by method and outcome",
		}, []string{"method", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "campus_auth_refresh_total",
			Help: "Refresh token rotations by result",
		}, []string{"success"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_auth_registrations_total",
			Help: "Local account registrations",
		}),
		legacyHashes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "campus_auth_legacy_hash_verified_total",
			Help: "Successful password checks against a legacy hash",
		}),
	}

	reg.MustRegister(c.logins, c.refreshes, c.registrations, c.legacyHashes)

	return c
}

// ObserveLogin counts one login attempt.
func (c *Collector) ObserveLogin(method, outcome string) {
	c.logins.WithLabelValues(method, outcome).Inc()
}

// ObserveRefresh counts one refresh attempt.
func (c *Collector) ObserveRefresh(success bool) {
	c.refreshes.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// ObserveRegistration counts one registration.
func (c *Collector) ObserveRegistration() {
	c.registrations.Inc()
}

// ObserveLegacyHashVerified counts a login that still relies on a legacy hash.
func (c *Collector) ObserveLegacyHashVerified() {
	c.legacyHashes.Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
