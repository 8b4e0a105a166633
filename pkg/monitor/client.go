package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics 控制台侧的业务指标
type ClientMetrics struct {
	APIRequestsTotal         *prometheus.CounterVec
	APIRequestDuration       *prometheus.HistogramVec
	StatusPollsTotal         *prometheus.CounterVec
	DistributionsTriggered   *prometheus.CounterVec
	WalletSubmissionsTotal   *prometheus.CounterVec
	MonitoredDistributionsUp prometheus.Gauge
}

// Client is usable before Init; unregistered collectors simply are not exported.
var Client = newClientMetrics()

func newClientMetrics() *ClientMetrics {
	return &ClientMetrics{
		APIRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_console_api_requests_total",
			Help: "Backend requests issued by the console, by endpoint and outcome.",
		}, []string{"endpoint", "method", "status"}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reward_console_api_request_duration_seconds",
			Help:    "Latency of backend requests issued by the console.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		StatusPollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_console_status_polls_total",
			Help: "Distribution status polls, by resulting overall status.",
		}, []string{"overall_status"}),
		DistributionsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_console_distributions_triggered_total",
			Help: "Distribute calls issued, by outcome.",
		}, []string{"outcome"}),
		WalletSubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reward_console_wallet_submissions_total",
			Help: "Wallet address submissions, by outcome.",
		}, []string{"outcome"}),
		MonitoredDistributionsUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reward_console_monitored_distributions",
			Help: "Distributions currently being polled.",
		}),
	}
}

func (m *ClientMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.APIRequestsTotal,
		m.APIRequestDuration,
		m.StatusPollsTotal,
		m.DistributionsTriggered,
		m.WalletSubmissionsTotal,
		m.MonitoredDistributionsUp,
	}
}
