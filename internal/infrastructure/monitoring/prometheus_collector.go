package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"communityhub/internal/core/domain"
	"communityhub/internal/core/ports"
)

type PrometheusCollector struct {
	// HTTP
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	// Security
	securityRPM        prometheus.Gauge
	securityErrorRatio prometheus.Gauge
	securityLevel      prometheus.Gauge
	disasterMode       prometheus.Gauge
	backupTriggers     *prometheus.CounterVec

	// Chat
	chatMessages   *prometheus.CounterVec
	chatRejections *prometheus.CounterVec
	chatViewers    prometheus.Gauge
}

var _ ports.Metrics = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers every series on reg
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "communityhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		securityRPM: factory.NewGauge(prometheus.GaugeOpts{
			Name: "communityhub_security_rpm",
			Help: "Requests per minute at the last security evaluation",
		}),

		securityErrorRatio: factory.NewGauge(prometheus.GaugeOpts{
			Name: "communityhub_security_error_ratio",
			Help: "Share of 5xx responses at the last security evaluation",
		}),

		securityLevel: factory.NewGauge(prometheus.GaugeOpts{
			Name: "communityhub_security_level",
			Help: "Security status level (0 OK, 1 WARNING, 2 CRITICAL)",
		}),

		disasterMode: factory.NewGauge(prometheus.GaugeOpts{
			Name: "communityhub_disaster_mode",
			Help: "1 while disaster mode is active",
		}),

		backupTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_backup_triggers_total",
			Help: "Backup trigger attempts by mode and result",
		}, []string{"mode", "result"}),

		chatMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_chat_messages_total",
			Help: "Accepted chat messages by type",
		}, []string{"type"}),

		chatRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "communityhub_chat_rejections_total",
			Help: "Rejected chat sends by reason",
		}, []string{"reason"}),

		chatViewers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "communityhub_chat_viewers",
			Help: "Connected chat viewers",
		}),
	}
}

func (pc *PrometheusCollector) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	pc.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	pc.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (pc *PrometheusCollector) ObserveSnapshot(s domain.SecuritySnapshot) {
	pc.securityRPM.Set(float64(s.RPM))
	pc.securityErrorRatio.Set(s.ErrorRatio)
	pc.securityLevel.Set(float64(s.StatusLevel.Rank()))
	if s.DisasterMode {
		pc.disasterMode.Set(1)
	} else {
		pc.disasterMode.Set(0)
	}
}

func (pc *PrometheusCollector) ObserveTrigger(mode domain.TriggerMode, result string) {
	pc.backupTriggers.WithLabelValues(string(mode), result).Inc()
}

func (pc *PrometheusCollector) ObserveChatMessage(t domain.MessageType) {
	pc.chatMessages.WithLabelValues(string(t)).Inc()
}

func (pc *PrometheusCollector) ObserveChatRejection(reason string) {
	pc.chatRejections.WithLabelValues(reason).Inc()
}

func (pc *PrometheusCollector) SetChatViewers(n int) {
	pc.chatViewers.Set(float64(n))
}
