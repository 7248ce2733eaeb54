package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_http_requests_total",
			Help: "Total number of HTTP requests processed by the connect service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connect_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the health server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "connect_ws_connections",
			Help: "Number of open websocket connections on this instance.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_ws_events_total",
			Help: "Websocket lifecycle events: connect, disconnect, join, leave, error.",
		},
		[]string{"event"},
	)
	fanoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_fanout_deliveries_total",
			Help: "Conversation events queued to local clients, by outcome.",
		},
		[]string{"outcome"},
	)
	relayMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_relay_messages_total",
			Help: "Conversation events exchanged with other instances over the relay.",
		},
		[]string{"direction", "result"},
	)
	messagesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_messages_created_total",
			Help: "Total number of messages created, by message type.",
		},
		[]string{"type"},
	)
	messagesDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connect_messages_deleted_total",
			Help: "Total number of message deletions, by scope.",
		},
		[]string{"scope"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "connect_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsConnections,
		wsEventsTotal,
		fanoutTotal,
		relayMessagesTotal,
		messagesCreatedTotal,
		messagesDeletedTotal,
		amqpPublishErrorsTotal,
	)
}

// RegisterRoomGauge exports the number of conversation rooms with at least one
// local member. rooms is sampled on every scrape.
func RegisterRoomGauge(reg prometheus.Registerer, rooms func() int) error {
	return reg.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "connect_ws_rooms",
			Help: "Conversation rooms with at least one connected member on this instance.",
		},
		func() float64 { return float64(rooms()) },
	))
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSConnections() {
	wsConnections.Inc()
}

func DecWSConnections() {
	wsConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

// ObserveFanout counts one delivery attempt; outcome is "queued" or "dropped".
func ObserveFanout(outcome string) {
	fanoutTotal.WithLabelValues(outcome).Inc()
}

// ObserveRelay counts relay traffic; direction is "out" or "in".
func ObserveRelay(direction string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	relayMessagesTotal.WithLabelValues(direction, result).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncMessageCreated(messageType string) {
	messagesCreatedTotal.WithLabelValues(messageType).Inc()
}

// IncMessageDeleted counts deletions; scope is "self" or "everyone".
func IncMessageDeleted(scope string) {
	messagesDeletedTotal.WithLabelValues(scope).Inc()
}
