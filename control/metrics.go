// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for socket, poller and reactor activity.
// All methods are safe on a nil *Metrics, which records nothing.

package control

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-mq/api"
)

// Metrics groups the collectors shared by one process.
type Metrics struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	sendErrors     *prometheus.CounterVec
	recvTimeouts   *prometheus.CounterVec
	pollWait       prometheus.Histogram
	reactorTasks   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &Metrics{
		framesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Frames handed to the transport.",
		}, []string{"socket"}),
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Frames received from the transport.",
		}, []string{"socket"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Native send failures.",
		}, []string{"socket"}),
		recvTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recv_timeouts_total",
			Help:      "Bounded receives that elapsed without a message.",
		}, []string{"socket"}),
		pollWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_wait_seconds",
			Help:      "Time spent in the native multiplexed wait.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		reactorTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactor_tasks_total",
			Help:      "Reactor closures and callbacks executed, by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{
		m.framesSent, m.framesReceived, m.sendErrors, m.recvTimeouts, m.pollWait, m.reactorTasks,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// FrameSent counts one frame sent on a socket of the given kind.
func (m *Metrics) FrameSent(kind api.SocketType) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(kind.String()).Inc()
}

// FramesReceived counts n received frames.
func (m *Metrics) FramesReceived(kind api.SocketType, n int) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind.String()).Add(float64(n))
}

// SendFailed counts a native send failure.
func (m *Metrics) SendFailed(kind api.SocketType) {
	if m == nil {
		return
	}
	m.sendErrors.WithLabelValues(kind.String()).Inc()
}

// RecvTimedOut counts a bounded receive that elapsed.
func (m *Metrics) RecvTimedOut(kind api.SocketType) {
	if m == nil {
		return
	}
	m.recvTimeouts.WithLabelValues(kind.String()).Inc()
}

// ObservePoll records one native wait.
func (m *Metrics) ObservePoll(d time.Duration) {
	if m == nil {
		return
	}
	m.pollWait.Observe(d.Seconds())
}

// ReactorTask counts a reactor closure or callback by outcome.
func (m *Metrics) ReactorTask(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.reactorTasks.WithLabelValues(result).Inc()
}
