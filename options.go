package zmqclient

import (
	"github.com/9triver/zmqclient/internal/metrics"
	"github.com/9triver/zmqclient/internal/transport"
	"github.com/sirupsen/logrus"
)

type config struct {
	logger       *logrus.Logger
	newTransport func() (transport.Transport, error)
	metrics      *metrics.Collector
}

func defaultConfig() config {
	return config{
		logger:       logrus.StandardLogger(),
		newTransport: func() (transport.Transport, error) { return transport.NewDealer() },
	}
}

// Option configures a Client at construction time.
type Option func(*config)

// WithLogger overrides the logger a Client writes its lifecycle events to.
// Defaults to logrus's standard logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics attaches a metrics collector the Client reports phase
// transitions and frame counters to. Without this option, a Client runs
// with metrics disabled.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// withTransportFactory overrides how the worker constructs its transport.
// Unexported: only tests substitute a fake transport for the real DEALER
// socket.
func withTransportFactory(f func() (transport.Transport, error)) Option {
	return func(c *config) {
		c.newTransport = f
	}
}
