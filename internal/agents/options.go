package agents

import "github.com/fyrsmithlabs/adanalyst/internal/logging"

// Option configures an agent.
type Option func(*options)

type options struct {
	logger *logging.Logger
}

// WithLogger sets the agent's logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func applyOptions(name string, opts []Option) options {
	o := options{logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.Named(name)
	return o
}
