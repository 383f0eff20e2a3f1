package busters

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

func (c LogConfig) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch c.Format {
	case LogFormatText, LogFormatJSON:
		return nil
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Format)
	}
}

// NewLogger builds a logrus logger writing to out with the configured level and format.
func NewLogger(c LogConfig, out io.Writer) (*logrus.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	level, _ := logrus.ParseLevel(c.Level)

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if c.Format == LogFormatJSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
