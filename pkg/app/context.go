package app

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-linearcache/internal/config"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	// Out receives formatted command output
	Out io.Writer

	Logger *logrus.Entry
	Config *config.Config

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context
func NewContext() *Context {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Context{
		Context: context.Background(),
		Out:     os.Stdout,
		Logger:  logrus.NewEntry(l),
	}
}

// ApplyVerbosity sets the log level from the Verbose and Quiet flags
func (c *Context) ApplyVerbosity() {
	switch {
	case c.Quiet:
		c.Logger.Logger.SetLevel(logrus.ErrorLevel)
	case c.Verbose:
		c.Logger.Logger.SetLevel(logrus.DebugLevel)
	default:
		c.Logger.Logger.SetLevel(logrus.WarnLevel)
	}
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		c.Logger.Info(message)
	}
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet {
		c.Logger.Error(message)
	}
}
