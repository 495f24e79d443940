package request

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Environment contains process-level defaults shared by Providers.
// It is passed explicitly, see WithEnvironment, there is no global state.
type Environment struct {
	// Sender is the last fallback, if no other Sender is set.
	Sender Sender
	// Logger reports requests which cannot be sent by the Request.Send method.
	Logger zerolog.Logger
}

// NewEnvironment creates Environment with the default Sender and logger to stderr.
// The sender can be nil, then a Sender must be set on the Provider or Request level.
func NewEnvironment(sender Sender) Environment {
	return Environment{
		Sender: sender,
		Logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// WithSender returns a clone of the Environment with the default Sender set.
func (e Environment) WithSender(sender Sender) Environment {
	e.Sender = sender
	return e
}

// WithLogger returns a clone of the Environment with the logger set.
func (e Environment) WithLogger(logger zerolog.Logger) Environment {
	e.Logger = logger
	return e
}

// WithLogOutput returns a clone of the Environment with the logger writing JSON lines to the writer.
func (e Environment) WithLogOutput(w io.Writer) Environment {
	e.Logger = e.Logger.Output(w)
	return e
}
