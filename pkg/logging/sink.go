package logging

// Sink is the narrow logging contract handed to packages and collaborators
// that should not depend on the package-level functions directly.
type Sink interface {
	Log(messageFmt string, args ...interface{})
	Warn(messageFmt string, args ...interface{})
	Error(err error, messageFmt string, args ...interface{})
	Exception(err error)
}

type subsystemSink struct {
	subsystem string
}

// NewSink returns a Sink that tags every entry with the given subsystem.
func NewSink(subsystem string) Sink {
	return subsystemSink{subsystem: subsystem}
}

func (s subsystemSink) Log(messageFmt string, args ...interface{}) {
	Info(s.subsystem, messageFmt, args...)
}

func (s subsystemSink) Warn(messageFmt string, args ...interface{}) {
	Warn(s.subsystem, messageFmt, args...)
}

func (s subsystemSink) Error(err error, messageFmt string, args ...interface{}) {
	Error(s.subsystem, err, messageFmt, args...)
}

func (s subsystemSink) Exception(err error) {
	Exception(s.subsystem, err)
}
