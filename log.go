// Copyright (c) 2025 The polysmt authors
//
// MIT License

package viable

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger is the default when no logger is configured; tracing
// the refinement loop is expensive and opt-in.
func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
