// Package log provides the logging abstraction used by indexcheck components.
//
// Components depend on the Logger interface only. The CLI wires a zerolog
// backed adapter that writes to a rotating file and, optionally, stdout;
// tests use the no-op logger.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("records created", log.Int("count", 999))
//
// Use With to derive a logger that carries fixed fields, for example the
// collection under test:
//
//	runLog := log.With(logger, log.String("collection", name))
package log
