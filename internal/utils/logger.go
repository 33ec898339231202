package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger sets the global zerolog logger. When logFile is set, records are
// also appended there as JSON.
func InitLogger(debug bool, logFile string) (func(), error) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.DateTime,
	}
	closer := func() {}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return closer, fmt.Errorf("error opening log file: %v", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = func() { f.Close() }
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closer, nil
}
