package mdppst

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// One shared logger for the whole filter.  Debug chatter (the per-hit window
// bookkeeping) only shows up with -d.
var logger = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
	Prefix:          "mdppst",
})

func SetDebugLevel(level int) {
	switch {
	case level <= 0:
		logger.SetLevel(charmlog.InfoLevel)
	default:
		logger.SetLevel(charmlog.DebugLevel)
	}
}

func Logger() *charmlog.Logger {
	return logger
}
