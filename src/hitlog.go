package mdppst

/*------------------------------------------------------------------
 *
 * Purpose:	Save decoded hits to a log file.
 *
 * Description: Rather than saving the raw, rather cryptic bit-packed
 *		format, write separated properties into CSV format for easy
 *		reading and later processing.
 *
 *		There are two alternatives here.
 *
 *		-L logfile		Specify full file path.
 *
 *		-l logdir		Daily names will be created here.
 *
 *		Use one or the other but not both.
 *
 *------------------------------------------------------------------*/

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lestrrat-go/strftime"
)

const hitLogHeader = "channel,module,adc,tdc,rollover,abstdc,abstdc_ns,trigger,pileup,overflow,external"

type HitLogger struct {
	dailyNames bool
	path       string // directory (daily names) or full file name
	fp         *os.File
	openName   string // name of the currently open daily file
}

/*------------------------------------------------------------------
 *
 * Name:	NewHitLogger
 *
 * Purpose:	Initialization at start of application.
 *
 * Inputs:	dailyNames	- true if daily names should be generated.
 *				  In this case path is a directory.
 *				  When false, path would be the file name.
 *
 *		path		- log file name or just directory.
 *				  Use "." for current directory.
 *				  Empty string disables the feature.
 *
 *------------------------------------------------------------------*/

func NewHitLogger(dailyNames bool, path string) *HitLogger {
	var l = &HitLogger{dailyNames: dailyNames}

	if len(path) == 0 {
		return l
	}

	if dailyNames {
		var stat, statErr = os.Stat(path)

		if statErr == nil {
			if stat.IsDir() {
				l.path = path
			} else {
				logger.Error("hit log location is not a directory, using \".\" instead", "path", path)
				l.path = "."
			}
		} else {
			// Doesn't exist.  Try to create it; the parent must
			// exist, no "mkdir -p" here.
			var mkdirErr = os.Mkdir(path, 0755)
			if mkdirErr == nil {
				logger.Info("hit log location created", "path", path)
				l.path = path
			} else {
				logger.Error("failed to create hit log location, using \".\" instead",
					"path", path, "err", mkdirErr)
				l.path = "."
			}
		}
	} else {
		// Single file.  Typically logrotate would keep the size under
		// control.
		logger.Info("hit log file", "path", path)
		l.path = path
	}

	return l
}

func (l *HitLogger) open(fname string) {
	var fullPath = fname
	if l.dailyNames {
		fullPath = filepath.Join(l.path, fname)
	}

	// See if the file already exists and is not empty; a header is only
	// written when this will be the first line.
	var stat, statErr = os.Stat(fullPath)
	var alreadyThere = statErr == nil && stat.Size() > 0

	var f, openErr = os.OpenFile(fullPath, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if openErr != nil {
		logger.Error("can't open hit log for write", "path", fullPath, "err", openErr)
		l.path = ""
		l.openName = ""
		return
	}

	l.fp = f
	l.openName = fname

	if !alreadyThere {
		f.WriteString(hitLogHeader + "\n")
	}
}

/*------------------------------------------------------------------
 *
 * Name:	Write
 *
 * Purpose:	Append one decoded hit.
 *
 * Description:	With daily names the file is rolled when the date changes.
 *		A log file that cannot be opened disables the log; write
 *		errors are reported and the log stays on.  Neither stops
 *		the run.
 *
 *------------------------------------------------------------------*/

func (l *HitLogger) Write(v *Variant, hit *Hit) {
	if l == nil || len(l.path) == 0 {
		return
	}

	if l.dailyNames {
		var fname, _ = strftime.Format("%Y-%m-%d.log", time.Now().UTC())

		if l.fp != nil && fname != l.openName {
			l.Term()
		}
		if l.fp == nil {
			l.open(fname)
		}
	} else if l.fp == nil {
		l.open(l.path)
	}

	if l.fp == nil {
		return
	}

	var w = csv.NewWriter(l.fp)
	w.Write([]string{
		strconv.Itoa(hit.Channel),
		strconv.Itoa(hit.ModuleID),
		strconv.FormatUint(uint64(hit.ADC), 10),
		strconv.FormatUint(hit.TDC, 10),
		strconv.FormatUint(hit.RolloverCounter, 10),
		strconv.FormatUint(v.AbsoluteTDC(hit), 10),
		strconv.FormatFloat(v.AbsoluteTDCNs(hit), 'f', 3, 64),
		strconv.FormatBool(hit.TrigFlag),
		strconv.FormatBool(hit.Pileup),
		strconv.FormatBool(hit.Overflow),
		strconv.FormatUint(hit.ExternalTimestamp, 10),
	})
	w.Flush()

	var writeError = w.Error()
	if writeError != nil {
		logger.Error("hit log write error", "err", writeError)
	}
} /* end Write */

/*------------------------------------------------------------------
 *
 * Name:	Term
 *
 * Purpose:	Close any open log file.  Called when exiting or when the
 *		date changes.
 *
 *------------------------------------------------------------------*/

func (l *HitLogger) Term() {
	if l == nil || l.fp == nil {
		return
	}

	logger.Info("closing hit log", "file", l.fp.Name())
	l.fp.Close()
	l.fp = nil
	l.openName = ""
}
