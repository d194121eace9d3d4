package pipeline

import (
	"github.com/backmassage/spacesaver/internal/logging"
	"github.com/backmassage/spacesaver/internal/progress"
)

// LogSink writes progress events to log. Progress steps are debug output;
// failures and cancellations are warnings.
func LogSink(log *logging.Logger, verbose bool) progress.Sink {
	return func(e progress.Event) {
		switch e.Kind {
		case progress.Started:
			log.Debug(verbose, "%s: started (%d items)", e.TaskType, e.Total)
		case progress.Progress:
			log.Debug(verbose, "  %d/%d %s", e.Current, e.Total, e.Message)
		case progress.Completed:
			log.Debug(verbose, "%s: completed: %s", e.TaskType, e.Message)
		case progress.Failed:
			log.Warn("%s: failed: %s", e.TaskType, e.Message)
		case progress.Cancelled:
			log.Warn("%s: cancelled", e.TaskType)
		}
	}
}
