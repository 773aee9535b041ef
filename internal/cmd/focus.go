package cmd

import (
	"github.com/sadopc/focusassist/internal/config"
	"github.com/sadopc/focusassist/internal/focus"
)

// detectors builds the check-in analyzers enabled in cfg. The result may be
// empty, in which case check-ins are only reported.
func detectors(cfg config.FocusConfig) []focus.Detector {
	var ds []focus.Detector
	if cfg.Command != "" {
		ds = append(ds, focus.NewCommandDetector(cfg.Command))
	}
	if cfg.IdleEnabled {
		ds = append(ds, focus.NewIdleDetector(cfg.IdleAwayAfter))
	}
	return ds
}

func dispatcherOptions(cfg config.FocusConfig) focus.Options {
	return focus.Options{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Timeout:   cfg.Timeout,
		Logger:    appLogger.With("component", "focus"),
	}
}
