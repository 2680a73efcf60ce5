/*
Package log provides structured logging for the fragment manager using
zerolog.

A single global Logger is initialized once via Init and then read from
concurrently; component-specific child loggers are derived from it with
WithComponent (and the WithJobID/WithFragmentID context helpers) rather than
passed around by value.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true, Output: os.Stdout})

	lifecycleLog := log.WithComponent("lifecycle")
	lifecycleLog.Info().Uint32("job_id", uint32(jobID)).Msg("job created")

# Log levels

Debug is for development only; Info is the default production level; Warn
and Error should stay low-volume enough to alert on. Fatal logs and exits
the process — reserved for startup failures, never used mid-operation (a
fragment manager consistency bug panics instead; see pkg/fragment).
*/
package log
