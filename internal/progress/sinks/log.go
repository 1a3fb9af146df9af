package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/misheard-crawler/internal/progress"
)

// LogSink writes each progress event as a structured log line. Failures are
// logged at warn level, everything else at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		level := zapcore.DebugLevel
		if evt.Stage == progress.StageFailure {
			level = zapcore.WarnLevel
		}
		if ce := s.logger.Check(level, "progress"); ce != nil {
			ce.Write(eventFields(evt)...)
		}
	}
	return nil
}

// Close implements progress.Sink. Sync errors on console outputs are ignored.
func (s *LogSink) Close(context.Context) error {
	_ = s.logger.Sync()
	return nil
}

func eventFields(evt progress.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.Letter != "" {
		fields = append(fields, zap.String("letter", evt.Letter))
	}
	if evt.URL != "" {
		fields = append(fields, zap.String("url", evt.URL))
	}
	if evt.Artist != "" {
		fields = append(fields, zap.String("artist", evt.Artist))
	}
	if evt.Song != "" {
		fields = append(fields, zap.String("song", evt.Song))
	}
	if evt.Kind != "" {
		fields = append(fields, zap.String("kind", evt.Kind))
	}
	if evt.StatusClass != "" {
		fields = append(fields, zap.String("status_class", string(evt.StatusClass)))
	}
	if evt.Count > 0 {
		fields = append(fields, zap.Int("count", evt.Count))
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("dur", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	return fields
}
