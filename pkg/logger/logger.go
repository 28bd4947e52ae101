// Package logger builds the zap loggers used across gojorel and the fields
// its components attach to log entries.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry as the "service" field.
const ServiceName = "gojorel"

// Field keys shared by the transaction and the CLI.
const (
	FieldTransaction = "transaction_id"
	FieldEndPoint    = "endpoint"
	FieldObject      = "object"
)

// Config is the "logger" section of the gojorel configuration.
type Config struct {
	// Level is one of debug, info, warn or error. Anything else means info.
	Level string `yaml:"level"`
	// Format is "json" (default) or "console".
	Format string `yaml:"format"`
	// OutputFile is a path, or one of stdout, stderr and discard.
	OutputFile string `yaml:"output_file"`
}

// New builds a logger from cfg. Every entry carries the service name.
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	out, err := openOutput(cfg.OutputFile)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), out, level)
	return zap.New(core, zap.AddCaller(), zap.Fields(zap.String("service", ServiceName))), nil
}

// ForTransaction tags base with a transaction id. A nil base yields a no-op
// logger.
func ForTransaction(base *zap.Logger, id fmt.Stringer) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.Stringer(FieldTransaction, id))
}

// EndPoint is the field for a relation end-point id.
func EndPoint(id fmt.Stringer) zap.Field { return zap.Stringer(FieldEndPoint, id) }

// Object is the field for an object id.
func Object(id fmt.Stringer) zap.Field { return zap.Stringer(FieldObject, id) }

func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.EqualFold(format, "console") {
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

func openOutput(path string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(path) {
	case "stdout", "":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "discard":
		return zapcore.AddSync(io.Discard), nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return zapcore.AddSync(file), nil
}
