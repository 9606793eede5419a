package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbosity  int
		wantLevel  zapcore.Level
	}{
		{
			name:       "JSON output mode",
			jsonOutput: true,
			verbosity:  VerbosityInfo,
			wantLevel:  zapcore.InfoLevel,
		},
		{
			name:       "Console output mode",
			jsonOutput: false,
			verbosity:  VerbosityUser,
			wantLevel:  zapcore.WarnLevel,
		},
		{
			name:       "Console debug",
			jsonOutput: false,
			verbosity:  VerbosityDebug,
			wantLevel:  zapcore.DebugLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Logger = nil
			JSONOutput = false

			if err := Initialize(tt.jsonOutput, tt.verbosity); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}

			if Logger == nil {
				t.Fatal("Initialize() did not set global Logger")
			}
			if JSONOutput != tt.jsonOutput {
				t.Errorf("Initialize() JSONOutput = %v, want %v", JSONOutput, tt.jsonOutput)
			}
			if !Logger.Desugar().Core().Enabled(tt.wantLevel) {
				t.Errorf("level %v should be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && Logger.Desugar().Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level %v should be disabled", tt.wantLevel-1)
			}

			Logger.Sync()
			Logger = zap.NewNop().Sugar()
		})
	}
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{-1, zapcore.WarnLevel},
		{VerbosityUser, zapcore.WarnLevel},
		{VerbosityInfo, zapcore.InfoLevel},
		{VerbosityDebug, zapcore.DebugLevel},
		{VerbosityTrace, zapcore.DebugLevel},
		{9, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(LevelName(tt.verbosity), func(t *testing.T) {
			if got := VerbosityToLevel(tt.verbosity); got != tt.want {
				t.Errorf("VerbosityToLevel(%d) = %v, want %v", tt.verbosity, got, tt.want)
			}
		})
	}
}

func TestLevelName(t *testing.T) {
	if got := LevelName(VerbosityDebug); got != "Debug (-vv)" {
		t.Errorf("LevelName(2) = %q", got)
	}
	if got := LevelName(7); got != "Trace (-vvv+)" {
		t.Errorf("LevelName(7) = %q", got)
	}
	if got := LevelName(-2); got != "Unknown" {
		t.Errorf("LevelName(-2) = %q", got)
	}
}

func TestCleanup(t *testing.T) {
	tests := []struct {
		name        string
		setupLogger bool
	}{
		{name: "Cleanup with initialized logger", setupLogger: true},
		{name: "Cleanup with nil logger (should not panic)", setupLogger: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setupLogger {
				Logger = newTestLogger(t)
			} else {
				Logger = nil
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Cleanup() panicked unexpectedly: %v", r)
				}
			}()

			Cleanup()

			if tt.setupLogger && Logger == nil {
				t.Error("Cleanup() should not nil out the logger")
			}
			Logger = zap.NewNop().Sugar()
		})
	}
}

// newTestLogger creates a logger for testing without modifying global state
func newTestLogger(t *testing.T) *zap.SugaredLogger {
	t.Helper()

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	zapLogger, err := config.Build()
	if err != nil {
		t.Fatalf("Failed to create test logger: %v", err)
	}

	return zapLogger.Sugar()
}

func TestLoggingFunctions(t *testing.T) {
	Logger = newTestLogger(t)
	defer func() {
		Logger.Sync()
		Logger = zap.NewNop().Sugar()
	}()

	t.Run("structured functions", func(t *testing.T) {
		Infow("test", FieldLibrary, "shapes")
		Errorw("test", FieldStep, "compile")
		Warnw("test", FieldFile, "libmain.c")
		Debugw("test", FieldClass, "Base")
	})

	t.Run("component logger", func(t *testing.T) {
		log := ChildLogger(ComponentLogger("library"), FieldLibrary, "shapes")
		log.Infow("committed", FieldCount, 2)
	})

	t.Run("With nil logger (should not panic)", func(t *testing.T) {
		Logger = nil
		Infow("test", "key", "value")
		Errorw("test", "key", "value")
		Warnw("test", "key", "value")
		Debugw("test", "key", "value")
		Logger = newTestLogger(t)
	})
}
