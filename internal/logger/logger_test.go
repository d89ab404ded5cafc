package logger

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewWritesDailyFile(t *testing.T) {
	root := t.TempDir()
	defer zap.ReplaceGlobals(zap.NewNop())

	log, err := New(root, Options{Level: "debug"})
	require.NoError(t, err)
	log.Infow("hello", "k", "v")
	_ = log.Sync()

	name := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
	assert.Contains(t, string(b), `"pid":`+strconv.Itoa(os.Getpid()))
}

func TestNewWorkerSuffix(t *testing.T) {
	root := t.TempDir()
	defer zap.ReplaceGlobals(zap.NewNop())

	log, err := New(root, Options{Worker: true})
	require.NoError(t, err)
	_ = log.Sync()

	name := time.Now().Format("2006-01-02") + "." + strconv.Itoa(os.Getpid()) + ".log"
	_, err = os.Stat(filepath.Join(root, "logs", name))
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}
