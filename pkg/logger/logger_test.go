package logger

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *lockedBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}

type ledgerRow struct {
	ID     uint
	UserID int64
	Amount string
}

func TestGormQueriesAreLogged(t *testing.T) {
	out := &lockedBuffer{}
	Init(Config{Level: "debug", Format: "json", Output: out})

	gl := NewGormLogger()
	gl.LogLevel = gormlogger.Info
	db, err := gorm.Open(sqlite.Open("file:gorm_logging?mode=memory&cache=shared"), &gorm.Config{Logger: gl})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&ledgerRow{}))
	row := ledgerRow{UserID: 1, Amount: "10.00"}
	require.NoError(t, db.Create(&row).Error)
	var found ledgerRow
	require.NoError(t, db.First(&found, row.ID).Error)

	err = db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)

	Flush()
	logs := out.String()
	assert.Contains(t, logs, "INSERT INTO")
	assert.Contains(t, logs, "SELECT * FROM")
	assert.Contains(t, logs, `"rows":`)
	assert.Contains(t, logs, `"elapsed_ms":`)
	assert.Contains(t, logs, `"level":"error"`)
	assert.Contains(t, logs, "no_such_table")
}

func TestRoundFieldsFollowContext(t *testing.T) {
	out := &lockedBuffer{}
	Init(Config{Level: "info", Format: "json", Output: out})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRound(ctx, "blitz", 42)
	ctx = WithFields(ctx, map[string]interface{}{"user_id": 7})
	Info(ctx).Msg("bet accepted")
	Debug(ctx).Msg("filtered out")
	Flush()

	logs := out.String()
	assert.Contains(t, logs, `"request_id":"req-1"`)
	assert.Contains(t, logs, `"mode_id":"blitz"`)
	assert.Contains(t, logs, `"period_number":42`)
	assert.Contains(t, logs, `"user_id":7`)
	assert.NotContains(t, logs, "filtered out")
	assert.Equal(t, "req-1", GetRequestID(ctx))
}

func TestGenerateRequestIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		_, dup := seen[id]
		require.False(t, dup, id)
		seen[id] = struct{}{}
		assert.Len(t, strings.Split(id, "-"), 3)
	}
}

func TestSmartWriterFlushesOnError(t *testing.T) {
	out := &lockedBuffer{}
	sw := NewSmartWriter(out, 10*time.Second)
	defer sw.Close()

	info := []byte(`{"level":"info","message":"bet accepted"}` + "\n")
	n, err := sw.Write(info)
	require.NoError(t, err)
	assert.Equal(t, len(info), n)
	assert.Equal(t, 0, out.Len())

	errLine := []byte(`{"level":"error","message":"settlement failed"}` + "\n")
	_, err = sw.Write(errLine)
	require.NoError(t, err)
	assert.Equal(t, string(info)+string(errLine), out.String())
}

func TestSmartWriterAutoFlush(t *testing.T) {
	out := &lockedBuffer{}
	sw := NewSmartWriter(out, 50*time.Millisecond)
	defer sw.Close()

	line := []byte(`{"level":"info","message":"round opened"}` + "\n")
	_, _ = sw.Write(line)
	assert.Equal(t, 0, out.Len())

	assert.Eventually(t, func() bool { return out.String() == string(line) }, time.Second, 10*time.Millisecond)
}

func TestSmartWriterSync(t *testing.T) {
	out := &lockedBuffer{}
	sw := NewSmartWriter(out, 10*time.Second)

	line := []byte(`{"level":"info","message":"round locked"}` + "\n")
	_, _ = sw.Write(line)
	require.NoError(t, sw.Sync())
	assert.Equal(t, string(line), out.String())
	require.NoError(t, sw.Close())
}

// The child process logs and then panics; the deferred Flush must still
// get the buffered line to disk.
func TestFlushOnPanic(t *testing.T) {
	if path := os.Getenv("LOGGER_PANIC_FILE"); path != "" {
		InitWithFile(path, "info", "json", false)
		defer Flush()
		InfoGlobal().Msg("flushed before panic")
		panic("intentional")
	}

	path := filepath.Join(t.TempDir(), "logs", "panic.log")
	cmd := exec.Command(os.Args[0], "-test.run=^TestFlushOnPanic$")
	cmd.Env = append(os.Environ(), "LOGGER_PANIC_FILE="+path)
	require.Error(t, cmd.Run())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "flushed before panic")
}
