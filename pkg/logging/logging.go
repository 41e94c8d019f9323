package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// CriticalField помечает запись уровня critical. В logrus такого уровня нет,
// поэтому critical пишется как Error с этим полем.
const CriticalField = "critical"

type Logger struct {
	*logrus.Entry
}

var (
	entry    *logrus.Entry
	once     sync.Once
	fileOnce sync.Once
)

// Init настраивает глобальный логгер: уровень и каталог для файла логов.
// Каталог подключается один раз, повторный вызов меняет только уровень.
func Init(level string, dir string) error {
	l := GetLogger().Logger

	var initErr error
	fileOnce.Do(func() {
		if dir == "" {
			return
		}
		var out io.Writer
		out, initErr = openFile(dir)
		if initErr == nil {
			l.SetOutput(io.MultiWriter(out, os.Stdout))
		}
	})
	if initErr != nil {
		return initErr
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown log level %q: %w", level, err)
	}
	l.SetLevel(lvl)
	return nil
}

func newEntry() *logrus.Entry {
	l := logrus.New()
	l.SetReportCaller(false)
	l.Formatter = &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	}
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.TraceLevel)
	return logrus.NewEntry(l)
}

func openFile(dir string) (io.Writer, error) {
	err := os.MkdirAll(dir, 0770)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(filepath.Join(dir, "pimsync.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// GetLogger возвращает глобальный логгер. Если Init не вызывался, пишет только в stdout.
func GetLogger() *Logger {
	once.Do(func() {
		entry = newEntry()
	})
	return &Logger{entry}
}

// AddHook подключает хук к глобальному логгеру.
func AddHook(hook logrus.Hook) {
	GetLogger().Logger.AddHook(hook)
}

func (l *Logger) GetLoggerWithField(k string, v interface{}) *Logger {
	return &Logger{l.WithField(k, v)}
}

// Discard логгер без вывода, для тестов и как значение по умолчанию.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{logrus.NewEntry(l)}
}

// Critical пишет запись уровня critical.
func Critical(logger logrus.FieldLogger, format string, args ...interface{}) {
	logger.WithField(CriticalField, true).Errorf(format, args...)
}
