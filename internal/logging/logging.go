// Package logging builds the run logger: console output plus daily rotated
// info and error files.
package logging

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	InfoFile   = "parser-info.log"
	ErrorFile  = "parser-error.log"
	MaxBackups = 10
)

type Options struct {
	// Dir holds the log files. No files are written when empty.
	Dir     string
	Console io.Writer
	Verbose bool
}

// New returns a logger and a closer that stops rotation and flushes files.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.SetReportCaller(true)

	consoleLevels := []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
	if opts.Verbose {
		consoleLevels = append(consoleLevels, logrus.DebugLevel)
	}
	if opts.Console != nil {
		logger.AddHook(&writerHook{w: opts.Console, levels: consoleLevels, formatter: formatter(false)})
	}

	c := &closer{stop: make(chan struct{})}
	if opts.Dir == "" {
		return logger, c, nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, err
	}
	info := rotatingFile(filepath.Join(opts.Dir, InfoFile))
	errs := rotatingFile(filepath.Join(opts.Dir, ErrorFile))
	c.files = []*lumberjack.Logger{info, errs}

	// the info file keeps INFO records only, the error file ERROR and above
	logger.AddHook(&writerHook{w: info, levels: []logrus.Level{logrus.InfoLevel}, formatter: formatter(true)})
	logger.AddHook(&writerHook{w: errs, levels: []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}, formatter: formatter(true)})

	c.wg.Add(1)
	go c.rotateAtMidnight(time.Now)
	return logger, c, nil
}

func rotatingFile(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: MaxBackups,
		LocalTime:  true,
	}
}

func formatter(plain bool) logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   plain,
	}
}

type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	b, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(b)
	return err
}

type closer struct {
	files []*lumberjack.Logger
	stop  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

func (c *closer) rotateAtMidnight(now func() time.Time) {
	defer c.wg.Done()
	for {
		t := time.NewTimer(untilMidnight(now()))
		select {
		case <-c.stop:
			t.Stop()
			return
		case <-t.C:
			for _, f := range c.files {
				_ = f.Rotate()
			}
		}
	}
}

func (c *closer) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		c.wg.Wait()
		for _, f := range c.files {
			err = errors.Join(err, f.Close())
		}
	})
	return err
}

// untilMidnight is the time left before the next local midnight.
func untilMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
