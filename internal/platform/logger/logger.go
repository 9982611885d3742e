package logger

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// Logger is what the bot's components log through. Implementations must be
// safe for use by a single wallet flow at a time; Sink-backed loggers are
// safe for concurrent use.
type Logger interface {
	Info(msg string)
	Success(msg string)
	Warn(msg string)
	Error(msg string)
	Process(msg string)
	Security(msg string)
	// Debug goes to the log file only.
	Debug(msg string)
}

var (
	processPrinter = pterm.PrefixPrinter{
		Prefix:       pterm.Prefix{Text: "PROCESS", Style: pterm.NewStyle(pterm.BgMagenta, pterm.FgBlack)},
		MessageStyle: pterm.NewStyle(pterm.FgMagenta),
	}
	securityPrinter = pterm.PrefixPrinter{
		Prefix:       pterm.Prefix{Text: "SECURITY", Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack)},
		MessageStyle: pterm.NewStyle(pterm.FgRed),
	}
)

// Sink owns the log file and the console. One Sink per process.
type Sink struct {
	mu         sync.Mutex
	fileLogger *log.Logger
	logFile    *os.File
	console    bool
}

// Open truncates the log file at path and returns a sink writing to it and
// to the console. An empty path disables the file log.
func Open(path string) (*Sink, error) {
	s := &Sink{console: true}
	if strings.TrimSpace(path) == "" {
		return s, nil
	}
	os.Remove(path)
	if err := os.MkdirAll(dirOf(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.logFile = f
	s.fileLogger = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
	return s, nil
}

func (s *Sink) Close() error {
	if s == nil || s.logFile == nil {
		return nil
	}
	return s.logFile.Close()
}

// Quiet turns console output off; the file log keeps working.
func (s *Sink) Quiet() *Sink {
	s.console = false
	return s
}

func dirOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "."
	}
	return path[:i]
}

type ClassLogger struct {
	sink   *Sink
	class  string
	wallet string
}

// NewLogger names the logger after the dynamic type of v, the way the file
// log labels its lines.
func NewLogger(sink *Sink, v interface{}, wallet string) *ClassLogger {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return &ClassLogger{sink: sink, class: t.Name(), wallet: wallet}
}

func NewNamed(sink *Sink, wallet string) *ClassLogger {
	return &ClassLogger{sink: sink, class: "Operation", wallet: wallet}
}

// Named returns a logger for one wallet, or for the system when wallet is empty.
func (s *Sink) Named(wallet string) Logger {
	return NewNamed(s, wallet)
}

func (l *ClassLogger) Info(msg string) {
	l.write("INFO", msg)
	l.print(pterm.Info, pterm.FgBlue, msg)
}

func (l *ClassLogger) Success(msg string) {
	l.write("SUCCESS", msg)
	l.print(pterm.Success, pterm.FgGreen, msg)
}

func (l *ClassLogger) Warn(msg string) {
	l.write("WARN", msg)
	l.print(pterm.Warning, pterm.FgYellow, msg)
}

func (l *ClassLogger) Error(msg string) {
	l.write("ERROR", msg)
	l.print(pterm.Error, pterm.FgRed, msg)
}

func (l *ClassLogger) Process(msg string) {
	l.write("PROCESS", msg)
	l.print(processPrinter, pterm.FgMagenta, msg)
}

func (l *ClassLogger) Security(msg string) {
	l.write("SECURITY", msg)
	l.print(securityPrinter, pterm.FgRed, msg)
}

func (l *ClassLogger) Debug(msg string) {
	l.write("DEBUG", msg)
}

func (l *ClassLogger) label() string {
	if l.wallet == "" {
		return "SYS"
	}
	return l.wallet
}

func (l *ClassLogger) write(level, msg string) {
	if l == nil || l.sink == nil || l.sink.fileLogger == nil {
		return
	}
	funcName := callerFunc(3)
	l.sink.mu.Lock()
	l.sink.fileLogger.Printf("[%s][%s][%s][%s] %s", level, l.class, l.label(), funcName, msg)
	l.sink.mu.Unlock()
}

func (l *ClassLogger) print(p pterm.PrefixPrinter, walletColor pterm.Color, msg string) {
	if l == nil || l.sink == nil || !l.sink.console {
		return
	}
	line := fmt.Sprintf("%s %s %s",
		pterm.Gray(time.Now().Format("15:04:05")),
		walletColor.Sprint("["+l.label()+"]"),
		shortenForDisplay(msg))
	l.sink.mu.Lock()
	p.Println(line)
	l.sink.mu.Unlock()
}

func callerFunc(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	parts := strings.Split(fn.Name(), ".")
	return parts[len(parts)-1]
}

func shortenForDisplay(msg string) string {
	const maxLen = 140
	runes := []rune(msg)
	if len(runes) <= maxLen {
		return msg
	}
	return string(runes[:maxLen-1]) + "…"
}

type nop struct{}

func (nop) Info(string)     {}
func (nop) Success(string)  {}
func (nop) Warn(string)     {}
func (nop) Error(string)    {}
func (nop) Process(string)  {}
func (nop) Security(string) {}
func (nop) Debug(string)    {}

// Nop discards everything.
func Nop() Logger { return nop{} }
