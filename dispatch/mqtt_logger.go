package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttLogger adapts the paho package loggers to slog.
type mqttLogger struct {
	logger *slog.Logger
	level  slog.Level
}

func (l mqttLogger) Println(v ...any) {
	l.logger.Log(context.Background(), l.level, strings.TrimSpace(fmt.Sprintln(v...)))
}

func (l mqttLogger) Printf(format string, v ...any) {
	l.logger.Log(context.Background(), l.level, fmt.Sprintf(format, v...))
}

var bridgeOnce sync.Once

// bridgeLogs routes paho's package level loggers through logger once per process.
func bridgeLogs(logger *slog.Logger) {
	bridgeOnce.Do(func() {
		mqtt.CRITICAL = mqttLogger{logger: logger, level: slog.LevelError}
		mqtt.ERROR = mqttLogger{logger: logger, level: slog.LevelError}
		mqtt.WARN = mqttLogger{logger: logger, level: slog.LevelWarn}
	})
}
