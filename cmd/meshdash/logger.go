package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	jlog "github.com/luno/jettison/log"
)

type jsonLogger struct {
	*log.Logger
}

func (l *jsonLogger) Log(_ context.Context, entry jlog.Entry) string {
	res, err := json.Marshal(entry)
	if err != nil {
		l.Logger.Printf("jlogger: failed to marshal log: %v", err)
		l.Logger.Print(entry.Message)
		return entry.Message
	}
	l.Logger.Print(string(res))
	return string(res)
}

// initLogging swaps jettison's default human-readable logger for JSON lines.
func initLogging(asJSON bool) {
	if !asJSON {
		return
	}
	jlog.SetLogger(&jsonLogger{Logger: log.New(os.Stderr, "", 0)})
}
