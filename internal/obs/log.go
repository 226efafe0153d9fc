package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the process-wide logger clinic-api writes structured
// entries through. No prefix and no flags: every line is exactly one
// JSON object.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// LogRequest writes the entry as a single JSON line. A value that
// cannot be marshalled is reported in place of the entry rather than
// dropped silently.
func LogRequest(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log_entry_marshal_failed","service":"clinic-api"}`)
		return
	}
	Logger().Println(string(data))
}
