// Package telemetry emits single-line JSON log entries on stdout.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Info writes an info-level entry with the given fields.
func Info(msg string, fields map[string]any) { write("info", msg, fields) }

// Warn writes a warn-level entry with the given fields.
func Warn(msg string, fields map[string]any) { write("warn", msg, fields) }

// Error writes an error-level entry with the given fields.
func Error(msg string, fields map[string]any) { write("error", msg, fields) }

// write merges caller fields under the reserved keys, so a stray "msg" or
// "level" in a field map cannot clobber the entry's own.
func write(level, msg string, fields map[string]any) {
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, `{"ts":%q,"level":"error","msg":"log marshal failed","err":%q}`+"\n",
			time.Now().UTC().Format(time.RFC3339), err.Error())
		return
	}
	fmt.Fprintln(os.Stdout, string(data))
}
