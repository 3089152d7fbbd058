package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

func (u *User) observeOperation(
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if u == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = time.Since(startedAt).Milliseconds()
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range []string{"identity", "endpoint", "state"} {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	u.recordCounter("syncauth."+operation+".total", 1, tags)
	u.recordHistogram("syncauth."+operation+".duration_ms", float64(time.Since(startedAt).Milliseconds()), tags)

	if err != nil {
		u.logError(operation+" failed", contextFields)
		return
	}
	u.logInfo(operation+" succeeded", contextFields)
}

func (u *User) logInfo(message string, fields map[string]any) {
	u.logWithLevel("info", message, fields)
}

func (u *User) logError(message string, fields map[string]any) {
	u.logWithLevel("error", message, fields)
}

func (u *User) logWithLevel(level string, message string, fields map[string]any) {
	if u == nil || u.logger == nil {
		return
	}
	logger := u.logger
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (u *User) recordCounter(name string, value int64, tags map[string]string) {
	if u == nil || u.metricsRecorder == nil {
		return
	}
	u.metricsRecorder.IncCounter(context.Background(), strings.TrimSpace(name), value, cloneTags(tags))
}

func (u *User) recordHistogram(name string, value float64, tags map[string]string) {
	if u == nil || u.metricsRecorder == nil {
		return
	}
	u.metricsRecorder.ObserveHistogram(context.Background(), strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
