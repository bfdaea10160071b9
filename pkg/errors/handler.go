// Package errors holds the typed errors shared by the moderation engine and
// the panic guard every background task runs under. A burst of panics stops
// the bot before it can write half-applied infractions.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/goccy/go-json"
)

// maxReportLength is Discord's embed description limit
const maxReportLength = 4096

// ErrorHandler counts panics and reports them to a webhook
type ErrorHandler struct {
	errorCount    int32
	webhookURL    string
	httpClient    *http.Client
	stopChan      chan struct{}
	stopOnce      sync.Once
	shutdownFunc  func()
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
	exit          func(code int)
}

// ReportErrorOptions is one webhook report
type ReportErrorOptions struct {
	Error   string
	Message string
	// Fields become embed fields, e.g. "guild" or "infraction"
	Fields map[string]string
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
		handler.start()
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a new ErrorHandler instance. Monitoring starts with Init.
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	return &ErrorHandler{
		webhookURL:    webhookURL,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
		exit:          os.Exit,
	}
}

// start begins the error monitoring goroutines
func (h *ErrorHandler) start() {
	go func() {
		reset := time.NewTicker(h.resetInterval)
		check := time.NewTicker(h.checkInterval)
		defer reset.Stop()
		defer check.Stop()

		for {
			select {
			case <-reset.C:
				atomic.StoreInt32(&h.errorCount, 0)
			case <-check.C:
				if h.overLimit() {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

// overLimit reports whether the error burst exceeded the configured maximum
func (h *ErrorHandler) overLimit() bool {
	return atomic.LoadInt32(&h.errorCount) > h.maxErrors
}

func (h *ErrorHandler) shutdown() {
	start := time.Now()
	count := atomic.LoadInt32(&h.errorCount)
	logger.Warn(fmt.Sprintf("%d errores en %v, se detiene el registro de infracciones", count, h.resetInterval), "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Demasiados errores seguidos. Apagando PancyModlog...",
		Fields: map[string]string{
			"errors": fmt.Sprint(count),
			"window": h.resetInterval.String(),
		},
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Finalizando proceso... Tiempo total: %v", time.Since(start)), "CRITICAL")
	h.exit(1)
}

// Stop stops the error monitoring goroutines
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := atomic.AddInt32(&h.errorCount, 1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// ErrorCount returns the errors counted in the current window
func (h *ErrorHandler) ErrorCount() int32 {
	return atomic.LoadInt32(&h.errorCount)
}

// HandlePanic counts a recovered panic and reports it with the stack that
// raised it. The report is sent in the background.
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.IncrementError()
	logger.Error(fmt.Sprintf("Panic recuperado: %v", recovered), "AntiCrash")
	if h.webhookURL == "" {
		return
	}
	report := ReportErrorOptions{
		Error:   "Panic",
		Message: fmt.Sprintf("%v\n```\n%s```", recovered, debug.Stack()),
	}
	go h.Report(report)
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// reportPayload builds the webhook body for data
func reportPayload(data ReportErrorOptions, now time.Time) map[string]interface{} {
	message := data.Message
	if r := []rune(message); len(r) > maxReportLength {
		message = string(r[:maxReportLength-3]) + "..."
	}

	keys := make([]string, 0, len(data.Fields))
	for k := range data.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fields := make([]embedField, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, embedField{Name: k, Value: data.Fields[k], Inline: true})
	}

	return map[string]interface{}{
		"embeds": []interface{}{map[string]interface{}{
			"author": map[string]string{
				"name": fmt.Sprintf("Error %s", data.Error),
			},
			"description": message,
			"fields":      fields,
			"color":       0xFF0000,
			"footer": map[string]string{
				"text": "PancyModlog",
			},
			"timestamp": now.Format(time.RFC3339),
		}},
	}
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := reportPayload(data, time.Now())

	jsonData, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	resp, err := h.httpClient.Post(h.webhookURL, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn(fmt.Sprintf("El webhook de errores respondió %d", resp.StatusCode), "AntiCrash")
	}
}

// RecoverMiddleware returns a recovery function for use in deferred calls.
// Without an initialized handler the panic is only logged.
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recuperado sin manejador: %v", r), "AntiCrash")
			}
		}
	}
}

// Go runs fn in a new goroutine guarded by RecoverMiddleware
func Go(fn func()) {
	go func() {
		defer RecoverMiddleware()()
		fn()
	}()
}
