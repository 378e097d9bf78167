package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"chatbox/internal/logger"
)

// DebugTransportService wraps HTTP transports so every chat API exchange is logged
// at debug level and the most recent one is kept for inspection.
type DebugTransportService struct {
	capturedData string
	initialized  bool
	mutex        sync.RWMutex
}

// NewDebugTransportService creates a new DebugTransportService instance.
func NewDebugTransportService() *DebugTransportService {
	return &DebugTransportService{
		initialized: false,
	}
}

// Name returns the service name "debug_transport" for registration.
func (d *DebugTransportService) Name() string {
	return "debug_transport"
}

// Initialize sets up the DebugTransportService for operation.
func (d *DebugTransportService) Initialize() error {
	logger.ServiceOperation("debug_transport", "initialize", "starting")
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.initialized = true
	d.capturedData = ""

	logger.ServiceOperation("debug_transport", "initialize", "completed")
	return nil
}

// Wrap returns a transport that records traffic passing through base.
// A nil base means http.DefaultTransport. An uninitialized service returns base unchanged.
func (d *DebugTransportService) Wrap(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	d.mutex.RLock()
	initialized := d.initialized
	d.mutex.RUnlock()
	if !initialized {
		logger.Debug("Debug transport service not initialized, using plain transport")
		return base
	}

	return &debugTransport{
		base:    base,
		service: d,
	}
}

// GetCapturedData returns the last captured exchange as a JSON string.
func (d *DebugTransportService) GetCapturedData() string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.capturedData
}

// ClearCapturedData clears the captured exchange.
func (d *DebugTransportService) ClearCapturedData() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.capturedData = ""
}

func (d *DebugTransportService) setCapturedData(data string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.capturedData = data
}

type debugTransport struct {
	base    http.RoundTripper
	service *DebugTransportService
}

// RoundTrip implements http.RoundTripper.
func (dt *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	requestData, err := dt.captureRequest(req)
	if err != nil {
		logger.Error("Failed to capture request", "error", err)
	}

	resp, err := dt.base.RoundTrip(req)
	duration := time.Since(startTime)

	if err != nil {
		logger.Debug("Chat API exchange failed", "method", req.Method, "url", req.URL.String(), "duration", duration, "error", err)
		dt.store(requestData, map[string]interface{}{"error": err.Error()}, startTime, duration)
		return resp, err
	}

	responseData, captureErr := dt.captureResponse(resp)
	if captureErr != nil {
		logger.Error("Failed to capture response", "error", captureErr)
		responseData = map[string]interface{}{
			"error": "failed to capture response data",
		}
	}

	logger.Debug("Chat API exchange", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "duration", duration)
	dt.store(requestData, responseData, startTime, duration)

	return resp, nil
}

func (dt *debugTransport) captureRequest(req *http.Request) (map[string]interface{}, error) {
	requestData := map[string]interface{}{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": sanitizeHeaders(req.Header),
	}

	if req.Body == nil {
		return requestData, nil
	}

	bodyBytes, err := io.ReadAll(req.Body)
	if err != nil {
		return requestData, fmt.Errorf("failed to read request body: %w", err)
	}
	// Restore the body for the real round trip
	req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	requestData["body"] = decodeBody(bodyBytes)

	return requestData, nil
}

func (dt *debugTransport) captureResponse(resp *http.Response) (map[string]interface{}, error) {
	responseData := map[string]interface{}{
		"status_code": resp.StatusCode,
		"status":      resp.Status,
		"headers":     sanitizeHeaders(resp.Header),
	}

	if resp.Body == nil {
		return responseData, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return responseData, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	responseData["body"] = decodeBody(bodyBytes)

	return responseData, nil
}

func (dt *debugTransport) store(requestData, responseData map[string]interface{}, startTime time.Time, duration time.Duration) {
	debugData := map[string]interface{}{
		"http_request":  requestData,
		"http_response": responseData,
		"timing": map[string]interface{}{
			"request_time": startTime.Format(time.RFC3339),
			"duration_ms":  duration.Milliseconds(),
		},
	}

	jsonData, err := json.Marshal(debugData)
	if err != nil {
		logger.Error("Failed to marshal debug data", "error", err)
		dt.service.setCapturedData(`{"error": "failed to marshal debug data"}`)
		return
	}

	dt.service.setCapturedData(string(jsonData))
}

// decodeBody keeps JSON bodies structured and everything else as text.
func decodeBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var jsonBody interface{}
	if err := json.Unmarshal(body, &jsonBody); err == nil {
		return jsonBody
	}
	return string(body)
}

// sanitizeHeaders masks credentials before they reach logs.
func sanitizeHeaders(headers http.Header) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(headers))

	for name, values := range headers {
		lowerName := strings.ToLower(name)
		if strings.Contains(lowerName, "authorization") ||
			strings.Contains(lowerName, "api-key") ||
			strings.Contains(lowerName, "token") {
			if len(values) > 0 && len(values[0]) > 10 {
				sanitized[name] = []string{values[0][:10] + "***[MASKED]***"}
			} else {
				sanitized[name] = []string{"***[MASKED]***"}
			}
			continue
		}
		sanitized[name] = values
	}

	return sanitized
}
