package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks request counts, timings and custom counters for one service
type ServiceMetrics struct {
	ServiceName         string           `json:"service_name"`
	TotalRequests       int64            `json:"total_requests"`
	SuccessfulRequests  int64            `json:"successful_requests"`
	FailedRequests      int64            `json:"failed_requests"`
	TotalProcessingTime time.Duration    `json:"total_processing_time"`
	MaxProcessingTime   time.Duration    `json:"max_processing_time"`
	Counters            map[string]int64 `json:"counters"`
	mutex               sync.RWMutex
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		ServiceName: serviceName,
		Counters:    make(map[string]int64),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.TotalRequests++
	m.TotalProcessingTime += processingTime
	if processingTime > m.MaxProcessingTime {
		m.MaxProcessingTime = processingTime
	}

	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}
}

// AddCounter adds delta to a named counter
func (m *ServiceMetrics) AddCounter(key string, delta int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.Counters[key] += delta
}

// Counter returns the current value of a named counter
func (m *ServiceMetrics) Counter(key string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.Counters[key]
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.TotalRequests == 0 {
		return 0.0
	}
	return float64(m.SuccessfulRequests) / float64(m.TotalRequests) * 100.0
}

// LogSummary logs the metrics as one structured line
func (m *ServiceMetrics) LogSummary(logger *logrus.Entry) {
	m.mutex.RLock()
	fields := logrus.Fields{
		"service_name":          m.ServiceName,
		"total_requests":        m.TotalRequests,
		"successful_requests":   m.SuccessfulRequests,
		"failed_requests":       m.FailedRequests,
		"total_processing_time": m.TotalProcessingTime,
		"max_processing_time":   m.MaxProcessingTime,
	}
	for key, value := range m.Counters {
		fields[key] = value
	}
	m.mutex.RUnlock()

	fields["success_rate"] = m.GetSuccessRate()
	logger.WithFields(fields).Info("Service metrics summary")
}
