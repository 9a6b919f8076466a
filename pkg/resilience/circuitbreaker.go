package resilience

import (
	"errors"
	"sync"
	"time"

	"ai-companion-chat/backend/pkg/logger"
)

// ErrCircuitOpen is returned when the breaker short-circuits a call
var ErrCircuitOpen = errors.New("circuit open")

// State represents the current state of a circuit breaker
type State string

const (
	// StateClosed means the circuit is closed and requests are allowed to pass through
	StateClosed State = "closed"
	// StateOpen means the circuit is open and requests are being short-circuited
	StateOpen State = "open"
	// StateHalfOpen means the circuit is allowing a limited number of test requests
	StateHalfOpen State = "half-open"
)

// CircuitBreaker guards calls to an external generator. Repeated failures
// open the circuit so the orchestrator can apologize immediately instead of
// waiting on a provider that is down.
type CircuitBreaker struct {
	name             string
	state            State
	failureThreshold uint
	successThreshold uint
	retryTimeout     time.Duration
	mutex            sync.RWMutex
	failureCount     uint
	successCount     uint
	nextAttemptTime  time.Time
	log              *logger.Logger

	totalFailures  uint64
	totalSuccesses uint64
	totalRequests  uint64
	openCount      uint64
}

// Config holds configuration for a circuit breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     60 * time.Second,
	}
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             config.Name,
		state:            StateClosed,
		failureThreshold: config.FailureThreshold,
		successThreshold: config.SuccessThreshold,
		retryTimeout:     config.RetryTimeout,
		log:              log,
	}
}

// Execute runs a function through the circuit breaker
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		cb.log.Warn("Circuit breaker preventing request",
			"name", cb.name,
			"state", string(cb.state),
		)
		return ErrCircuitOpen
	}

	cb.incrementRequests()

	startTime := time.Now()
	err := fn()

	if err != nil {
		cb.recordFailure()
		cb.log.Warn("Circuit breaker recorded failure",
			"name", cb.name,
			"error", err.Error(),
			"duration", time.Since(startTime).String(),
		)
		return err
	}

	cb.recordSuccess()
	return nil
}

// allowRequest checks if a request should be allowed to proceed
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.RLock()
	state := cb.state
	nextAttemptTime := cb.nextAttemptTime
	cb.mutex.RUnlock()

	switch state {
	case StateClosed:
		return true

	case StateOpen:
		if time.Now().After(nextAttemptTime) {
			cb.mutex.Lock()
			defer cb.mutex.Unlock()

			// Double-check after acquiring lock
			if cb.state == StateOpen && time.Now().After(cb.nextAttemptTime) {
				cb.toHalfOpen()
				return true
			}
		}
		return false

	case StateHalfOpen:
		cb.mutex.RLock()
		defer cb.mutex.RUnlock()
		return cb.successCount < cb.successThreshold
	}

	return false
}

// recordSuccess records a successful request
func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalSuccesses++

	switch cb.state {
	case StateClosed:
		cb.failureCount = 0

	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.toClosed()
		}
	}
}

// recordFailure records a failed request
func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalFailures++

	switch cb.state {
	case StateClosed:
		cb.failureCount++
		if cb.failureCount >= cb.failureThreshold {
			cb.toOpen()
		}

	case StateHalfOpen:
		// Any failure in half-open state reopens the circuit
		cb.toOpen()
	}
}

func (cb *CircuitBreaker) toOpen() {
	cb.state = StateOpen
	cb.openCount++
	cb.nextAttemptTime = time.Now().Add(cb.retryTimeout)

	cb.log.Info("Circuit breaker opened",
		"name", cb.name,
		"failures", cb.failureCount,
		"nextAttempt", cb.nextAttemptTime.Format(time.RFC3339),
	)
}

func (cb *CircuitBreaker) toHalfOpen() {
	cb.state = StateHalfOpen
	cb.successCount = 0

	cb.log.Info("Circuit breaker half-open", "name", cb.name)
}

func (cb *CircuitBreaker) toClosed() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.successCount = 0

	cb.log.Info("Circuit breaker closed", "name", cb.name)
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	return cb.state
}

func (cb *CircuitBreaker) incrementRequests() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
}

// GetMetrics returns the current metrics of the circuit breaker
func (cb *CircuitBreaker) GetMetrics() map[string]interface{} {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	return map[string]interface{}{
		"name":            cb.name,
		"state":           string(cb.state),
		"total_requests":  cb.totalRequests,
		"total_failures":  cb.totalFailures,
		"total_successes": cb.totalSuccesses,
		"open_count":      cb.openCount,
	}
}
