package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthMonitor runs registered checks on demand or on an interval
type HealthMonitor struct {
	logger *logrus.Logger
	config *HealthConfig
	mu     sync.RWMutex
	checks map[string]HealthCheck
	status *SystemStatus
}

// HealthConfig configures health monitoring
type HealthConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	CheckInterval time.Duration `json:"check_interval" mapstructure:"check_interval"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
}

// HealthCheck defines a health check
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) HealthResult
	Critical() bool
	Timeout() time.Duration
}

// HealthResult represents the result of a health check
type HealthResult struct {
	Status    HealthStatus      `json:"status"`
	Message   string            `json:"message"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
}

// HealthStatus represents the health status
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusUnknown   HealthStatus = "unknown"
)

// SystemStatus represents overall service health
type SystemStatus struct {
	OverallStatus  HealthStatus            `json:"overall_status"`
	CheckResults   map[string]HealthResult `json:"check_results"`
	LastCheck      time.Time               `json:"last_check"`
	CriticalIssues []string                `json:"critical_issues,omitempty"`
	Uptime         time.Duration           `json:"uptime"`
	StartTime      time.Time               `json:"start_time"`
}

// BasicHealthCheck adapts a function to HealthCheck
type BasicHealthCheck struct {
	name        string
	checkFunc   func(ctx context.Context) error
	critical    bool
	timeout     time.Duration
	description string
}

// DefaultHealthConfig returns the health monitoring defaults
func DefaultHealthConfig() *HealthConfig {
	return &HealthConfig{
		Enabled:       true,
		CheckInterval: 30 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(config *HealthConfig, logger *logrus.Logger) *HealthMonitor {
	if config == nil {
		config = DefaultHealthConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &HealthMonitor{
		logger: logger,
		config: config,
		checks: make(map[string]HealthCheck),
		status: &SystemStatus{
			OverallStatus: StatusUnknown,
			StartTime:     time.Now(),
			CheckResults:  make(map[string]HealthResult),
		},
	}
}

// Start runs all checks every CheckInterval until ctx is done
func (hm *HealthMonitor) Start(ctx context.Context) error {
	if !hm.config.Enabled {
		hm.logger.Info("Health monitoring disabled")
		return nil
	}

	hm.logger.Info("Starting health monitoring")
	go hm.monitoringLoop(ctx)
	return nil
}

// RegisterCheck registers a new health check
func (hm *HealthMonitor) RegisterCheck(check HealthCheck) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checks[check.Name()] = check
	hm.logger.WithField("check", check.Name()).Debug("Registered health check")
}

// GetStatus returns a copy of the last computed status
func (hm *HealthMonitor) GetStatus() *SystemStatus {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := &SystemStatus{
		OverallStatus:  hm.status.OverallStatus,
		LastCheck:      hm.status.LastCheck,
		Uptime:         time.Since(hm.status.StartTime),
		StartTime:      hm.status.StartTime,
		CheckResults:   make(map[string]HealthResult, len(hm.status.CheckResults)),
		CriticalIssues: append([]string(nil), hm.status.CriticalIssues...),
	}
	for k, v := range hm.status.CheckResults {
		status.CheckResults[k] = v
	}
	return status
}

// CheckNow runs every check concurrently and returns the resulting status
func (hm *HealthMonitor) CheckNow(ctx context.Context) *SystemStatus {
	hm.runAllChecks(ctx)
	return hm.GetStatus()
}

// RunCheck runs a specific health check manually
func (hm *HealthMonitor) RunCheck(ctx context.Context, checkName string) (HealthResult, error) {
	hm.mu.RLock()
	check, exists := hm.checks[checkName]
	hm.mu.RUnlock()

	if !exists {
		return HealthResult{}, fmt.Errorf("health check '%s' not found", checkName)
	}

	return hm.executeCheck(ctx, check), nil
}

func (hm *HealthMonitor) monitoringLoop(ctx context.Context) {
	ticker := time.NewTicker(hm.config.CheckInterval)
	defer ticker.Stop()

	hm.runAllChecks(ctx)

	for {
		select {
		case <-ctx.Done():
			hm.logger.Info("Stopping health monitoring")
			return
		case <-ticker.C:
			hm.runAllChecks(ctx)
		}
	}
}

func (hm *HealthMonitor) runAllChecks(ctx context.Context) {
	hm.mu.RLock()
	checks := make(map[string]HealthCheck, len(hm.checks))
	for k, v := range hm.checks {
		checks[k] = v
	}
	hm.mu.RUnlock()

	var (
		wg      sync.WaitGroup
		resMu   sync.Mutex
		results = make(map[string]HealthResult, len(checks))
	)
	for name, check := range checks {
		wg.Add(1)
		go func(n string, c HealthCheck) {
			defer wg.Done()
			r := hm.executeCheck(ctx, c)
			resMu.Lock()
			results[n] = r
			resMu.Unlock()
		}(name, check)
	}
	wg.Wait()

	var critical []string
	for name, r := range results {
		if r.Status == StatusUnhealthy && checks[name].Critical() {
			critical = append(critical, name)
		}
	}

	hm.updateStatus(results, critical)
}

func (hm *HealthMonitor) executeCheck(ctx context.Context, check HealthCheck) HealthResult {
	start := time.Now()

	timeout := check.Timeout()
	if timeout == 0 {
		timeout = hm.config.Timeout
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := check.Check(checkCtx)
	result.Duration = time.Since(start)
	result.Timestamp = time.Now()

	if result.Status != StatusHealthy {
		hm.logger.WithFields(logrus.Fields{
			"check":    check.Name(),
			"status":   result.Status,
			"duration": result.Duration,
			"message":  result.Message,
		}).Warn("Health check failed")
	}

	return result
}

func (hm *HealthMonitor) updateStatus(results map[string]HealthResult, critical []string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.status.CheckResults = results
	hm.status.LastCheck = time.Now()
	hm.status.CriticalIssues = critical

	switch {
	case len(critical) > 0:
		hm.status.OverallStatus = StatusUnhealthy
	default:
		hm.status.OverallStatus = StatusHealthy
		for _, r := range results {
			if r.Status != StatusHealthy {
				hm.status.OverallStatus = StatusDegraded
				break
			}
		}
	}
}

// NewBasicHealthCheck creates a new basic health check
func NewBasicHealthCheck(name string, checkFunc func(ctx context.Context) error, critical bool, timeout time.Duration, description string) *BasicHealthCheck {
	return &BasicHealthCheck{
		name:        name,
		checkFunc:   checkFunc,
		critical:    critical,
		timeout:     timeout,
		description: description,
	}
}

// Name returns the check name
func (bhc *BasicHealthCheck) Name() string {
	return bhc.name
}

// Check executes the health check
func (bhc *BasicHealthCheck) Check(ctx context.Context) HealthResult {
	result := HealthResult{
		Status:  StatusHealthy,
		Message: "OK",
		Details: map[string]string{
			"description": bhc.description,
			"critical":    fmt.Sprintf("%t", bhc.critical),
		},
	}

	if err := bhc.checkFunc(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
	}

	return result
}

// Critical returns whether this check is critical
func (bhc *BasicHealthCheck) Critical() bool {
	return bhc.critical
}

// Timeout returns the check timeout
func (bhc *BasicHealthCheck) Timeout() time.Duration {
	return bhc.timeout
}
