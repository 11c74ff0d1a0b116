package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNowAggregatesStatus(t *testing.T) {
	hm := NewHealthMonitor(nil, logrus.New())
	assert.Equal(t, StatusUnknown, hm.GetStatus().OverallStatus)

	hm.RegisterCheck(NewBasicHealthCheck("ok", func(context.Context) error { return nil }, true, time.Second, "always fine"))
	status := hm.CheckNow(context.Background())
	assert.Equal(t, StatusHealthy, status.OverallStatus)
	require.Contains(t, status.CheckResults, "ok")

	hm.RegisterCheck(NewBasicHealthCheck("flaky", func(context.Context) error { return errors.New("down") }, false, time.Second, "optional"))
	status = hm.CheckNow(context.Background())
	assert.Equal(t, StatusDegraded, status.OverallStatus)
	assert.Empty(t, status.CriticalIssues)

	hm.RegisterCheck(NewBasicHealthCheck("store", func(context.Context) error { return errors.New("unreachable") }, true, time.Second, "trace store"))
	status = hm.CheckNow(context.Background())
	assert.Equal(t, StatusUnhealthy, status.OverallStatus)
	assert.Equal(t, []string{"store"}, status.CriticalIssues)
	assert.Equal(t, "unreachable", status.CheckResults["store"].Message)
}

func TestRunCheck(t *testing.T) {
	hm := NewHealthMonitor(nil, logrus.New())
	hm.RegisterCheck(NewBasicHealthCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, false, 10*time.Millisecond, "times out"))

	result, err := hm.RunCheck(context.Background(), "slow")
	require.NoError(t, err)
	assert.Equal(t, StatusUnhealthy, result.Status)

	_, err = hm.RunCheck(context.Background(), "missing")
	assert.Error(t, err)
}
