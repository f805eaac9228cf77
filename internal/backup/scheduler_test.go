package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerConfigDefaults(t *testing.T) {
	var config SchedulerConfig
	config.SetDefaults()

	assert.Equal(t, 24*time.Hour, config.BackupInterval)
	assert.Equal(t, 24*time.Hour, config.CleanupInterval)
	assert.Equal(t, 30, config.KeepDays)
	assert.Equal(t, 5, config.MinKeep)
}

func TestSchedulerRunsBackupsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	manager := newTestManager(t, Options{Dir: dir, MysqldumpPath: "/bin/echo"})

	scheduler := NewScheduler(manager, SchedulerConfig{
		BackupInterval:  20 * time.Millisecond,
		CleanupInterval: time.Hour,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	// Backups land on the same second and share a file name, so one file is
	// enough to prove the loop ticked.
	require.Eventually(t, func() bool {
		records, err := manager.List()
		return err == nil && len(records) > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler did not stop after context cancellation")
	}
}

func TestSchedulerStopsWithoutTicking(t *testing.T) {
	manager := newTestManager(t, Options{MysqldumpPath: "/bin/echo"})
	scheduler := NewScheduler(manager, SchedulerConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Scheduler did not observe the cancelled context")
	}
}
