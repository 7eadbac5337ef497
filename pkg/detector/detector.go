package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/merabytes/acido/pkg/acido"
	"github.com/merabytes/acido/pkg/log"
	"github.com/merabytes/acido/pkg/metrics"
)

const (
	DefaultPollInterval = 10 * time.Second

	backoffBase           = 2 * time.Second
	backoffCap            = 30 * time.Second
	maxConsecutiveFailure = 5
)

// LogReader is the subset of the Cloud Adapter the detector needs.
type LogReader interface {
	GetLogs(ctx context.Context, groupName, containerName string) (string, error)
	GroupExists(ctx context.Context, name string) (bool, error)
}

// Detector watches one container instance's log until it sees the
// completion sentinel, the group fails, or the deadline elapses.
type Detector struct {
	cloud        LogReader
	pollInterval time.Duration
}

// New builds a Detector backed by cloud, polling every interval (or
// DefaultPollInterval if interval is zero).
func New(cloud LogReader, interval time.Duration) *Detector {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Detector{cloud: cloud, pollInterval: interval}
}

// Watch polls groupName/instance.Name's log until the sentinel
// "ACIDO_DONE=<instance.CompletionUUID>" appears, the context is canceled,
// or deadline passes. It mutates instance.Status, instance.Log, and
// instance.EndedAt in place and returns the terminal status. A string of
// TransientProviderError responses backs off exponentially (base 2s, cap
// 30s) and escalates to Failed after maxConsecutiveFailure in a row.
func (d *Detector) Watch(ctx context.Context, groupName string, instance *acido.ContainerInstance, deadline time.Time) acido.InstanceStatus {
	logger := log.WithInstance(instance.Name)
	timer := metrics.NewTimer()
	sentinel := fmt.Sprintf("ACIDO_DONE=%s", instance.CompletionUUID)

	var deadlineC <-chan time.Time
	if !deadline.IsZero() {
		deadlineTimer := time.NewTimer(time.Until(deadline))
		defer deadlineTimer.Stop()
		deadlineC = deadlineTimer.C
	}

	consecutiveFailures := 0
	wait := d.pollInterval

	finish := func(status acido.InstanceStatus) acido.InstanceStatus {
		instance.Status = status
		instance.EndedAt = time.Now()
		metrics.PollCyclesTotal.WithLabelValues(string(status)).Inc()
		timer.ObserveDurationVec(metrics.PollDuration, string(status))
		return status
	}

	metrics.PollCyclesTotal.WithLabelValues("start").Inc()
	for {
		content, err := d.cloud.GetLogs(ctx, groupName, instance.Name)
		instance.Log = content

		switch {
		case err == nil && strings.Contains(content, sentinel):
			return finish(acido.InstanceSucceeded)

		case err == nil:
			consecutiveFailures = 0
			wait = d.pollInterval

		case isNotFound(err):
			if exists, existsErr := d.cloud.GroupExists(ctx, groupName); existsErr == nil && !exists {
				logger.Warn().Msg("container group no longer exists (deleted out-of-band)")
				return finish(acido.InstanceFailed)
			}
			// A transient NotFound on the log call itself (e.g. the
			// container hasn't started streaming yet) is not a
			// group-visible failure; treat it like any other retry.
			consecutiveFailures++
			logger.Warn().Err(err).Int("consecutive_failures", consecutiveFailures).Msg("group not found polling logs, confirming existence")
			if consecutiveFailures >= maxConsecutiveFailure {
				return finish(acido.InstanceFailed)
			}
			if consecutiveFailures == 1 {
				wait = backoffBase
			} else {
				wait *= 2
			}
			if wait > backoffCap {
				wait = backoffCap
			}

		case isRetryable(err):
			consecutiveFailures++
			logger.Warn().Err(err).Int("consecutive_failures", consecutiveFailures).Msg("transient error polling logs")
			if consecutiveFailures >= maxConsecutiveFailure {
				return finish(acido.InstanceFailed)
			}
			if consecutiveFailures == 1 {
				wait = backoffBase
			} else {
				wait *= 2
			}
			if wait > backoffCap {
				wait = backoffCap
			}

		default:
			logger.Error().Err(err).Msg("fatal error polling logs")
			return finish(acido.InstanceFailed)
		}

		timer2 := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer2.Stop()
			return finish(acido.InstanceTimedOut)
		case <-deadlineC:
			timer2.Stop()
			return finish(acido.InstanceTimedOut)
		case <-timer2.C:
		}
	}
}

func isRetryable(err error) bool {
	ce, ok := err.(*acido.CloudError)
	return ok && ce.Retryable()
}

func isNotFound(err error) bool {
	ce, ok := err.(*acido.CloudError)
	return ok && ce.Class == acido.ClassNotFound
}
