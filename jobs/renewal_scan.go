package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/helios-saas/helios/internal/billing"
)

const (
	// TaskRenewalScan sweeps subscriptions whose billing period has lapsed.
	TaskRenewalScan = "billing:renewal_scan"
)

// RenewalScanPayload carries scheduling metadata.
type RenewalScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewRenewalScanTask constructs an Asynq task for the subscription sweep.
func NewRenewalScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(RenewalScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRenewalScan, body, asynq.Queue(QueueDefault)), nil
}

// RenewalScanJob marks lapsed subscriptions past_due and expires the ones
// beyond the grace window.
type RenewalScanJob struct {
	billing *billing.Service
	logger  *slog.Logger
}

// NewRenewalScanJob constructs the job.
func NewRenewalScanJob(billingService *billing.Service, logger *slog.Logger) *RenewalScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenewalScanJob{billing: billingService, logger: logger}
}

// Handle processes TaskRenewalScan tasks.
func (j *RenewalScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload RenewalScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	n, err := j.billing.RunRenewalScan(ctx)
	if err != nil {
		j.logger.Error("renewal scan", slog.Any("error", err))
		return err
	}
	j.logger.Info("renewal scan complete", slog.Int("transitioned", n))
	return nil
}
