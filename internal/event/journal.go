package event

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reward-core/internal/service/mq"
	"reward-core/pkg/logger"
)

// Journal publishes workflow events. Publishing never fails the workflow: errors are logged only.
type Journal struct {
	producer mq.Producer
	topic    string
	actor    string
	now      func() time.Time
}

func NewJournal(producer mq.Producer, topic, actor string) *Journal {
	if producer == nil {
		producer = mq.NopProducer{}
	}
	return &Journal{producer: producer, topic: topic, actor: actor, now: time.Now}
}

func (j *Journal) WalletSubmitted(ctx context.Context, e WalletSubmitted) {
	j.publish(ctx, Event{
		Type:      TypeWalletSubmitted,
		ProjectID: e.ProjectID,
		Attributes: map[string]string{
			"school_id":      strconv.FormatInt(e.SchoolID, 10),
			"wallet_address": e.WalletAddress,
		},
	})
}

func (j *Journal) DistributionTriggered(ctx context.Context, e DistributionTriggered) {
	j.publish(ctx, Event{
		Type:           TypeDistributionTrigger,
		ProjectID:      e.ProjectID,
		DistributionID: e.DistributionID,
		Attributes: map[string]string{
			"project_title": e.ProjectTitle,
			"total_amount":  e.TotalAmount,
			"recipients":    strconv.Itoa(e.Recipients),
			"admin_notes":   e.AdminNotes,
		},
	})
}

func (j *Journal) DistributionTriggerFailed(ctx context.Context, projectID int64, cause error) {
	j.publish(ctx, Event{
		Type:       TypeDistributionFailed,
		ProjectID:  projectID,
		Attributes: map[string]string{"error": cause.Error()},
	})
}

func (j *Journal) DistributionFinished(ctx context.Context, e DistributionFinished) {
	j.publish(ctx, Event{
		Type:           TypeDistributionFinished,
		DistributionID: e.DistributionID,
		Attributes: map[string]string{
			"overall_status": e.OverallStatus,
			"completed":      strconv.Itoa(e.Completed),
			"failed":         strconv.Itoa(e.Failed),
			"total":          strconv.Itoa(e.Total),
		},
	})
}

func (j *Journal) publish(ctx context.Context, e Event) {
	if j == nil {
		return
	}
	e.ID = uuid.NewString()
	e.OccurredAt = j.now().UTC()
	e.Actor = j.actor

	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error("failed to marshal event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	// 分区键: 同一个项目 (或同一次发放) 的事件有序
	key := e.DistributionID
	if e.ProjectID != 0 {
		key = strconv.FormatInt(e.ProjectID, 10)
	}
	if err := j.producer.Publish(ctx, j.topic, key, payload); err != nil {
		logger.Warn("failed to publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
