package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"leaveledger/internal/events"
	"leaveledger/internal/ledger"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RunCacheRebuildConsumer consumes cache-rebuild requests and replays the
// affected ledger scope into fresh balance cache rows. Offsets are committed
// only after a successful rebuild, so a crashed rebuild is retried. Rebuilds
// are idempotent; redelivery is harmless.
func RunCacheRebuildConsumer(
	ctx context.Context,
	reader *kafkago.Reader,
	balances ledger.BalanceService,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.cache_rebuild")
	log.Info("cache rebuild consumer started", zap.String("topic", events.BalanceCacheRebuildTopic))

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info("cache rebuild consumer stopped")
				return
			}
			log.Error("fetch message failed", zap.Error(err))
			continue
		}

		var event events.BalanceCacheRebuildEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// Malformed payloads are committed past; retrying cannot fix them.
			log.Error("unmarshal rebuild event failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			commit(ctx, reader, msg, log)
			continue
		}

		if err := balances.RebuildCache(ctx, event.TenantID, event.EmployeeID, event.LeaveTypeID, event.CycleYear); err != nil {
			log.Error("rebuild cache failed",
				zap.String("tenant_id", event.TenantID),
				zap.String("employee_id", event.EmployeeID),
				zap.String("leave_type_id", event.LeaveTypeID),
				zap.Int("cycle_year", event.CycleYear),
				zap.Error(err),
			)
			// Leave the offset uncommitted so the group retries the message.
			continue
		}

		log.Info("cache rebuilt from event",
			zap.String("employee_id", event.EmployeeID),
			zap.String("leave_type_id", event.LeaveTypeID),
			zap.Int("cycle_year", event.CycleYear),
		)
		commit(ctx, reader, msg, log)
	}
}

func commit(ctx context.Context, reader *kafkago.Reader, msg kafkago.Message, log *zap.Logger) {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit offset failed", zap.Int64("offset", msg.Offset), zap.Error(err))
	}
}
