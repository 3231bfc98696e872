package linemovement

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/krobus00/odds-tracker/internal/constant"
	"github.com/krobus00/odds-tracker/internal/entity"
	"github.com/krobus00/odds-tracker/internal/infrastructure"
	"github.com/krobus00/odds-tracker/internal/util"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const timeoutHandlerOddsCollected = "odds_collected"

type refresher interface {
	Refresh(ctx context.Context, eventIDs []string) ([]entity.LineMovement, error)
}

// LineMovementWorker recomputes line movements whenever a collection run
// stored new offers and broadcasts the events that moved.
type LineMovementWorker struct {
	service refresher
	js      nats.JetStreamContext
}

func NewLineMovementWorker(service refresher, js nats.JetStreamContext) *LineMovementWorker {
	return &LineMovementWorker{
		service: service,
		js:      js,
	}
}

func (w *LineMovementWorker) JetstreamEventInit(ctx context.Context) error {
	return infrastructure.EnsureStream(ctx, w.js, infrastructure.OddsStreamConfig())
}

func (w *LineMovementWorker) JetstreamEventSubscribe(ctx context.Context) error {
	err := w.JetstreamEventInit(ctx)
	if err != nil {
		logrus.Error(err)
		return err
	}

	_, err = w.js.QueueSubscribe(
		constant.GetOddsCollectedSubjectAll(),
		constant.OddsCollectedQueueGroup,
		func(msg *nats.Msg) {
			err := util.ProcessWithTimeout(config.Env.NatsJetstream.TimeoutHandler[timeoutHandlerOddsCollected], msg, w.handleOddsCollectedEvent)
			if err != nil {
				logrus.Errorf("error processing message: %v", err)
				return
			}

			err = msg.Ack()
			if err != nil {
				logrus.Errorf("failed to acknowledge message: %v", err)
				return
			}
		},
		nats.ManualAck(),
		nats.Durable(constant.OddsCollectedQueueGroup),
	)
	if err != nil {
		logrus.Error(err)
		return err
	}

	return nil
}

func (w *LineMovementWorker) handleOddsCollectedEvent(ctx context.Context, msg *nats.Msg) (err error) {
	logger := logrus.WithField("subject", msg.Subject)

	var event entity.OddsCollectedEvent
	err = json.Unmarshal(msg.Data, &event)
	if err != nil {
		// malformed payloads are dropped
		logger.Error(err)
		return nil
	}

	logger = logger.WithFields(logrus.Fields{
		"run_id":   event.Data.RunID,
		"provider": event.Data.Provider,
		"events":   len(event.Data.EventIDs),
		"retry":    event.RetryCount,
	})

	// failed events are republished with a bumped retry count and the
	// received message is acked
	defer func() {
		if err == nil {
			return
		}

		logger.Error(err)
		event.RetryCount++
		if event.RetryCount >= config.Env.NatsJetstream.MaxRetries {
			logger.Warn("max retries reached, dropping event")
			err = nil
			return
		}

		publishErr := util.PublishEvent(w.js, msg.Subject, event)
		if publishErr != nil {
			logger.Error(publishErr)
			return
		}
		err = nil
	}()

	movements, err := w.service.Refresh(ctx, event.Data.EventIDs)
	if err != nil {
		return err
	}

	for _, movement := range movements {
		publishErr := util.PublishEvent(w.js, constant.GetLineMoveSubject(movement.EventID), movement)
		if publishErr != nil {
			logger.WithField("event_id", movement.EventID).Errorf("failed to publish line move: %v", publishErr)
		}
	}

	logger.WithField("moved", len(movements)).Info("line movement refreshed")

	return nil
}
