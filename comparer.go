package howmany

import (
	"bytes"
	"context"
	"encoding/gob"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
)

// ComparisonRequested asks a Comparer to run a comparison. The ID is echoed in
// the corresponding ComparisonCompleted so requesters can correlate replies.
type ComparisonRequested struct {
	ID         string
	Comparison Comparison
}

// ComparisonCompleted reports the outcome of a requested comparison: either
// its Results, or the Error that stopped it.
type ComparisonCompleted struct {
	ID        string
	Results   map[string]RatioResult
	Error     string
	Timestamp time.Time
}

type comparer struct {
	engine *Engine
	source *pubsub.Subscription
	sink   *pubsub.Topic
}

// NewComparer returns a [component.Procedure] that runs batches of comparisons
// on the given Engine. It consumes gob-encoded ComparisonRequested messages from
// the given source and publishes a gob-encoded ComparisonCompleted message for
// each of them to the given sink.
//
// A comparison that fails is reported in its ComparisonCompleted message; only
// failing to publish that message stops the procedure. Messages that cannot be
// decoded are acknowledged and dropped.
func NewComparer(engine *Engine, source *pubsub.Subscription, sink *pubsub.Topic) component.Procedure {
	return comparer{
		engine: engine,
		source: source,
		sink:   sink,
	}
}

func (c comparer) Exec(l *component.L) {
	logger := component.Logger(l.Context())
	for l.Continue() {
		msg, err := c.source.Receive(l.GraceContext())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return
			}
			// Receive only fails with non-retryable errors, and we cannot recreate the
			// subscription from here.
			panic("cannot receive messages from the pubsub service")
		}

		if err := c.handleMessage(l.GraceContext(), logger, msg); err != nil {
			// Replies must not be lost, so we stop here rather than acknowledging a
			// request that was never answered. It is redelivered after a restart.
			logger.Error("Couldn't handle ComparisonRequested message", slog.Any("error", err))
			panic("cannot proceed to the next ComparisonRequested message due to failure")
		}
		msg.Ack()
	}
}

// handleMessage runs the comparison requested by the given message and
// publishes its outcome. It returns an error only if the outcome could not be
// published.
func (c comparer) handleMessage(ctx context.Context, logger *slog.Logger, msg *pubsub.Message) error {
	ctx, span := tracer.Start(ctx, "comparer.handleMessage", trace.WithAttributes(
		attribute.String("msg.id", msg.LoggableID),
	))
	defer span.End()

	var req ComparisonRequested
	if err := gob.NewDecoder(bytes.NewReader(msg.Body)).Decode(&req); err != nil {
		// A message we cannot decode will never decode; redelivering it would block
		// every request behind it.
		logger.Error("Dropping undecodable ComparisonRequested message", slog.Any("error", err))
		span.SetStatus(codes.Error, err.Error())
		return nil
	}

	logger = logger.With(slog.String("comparison-id", req.ID))
	ctx = component.InjectLogger(ctx, logger)
	logger.Debug("Running requested comparison...")

	completed := ComparisonCompleted{ID: req.ID}
	results, err := c.engine.Compare(ctx, req.Comparison)
	if err != nil {
		logger.Info("Requested comparison failed", slog.Any("error", err))
		completed.Error = err.Error()
	} else {
		completed.Results = results
	}
	completed.Timestamp = time.Now().UTC()

	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(completed); err != nil {
		err := errors.Wrap(err, "encode gob")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	reply := &pubsub.Message{Body: b.Bytes(), Metadata: map[string]string{"comparisonID": req.ID}}
	if err := c.sink.Send(ctx, reply); err != nil {
		err := errors.Wrap(err, "send")
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	logger.Debug("ComparisonCompleted message sent successfully")
	return nil
}
