package bridge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
)

// Dispatcher runs work on the single context that owns controller state.
type Dispatcher interface {
	Dispatch(fn func())
}

// Evaluator runs a script inside the embedded content without waiting for a
// result.
type Evaluator interface {
	EvaluateScript(script string)
}

// Handler consumes decoded messages on the dispatcher's context.
type Handler func(Message)

// Channel is the bidirectional host/content bridge. Inbound messages are
// decoded on the caller's goroutine and handed to the dispatcher in arrival
// order; outbound traffic is fire-and-forget script evaluation.
type Channel struct {
	dispatcher Dispatcher
	evaluator  Evaluator
	handler    Handler
	logger     *zap.Logger
	metrics    *monitoring.Metrics
}

// NewChannel wires a channel. handler may be replaced later with SetHandler
// but must be set before the content can post messages.
func NewChannel(dispatcher Dispatcher, evaluator Evaluator, handler Handler, logger *zap.Logger, metrics *monitoring.Metrics) *Channel {
	return &Channel{
		dispatcher: dispatcher,
		evaluator:  evaluator,
		handler:    handler,
		logger:     logging.OrNop(logger),
		metrics:    metrics,
	}
}

// SetHandler replaces the inbound handler. Call before content starts.
func (c *Channel) SetHandler(h Handler) {
	c.handler = h
}

// Receive accepts one raw message from the content. Malformed and unknown
// messages are dropped. Receive never panics and may be called from any
// goroutine; callers from one source must call it sequentially to keep
// their ordering.
func (c *Channel) Receive(raw []byte) {
	msg, err := Decode(raw)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownType) {
			reason = "unknown_type"
		}
		c.logger.Debug("Dropping bridge message", zap.String("reason", reason), zap.Error(err))
		c.metrics.RecordBridgeDropped(reason)
		return
	}

	c.metrics.RecordBridgeMessage(string(msg.Type))
	c.dispatcher.Dispatch(func() { c.deliver(msg) })
}

func (c *Channel) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Bridge handler panicked",
				zap.String("type", string(msg.Type)),
				zap.Any("panic", r))
		}
	}()

	if c.handler == nil {
		c.logger.Debug("No bridge handler attached", zap.String("type", string(msg.Type)))
		return
	}
	c.handler(msg)
}

// Evaluate sends a script to the content. Delivery is not acknowledged.
func (c *Channel) Evaluate(script string) {
	if c.evaluator == nil {
		return
	}
	c.evaluator.EvaluateScript(script)
}

// EvaluateScript lets a Channel stand in wherever an Evaluator is expected.
func (c *Channel) EvaluateScript(script string) {
	c.Evaluate(script)
}
