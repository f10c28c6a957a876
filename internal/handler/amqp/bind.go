package amqp

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/webitel/im-discord-relay/internal/domain/model"
)

// CommandFunc defines the functional signature for command handling.
type CommandFunc func(ctx context.Context, cmd model.Commander) error

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to the dispatcher, handling panic recovery and decoding.
func Bind(h *CommandHandler, fn CommandFunc) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		// [PANIC_RECOVERY]
		// Safely handle runtime panics to keep the consumer alive. The message
		// is NACKed so it follows the retry and poison path.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
				err = fmt.Errorf("amqp: panic: %v", r)
			}
		}()

		// [DECODING]
		cmd, err := model.DecodeCommand(msg.Payload)
		if err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return nil // ACK: Poison Pill protection.
		}

		// [EXECUTION]
		return fn(msg.Context(), cmd) // NACK on error: Retry, then poison queue.
	}
}

// [ON_COMMAND]
func (h *CommandHandler) OnCommand(ctx context.Context, cmd model.Commander) error {
	return h.dispatcher.Dispatch(ctx, cmd)
}
