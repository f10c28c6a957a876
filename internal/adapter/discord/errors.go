package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/sony/gobreaker"

	"github.com/webitel/im-discord-relay/internal/service/dispatch"
)

// classify maps REST failures onto the dispatch error contract.
//
// [MAPPING]
// 404, unknown channel/message and missing access -> dispatch.ErrNotFound
// 429, 5xx, network errors and an open breaker    -> dispatch.ErrTransient
// anything else is returned as is and never retried.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %v", op, dispatch.ErrTransient, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeMissingAccess:
				return fmt.Errorf("%s: %w: %v", op, dispatch.ErrNotFound, err)
			}
		}
		if restErr.Response != nil {
			switch status := restErr.Response.StatusCode; {
			case status == http.StatusNotFound:
				return fmt.Errorf("%s: %w: %v", op, dispatch.ErrNotFound, err)
			case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
				return fmt.Errorf("%s: %w: %v", op, dispatch.ErrTransient, err)
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %v", op, dispatch.ErrTransient, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	return errors.Is(err, dispatch.ErrTransient)
}
