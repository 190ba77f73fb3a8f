package client

import (
	"context"

	"github.com/BioHazard786/hearth/internal/protocol"
)

// Await reads events until one of type T arrives and returns it. Events of
// other types are handed to skip when it is non-nil, and dropped otherwise.
func Await[T protocol.Event](ctx context.Context, c *Client, skip func(protocol.Event)) (T, error) {
	var zero T
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				return zero, NewError("await "+zero.Name(), c.doneErr())
			}
			if v, ok := ev.(T); ok {
				return v, nil
			}
			if skip != nil {
				skip(ev)
			}
		case <-ctx.Done():
			return zero, WrapError("await "+zero.Name(), ErrTimeout, ctx.Err().Error())
		}
	}
}

// Identity consumes the next user-id event and returns the identity. Call it
// right after Dial, before reading Events elsewhere.
func (c *Client) Identity(ctx context.Context) (string, error) {
	assigned, err := Await[protocol.UserAssigned](ctx, c, nil)
	if err != nil {
		return "", err
	}
	return assigned.UserID, nil
}
