package triage

import (
	"context"
	"fmt"
)

// Command is an optimistic mutation: Apply changes local state immediately,
// Do performs the backend call, and Invert undoes Apply if Do fails. The UI
// runs Apply and Invert on its event loop and Do inside an async command;
// Execute runs all three inline for callers without an event loop.
type Command struct {
	Action string
	Apply  func()
	Invert func()
	Do     func(context.Context) error
}

// Execute applies the local change, issues the request, and rolls back on
// failure. The returned error is the request error wrapped with the action
// name, suitable for a toast.
func (c Command) Execute(ctx context.Context) error {
	if c.Apply != nil {
		c.Apply()
	}
	err := c.Do(ctx)
	if err != nil {
		if c.Invert != nil {
			c.Invert()
		}
		return fmt.Errorf("%s: %w", c.Action, err)
	}
	return nil
}
