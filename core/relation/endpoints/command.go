package endpoints

import (
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"go.uber.org/multierr"
)

// Command encapsulates one relation change. Begin raises the "changing"
// notifications and may veto the change, Perform mutates the end-point and
// End raises the "changed" notifications. Perform only fails on a protocol
// violation, and then leaves the data it was about to change untouched.
type Command interface {
	Begin() error
	Perform() error
	End()
	// ExpandToAllRelatedObjects returns this command together with the
	// commands that keep the other side of the relation consistent.
	ExpandToAllRelatedObjects() (*ExpandedCommand, error)
}

// --- Touch ---

// TouchCommand marks an end-point as touched. It raises no notifications.
type TouchCommand struct {
	EndPoint RelationEndPoint
}

func (c *TouchCommand) Begin() error { return nil }
func (c *TouchCommand) Perform() error {
	c.EndPoint.Touch()
	return nil
}
func (c *TouchCommand) End() {}
func (c *TouchCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return NewExpandedCommand(c), nil
}

// --- Exception ---

// ExceptionCommand stands in for a command that could not be created. It
// fails in Begin so the failure surfaces when the command list is executed.
type ExceptionCommand struct {
	Err error
}

func (c *ExceptionCommand) Begin() error   { return c.Err }
func (c *ExceptionCommand) Perform() error { return c.Err }
func (c *ExceptionCommand) End()           {}
func (c *ExceptionCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return NewExpandedCommand(c), nil
}

// --- Expanded ---

// ExpandedCommand runs an ordered list of commands. Nested expanded commands
// are flattened on construction.
type ExpandedCommand struct {
	commands []Command
}

// NewExpandedCommand creates a composite command. Nil commands are skipped.
func NewExpandedCommand(commands ...Command) *ExpandedCommand {
	c := &ExpandedCommand{}
	return c.CombineWith(commands...)
}

// CombineWith appends commands, flattening expanded ones.
func (c *ExpandedCommand) CombineWith(commands ...Command) *ExpandedCommand {
	for _, command := range commands {
		switch typed := command.(type) {
		case nil:
		case *ExpandedCommand:
			if typed != nil {
				c.commands = append(c.commands, typed.commands...)
			}
		default:
			c.commands = append(c.commands, command)
		}
	}
	return c
}

// Commands returns the flattened command list.
func (c *ExpandedCommand) Commands() []Command {
	out := make([]Command, len(c.commands))
	copy(out, c.commands)
	return out
}

// Begin stops at the first veto.
func (c *ExpandedCommand) Begin() error {
	for _, command := range c.commands {
		if err := command.Begin(); err != nil {
			return err
		}
	}
	return nil
}

func (c *ExpandedCommand) Perform() error {
	for i, command := range c.commands {
		if err := command.Perform(); err != nil {
			return fmt.Errorf("command %d of %d failed: %w", i+1, len(c.commands), err)
		}
	}
	return nil
}

// End runs in reverse order.
func (c *ExpandedCommand) End() {
	for i := len(c.commands) - 1; i >= 0; i-- {
		c.commands[i].End()
	}
}

func (c *ExpandedCommand) ExpandToAllRelatedObjects() (*ExpandedCommand, error) {
	return c, nil
}

// NotifyAndPerform runs Begin, Perform and End. Nothing is performed if any
// command vetoes in Begin. Perform only fails on a protocol violation, which
// the checks made when the commands are created rule out. Should it fail
// anyway, the commands before the failing one stay performed and End is not
// raised; the caller must roll the transaction back.
func (c *ExpandedCommand) NotifyAndPerform() error {
	if err := c.Begin(); err != nil {
		return err
	}
	if err := c.Perform(); err != nil {
		return err
	}
	c.End()
	return nil
}

// PerformCollectingErrors runs every command that begins successfully and
// returns all failures combined. It is used for cascaded deletes, where one
// failing relation must not keep the others from being detached.
func (c *ExpandedCommand) PerformCollectingErrors() error {
	var errs error
	began := make([]Command, 0, len(c.commands))
	for _, command := range c.commands {
		if err := command.Begin(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		began = append(began, command)
	}

	performed := make([]Command, 0, len(began))
	for _, command := range began {
		if err := command.Perform(); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		performed = append(performed, command)
	}

	for i := len(performed) - 1; i >= 0; i-- {
		performed[i].End()
	}
	return errs
}

// expandDelete adds a remove command for every end-point that references the
// deleted object through ep. Failures become exception commands.
func expandDelete(this Command, ep RelationEndPoint, provider EndPointProvider) *ExpandedCommand {
	expanded := NewExpandedCommand(this)
	ids, err := ep.OppositeRelationEndPointIDs()
	if err != nil {
		return expanded.CombineWith(&ExceptionCommand{Err: err})
	}
	for _, id := range ids {
		opposite, err := provider.GetRelationEndPointWithLazyLoad(id)
		if err == nil {
			var remove Command
			if remove, err = opposite.CreateRemoveCommand(ep.ObjectID()); err == nil {
				expanded.CombineWith(remove)
				continue
			}
		}
		expanded.CombineWith(&ExceptionCommand{
			Err: fmt.Errorf("cannot detach '%s' from deleted object '%s': %w", id, ep.ObjectID(), err),
		})
	}
	return expanded
}

func notifyChanging(services Services, id domain.RelationEndPointID, oldID, newID domain.ObjectID) error {
	if services.Listener == nil {
		return nil
	}
	return services.Listener.RelationChanging(id, oldID, newID)
}

func notifyChanged(services Services, id domain.RelationEndPointID, oldID, newID domain.ObjectID) {
	if services.Listener != nil {
		services.Listener.RelationChanged(id, oldID, newID)
	}
}
