package handlers

import (
	"context"
	"fmt"

	"github.com/CivicGraph/demo-server/application/commands"
	"github.com/CivicGraph/demo-server/application/commands/bus"
	"github.com/CivicGraph/demo-server/application/services"
)

// InitSessionHandler handles InitSessionCommand
type InitSessionHandler struct {
	initializer *services.SessionInitializer
}

func NewInitSessionHandler(initializer *services.SessionInitializer) *InitSessionHandler {
	return &InitSessionHandler{initializer: initializer}
}

func (h *InitSessionHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.InitSessionCommand)
	if !ok {
		return unexpected(cmd)
	}
	_, err := h.initializer.Initialize(ctx, c.Session)
	return err
}

// AddChildrenHandler handles AddChildrenCommand
type AddChildrenHandler struct {
	mutations *services.MutationService
}

func NewAddChildrenHandler(mutations *services.MutationService) *AddChildrenHandler {
	return &AddChildrenHandler{mutations: mutations}
}

func (h *AddChildrenHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.AddChildrenCommand)
	if !ok {
		return unexpected(cmd)
	}
	_, err := h.mutations.AddChildren(ctx, c.Session, c.ParentID, c.Children)
	return err
}

// EditNodeHandler handles EditNodeCommand
type EditNodeHandler struct {
	mutations *services.MutationService
}

func NewEditNodeHandler(mutations *services.MutationService) *EditNodeHandler {
	return &EditNodeHandler{mutations: mutations}
}

func (h *EditNodeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.EditNodeCommand)
	if !ok {
		return unexpected(cmd)
	}
	_, err := h.mutations.Edit(ctx, c.Session, c.Node)
	return err
}

// RemoveNodeHandler handles RemoveNodeCommand
type RemoveNodeHandler struct {
	removal *services.RemovalService
}

func NewRemoveNodeHandler(removal *services.RemovalService) *RemoveNodeHandler {
	return &RemoveNodeHandler{removal: removal}
}

func (h *RemoveNodeHandler) Handle(ctx context.Context, cmd bus.Command) error {
	c, ok := cmd.(commands.RemoveNodeCommand)
	if !ok {
		return unexpected(cmd)
	}
	_, err := h.removal.Remove(ctx, c.Session, c.NodeID)
	return err
}

func unexpected(cmd bus.Command) error {
	return fmt.Errorf("unexpected command type %T", cmd)
}

// Register wires every session command to its handler.
func Register(b *bus.CommandBus,
	initializer *services.SessionInitializer,
	mutations *services.MutationService,
	removal *services.RemovalService,
) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.InitSessionCommand{}, NewInitSessionHandler(initializer)},
		{commands.AddChildrenCommand{}, NewAddChildrenHandler(mutations)},
		{commands.EditNodeCommand{}, NewEditNodeHandler(mutations)},
		{commands.RemoveNodeCommand{}, NewRemoveNodeHandler(removal)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}
