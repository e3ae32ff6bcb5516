// Package commands holds the write requests a session accepts.
package commands

import (
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
	"github.com/CivicGraph/demo-server/pkg/utils"
)

func requireSession(session valueobjects.SessionID) error {
	if session.IsZero() {
		return apperrors.NewValidationError("session is required").WithCode(apperrors.CodeMissingSession)
	}
	return nil
}

func validate(session valueobjects.SessionID, cmd interface{}) error {
	if err := requireSession(session); err != nil {
		return err
	}
	if err := utils.ValidateStruct(cmd); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// InitSessionCommand seeds a session from the canonical graph.
type InitSessionCommand struct {
	Session valueobjects.SessionID
}

func (c InitSessionCommand) Validate() error { return requireSession(c.Session) }

// AddChildrenCommand attaches new nodes below a parent.
type AddChildrenCommand struct {
	Session  valueobjects.SessionID
	ParentID string              `json:"parentID" validate:"required"`
	Children []entities.Document `json:"children"`
}

func (c AddChildrenCommand) Validate() error { return validate(c.Session, c) }

// EditNodeCommand replaces a node.
type EditNodeCommand struct {
	Session valueobjects.SessionID
	Node    entities.Document `json:"node" validate:"required"`
}

func (c EditNodeCommand) Validate() error { return validate(c.Session, c) }

// RemoveNodeCommand deletes a node and its descendants.
type RemoveNodeCommand struct {
	Session valueobjects.SessionID
	NodeID  string `json:"nid" validate:"required"`
}

func (c RemoveNodeCommand) Validate() error { return validate(c.Session, c) }
