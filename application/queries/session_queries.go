// Package queries holds the read requests a session answers.
package queries

import (
	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
	"github.com/CivicGraph/demo-server/pkg/utils"
)

func validate(session valueobjects.SessionID, q interface{}) error {
	if session.IsZero() {
		return apperrors.NewValidationError("session is required").WithCode(apperrors.CodeMissingSession)
	}
	if err := utils.ValidateStruct(q); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// ShowQuery reads the session graph, optionally restricted to NodeIDs.
type ShowQuery struct {
	Session valueobjects.SessionID
	NodeIDs []string `validate:"dive,required"`
	Options ports.ShowOptions
}

func (q ShowQuery) Validate() error { return validate(q.Session, q) }

// ListChildrenQuery lists the canonical children of a canonical node.
type ListChildrenQuery struct {
	Session valueobjects.SessionID
	RawID   string `validate:"required"`
}

func (q ListChildrenQuery) Validate() error { return validate(q.Session, q) }

// VersionsQuery reads a node at several points in time (epoch seconds).
type VersionsQuery struct {
	Session    valueobjects.SessionID
	NodeID     string    `validate:"required"`
	Timestamps []float64 `validate:"required,min=1"`
}

func (q VersionsQuery) Validate() error { return validate(q.Session, q) }

// LogQuery renders the session's event history as a timeline.
type LogQuery struct {
	Session valueobjects.SessionID
}

func (q LogQuery) Validate() error { return validate(q.Session, q) }
