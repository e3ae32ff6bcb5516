package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/commands"
	"github.com/CivicGraph/demo-server/application/commands/bus"
	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/application/queries"
	querybus "github.com/CivicGraph/demo-server/application/queries/bus"
	"github.com/CivicGraph/demo-server/domain/core/entities"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	"github.com/CivicGraph/demo-server/interfaces/http/rest/middleware"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

const maxBodyBytes = 1 << 20

// LineageHandler serves every session operation behind /api/{op}.
type LineageHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *apperrors.ErrorHandler
	logger       *zap.Logger
}

// NewLineageHandler creates a new lineage handler
func NewLineageHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	logger *zap.Logger,
) *LineageHandler {
	return &LineageHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

type operation func(h *LineageHandler, r *http.Request, session valueobjects.SessionID) (interface{}, error)

var operations = map[string]operation{
	"show":     (*LineageHandler).show,
	"list":     (*LineageHandler).list,
	"remove":   (*LineageHandler).remove,
	"add":      (*LineageHandler).add,
	"versions": (*LineageHandler).versions,
	"edit":     (*LineageHandler).edit,
	"log":      (*LineageHandler).log,
	"init":     (*LineageHandler).initSession,
}

// Operations lists the names accepted by Dispatch.
func Operations() []string {
	return []string{"show", "list", "remove", "add", "versions", "edit", "log", "init"}
}

// Dispatch handles ANY /api/{op}
func (h *LineageHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	session, err := SessionFromRequest(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	op := chi.URLParam(r, "op")
	handle, ok := operations[op]
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewNotFoundError("operation").
			WithCode(apperrors.CodeUnknownOperation).
			WithDetails(map[string]interface{}{"op": op}))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	result, err := handle(h, r, session)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// SessionFromRequest reads and normalizes the x-session-id header.
func SessionFromRequest(r *http.Request) (valueobjects.SessionID, error) {
	session, err := valueobjects.NewSessionID(r.Header.Get(middleware.SessionHeader))
	switch {
	case errors.Is(err, valueobjects.ErrEmptySession):
		return session, apperrors.NewValidationError("missing " + middleware.SessionHeader + " header").
			WithCode(apperrors.CodeMissingSession)
	case err != nil:
		return session, apperrors.NewValidationError(err.Error()).WithCode(apperrors.CodeInvalidSession)
	}
	return session, nil
}

func (h *LineageHandler) show(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	var nodeIDs []string
	if err := decodeOptional(r, &nodeIDs); err != nil {
		return nil, err
	}
	opts := make(ports.ShowOptions)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			opts[key] = values[0]
		}
	}
	return h.queryBus.Ask(r.Context(), queries.ShowQuery{Session: session, NodeIDs: nodeIDs, Options: opts})
}

func (h *LineageHandler) list(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	return h.queryBus.Ask(r.Context(), queries.ListChildrenQuery{
		Session: session,
		RawID:   r.URL.Query().Get("_rawId"),
	})
}

func (h *LineageHandler) remove(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	err := h.commandBus.Send(r.Context(), commands.RemoveNodeCommand{
		Session: session,
		NodeID:  r.URL.Query().Get("nid"),
	})
	return err == nil, err
}

func (h *LineageHandler) add(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	var children []entities.Document
	if err := decodeOptional(r, &children); err != nil {
		return nil, err
	}
	err := h.commandBus.Send(r.Context(), commands.AddChildrenCommand{
		Session:  session,
		ParentID: r.URL.Query().Get("parentID"),
		Children: children,
	})
	return err == nil, err
}

func (h *LineageHandler) versions(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	var timestamps []float64
	if err := decodeOptional(r, &timestamps); err != nil {
		return nil, err
	}
	return h.queryBus.Ask(r.Context(), queries.VersionsQuery{
		Session:    session,
		NodeID:     r.URL.Query().Get("nid"),
		Timestamps: timestamps,
	})
}

func (h *LineageHandler) edit(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	var node entities.Document
	if err := decodeOptional(r, &node); err != nil {
		return nil, err
	}
	err := h.commandBus.Send(r.Context(), commands.EditNodeCommand{Session: session, Node: node})
	return err == nil, err
}

func (h *LineageHandler) log(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	return h.queryBus.Ask(r.Context(), queries.LogQuery{Session: session})
}

func (h *LineageHandler) initSession(r *http.Request, session valueobjects.SessionID) (interface{}, error) {
	err := h.commandBus.Send(r.Context(), commands.InitSessionCommand{Session: session})
	return err == nil, err
}

// decodeOptional decodes a JSON body into v, leaving v untouched when the
// body is empty.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperrors.NewValidationError("Invalid request body: " + err.Error()).WithCause(err)
}

func (h *LineageHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
