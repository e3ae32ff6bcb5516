package entities

import "github.com/CivicGraph/demo-server/domain/core/valueobjects"

// Store field names.
const (
	FieldID       = "_id"
	FieldKey      = "_key"
	FieldRev      = "_rev"
	FieldFrom     = "_from"
	FieldTo       = "_to"
	FieldSource   = "_source"
	FieldRef      = "_ref"
	FieldRawID    = "_rawId"
	FieldObjClass = "obj-class"
	FieldBody     = "Body"

	// Projection fields exposed to the front-end.
	FieldPublicID     = "id"
	FieldPublicSource = "source"
	FieldPublicTarget = "target"
)

// Document is a schemaless graph document as stored and as returned to clients.
type Document map[string]interface{}

// Str returns a string field or "" when absent or not a string.
func (d Document) Str(field string) string {
	s, _ := d[field].(string)
	return s
}

func (d Document) ID() string       { return d.Str(FieldID) }
func (d Document) Key() string      { return d.Str(FieldKey) }
func (d Document) From() string     { return d.Str(FieldFrom) }
func (d Document) To() string       { return d.Str(FieldTo) }
func (d Document) ObjClass() string { return d.Str(FieldObjClass) }
func (d Document) Body() string     { return d.Str(FieldBody) }

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Without returns a copy lacking the given fields.
func (d Document) Without(fields ...string) Document {
	out := d.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// ProjectVertex reshapes a stored node for clients: id = _id and the store's
// _id, _key and _rev are dropped.
func (d Document) ProjectVertex() Document {
	out := d.Without(FieldID, FieldKey, FieldRev)
	out[FieldPublicID] = d[FieldID]
	return out
}

// ProjectEdge reshapes a stored edge for clients: id, source and target
// replace _id, _from and _to.
func (d Document) ProjectEdge() Document {
	out := d.Without(FieldID, FieldKey, FieldRev, FieldFrom, FieldTo)
	out[FieldPublicID] = d[FieldID]
	out[FieldPublicSource] = d[FieldFrom]
	out[FieldPublicTarget] = d[FieldTo]
	return out
}

// Project applies the projection matching kind.
func (d Document) Project(kind valueobjects.CollectionKind) Document {
	if kind.IsEdge() {
		return d.ProjectEdge()
	}
	return d.ProjectVertex()
}

// NewEdge builds an edge document between two node ids.
func NewEdge(from, to string) Document {
	return Document{FieldFrom: from, FieldTo: to}
}
