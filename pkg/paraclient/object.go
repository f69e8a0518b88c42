package paraclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erudika/para-client-go/pkg/signer"
)

// DefaultType is the type of objects created without one.
const DefaultType = "sysprop"

// Object is the core domain object. Custom fields live in Properties.
type Object struct {
	// ID is usually an autogenerated unique string of numbers.
	ID string
	// Timestamp is the creation time in milliseconds since the epoch.
	Timestamp *int64
	Type      string
	// Plural is the type in plural form. Derived from Type when empty.
	Plural string
	// AppID is the application the object belongs to.
	AppID     string
	ParentID  string
	CreatorID string
	// Updated is the last update time in milliseconds since the epoch.
	Updated *int64
	Name    string
	Tags    []string
	// Votes is the sum of all votes for this object.
	Votes   int
	Stored  bool
	Indexed bool
	Cached  bool

	Properties map[string]any
}

var coreFields = map[string]struct{}{
	"id": {}, "timestamp": {}, "type": {}, "plural": {}, "appid": {}, "parentid": {},
	"creatorid": {}, "updated": {}, "name": {}, "tags": {}, "votes": {},
	"stored": {}, "indexed": {}, "cached": {},
}

// NewObject returns an object with default values. An empty type falls back to DefaultType.
func NewObject(id, typ string) *Object {
	if typ == "" {
		typ = DefaultType
	}
	return &Object{
		ID:         id,
		Type:       typ,
		Name:       "ParaObject",
		Tags:       []string{},
		Stored:     true,
		Indexed:    true,
		Cached:     true,
		Properties: map[string]any{},
	}
}

func (o *Object) effectiveType() string {
	if len(o.Type) < 2 {
		return DefaultType
	}
	return o.Type
}

// PluralName returns the plural form of the type, e.g. user -> users.
func (o *Object) PluralName() string {
	if o.Plural != "" {
		return o.Plural
	}
	t := o.effectiveType()
	switch {
	case strings.HasSuffix(t, "s"):
		return t + "es"
	case strings.HasSuffix(t, "y"):
		return strings.TrimSuffix(t, "y") + "ies"
	default:
		return t + "s"
	}
}

// ObjectURI returns the URI of this object, e.g. /users/123.
func (o *Object) ObjectURI() string {
	uri := "/" + signer.EncodeURIComponent(o.PluralName())
	if o.ID != "" {
		uri += "/" + signer.EncodeURIComponent(o.ID)
	}
	return uri
}

// Get returns the value of a core field or a custom property.
func (o *Object) Get(key string) any {
	if _, ok := coreFields[key]; ok {
		return o.Fields()[key]
	}
	return o.Properties[key]
}

// Set assigns a core field or a custom property. Core fields are converted
// from their JSON representation.
func (o *Object) Set(key string, value any) error {
	if _, ok := coreFields[key]; !ok {
		if o.Properties == nil {
			o.Properties = map[string]any{}
		}
		o.Properties[key] = value
		return nil
	}
	raw, err := json.Marshal(map[string]any{key: value})
	if err != nil {
		return fmt.Errorf("failed to encode field %s: %w", key, err)
	}
	var core objectJSON
	if err := json.Unmarshal(raw, &core); err != nil {
		return fmt.Errorf("invalid value for field %s: %w", key, err)
	}
	core.applyTo(o, raw)
	return nil
}

// SetFields populates the object from a map of fields.
func (o *Object) SetFields(fields map[string]any) error {
	for k, v := range fields {
		if err := o.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}

// Fields returns all core fields and properties as a map.
func (o *Object) Fields() map[string]any {
	data, err := json.Marshal(o)
	if err != nil {
		return map[string]any{}
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return map[string]any{}
	}
	return fields
}

// String returns the JSON form of the object.
func (o *Object) String() string {
	data, err := json.Marshal(o)
	if err != nil {
		return "{}"
	}
	return string(data)
}

type objectJSON struct {
	ID        *string   `json:"id,omitempty"`
	Timestamp *int64    `json:"timestamp,omitempty"`
	Type      *string   `json:"type,omitempty"`
	Plural    *string   `json:"plural,omitempty"`
	AppID     *string   `json:"appid,omitempty"`
	ParentID  *string   `json:"parentid,omitempty"`
	CreatorID *string   `json:"creatorid,omitempty"`
	Updated   *int64    `json:"updated,omitempty"`
	Name      *string   `json:"name,omitempty"`
	Tags      *[]string `json:"tags,omitempty"`
	Votes     *int      `json:"votes,omitempty"`
	Stored    *bool     `json:"stored,omitempty"`
	Indexed   *bool     `json:"indexed,omitempty"`
	Cached    *bool     `json:"cached,omitempty"`
}

// applyTo copies the fields present in raw onto o. JSON nulls reset
// timestamps and leave other fields alone.
func (c *objectJSON) applyTo(o *Object, raw []byte) {
	var present map[string]json.RawMessage
	_ = json.Unmarshal(raw, &present)
	has := func(k string) bool { _, ok := present[k]; return ok }
	if c.ID != nil {
		o.ID = *c.ID
	}
	if has("timestamp") {
		o.Timestamp = c.Timestamp
	}
	if c.Type != nil {
		o.Type = *c.Type
	}
	if c.Plural != nil {
		o.Plural = *c.Plural
	}
	if c.AppID != nil {
		o.AppID = *c.AppID
	}
	if c.ParentID != nil {
		o.ParentID = *c.ParentID
	}
	if c.CreatorID != nil {
		o.CreatorID = *c.CreatorID
	}
	if has("updated") {
		o.Updated = c.Updated
	}
	if c.Name != nil {
		o.Name = *c.Name
	}
	if c.Tags != nil {
		o.Tags = *c.Tags
	}
	if c.Votes != nil {
		o.Votes = *c.Votes
	}
	if c.Stored != nil {
		o.Stored = *c.Stored
	}
	if c.Indexed != nil {
		o.Indexed = *c.Indexed
	}
	if c.Cached != nil {
		o.Cached = *c.Cached
	}
}

// MarshalJSON flattens core fields and properties into a single object.
func (o *Object) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(coreFields)+len(o.Properties))
	for k, v := range o.Properties {
		if _, core := coreFields[k]; !core {
			out[k] = v
		}
	}
	tags := o.Tags
	if tags == nil {
		tags = []string{}
	}
	out["id"] = o.ID
	out["type"] = o.Type
	out["plural"] = o.PluralName()
	out["appid"] = o.AppID
	out["parentid"] = o.ParentID
	out["creatorid"] = o.CreatorID
	out["name"] = o.Name
	out["tags"] = tags
	out["votes"] = o.Votes
	out["stored"] = o.Stored
	out["indexed"] = o.Indexed
	out["cached"] = o.Cached
	if o.Timestamp != nil {
		out["timestamp"] = *o.Timestamp
	}
	if o.Updated != nil {
		out["updated"] = *o.Updated
	}
	return json.Marshal(out)
}

// UnmarshalJSON starts from the defaults of NewObject and overwrites the
// fields present in data. Unknown keys become properties.
func (o *Object) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	var core objectJSON
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	*o = *NewObject("", "")
	core.applyTo(o, data)
	for k, raw := range all {
		if _, ok := coreFields[k]; ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("failed to decode property %s: %w", k, err)
		}
		o.Properties[k] = v
	}
	return nil
}
