package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://skyless.invalid/schemas/"

// Client -> server message types and their schemas.
var inboundSchemas = map[string]string{
	TypeLogin:   "login.schema.json",
	TypePing:    "ping.schema.json",
	TypeMove:    "move.schema.json",
	TypeUseItem: "use_item.schema.json",
}

// Error rejects an inbound message with a wire error code.
type Error struct {
	Code string
	Err  error
}

func (e *Error) Error() string { return e.Code + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Validator checks inbound messages against the embedded schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range inboundSchemas {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("protocol: %s: %w", name, err)
		}
		if err := c.AddResource(schemaBase+name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("protocol: %s: %w", name, err)
		}
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(inboundSchemas))}
	for typ, name := range inboundSchemas {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("protocol: compile %s: %w", name, err)
		}
		v.schemas[typ] = s
	}
	return v, nil
}

// Decode validates raw and returns the typed message (LoginMsg, PingMsg,
// MoveMsg or UseItemMsg). Rejections are *Error.
func (v *Validator) Decode(raw []byte) (any, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return nil, &Error{Code: ErrProtoBadRequest, Err: err}
	}
	s, ok := v.schemas[base.Type]
	if !ok {
		return nil, &Error{Code: ErrProtoUnknownType, Err: fmt.Errorf("unknown message type %q", base.Type)}
	}
	if base.ProtocolVersion != Version {
		return nil, &Error{Code: ErrProtoVersion, Err: fmt.Errorf("protocol_version %q, want %q", base.ProtocolVersion, Version)}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Code: ErrProtoBadRequest, Err: err}
	}
	if err := s.Validate(doc); err != nil {
		return nil, &Error{Code: ErrProtoBadRequest, Err: err}
	}

	var msg any
	switch base.Type {
	case TypeLogin:
		var m LoginMsg
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeMove:
		var m MoveMsg
		err = json.Unmarshal(raw, &m)
		msg = m
	case TypeUseItem:
		var m UseItemMsg
		err = json.Unmarshal(raw, &m)
		msg = m
	}
	if err != nil {
		return nil, &Error{Code: ErrProtoBadRequest, Err: err}
	}
	return msg, nil
}
