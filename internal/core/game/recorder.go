package game

import (
	"errors"
	"time"

	"github.com/bpawel10/skyless/internal/core/attr"
	"github.com/bpawel10/skyless/internal/core/model"
)

// Recorder observes every command the actor applies or skips. Records are
// diagnostics only and never feed back into game state.
type Recorder interface {
	RecordCommand(rec CommandRecord) error
}

type CommandRecord struct {
	Run       string          `json:"run"`
	Seq       uint64          `json:"seq"`
	At        time.Time       `json:"at"`
	Command   string          `json:"command"`
	Depth     int             `json:"depth"`
	Applied   bool            `json:"applied"`
	Event     string          `json:"event,omitempty"`
	From      *model.Position `json:"from,omitempty"`
	To        *model.Position `json:"to,omitempty"`
	Attribute string          `json:"attribute,omitempty"`
	Value     attr.Attribute  `json:"value,omitempty"`
}

func describe(cmd Command) CommandRecord {
	rec := CommandRecord{Command: cmd.CommandName()}
	switch c := cmd.(type) {
	case EmitEvent:
		if c.Event != nil {
			rec.Event = c.Event.EventName()
		}
	case SetGameAttribute:
		if c.Attribute != nil {
			rec.Attribute = c.Attribute.AttributeName()
			rec.Value = c.Attribute
		}
	case SetWorld:
		// The world itself is too large to record.
	case AddEntity:
		rec.To = posPtr(c.Position)
	case SetEntityAttribute:
		rec.To = posPtr(c.Position)
		if c.Attribute != nil {
			rec.Attribute = c.Attribute.AttributeName()
			rec.Value = c.Attribute
		}
	case RemoveEntityAttribute:
		rec.To = posPtr(c.Position)
		rec.Attribute = c.Name
	case MoveEntity:
		rec.From = posPtr(c.From)
		rec.To = posPtr(c.To)
	}
	return rec
}

func posPtr(p model.Position) *model.Position { return &p }

// MultiRecorder fans a record out to every non-nil recorder.
type MultiRecorder []Recorder

func (m MultiRecorder) RecordCommand(rec CommandRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.RecordCommand(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
