// Package trace implements the append-only run trace.
//
// Every state transition the engine makes is recorded as one entry.
// Entries stream to disk as they are produced, so a crashed run leaves a
// truncated-but-honest record; a finalized trace file is a single strict
// JSON document:
//
//	{ "version": 1, "trace": [ {entry}, {entry}, ... ] }
//
// Each entry is a flat JSON object carrying at least "timestamp"
// (RFC 3339) and "event", the closed discriminator that selects the
// variant. Unknown discriminators are a fatal parse error: the schema is
// closed at each version.
package trace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/crucible/internal/value"
)

// Version is the current trace file format version. Bump it on any format
// change and add migration handling in Load.
const Version = 1

// Event discriminator values.
const (
	EventExperimentBegin    = "experiment_begin"
	EventExperimentEnd      = "experiment_end"
	EventAtPart             = "at_part"
	EventError              = "error"
	EventResearcherDecision = "researcher_decision"
	EventStep               = "step"
	EventDecision           = "decision"
	EventFlowBegin          = "flow_begin"
	EventFlowEnd            = "flow_end"
	EventPartAdded          = "part_added"
	EventPartRemoved        = "part_removed"
	EventCustom             = "custom"
)

// Entry is one recorded transition. Concrete entry types are the only
// implementations.
type Entry interface {
	Event() string
	When() time.Time
}

// ExperimentBegin marks the start of a run.
type ExperimentBegin struct {
	Timestamp  time.Time `json:"timestamp"`
	Experiment string    `json:"experiment_name"`
	RunNumber  int       `json:"run_number"`
	RunToken   string    `json:"run_token,omitempty"`
}

func (ExperimentBegin) Event() string { return EventExperimentBegin }
func (e ExperimentBegin) When() time.Time { return e.Timestamp }

// ExperimentEnd marks the end of a run.
type ExperimentEnd struct {
	Timestamp  time.Time `json:"timestamp"`
	Experiment string    `json:"experiment_name"`
	RunNumber  int       `json:"run_number"`
	RunToken   string    `json:"run_token,omitempty"`
}

func (ExperimentEnd) Event() string { return EventExperimentEnd }
func (e ExperimentEnd) When() time.Time { return e.Timestamp }

// AtPart records the node or command about to be processed. Part is empty
// when the engine has no destination and must consult the operator.
type AtPart struct {
	Timestamp time.Time `json:"timestamp"`
	Part      string    `json:"part,omitempty"`
}

func (AtPart) Event() string { return EventAtPart }
func (e AtPart) When() time.Time { return e.Timestamp }

// Error records a failure while running a part. The run is not aborted;
// control falls back to the operator.
type Error struct {
	Timestamp time.Time `json:"timestamp"`
	Part      string    `json:"part_name"`
	Message   string    `json:"error_message"`
}

func (Error) Event() string { return EventError }
func (e Error) When() time.Time { return e.Timestamp }

// ResearcherDecision records the operator's choice of next destination.
type ResearcherDecision struct {
	Timestamp time.Time `json:"timestamp"`
	NextPart  string    `json:"next_part"`
}

func (ResearcherDecision) Event() string { return EventResearcherDecision }
func (e ResearcherDecision) When() time.Time { return e.Timestamp }

// Step records a completed step with before/after data snapshots and any
// part-scoped payload the step attached (e.g. operator input, replayed
// verbatim on retrace).
type Step struct {
	Timestamp  time.Time   `json:"timestamp"`
	Part       string      `json:"step_name"`
	DataBefore value.Map   `json:"data_before"`
	DataAfter  value.Map   `json:"data_after"`
	PartData   value.Value `json:"part_data,omitempty"`
}

func (Step) Event() string { return EventStep }
func (e Step) When() time.Time { return e.Timestamp }

// UnmarshalJSON decodes the part_data payload into a typed Value.
func (e *Step) UnmarshalJSON(raw []byte) error {
	var aux struct {
		Timestamp  time.Time       `json:"timestamp"`
		Part       string          `json:"step_name"`
		DataBefore value.Map       `json:"data_before"`
		DataAfter  value.Map       `json:"data_after"`
		PartData   json.RawMessage `json:"part_data"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	e.Timestamp = aux.Timestamp
	e.Part = aux.Part
	e.DataBefore = aux.DataBefore
	e.DataAfter = aux.DataAfter
	e.PartData = nil
	if len(aux.PartData) > 0 {
		v, err := value.FromJSON(aux.PartData)
		if err != nil {
			return fmt.Errorf("part_data: %w", err)
		}
		if !value.IsNull(v) {
			e.PartData = v
		}
	}
	return nil
}

// Decision records a decision part's routing choice. NextPart is empty
// when the decision was undecided.
type Decision struct {
	Timestamp time.Time   `json:"timestamp"`
	Part      string      `json:"decision_name"`
	NextPart  string      `json:"next_part,omitempty"`
	PartData  value.Value `json:"part_data,omitempty"`
}

func (Decision) Event() string { return EventDecision }
func (e Decision) When() time.Time { return e.Timestamp }

// UnmarshalJSON decodes the part_data payload into a typed Value.
func (e *Decision) UnmarshalJSON(raw []byte) error {
	var aux struct {
		Timestamp time.Time       `json:"timestamp"`
		Part      string          `json:"decision_name"`
		NextPart  string          `json:"next_part"`
		PartData  json.RawMessage `json:"part_data"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	e.Timestamp = aux.Timestamp
	e.Part = aux.Part
	e.NextPart = aux.NextPart
	e.PartData = nil
	if len(aux.PartData) > 0 {
		v, err := value.FromJSON(aux.PartData)
		if err != nil {
			return fmt.Errorf("part_data: %w", err)
		}
		if !value.IsNull(v) {
			e.PartData = v
		}
	}
	return nil
}

// FlowBegin records entry into a flow and the first child it chose, if
// any.
type FlowBegin struct {
	Timestamp time.Time `json:"timestamp"`
	Flow      string    `json:"flow_name"`
	FirstPart string    `json:"first_part,omitempty"`
}

func (FlowBegin) Event() string { return EventFlowBegin }
func (e FlowBegin) When() time.Time { return e.Timestamp }

// FlowEnd records a flow's exit.
type FlowEnd struct {
	Timestamp time.Time `json:"timestamp"`
	Flow      string    `json:"flow_name"`
}

func (FlowEnd) Event() string { return EventFlowEnd }
func (e FlowEnd) When() time.Time { return e.Timestamp }

// PartAdded records a part's construction, with its raw config table for
// auditability. Dynamic flows add parts mid-run.
type PartAdded struct {
	Timestamp time.Time `json:"timestamp"`
	Part      string    `json:"part_name"`
	TypeName  string    `json:"type_name"`
	Role      string    `json:"role"`
	Source    string    `json:"source,omitempty"`
	Raw       value.Map `json:"raw,omitempty"`
}

func (PartAdded) Event() string { return EventPartAdded }
func (e PartAdded) When() time.Time { return e.Timestamp }

// PartRemoved records a part's removal.
type PartRemoved struct {
	Timestamp time.Time `json:"timestamp"`
	Part      string    `json:"part_name"`
}

func (PartRemoved) Event() string { return EventPartRemoved }
func (e PartRemoved) When() time.Time { return e.Timestamp }

// Custom is a part-defined entry for anything the builtin variants do not
// cover.
type Custom struct {
	Timestamp time.Time   `json:"timestamp"`
	Name      string      `json:"name"`
	Payload   value.Value `json:"payload,omitempty"`
}

func (Custom) Event() string { return EventCustom }
func (e Custom) When() time.Time { return e.Timestamp }

// UnmarshalJSON decodes the payload into a typed Value.
func (e *Custom) UnmarshalJSON(raw []byte) error {
	var aux struct {
		Timestamp time.Time       `json:"timestamp"`
		Name      string          `json:"name"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(raw, &aux); err != nil {
		return err
	}
	e.Timestamp = aux.Timestamp
	e.Name = aux.Name
	e.Payload = nil
	if len(aux.Payload) > 0 {
		v, err := value.FromJSON(aux.Payload)
		if err != nil {
			return fmt.Errorf("payload: %w", err)
		}
		if !value.IsNull(v) {
			e.Payload = v
		}
	}
	return nil
}

// Marshal serializes an entry as a flat JSON object with the event
// discriminator spliced in. Keys are emitted in sorted order, so traces
// are byte-stable for a given entry sequence and clock.
func Marshal(e Entry) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s entry: %w", e.Event(), err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s entry: %w", e.Event(), err)
	}
	fields["event"] = json.RawMessage(fmt.Sprintf("%q", e.Event()))
	return json.Marshal(fields)
}

// parseEntry decodes one raw entry by its event discriminator.
func parseEntry(index int, raw json.RawMessage) (Entry, error) {
	var head struct {
		Event     string     `json:"event"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, &FormatError{Index: index, Message: fmt.Sprintf("malformed entry: %v", err)}
	}
	if head.Event == "" {
		return nil, &FormatError{Index: index, Message: "entry has no event discriminator"}
	}
	if head.Timestamp == nil {
		return nil, &FormatError{Index: index, Event: head.Event, Message: "entry has no timestamp"}
	}

	entry, err := decodeEntry(head.Event, raw)
	if err != nil {
		return nil, &FormatError{Index: index, Event: head.Event, Message: err.Error()}
	}
	return entry, nil
}

func decodeEntry(event string, raw json.RawMessage) (Entry, error) {
	switch event {
	case EventExperimentBegin:
		return decodeAs[ExperimentBegin](raw)
	case EventExperimentEnd:
		return decodeAs[ExperimentEnd](raw)
	case EventAtPart:
		return decodeAs[AtPart](raw)
	case EventError:
		return decodeAs[Error](raw)
	case EventResearcherDecision:
		return decodeAs[ResearcherDecision](raw)
	case EventStep:
		return decodeAs[Step](raw)
	case EventDecision:
		return decodeAs[Decision](raw)
	case EventFlowBegin:
		return decodeAs[FlowBegin](raw)
	case EventFlowEnd:
		return decodeAs[FlowEnd](raw)
	case EventPartAdded:
		return decodeAs[PartAdded](raw)
	case EventPartRemoved:
		return decodeAs[PartRemoved](raw)
	case EventCustom:
		return decodeAs[Custom](raw)
	default:
		return nil, errUnknownEvent
	}
}

func decodeAs[E Entry](raw json.RawMessage) (Entry, error) {
	var e E
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return e, nil
}
