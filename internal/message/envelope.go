package message

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Envelope is the routed record. To selects address routing; nil means the
// frame is routed by its payload's topic. From is stamped by the router on
// ingress and must not be trusted from remote peers. Time is microseconds
// on the sender's (synchronised) clock, ID a wrapping sequence number.
type Envelope struct {
	To   *uint16
	From *uint16
	Data Payload
	Time uint64
	ID   uint32
}

// ErrUnknownTopic is returned when the wire tag names no catalog variant.
var ErrUnknownTopic = errors.New("message: unknown payload topic")

// wireEnvelope is the CBOR shape of an Envelope: a map with the payload as
// a single-entry map keyed by its topic tag.
type wireEnvelope struct {
	To   *uint16         `cbor:"to"`
	From *uint16         `cbor:"from"`
	Data cbor.RawMessage `cbor:"data"`
	Time uint64          `cbor:"time"`
	ID   uint32          `cbor:"id"`
}

// Marshal serialises an envelope to its CBOR wire form.
func Marshal(e *Envelope) ([]byte, error) {
	if e.Data == nil {
		return nil, errors.New("message: envelope has no payload")
	}
	body, err := cbor.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal payload %s: %w", e.Data.Topic(), err)
	}
	tagged, err := cbor.Marshal(map[string]cbor.RawMessage{e.Data.Topic(): body})
	if err != nil {
		return nil, fmt.Errorf("marshal payload tag: %w", err)
	}
	return cbor.Marshal(wireEnvelope{
		To:   e.To,
		From: e.From,
		Data: tagged,
		Time: e.Time,
		ID:   e.ID,
	})
}

// Unmarshal parses a CBOR envelope. A non-nil limits applies the embedded
// string bounds to the payload; pass nil on the host side.
func Unmarshal(data []byte, limits *Limits) (*Envelope, error) {
	var w wireEnvelope
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	var tagged map[string]cbor.RawMessage
	if err := cbor.Unmarshal(w.Data, &tagged); err != nil {
		return nil, fmt.Errorf("unmarshal payload tag: %w", err)
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("message: payload must carry exactly one tag, got %d", len(tagged))
	}
	var payload Payload
	for topic, body := range tagged {
		factory, ok := registry[topic]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
		}
		payload = factory()
		if err := cbor.Unmarshal(body, payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload %s: %w", topic, err)
		}
	}
	if limits != nil {
		if err := limits.Check(payload); err != nil {
			return nil, err
		}
	}
	return &Envelope{To: w.To, From: w.From, Data: payload, Time: w.Time, ID: w.ID}, nil
}
