package message

import "fmt"

// Limits are the string bounds the motor controller operates under. Its
// decode buffers are fixed, so frames that would overflow them are
// rejected at decode time rather than truncated. The host decodes without
// limits and accepts arbitrary lengths.
type Limits struct {
	Name    int // DiagnosticMsg.Name
	Message int // DiagnosticMsg.Message
	Value   int // DiagnosticMsg key and value strings
	Values  int // entries in DiagnosticMsg.Values
	Topic   int // topic strings in a SubscriptionRequest
	Topics  int // entries in a SubscriptionRequest
}

// DefaultLimits matches the controller's buffer sizes.
var DefaultLimits = Limits{Name: 16, Message: 32, Value: 16, Values: 8, Topic: 32, Topics: 8}

// Check rejects payloads whose strings exceed the bounds.
func (l *Limits) Check(p Payload) error {
	switch m := p.(type) {
	case *DiagnosticMsg:
		if len(m.Name) > l.Name {
			return fmt.Errorf("message: diagnostic name %d bytes exceeds %d", len(m.Name), l.Name)
		}
		if len(m.Message) > l.Message {
			return fmt.Errorf("message: diagnostic message %d bytes exceeds %d", len(m.Message), l.Message)
		}
		if len(m.Values) > l.Values {
			return fmt.Errorf("message: diagnostic values %d entries exceeds %d", len(m.Values), l.Values)
		}
		for _, kv := range m.Values {
			if len(kv.Key) > l.Value || len(kv.Value) > l.Value {
				return fmt.Errorf("message: diagnostic pair %q exceeds %d bytes", kv.Key, l.Value)
			}
		}
	case *SubscriptionRequest:
		if len(m.Topics) > l.Topics {
			return fmt.Errorf("message: subscription list %d entries exceeds %d", len(m.Topics), l.Topics)
		}
		for _, t := range m.Topics {
			if len(t) > l.Topic {
				return fmt.Errorf("message: subscription topic %d bytes exceeds %d", len(t), l.Topic)
			}
		}
	}
	return nil
}
