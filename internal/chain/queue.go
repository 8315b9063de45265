package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Queue is the log groups still to export. The payload may carry either a
// single name or a list; the form is resolved once when decoding.
type Queue struct {
	single string
	many   []string
	isMany bool
}

// Single returns a queue holding one log group given as a scalar.
func Single(name string) Queue {
	return Queue{single: name}
}

// Many returns a queue over a copy of names.
func Many(names ...string) Queue {
	return Queue{many: append([]string{}, names...), isMany: true}
}

// Len returns the number of log groups left.
func (q Queue) Len() int {
	if q.isMany {
		return len(q.many)
	}
	if q.single == "" {
		return 0
	}
	return 1
}

// Names returns a copy of the remaining log groups in order.
func (q Queue) Names() []string {
	if q.isMany {
		return append([]string{}, q.many...)
	}
	if q.single == "" {
		return nil
	}
	return []string{q.single}
}

// PopHead returns the next log group and the queue without it. The receiver
// is not modified. Popping an empty queue returns ok=false.
func (q Queue) PopHead() (head string, rest Queue, ok bool) {
	if !q.isMany {
		if q.single == "" {
			return "", Many(), false
		}
		return q.single, Many(), true
	}
	if len(q.many) == 0 {
		return "", Many(), false
	}
	return q.many[0], Many(q.many[1:]...), true
}

func (q Queue) MarshalJSON() ([]byte, error) {
	if q.isMany {
		if q.many == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(q.many)
	}
	return json.Marshal(q.single)
}

func (q *Queue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = Queue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Single(s)
	case '[':
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("logGroupList must be a list of strings: %w", err)
		}
		*q = Many(names...)
	default:
		return fmt.Errorf("logGroupList must be a string or a list of strings, got %s", data)
	}
	return nil
}
