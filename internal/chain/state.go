package chain

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006/01/02"

// State is everything one hop of the export chain needs. It is the payload
// of every invocation and travels by value from hop to hop.
type State struct {
	BucketName string  `json:"bucketName"`
	LogGroups  Queue   `json:"logGroupList"`
	Prefix     string  `json:"prefix,omitempty"`
	TaskID     string  `json:"taskId,omitempty"`
	Window     *Window `json:"window,omitempty"`
}

// Window is the export period [From, To) in epoch milliseconds together with
// the calendar date used in the destination prefix.
type Window struct {
	From int64  `json:"from"`
	To   int64  `json:"to"`
	Date string `json:"date"`
}

// NewWindow covers the UTC day before now. Date is yesterday's calendar day in loc.
func NewWindow(now time.Time, loc *time.Location) Window {
	u := now.UTC()
	to := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -1)
	return Window{
		From: from.UnixMilli(),
		To:   to.UnixMilli(),
		Date: Yesterday(now, loc),
	}
}

// Yesterday formats the day before now in loc as YYYY/MM/DD.
func Yesterday(now time.Time, loc *time.Location) string {
	return now.In(loc).AddDate(0, 0, -1).Format(dateLayout)
}

// PayloadError reports an invocation payload that cannot start a hop.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid payload: %s: %v", e.Reason, e.Err)
	}
	return "invalid payload: " + e.Reason
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Decode parses an invocation payload.
func Decode(data []byte) (State, error) {
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, &PayloadError{Reason: "decode", Err: err}
	}
	return st, nil
}

// Encode renders the state as the next hop's payload.
func (s State) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// Validate checks the fields every hop relies on.
func (s State) Validate() error {
	if s.BucketName == "" {
		return &PayloadError{Reason: "bucketName is required"}
	}
	if s.LogGroups.Len() == 0 {
		return &PayloadError{Reason: "logGroupList is empty"}
	}
	for _, name := range s.LogGroups.Names() {
		if name == "" {
			return &PayloadError{Reason: "logGroupList contains an empty name"}
		}
	}
	return nil
}
