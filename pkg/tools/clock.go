package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/papercomputeco/tabula/pkg/llm"
)

// DateTimeLayout renders DD-MM-YYYY HH:MM:SS.
const DateTimeLayout = "02-01-2006 15:04:05"

// Clock reports the current local date and time.
type Clock struct {
	now func() time.Time
}

// NewClock creates a Clock. A nil now uses time.Now.
func NewClock(now func() time.Time) Clock {
	if now == nil {
		now = time.Now
	}
	return Clock{now: now}
}

func (Clock) Name() string { return "get_datetime" }

func (c Clock) Definition() llm.Tool {
	return llm.NewFunctionTool(c.Name(),
		"Returns today's date and time in DD-MM-YYYY HH:MM:SS format.",
		json.RawMessage(`{"type":"object","properties":{}}`),
	)
}

func (c Clock) Call(context.Context, Context, json.RawMessage) (any, error) {
	return c.now().Format(DateTimeLayout), nil
}
