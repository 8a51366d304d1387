package selector

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/papercomputeco/tabula/pkg/catalog"
	"github.com/papercomputeco/tabula/pkg/sheets"
)

// Outcome classifies what the oracle returned.
type Outcome int

const (
	// Parsed means the reply had one of the accepted shapes.
	Parsed Outcome = iota
	// Invalid means the reply was JSON, but of the wrong shape.
	Invalid
	// Unparsable means the reply was not JSON at all.
	Unparsable
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Invalid:
		return "invalid"
	case Unparsable:
		return "unparsable"
	}
	return "unknown"
}

// Result is a validated selection together with how it was obtained.
// Selection is empty unless Outcome is Parsed.
type Result struct {
	Outcome   Outcome
	Selection sheets.Selection
	Dropped   []string
	Raw       string
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// Parse interprets the oracle's reply. Two shapes are accepted: an object
// mapping sheet names to field lists, and a plain array of sheet names, which
// selects each sheet's identity field. Whatever survives is validated
// against cat.
func Parse(reply string, cat *catalog.Catalog) Result {
	text := strings.TrimSpace(reply)
	if m := fence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	res := Result{Selection: sheets.Selection{}, Raw: reply}

	var anyJSON any
	if err := json.Unmarshal([]byte(text), &anyJSON); err != nil {
		res.Outcome = Unparsable
		return res
	}

	var byField map[string][]string
	if err := json.Unmarshal([]byte(text), &byField); err == nil && byField != nil {
		res.Outcome = Parsed
		res.Selection, res.Dropped = cat.Validate(byField)
		return res
	}

	var names []string
	if err := json.Unmarshal([]byte(text), &names); err == nil && names != nil {
		res.Outcome = Parsed
		res.Selection, res.Dropped = cat.IdentityOnly(names)
		return res
	}

	res.Outcome = Invalid
	return res
}
