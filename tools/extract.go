package tools

import "encoding/json"

// Call is a structured tool-invocation request extracted from generated
// text. Parameters is the raw JSON exactly as the model produced it.
type Call struct {
	Name       string
	Parameters string
}

// ParseCalls scans generated text for embedded tool-call JSON. Two shapes
// are recognized: an object with a "tool_calls" array of {name, parameters}
// entries, and a single top-level {name, parameters} object. The first
// candidate that parses and matches a shape wins and scanning stops there,
// even if a better-formed tool call appears later in the text; that
// first-match policy is deliberate and pinned by a regression test. Text
// with no recognizable tool call yields nil. ParseCalls never fails.
func ParseCalls(text string) []Call {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		candidate, ok := balancedObject(text[i:])
		if !ok {
			// No balanced object starts here; a later '{' may still open one.
			continue
		}
		if calls := decodeCalls(candidate); len(calls) > 0 {
			return calls
		}
		// Malformed or irrelevant JSON: skip this '{' and keep scanning.
	}
	return nil
}

// balancedObject extracts the shortest balanced {...} substring at the
// start of s. Brace depth is tracked across quoted strings and
// backslash escapes so that braces inside string values do not perturb
// the count; tool parameters are arbitrary JSON and routinely contain
// them.
func balancedObject(s string) (string, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

type rawCall struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

func (c rawCall) toCall() Call {
	params := "{}"
	if len(c.Parameters) > 0 {
		params = string(c.Parameters)
	}
	return Call{Name: c.Name, Parameters: params}
}

// decodeCalls strictly parses a candidate substring and returns the
// requests it encodes, or nil when it is malformed or does not match
// either recognized shape.
func decodeCalls(candidate string) []Call {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &fields); err != nil {
		return nil
	}

	if raw, ok := fields["tool_calls"]; ok {
		var batch []rawCall
		if err := json.Unmarshal(raw, &batch); err != nil {
			return nil
		}
		calls := make([]Call, 0, len(batch))
		for _, rc := range batch {
			if rc.Name == "" {
				return nil
			}
			calls = append(calls, rc.toCall())
		}
		if len(calls) == 0 {
			return nil
		}
		return calls
	}

	if _, ok := fields["name"]; ok {
		var single rawCall
		if err := json.Unmarshal([]byte(candidate), &single); err != nil {
			return nil
		}
		if single.Name == "" {
			return nil
		}
		return []Call{single.toCall()}
	}

	return nil
}
