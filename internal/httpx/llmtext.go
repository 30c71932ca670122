package httpx

import "encoding/json"

// ExtractOutputText pulls the model's text out of a responses-API
// payload. Tolerated shapes: "output" as a plain string, "output" as a
// list of messages with content[] entries of type "output_text", and the
// legacy "choices[].message.content".
func ExtractOutputText(raw map[string]any) string {
	switch out := raw["output"].(type) {
	case string:
		return out
	case []any:
		var text string
		for _, entry := range out {
			msg, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			content, ok := msg["content"].([]any)
			if !ok {
				continue
			}
			for _, c := range content {
				part, ok := c.(map[string]any)
				if !ok {
					continue
				}
				if t, _ := part["type"].(string); t == "output_text" {
					if s, ok := part["text"].(string); ok {
						text += s
					}
				}
			}
		}
		if text != "" {
			return text
		}
	}
	if s, ok := raw["output_text"].(string); ok {
		return s
	}
	if choices, ok := raw["choices"].([]any); ok {
		for _, entry := range choices {
			choice, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if msg, ok := choice["message"].(map[string]any); ok {
				if s, ok := msg["content"].(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// FirstJSONObjectWithKey scans text for balanced JSON objects and
// returns the first one carrying the given top-level key. Invalid
// candidates are skipped silently; LLM output is never trusted to be
// clean JSON.
func FirstJSONObjectWithKey(text, key string) (map[string]any, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end, ok := balancedEnd(text, i)
		if !ok {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(text[i:end+1]), &obj); err != nil {
			continue
		}
		if _, present := obj[key]; present {
			return obj, true
		}
		// Keep scanning from the next brace: the wanted object may be
		// nested inside a wrapper that lacks the key.
	}
	return nil, false
}

// balancedEnd finds the index of the brace closing the object opened at
// start, respecting strings and escapes.
func balancedEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
