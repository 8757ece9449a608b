package judge

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	flagKeys   = []string{"judge", "is_correct", "iscorrect", "correct", "result"}
	reasonKeys = []string{"reason", "explanation"}
)

// ParseVerdicts validates a raw oracle answer against the guesses it was
// asked about. Verdict i always carries guesses[i].
func ParseVerdicts(raw string, guesses []string) ([]Verdict, error) {
	items, err := decodeArray(normalize(raw))
	if err != nil {
		return nil, err
	}
	if len(items) != len(guesses) {
		return nil, fmt.Errorf("%w: got %d verdicts for %d guesses", ErrMalformed, len(items), len(guesses))
	}

	verdicts := make([]Verdict, len(items))
	for i, item := range items {
		flag, ok := lookup(item, flagKeys)
		if !ok {
			return nil, fmt.Errorf("%w: verdict %d has no correctness flag", ErrMalformed, i)
		}
		correct, ok := boolLike(flag)
		if !ok {
			return nil, fmt.Errorf("%w: verdict %d flag %v is not boolean", ErrMalformed, i, flag)
		}

		reason := ""
		if r, ok := lookup(item, reasonKeys); ok && r != nil {
			reason = fmt.Sprint(r)
		}

		verdicts[i] = Verdict{Guess: guesses[i], IsCorrect: correct, Reason: reason}
	}
	return verdicts, nil
}

// normalize trims the answer, drops Markdown code fences and cuts it down to
// the outermost array.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

func decodeArray(s string) ([]map[string]any, error) {
	if !strings.HasPrefix(s, "[") {
		return nil, fmt.Errorf("%w: not a sequence", ErrMalformed)
	}

	var items []map[string]any
	err := json.Unmarshal([]byte(s), &items)
	if err == nil {
		return items, nil
	}

	if alt := pythonToJSON(s); alt != s {
		if err2 := json.Unmarshal([]byte(alt), &items); err2 == nil {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
}

// pythonToJSON rewrites Python literal syntax (single-quoted strings,
// True/False/None) outside of double-quoted strings.
func pythonToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		switch c := s[i]; {
		case c == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(s) {
				b.WriteString(s[i:])
				return b.String()
			}
			b.WriteString(s[i : j+1])
			i = j + 1

		case c == '\'':
			var content strings.Builder
			j := i + 1
			for j < len(s) && s[j] != '\'' {
				if s[j] == '\\' && j+1 < len(s) {
					j++
				}
				content.WriteByte(s[j])
				j++
			}
			quoted, _ := json.Marshal(content.String())
			b.Write(quoted)
			i = j + 1

		case isIdentStart(c):
			j := i
			for j < len(s) && isIdentStart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i = j

		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func lookup(item map[string]any, keys []string) (any, bool) {
	for _, want := range keys {
		for k, v := range item {
			if strings.ToLower(strings.TrimSpace(k)) == want {
				return v, true
			}
		}
	}
	return nil, false
}

func boolLike(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case float64:
		switch t {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "correct", "1", "approve":
			return true, true
		case "false", "no", "incorrect", "0", "reject":
			return false, true
		}
	}
	return false, false
}
