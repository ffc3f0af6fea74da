package state

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field is the typed accessor set for one named attribute of a state shape.
// Prompts name the fields they read and write; the table resolves those names
// without reflection. SetText or SetJSON is nil when the field does not accept
// that kind of update.
type Field[P any] struct {
	Get     func(P) string
	Empty   func(P) bool
	SetText func(P, string)
	SetJSON func(P, json.RawMessage) error
	Clear   func(P)
}

// Fields maps field names to accessors for one state shape.
type Fields[P any] map[string]Field[P]

// Lookup returns the named field or an error naming the missing key.
func (f Fields[P]) Lookup(name string) (Field[P], error) {
	field, ok := f[name]
	if !ok {
		return Field[P]{}, fmt.Errorf("unknown state field %q", name)
	}
	return field, nil
}

func textField[P any](ref func(P) *string) Field[P] {
	return Field[P]{
		Get:     func(s P) string { return *ref(s) },
		Empty:   func(s P) bool { return strings.TrimSpace(*ref(s)) == "" },
		SetText: func(s P, v string) { *ref(s) = v },
		SetJSON: func(s P, raw json.RawMessage) error { return json.Unmarshal(raw, ref(s)) },
		Clear:   func(s P) { *ref(s) = "" },
	}
}

func listField[P any](ref func(P) *[]string) Field[P] {
	return Field[P]{
		Get: func(s P) string {
			b, _ := json.Marshal(*ref(s))
			return string(b)
		},
		Empty: func(s P) bool { return len(*ref(s)) == 0 },
		SetJSON: func(s P, raw json.RawMessage) error {
			var list []string
			if err := json.Unmarshal(raw, &list); err != nil {
				return err
			}
			*ref(s) = list
			return nil
		},
		Clear: func(s P) { *ref(s) = nil },
	}
}

// RunFields is the field table of RunState. The tasks field reads the approved
// plan (or the pending draft) and writes only the draft.
var RunFields = Fields[*RunState]{
	"query": textField(func(s *RunState) *string { return &s.Query }),
	"title": textField(func(s *RunState) *string { return &s.Title }),
	"tasks": {
		Get: func(s *RunState) string {
			var b []byte
			if len(s.Tasks) > 0 {
				b, _ = json.Marshal(s.Tasks)
			} else {
				b, _ = json.Marshal(s.draft)
			}
			return string(b)
		},
		Empty: func(s *RunState) bool { return len(s.Tasks) == 0 },
		SetJSON: func(s *RunState, raw json.RawMessage) error {
			var draft []json.RawMessage
			if err := json.Unmarshal(raw, &draft); err != nil {
				// Kept as a one-element draft so plan validation rejects it.
				draft = []json.RawMessage{raw}
			}
			s.draft = draft
			return nil
		},
		Clear: func(s *RunState) { s.draft = nil },
	},
}

var SearchFields = Fields[*SearchState]{
	"queries":        listField(func(s *SearchState) *[]string { return &s.Queries }),
	"search_results": textField(func(s *SearchState) *string { return &s.SearchResults }),
	"search_summary": textField(func(s *SearchState) *string { return &s.SearchSummary }),
}

var SmartSearchFields = Fields[*SmartSearchState]{
	"background":           textField(func(s *SmartSearchState) *string { return &s.Background }),
	"smart_search_queries": listField(func(s *SmartSearchState) *[]string { return &s.SmartSearchQueries }),
	"smart_search_summary": textField(func(s *SmartSearchState) *string { return &s.SmartSearchSummary }),
}

var CreateFields = Fields[*CreateState]{
	"query":         textField(func(s *CreateState) *string { return &s.Query }),
	"background":    textField(func(s *CreateState) *string { return &s.Background }),
	"create_output": textField(func(s *CreateState) *string { return &s.CreateOutput }),
}

var FormatFields = Fields[*FormatState]{
	"background": textField(func(s *FormatState) *string { return &s.Background }),
	"pre_report": textField(func(s *FormatState) *string { return &s.PreReport }),
	"report":     textField(func(s *FormatState) *string { return &s.Report }),
}
