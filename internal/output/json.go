package output

import (
	"encoding/json"

	"github.com/headhuntertrace/headhunter/internal/core"
)

// JSONFormatter renders values as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSearch renders a search view as JSON.
func (f *JSONFormatter) FormatSearch(view *SearchView) (string, error) {
	if view == nil {
		return "", nil
	}
	return f.marshal(view)
}

// FormatHistory renders search records as a JSON array.
func (f *JSONFormatter) FormatHistory(records []core.SearchRecord) (string, error) {
	if records == nil {
		records = []core.SearchRecord{}
	}
	return f.marshal(records)
}

// FormatProfile renders a user profile as JSON.
func (f *JSONFormatter) FormatProfile(profile *core.UserProfile) (string, error) {
	if profile == nil {
		return "", nil
	}
	return f.marshal(profile)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
