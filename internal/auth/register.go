package auth

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"news-reread/internal/api"
)

// knownFields are reported first, in this order.
var knownFields = []string{"username", "email", "password", "password2"}

// registrationMessage turns a failed registration into one line. Field
// errors in the body ({"username": ["already exists"]}) are listed per field.
func registrationMessage(err error) string {
	var he *api.HTTPError
	if !errors.As(err, &he) {
		if err.Error() == "" {
			return msgRegistrationFailed
		}
		return err.Error()
	}
	if len(he.Body) == 0 {
		return msgRegistrationUnknown
	}
	msg, ok := fieldErrors(he.Body)
	if !ok {
		return msgRegistrationUnknown
	}
	return msg
}

func fieldErrors(body []byte) (string, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", false
	}

	fields := make(map[string][]string, len(raw))
	for name, v := range raw {
		var msgs []string
		if err := json.Unmarshal(v, &msgs); err != nil || len(msgs) == 0 {
			continue
		}
		fields[name] = msgs
	}
	if len(fields) == 0 {
		return "", false
	}

	var order []string
	for _, name := range knownFields {
		if _, ok := fields[name]; ok {
			order = append(order, name)
		}
	}
	var rest []string
	for name := range fields {
		if !isKnownField(name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, fieldLabel(name)+": "+strings.Join(fields[name], ", "))
	}
	return strings.Join(parts, "; "), true
}

func isKnownField(name string) bool {
	for _, k := range knownFields {
		if k == name {
			return true
		}
	}
	return false
}

func fieldLabel(name string) string {
	switch name {
	case "password2":
		return "Password confirmation"
	case "non_field_errors", "":
		return "Error"
	}
	label := strings.ReplaceAll(name, "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}
