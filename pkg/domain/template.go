package domain

// Template describes a YAML document a new document can start from.
// Builtin templates are read-only; user templates live under the "user/"
// reference prefix.
type Template struct {
	// Ref is the stable reference, "<category>/<file>" for builtins and
	// "user/<category>/<name>" for user templates.
	Ref         string `json:"ref"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	User        bool   `json:"user"`
}

// DisplayName renders "category > Name".
func (t Template) DisplayName() string {
	if t.Category == "" {
		return t.Name
	}
	return t.Category + " > " + t.Name
}
