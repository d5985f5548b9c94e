package domain

// FixTemplate is a static remediation guide keyed by issue code.
// Templates are read-only and versioned independently of scans.
type FixTemplate struct {
	IssueCode   string   `json:"issue_code"  yaml:"issue_code"`
	Title       string   `json:"title"       yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Steps       []string `json:"steps"       yaml:"steps"`
	CodeExample string   `json:"code_example,omitempty" yaml:"code_example,omitempty"`
}

// IssueWithFix pairs an issue with the remediation templates registered
// for its issue code. An issue code may offer several strategies.
type IssueWithFix struct {
	Issue *Issue        `json:"issue"`
	Fixes []FixTemplate `json:"fixes,omitempty"`
}
