package tools

// Result is the unified return type from tool execution. An empty result
// set renders as a "no messages found" Text with IsError false; IsError
// is reserved for invalid input or backend failure.
type Result struct {
	Text    string `json:"text"`
	IsError bool   `json:"is_error"`
	Err     error  `json:"-"` // internal error, not serialized
}

func NewResult(text string) *Result {
	return &Result{Text: text}
}

func ErrorResult(message string) *Result {
	return &Result{Text: message, IsError: true}
}

func (r *Result) WithError(err error) *Result {
	r.Err = err
	return r
}
