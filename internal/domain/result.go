package domain

// ActionResult is the uniform outcome of every mutating action.
type ActionResult struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message,omitempty"`
	Error       string              `json:"error,omitempty"`
	Kind        string              `json:"kind,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
	BonusID     string              `json:"bonusId,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(message string) ActionResult {
	return ActionResult{Success: true, Message: message}
}
