package wheel

import "strings"

// ConfigurationError reports a tier or planner input that can never be spun.
// It is not retried; the configuration has to be fixed.
type ConfigurationError struct {
	Tier   string
	Prize  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("wheel: configuration error")
	if e.Tier != "" {
		b.WriteString(": tier ")
		b.WriteString(e.Tier)
	}
	if e.Prize != "" {
		b.WriteString(": prize ")
		b.WriteString(e.Prize)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}
