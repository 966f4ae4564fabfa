package service

import (
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// DateResolver turns natural-language phrases like "next Friday at 2pm" into
// a concrete (date, time) pair relative to a reference instant. Pure; no
// state beyond the parser rules.
type DateResolver struct {
	parser *when.Parser
}

// NewDateResolver constructs a resolver with English and common rules.
func NewDateResolver() *DateResolver {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)
	return &DateResolver{parser: parser}
}

// Resolve parses the phrase against the reference instant. ok is false when
// no date/time structure was recognized.
func (r *DateResolver) Resolve(phrase string, base time.Time) (date string, clock string, ok bool) {
	result, err := r.parser.Parse(phrase, base)
	if err != nil || result == nil {
		return "", "", false
	}
	return result.Time.Format("2006-01-02"), result.Time.Format("15:04"), true
}
