package toolkit

import (
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// TimeInput selects the timezone to report.
type TimeInput struct {
	// Timezone is an IANA name like "Asia/Tokyo". Empty means UTC.
	Timezone string `json:"timezone,omitempty"`
}

// TimeOutput is the current wall-clock time.
type TimeOutput struct {
	Time     string `json:"time"` // RFC 3339
	Timezone string `json:"timezone"`
}

// DefineTimeTool registers the currentTime tool. Models have no clock;
// this keeps "what time is it" questions answerable without a remote call.
func DefineTimeTool(g *genkit.Genkit) ai.Tool {
	return genkit.DefineTool(g, "currentTime",
		"Get the current date and time, optionally in a specific IANA timezone.",
		func(ctx *ai.ToolContext, input TimeInput) (TimeOutput, error) {
			loc := time.UTC
			if input.Timezone != "" {
				l, err := time.LoadLocation(input.Timezone)
				if err != nil {
					return TimeOutput{}, &ToolError{
						ErrorType: "InvalidArguments",
						Message:   "unknown timezone " + input.Timezone,
					}
				}
				loc = l
			}
			now := time.Now().In(loc)
			return TimeOutput{
				Time:     now.Format(time.RFC3339),
				Timezone: loc.String(),
			}, nil
		})
}
