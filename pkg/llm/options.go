package llm

// Options contains model inference parameters. Nil fields are left to the
// provider's defaults.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"` // Creativity (0.0-2.0)
	TopP        *float64 `json:"top_p,omitempty"`       // Nucleus sampling threshold
	Seed        *int     `json:"seed,omitempty"`        // Random seed for reproducibility
	MaxTokens   *int     `json:"max_tokens,omitempty"`  // Max tokens to generate
}

// Float returns a pointer to f, for filling Options literals.
func Float(f float64) *float64 {
	return &f
}

// Int returns a pointer to i, for filling Options literals.
func Int(i int) *int {
	return &i
}
