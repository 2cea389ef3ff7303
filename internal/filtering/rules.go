package filtering

// Rule drops matching events, mirroring an ignore list: the expression
// evaluates against the payload's string fields and a true result discards
// the event before it reaches the sink.
type Rule struct {
	ID         string `mapstructure:"id" json:"id"`
	Name       string `mapstructure:"name" json:"name"`
	Expression string `mapstructure:"expression" json:"expression"`
}
