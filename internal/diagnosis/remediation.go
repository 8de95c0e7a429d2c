package diagnosis

import "fmt"

var remediations = map[ErrorType]string{
	ErrorConceptual:    "Review the core idea behind %s and work through a step-by-step example before trying again.",
	ErrorComputational: "Your method for %s looks right; redo the calculation slowly and check each step.",
	ErrorTypo:          "Almost there on %s. Re-read your answer before submitting.",
}

// Remediation returns a short hint for the learner. topic is the display
// name of the node the attempt was on.
func Remediation(t ErrorType, topic string) string {
	if topic == "" {
		topic = "this topic"
	}
	tmpl, ok := remediations[t]
	if !ok {
		return "Keep practicing. Mistakes are part of learning!"
	}
	return fmt.Sprintf(tmpl, topic)
}
