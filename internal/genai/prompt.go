package genai

import "strings"

// buildSystemPrompt instructs the model to emit one multiple-choice
// question as a strict JSON object.
func buildSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a question writer for an AP exam study app. ")
	sb.WriteString("You write one multiple-choice question at a time, with exactly four answer options.\n\n")
	sb.WriteString("RULES:\n")
	sb.WriteString("- The question must be answerable from course material alone, no trick questions.\n")
	sb.WriteString("- Exactly one option is correct; the other three are plausible distractors.\n")
	sb.WriteString("- The explanation states why the correct option is right in 1-3 sentences.\n")
	sb.WriteString("\nRespond ONLY with a JSON object with these fields:\n")
	sb.WriteString(`{"prompt": "<question text>", "option_a": "<text>", "option_b": "<text>", "option_c": "<text>", "option_d": "<text>", "correct_option": "<A|B|C|D>", "explanation": "<why>"}`)
	sb.WriteString("\n")
	return sb.String()
}

// buildUserPrompt names the subject and unit the question must cover.
func buildUserPrompt(subject, topic string) string {
	var sb strings.Builder
	sb.WriteString("Write one new multiple-choice question.\n\n")
	sb.WriteString("COURSE: " + subject + "\n")
	if topic != "" {
		sb.WriteString("UNIT: " + topic + "\n")
	}
	return sb.String()
}
