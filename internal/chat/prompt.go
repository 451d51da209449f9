package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/disaster-scenario-service/internal/inference"
)

const routeSchema = `{"action": "final", "answer": "string", "suggestedActions": ["string"]}
or
{"action": "tool", "tool": "get_weather", "location": "place name"}`

const answerSchema = `{
  "answer": "string",
  "suggestedActions": ["string", "string"]
}`

func routePrompt(message, lang string) string {
	var b strings.Builder
	b.WriteString("You route messages for a disaster-preparedness assistant.\n")
	b.WriteString("Decide whether answering needs the current weather for a specific place.\n")
	b.WriteString("- If it does, request the get_weather tool with the place name as written by the user.\n")
	b.WriteString("- Otherwise answer directly, concisely and with practical steps.\n")
	fmt.Fprintf(&b, "Write any answer in %s.\n\n", inference.LanguageName(lang))
	b.WriteString("Return ONLY one JSON object, no markdown, matching one of:\n")
	b.WriteString(routeSchema)
	fmt.Fprintf(&b, "\n\nUser message:\n%q\n", message)
	return b.String()
}

func answerPrompt(message, lang string, facts any) string {
	var b strings.Builder
	b.WriteString("You are a helpful disaster-preparedness assistant for a simulation exercise.\n")
	fmt.Fprintf(&b, "Respond in %s.\n\n", inference.LanguageName(lang))
	b.WriteString("You MUST:\n")
	b.WriteString("- Keep the answer concise and actionable.\n")
	b.WriteString("- If the user asks for recommendations, provide a short list of steps.\n")
	b.WriteString("- If the user asks about risk, use the provided analysis if available.\n")
	b.WriteString("- If analysis is missing, infer carefully from the weather and say it is a simulation.\n\n")
	fmt.Fprintf(&b, "Context JSON:\n%s\n\n", indentJSON(facts))
	fmt.Fprintf(&b, "User question:\n%q\n\n", message)
	b.WriteString("Return PURE JSON ONLY (no markdown) with schema:\n")
	b.WriteString(answerSchema)
	b.WriteString("\n")
	return b.String()
}

func clarifyPrompt(message, location, lang string) string {
	var b strings.Builder
	b.WriteString("You are a helpful disaster-preparedness assistant.\n")
	fmt.Fprintf(&b, "Weather for the place %q could not be found.\n", location)
	b.WriteString("Ask the user, in one or two sentences, to clarify the place (for example city and country).\n")
	fmt.Fprintf(&b, "Respond in %s.\n\n", inference.LanguageName(lang))
	fmt.Fprintf(&b, "User message:\n%q\n\n", message)
	b.WriteString("Return PURE JSON ONLY (no markdown) with schema:\n")
	b.WriteString(answerSchema)
	b.WriteString("\n")
	return b.String()
}

func indentJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
