package inference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/disaster-scenario-service/internal/domain"
)

var languageNames = map[string]string{
	"vi":    "Vietnamese",
	"en":    "English",
	"ja":    "Japanese",
	"jp":    "Japanese",
	"ko":    "Korean",
	"kr":    "Korean",
	"zh":    "Chinese",
	"zh-cn": "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
	"fr":    "French",
	"de":    "German",
	"es":    "Spanish",
	"pt":    "Portuguese",
}

// LanguageName maps a language code to the name used in prompts.
func LanguageName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "English"
	}
	if name, ok := languageNames[code]; ok {
		return name
	}
	return fmt.Sprintf("the user's language (code %q)", code)
}

const simpleSchema = `{
  "riskLevel": "LOW" | "MEDIUM" | "HIGH" | "EXTREME",
  "possibleDisasters": ["string"],
  "explanation": "string",
  "recommendedActions": ["string"]
}`

const fullSchema = `{
  "riskLevel": "LOW" | "MEDIUM" | "HIGH" | "EXTREME",
  "possibleDisasters": ["string"],
  "floodPrediction": "string",
  "map": {
    "center": {"lat": number, "lng": number},
    "zoom": number,
    "impactZones": [
      {
        "level": "HIGH" | "MEDIUM" | "LOW",
        "geometry": {"type": "Polygon", "coordinates": [[[lon, lat], [lon, lat], [lon, lat], [lon, lat]]]}
      }
    ]
  },
  "kpis": {"householdsAffected": integer, "roadBlockages": integer, "sheltersNeeded": integer},
  "topActions": [
    {"rank": 1, "title": "string", "description": "string", "icon": "string", "priority": "HIGH" | "MEDIUM" | "LOW"}
  ],
  "plan": {
    "phases": [
      {"phase": "IMMEDIATE" | "SHORT_TERM" | "RECOVERY", "window": "string", "tasks": ["string"]}
    ]
  }
}`

const baseDisasterTypes = `BASE DISASTER TYPES (conceptual categories):
1. Flooding
2. Thunderstorm / heavy rain
3. Tropical storm / typhoon / hurricane
4. Landslide
5. Poor air quality / pollution`

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are an assistant that predicts short-term natural disaster impact from weather and scenario data.\n")
	b.WriteString("This is a simulation for planning exercises, not a real-world warning.\n\n")

	writeLanguages(&b, req.Languages)

	switch req.Contract {
	case ContractFull:
		b.WriteString("TASK:\n")
		b.WriteString("- Estimate the impact of the described disaster around the given location.\n")
		b.WriteString("- Provide at least one impact zone as a closed polygon ring in [lon, lat] order.\n")
		b.WriteString("- Provide exactly 3 topActions ranked 1, 2, 3.\n")
		b.WriteString("- KPI values are non-negative integers.\n\n")
		writeSchema(&b, fullSchema)
	default:
		b.WriteString(baseDisasterTypes)
		b.WriteString("\n\nTASK:\n")
		b.WriteString("- Always choose AT LEAST ONE plausible disaster type based on the weather.\n")
		b.WriteString("- When the weather looks mostly normal, choose a mild risk (LOW or MEDIUM).\n")
		b.WriteString("- Keep the explanation to at most 3 sentences and mention that this is a simulation.\n\n")
		writeSchema(&b, simpleSchema)
	}

	b.WriteString("\nCONTEXT:\n")
	if req.LocationName != "" {
		fmt.Fprintf(&b, "Location: %s\n", req.LocationName)
	}
	if req.HorizonHours > 0 {
		fmt.Fprintf(&b, "Time horizon: %d hours\n", req.HorizonHours)
	}
	if req.Input != nil {
		fmt.Fprintf(&b, "Scenario input:\n%s\n", indentJSON(req.Input))
	}
	if req.Weather != nil {
		w := req.Weather.Clone()
		w.Raw = nil
		fmt.Fprintf(&b, "Current weather:\n%s\n", indentJSON(w))
	}
	return b.String()
}

func writeLanguages(b *strings.Builder, langs []string) {
	primary := LanguageName(domain.PrimaryLanguage(langs))
	b.WriteString("OUTPUT LANGUAGE:\n")
	fmt.Fprintf(b, "- Write all human-readable text in %s.\n", primary)
	var others []string
	for _, l := range langs[min(1, len(langs)):] {
		if name := LanguageName(l); name != primary && strings.TrimSpace(l) != "" {
			others = append(others, name)
		}
	}
	if len(others) > 0 {
		fmt.Fprintf(b, "- The audience also reads %s; keep the JSON in %s only.\n", strings.Join(others, ", "), primary)
	}
	b.WriteString("- Do NOT mix multiple languages in one field.\n\n")
}

func writeSchema(b *strings.Builder, schema string) {
	b.WriteString("RESPONSE FORMAT:\n")
	b.WriteString("Return ONLY a JSON object with exactly this schema, no markdown and no surrounding text:\n")
	b.WriteString(schema)
	b.WriteString("\n")
}

func indentJSON(v any) string {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}
