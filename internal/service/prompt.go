package service

import (
	"fmt"
	"strings"

	"github.com/farmville-istec/farmville/internal/models"
)

// systemPrompt anchors the model to the advisor role and the JSON contract.
const systemPrompt = "You are an expert agricultural advisor. Always respond with valid JSON."

// buildPrompt renders the weather record into the analysis prompt. The JSON
// schema in the prompt matches what parseSuggestion expects.
func buildPrompt(w models.WeatherRecord) string {
	var b strings.Builder
	b.WriteString("You are an agricultural expert AI assistant. Analyze the following weather data and provide farming recommendations.\n\n")
	fmt.Fprintf(&b, "Location: %s\n", w.Location)
	b.WriteString("Current Conditions:\n")
	fmt.Fprintf(&b, "- Temperature: %.1f°C\n", w.Temperature)
	fmt.Fprintf(&b, "- Humidity: %d%%\n", w.Humidity)
	fmt.Fprintf(&b, "- Atmospheric Pressure: %.1f hPa\n", w.Pressure)
	fmt.Fprintf(&b, "- Weather Description: %s\n", w.Description)
	fmt.Fprintf(&b, "- Data Timestamp: %s\n\n", w.FetchedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("Please provide:\n")
	b.WriteString("1. 3-5 specific agricultural recommendations based on these conditions\n")
	b.WriteString("2. Priority level (low/medium/high/urgent)\n")
	b.WriteString("3. Confidence level (0.0 to 1.0)\n")
	b.WriteString("4. Brief reasoning for your recommendations\n\n")
	b.WriteString("Focus on practical actions like irrigation, fertilization, pest control, harvesting timing, or protective measures.\n\n")
	b.WriteString("Respond in JSON format:\n")
	b.WriteString(`{
    "suggestions": ["suggestion 1", "suggestion 2", "suggestion 3"],
    "priority": "medium",
    "confidence": 0.85,
    "reasoning": "Brief explanation of why these suggestions are recommended based on the weather conditions"
}`)
	return b.String()
}
