package nutrition

import (
	"fmt"
	"strings"
)

const promptTemplate = `You are a clinical nutritionist for heart disease patients (elderly Indonesians).
Estimate the total DAILY nutrient intake from the foods and drinks below.

FOODS:
%s

DRINKS:
%s

Return ONLY valid JSON in exactly this format (no markdown, no explanation):
{"carbohydrate_percent": number, "protein_gram": number, "fat_percent": number}

Rules:
- carbohydrate_percent: %% of total calories (recommended <=60)
- protein_gram: total grams of protein per day (recommended >=0.8 g/kg body weight for the elderly)
- fat_percent: %% of total calories (recommended <=30)
- Use knowledge of Indonesian food (rice, tempeh, vegetables, etc.)
- 1 portion of rice is about 50-60 g carbohydrate; 1 portion of fried chicken has more fat than boiled`

// BuildPrompt renders the fixed estimation prompt. Items with a blank kind are
// skipped; an empty section is rendered as "(none)".
func BuildPrompt(foods []FoodItem, drinks []DrinkItem) string {
	var fl []string
	for _, f := range FilterFoods(foods) {
		fl = append(fl, fmt.Sprintf("- %s (%s, cooking method: %s)",
			strings.TrimSpace(f.Kind), orDash(f.Quantity), orDash(f.CookingMethod)))
	}
	var dl []string
	for _, d := range FilterDrinks(drinks) {
		dl = append(dl, fmt.Sprintf("- %s (%s)", strings.TrimSpace(d.Kind), orDash(d.Quantity)))
	}
	return fmt.Sprintf(promptTemplate, orNone(fl), orNone(dl))
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}

func orNone(lines []string) string {
	if len(lines) == 0 {
		return "(none)"
	}
	return strings.Join(lines, "\n")
}
