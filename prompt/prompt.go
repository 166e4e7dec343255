package prompt

import (
	"fmt"
	"strings"
)

const RECIPE_PROMPT_INSTRUCTIONS = `You are a recipe-writing assistant trained on a large corpus of home-cooking recipes.
Given a list of ingredients, write a single plausible recipe that uses them. Respond with a title on the first line,
then an ingredient list with quantities, then numbered directions. Prefer common pantry staples for anything not listed,
and never invent exotic ingredients the user did not mention. Keep the style terse, like a community cookbook.`

const RECIPE_PROMPT = `Ingredients on hand:
%s

Write one recipe.`

// CreateRecipePrompt renders the user prompt for a generation request.
func CreateRecipePrompt(ingredients []string) string {
	var b strings.Builder
	for _, ing := range ingredients {
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(ing))
		b.WriteByte('\n')
	}

	return fmt.Sprintf(RECIPE_PROMPT, strings.TrimRight(b.String(), "\n"))
}
