package prompt

import (
	"strings"
	"testing"
)

func TestCreateRecipePrompt(t *testing.T) {
	p := CreateRecipePrompt([]string{"flour", " eggs ", "milk"})

	for _, ing := range []string{"- flour", "- eggs", "- milk"} {
		if !strings.Contains(p, ing) {
			t.Errorf("prompt missing %q:\n%s", ing, p)
		}
	}

	if strings.Contains(p, "- eggs \n") {
		t.Error("ingredient not trimmed")
	}
}
