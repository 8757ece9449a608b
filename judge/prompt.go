package judge

import (
	"encoding/json"
	"fmt"
)

const instructions = `You judge a drawing-guessing game. Compare every guessed answer with the reference answer.
A guess is correct when it names the same thing, allowing synonyms, plurals, translations and minor typos.
Reply with only a JSON array with exactly one element per guessed answer, in the same order:
[{"Judge": true, "Reason": "short explanation"}]
`

type promptInput struct {
	ReferenceAnswer string   `json:"reference_answer"`
	GuessedAnswers  []string `json:"guessed_answers"`
}

// BuildPrompt renders one batched request for all guesses.
func BuildPrompt(reference string, guesses []string) (string, error) {
	payload, err := json.Marshal(promptInput{ReferenceAnswer: reference, GuessedAnswers: guesses})
	if err != nil {
		return "", fmt.Errorf("encode prompt: %w", err)
	}
	return instructions + string(payload), nil
}
