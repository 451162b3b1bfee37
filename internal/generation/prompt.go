package generation

import (
	"encoding/json"
	"fmt"

	"github.com/tenxcards/cards-api/internal/domain"
)

// DefaultSystemMessage instructs the model to answer with the exact
// flashcards JSON shape the orchestrator parses.
const DefaultSystemMessage = `You are a helpful AI assistant specialized in creating educational flashcards.
Your task is to generate clear and concise flashcards that capture key concepts and important details.
IMPORTANT: You must ALWAYS respond with a valid JSON object containing an array of flashcards.

The response MUST follow this EXACT structure:
{
  "flashcards": [
    {
      "front": "question or prompt here",
      "back": "answer or explanation here"
    }
  ]
}

Rules:
1. ONLY return the JSON object, no other text
2. Each flashcard MUST have exactly two fields: "front" and "back"
3. Both fields MUST be non-empty strings
4. The "flashcards" array MUST contain at least one flashcard and maximum 6 flashcards`

// promptFraming wraps the source text with the instructional framing sent as
// the user message.
const promptFraming = `Please generate educational flashcards from the following text. Each flashcard should have a question/prompt on the front and a clear answer/explanation on the back.

Remember to format your response EXACTLY as a JSON object with a 'flashcards' array containing objects with 'front' and 'back' properties.

Here's the text to process:

%s`

// BuildPrompt produces the user message for one generation call.
func BuildPrompt(sourceText string) string {
	return fmt.Sprintf(promptFraming, sourceText)
}

// proposalFields tolerates both the demanded {front, back} shape and the
// legacy {question, answer} field names.
type proposalFields struct {
	Front    string `json:"front"`
	Back     string `json:"back"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// parseProposals decodes the normalized answer payload into flashcard
// proposals with 1-based sequential ids. It fails if the flashcards array is
// absent, empty, or contains entries without usable sides.
func parseProposals(answer string) ([]domain.FlashcardProposal, error) {
	var decoded struct {
		Flashcards *[]proposalFields `json:"flashcards"`
	}

	if err := json.Unmarshal([]byte(answer), &decoded); err != nil {
		return nil, fmt.Errorf("answer is not a flashcards JSON object: %w", err)
	}

	if decoded.Flashcards == nil {
		return nil, fmt.Errorf("expected a flashcards array in the answer")
	}

	cards := *decoded.Flashcards
	if len(cards) == 0 {
		return nil, fmt.Errorf("flashcards array is empty")
	}

	proposals := make([]domain.FlashcardProposal, 0, len(cards))
	for i, card := range cards {
		front := card.Front
		if front == "" {
			front = card.Question
		}
		back := card.Back
		if back == "" {
			back = card.Answer
		}

		if front == "" || back == "" {
			return nil, fmt.Errorf("flashcard %d is missing front or back content", i+1)
		}

		proposals = append(proposals, domain.FlashcardProposal{
			ID:     i + 1,
			Front:  front,
			Back:   back,
			Source: domain.ProposalSourceAIFull,
		})
	}

	return proposals, nil
}
