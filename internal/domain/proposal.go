package domain

// ProposalSourceAIFull tags proposals produced entirely by the model,
// as opposed to AI proposals later edited by the user.
const ProposalSourceAIFull = "ai-full"

// FlashcardProposal is an AI-suggested flashcard that has not been accepted
// into durable storage yet. It exists only within one generation response;
// persisting accepted proposals is owned by the flashcard CRUD collaborator.
type FlashcardProposal struct {
	// ID is a 1-based position within the generation response, not a
	// database identifier.
	ID     int    `json:"id"`
	Front  string `json:"front"`
	Back   string `json:"back"`
	Source string `json:"source"`
}
