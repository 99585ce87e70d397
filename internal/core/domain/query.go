package domain

// NoAnswerSentinel is returned verbatim when the retrieved context cannot
// answer a query, and when there is no context at all.
const NoAnswerSentinel = "I do not have enough information to answer this question."

// Query is a user question with an optional title filter.
type Query struct {
	// Text is the question.
	Text string

	// Title restricts retrieval to documents whose title contains it,
	// case-insensitively. Empty means no restriction.
	Title string
}

// RetrievalCandidate is a chunk returned by the vector index for a query.
type RetrievalCandidate struct {
	// DocumentID identifies the owning document.
	DocumentID string

	// Title is the owning document's display title. Empty when the
	// document could not be loaded.
	Title string

	// Position is the chunk index within the document.
	Position int

	// Content is the chunk text.
	Content string

	// Distance is the L2 distance to the query vector. Lower is closer.
	Distance float64

	// Score is the relevance judgement in [0, 10]. Zero when unscored.
	Score float64

	// Judged is false when the judge failed or returned an unusable score.
	Judged bool
}

// Answer is the result of a query.
type Answer struct {
	// Query echoes the question.
	Query string

	// Title echoes the title filter.
	Title string

	// Answer is the synthesised text.
	Answer string

	// Contexts are the re-ranked chunks the answer was grounded on.
	Contexts []RetrievalCandidate

	// JudgeFailures counts candidates the relevance judge could not score.
	JudgeFailures int
}

// Grounded returns true if the answer is not the sentinel.
func (a *Answer) Grounded() bool {
	return a.Answer != NoAnswerSentinel
}
