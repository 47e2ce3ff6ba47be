package models

// Chunk is an indexed slice of a corpus document with its term frequencies.
type Chunk struct {
	ID     string             `json:"id"`
	Source string             `json:"source"`
	Text   string             `json:"text"`
	Lang   string             `json:"lang,omitempty"`
	TF     map[string]float64 `json:"tf"`
	Norm   float64            `json:"norm"`
}

// Passage is a retrieved chunk with its relevance score.
type Passage struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// Interpretation is the response of the natal interpretation flow.
type Interpretation struct {
	Chart          NatalChart `json:"chart"`
	Interpretation string     `json:"interpretation"`
	Mode           string     `json:"mode"`
	Retrieval      []Passage  `json:"retrieval"`
	Query          string     `json:"query"`
}
