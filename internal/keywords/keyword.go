package keywords

import (
	"encoding/json"
	"fmt"
)

// Keyword is the normalized form of an extracted term. Clients send keywords
// either as bare strings or as {"word": ..., "score": ...} objects; both
// decode into this shape, with confidence defaulting to 1.0 for the bare form.
type Keyword struct {
	Word       string  `json:"word"`
	Confidence float64 `json:"score"`
}

// Plain wraps a bare keyword string with the default confidence of 1.0.
func Plain(word string) Keyword {
	return Keyword{Word: word, Confidence: 1.0}
}

// Scored pairs a keyword with an explicit confidence score.
func Scored(word string, confidence float64) Keyword {
	return Keyword{Word: word, Confidence: confidence}
}

func (k *Keyword) UnmarshalJSON(data []byte) error {
	var word string
	if err := json.Unmarshal(data, &word); err == nil {
		*k = Plain(word)
		return nil
	}

	var obj struct {
		Word  string   `json:"word"`
		Score *float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("keyword must be a string or a {word, score} object: %w", err)
	}
	if obj.Word == "" {
		return fmt.Errorf("keyword object is missing the word field")
	}

	confidence := 1.0
	if obj.Score != nil {
		confidence = *obj.Score
	}
	*k = Keyword{Word: obj.Word, Confidence: confidence}
	return nil
}

// Words returns just the keyword strings, in order.
func Words(kws []Keyword) []string {
	out := make([]string, len(kws))
	for i, k := range kws {
		out[i] = k.Word
	}
	return out
}
