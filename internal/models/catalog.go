package models

// Problem is an entry of the static problem bank
type Problem struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title" yaml:"title"`
	Platform   string     `json:"platform" yaml:"platform"`
	URL        string     `json:"url,omitempty" yaml:"url"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Topics     []Topic    `json:"topics" yaml:"topics"`
}

// HasTopic reports whether the problem is tagged with t
func (p *Problem) HasTopic(t Topic) bool {
	for _, pt := range p.Topics {
		if pt == t {
			return true
		}
	}
	return false
}

// ProblemFilters narrows a problem bank listing
type ProblemFilters struct {
	Topic      Topic
	Difficulty Difficulty
	Platform   string
}
