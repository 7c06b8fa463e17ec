package models

import "strings"

// Difficulty is the difficulty band of a solved problem
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists every known difficulty in ascending order
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty returns the difficulty for s, ignoring case and surrounding spaces
func ParseDifficulty(s string) (Difficulty, bool) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	return d, d.Valid()
}

// Valid reports whether d is one of the known difficulties
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// RatingDelta returns the rating gained for solving a problem of this difficulty.
// Unknown difficulties gain nothing.
func (d Difficulty) RatingDelta() int {
	switch d {
	case DifficultyEasy:
		return 10
	case DifficultyMedium:
		return 20
	case DifficultyHard:
		return 30
	}
	return 0
}

// Topic is a problem tag from the closed topic set
type Topic string

const (
	TopicArrays             Topic = "arrays"
	TopicStrings            Topic = "strings"
	TopicHashing            Topic = "hashing"
	TopicTwoPointers        Topic = "two-pointers"
	TopicSlidingWindow      Topic = "sliding-window"
	TopicStacks             Topic = "stacks"
	TopicQueues             Topic = "queues"
	TopicLinkedLists        Topic = "linked-lists"
	TopicBinarySearch       Topic = "binary-search"
	TopicRecursion          Topic = "recursion"
	TopicSorting            Topic = "sorting"
	TopicTrees              Topic = "trees"
	TopicHeaps              Topic = "heaps"
	TopicGraphs             Topic = "graphs"
	TopicGreedy             Topic = "greedy"
	TopicBacktracking       Topic = "backtracking"
	TopicDynamicProgramming Topic = "dynamic-programming"
	TopicTries              Topic = "tries"
	TopicBitManipulation    Topic = "bit-manipulation"
	TopicMath               Topic = "math"
)

// AllTopics is the closed topic set in default curriculum order
var AllTopics = []Topic{
	TopicArrays,
	TopicStrings,
	TopicHashing,
	TopicTwoPointers,
	TopicSlidingWindow,
	TopicStacks,
	TopicQueues,
	TopicLinkedLists,
	TopicBinarySearch,
	TopicRecursion,
	TopicSorting,
	TopicTrees,
	TopicHeaps,
	TopicGraphs,
	TopicGreedy,
	TopicBacktracking,
	TopicDynamicProgramming,
	TopicTries,
	TopicBitManipulation,
	TopicMath,
}

var topicNames = map[Topic]string{
	TopicArrays:             "Arrays",
	TopicStrings:            "Strings",
	TopicHashing:            "Hashing",
	TopicTwoPointers:        "Two Pointers",
	TopicSlidingWindow:      "Sliding Window",
	TopicStacks:             "Stacks",
	TopicQueues:             "Queues",
	TopicLinkedLists:        "Linked Lists",
	TopicBinarySearch:       "Binary Search",
	TopicRecursion:          "Recursion",
	TopicSorting:            "Sorting",
	TopicTrees:              "Trees",
	TopicHeaps:              "Heaps",
	TopicGraphs:             "Graphs",
	TopicGreedy:             "Greedy",
	TopicBacktracking:       "Backtracking",
	TopicDynamicProgramming: "Dynamic Programming",
	TopicTries:              "Tries",
	TopicBitManipulation:    "Bit Manipulation",
	TopicMath:               "Math",
}

// ParseTopic maps a free-form tag ("Dynamic Programming", "two_pointers")
// onto the closed topic set.
func ParseTopic(s string) (Topic, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	t := Topic(norm)
	if _, ok := topicNames[t]; ok {
		return t, true
	}
	return "", false
}

// Valid reports whether t belongs to the closed topic set
func (t Topic) Valid() bool {
	_, ok := topicNames[t]
	return ok
}

// DisplayName returns the human readable topic name
func (t Topic) DisplayName() string {
	if name, ok := topicNames[t]; ok {
		return name
	}
	return string(t)
}
