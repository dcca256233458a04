package chunk

import "fmt"

// Strategy selects a chunking algorithm. The set is closed: every
// strategy is registered in the Splitter's dispatch table at
// construction and unknown names are rejected by ParseStrategy.
type Strategy int

const (
	// StrategyRecursive splits on an ordered separator list (paragraph,
	// line, space, character), descending to a finer separator only when
	// a unit still exceeds the size limit.
	StrategyRecursive Strategy = iota + 1

	// StrategySentence splits on terminal punctuation and accumulates
	// sentences up to the size limit.
	StrategySentence

	// StrategyToken is the recursive algorithm with sizes expressed in
	// estimated tokens instead of characters.
	StrategyToken

	// StrategySemantic groups paragraphs by embedding similarity,
	// opening a new chunk when similarity between neighbors drops.
	StrategySemantic

	// StrategyByHeading starts a new chunk at every Markdown heading of
	// equal-or-shallower depth than the current section.
	StrategyByHeading

	// StrategyBySection is a coarser variant of StrategyByHeading that
	// also treats all-caps and very short lines as boundaries.
	StrategyBySection

	// StrategyParagraph accumulates blank-line-delimited paragraphs;
	// oversized single paragraphs are handed to the sentence strategy.
	StrategyParagraph

	// StrategyAdaptive inspects heading density and paragraph count and
	// dispatches to by_heading, paragraph, hybrid, or recursive.
	StrategyAdaptive

	// StrategyHybrid runs by_heading with a relaxed ceiling, then
	// re-splits oversized chunks with the paragraph strategy.
	StrategyHybrid
)

var strategyNames = map[Strategy]string{
	StrategyRecursive: "recursive",
	StrategySentence:  "sentence",
	StrategyToken:     "token",
	StrategySemantic:  "semantic",
	StrategyByHeading: "by_heading",
	StrategyBySection: "by_section",
	StrategyParagraph: "paragraph",
	StrategyAdaptive:  "adaptive",
	StrategyHybrid:    "hybrid",
}

// String returns the canonical configuration name of the strategy.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy resolves a configuration name to a Strategy. Unknown
// names are a configuration error, not a fallback.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
