package answer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects the line grammar for ParseBlock.
type Mode int

const (
	// Authoring expects "number answer score" lines; the answer is every
	// field between the first and the last.
	Authoring Mode = iota
	// Taking expects exactly "number answer" lines.
	Taking
)

// FormatError reports a line that does not match the expected grammar. The
// whole block is rejected; the caller re-prompts with the full instructions
// and the offending line verbatim.
type FormatError struct {
	Line   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s:\n%s", e.Reason, e.Line)
}

// Line is one parsed answer-block entry. Weight is only set in Authoring mode.
type Line struct {
	Number int
	Answer string
	Weight decimal.Decimal
}

var halfStep = decimal.New(5, -1)

// ParseBlock parses a raw multi-line answer block. Any invalid line aborts
// the whole block with a *FormatError; results from earlier lines are
// discarded. Duplicate question numbers are not rejected here; later
// consumers resolve them last-occurrence-wins.
func ParseBlock(raw string, mode Mode) ([]Line, error) {
	var out []Line
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parsed, err := parseLine(line, mode)
		if err != nil {
			return nil, err
		}
		out = append(out, parsed)
	}
	return out, nil
}

func parseLine(line string, mode Mode) (Line, error) {
	fields := strings.Fields(line)

	switch mode {
	case Authoring:
		if len(fields) < 3 {
			return Line{}, &FormatError{Line: line, Reason: "NOT ENOUGH FIELDS IN LINE"}
		}
	case Taking:
		if len(fields) != 2 {
			return Line{}, &FormatError{Line: line, Reason: "EXPECTED EXACTLY NUMBER AND ANSWER IN LINE"}
		}
	}

	number, err := strconv.Atoi(fields[0])
	if err != nil || number <= 0 {
		return Line{}, &FormatError{Line: line, Reason: "INVALID QUESTION NUMBER IN LINE"}
	}

	var weight decimal.Decimal
	token := fields[1]
	if mode == Authoring {
		token = strings.Join(fields[1:len(fields)-1], " ")
		weight, err = parseWeight(fields[len(fields)-1])
		if err != nil {
			return Line{}, &FormatError{Line: line, Reason: "INVALID SCORE IN LINE"}
		}
	}

	normalized, err := Normalize(token)
	if err != nil {
		return Line{}, &FormatError{Line: line, Reason: strings.ToUpper(err.Error()) + " IN LINE"}
	}

	return Line{Number: number, Answer: normalized, Weight: weight}, nil
}

// parseWeight accepts positive multiples of 0.5 only.
func parseWeight(s string) (decimal.Decimal, error) {
	w, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !w.IsPositive() || !w.Mod(halfStep).IsZero() {
		return decimal.Decimal{}, fmt.Errorf("score must be a positive multiple of 0.5")
	}
	return w, nil
}

// AsMap collapses parsed lines into a number->answer map, later lines
// overwriting earlier ones when a number repeats.
func AsMap(lines []Line) map[int]string {
	m := make(map[int]string, len(lines))
	for _, l := range lines {
		m[l.Number] = l.Answer
	}
	return m
}

// ParseStored leniently re-parses a previously accepted raw answer block for
// scoring. Lines that no longer match the grammar are skipped instead of
// failing, since validation already happened at submission time.
func ParseStored(raw string) map[int]string {
	m := make(map[int]string)
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		number, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		m[number] = Canonical(strings.Join(fields[1:], " "))
	}
	return m
}
