package routing

import (
	"fmt"
	"strings"
	"unicode"
)

// StrategyOptions tunes the heuristics an expression refers to
type StrategyOptions struct {
	Annealing    Annealing
	LinKernighan LinKernighan
	// Parallel runs both sides of a multiply concurrently
	Parallel bool
}

// ParseStrategy builds a strategy from an expression such as "nn+2opt*lk".
// Names are nn, 2opt, sa and lk. "+" chains left to right, "*" keeps the
// better of both sides and binds tighter than "+". Parentheses group.
func ParseStrategy(expr string, opts StrategyOptions) (Strategy, error) {
	p := &exprParser{opts: opts}
	if err := p.tokenize(expr); err != nil {
		return nil, err
	}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrUnknownAlgorithm)
	}

	s, err := p.sum()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("%w: unexpected %q in %q", ErrUnknownAlgorithm, p.tokens[p.pos], expr)
	}
	return s, nil
}

type exprParser struct {
	opts   StrategyOptions
	tokens []string
	pos    int
}

func (p *exprParser) tokenize(expr string) error {
	var name strings.Builder
	flush := func() {
		if name.Len() > 0 {
			p.tokens = append(p.tokens, strings.ToLower(name.String()))
			name.Reset()
		}
	}
	for _, r := range expr {
		switch {
		case unicode.IsSpace(r):
			flush()
		case r == '+' || r == '*' || r == '(' || r == ')':
			flush()
			p.tokens = append(p.tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			name.WriteRune(r)
		default:
			return fmt.Errorf("%w: invalid character %q", ErrUnknownAlgorithm, r)
		}
	}
	flush()
	return nil
}

func (p *exprParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return ""
}

func (p *exprParser) sum() (Strategy, error) {
	left, err := p.product()
	if err != nil {
		return nil, err
	}
	for p.peek() == "+" {
		p.pos++
		right, err := p.product()
		if err != nil {
			return nil, err
		}
		left = Sum{First: left, Second: right}
	}
	return left, nil
}

func (p *exprParser) product() (Strategy, error) {
	left, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.peek() == "*" {
		p.pos++
		right, err := p.atom()
		if err != nil {
			return nil, err
		}
		left = Multiply{A: left, B: right, Parallel: p.opts.Parallel}
	}
	return left, nil
}

func (p *exprParser) atom() (Strategy, error) {
	tok := p.peek()
	p.pos++
	switch tok {
	case "(":
		inner, err := p.sum()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrUnknownAlgorithm)
		}
		p.pos++
		return inner, nil
	case "":
		return nil, fmt.Errorf("%w: expression ends early", ErrUnknownAlgorithm)
	}

	s, ok := p.named(tok)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, tok)
	}
	return s, nil
}

func (p *exprParser) named(name string) (Strategy, bool) {
	switch name {
	case "nn", "nearest-neighbor":
		return NearestNeighbor{}, true
	case "2opt", "2-opt", "two-opt":
		return TwoOpt{}, true
	case "sa", "annealing":
		return p.opts.Annealing, true
	case "lk", "lin-kernighan":
		return Divorced{Cycle: p.opts.LinKernighan}, true
	}
	return nil, false
}
