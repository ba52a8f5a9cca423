package interval

import "fmt"

// Validate checks raw against the unit allow-list without using the parser's pattern.
// It must pass before an interval is allowed anywhere near query text.
func Validate(raw string) error {
	i := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		i++
	}
	if i == 0 || i == len(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidInterval, raw)
	}

	allZero := true
	for _, c := range raw[:i] {
		if c != '0' {
			allZero = false
			break
		}
	}
	if allZero {
		return fmt.Errorf("%w: %q: count must be positive", ErrInvalidInterval, raw)
	}

	if _, ok := unitTokens[raw[i:]]; !ok {
		return fmt.Errorf("%w: %q: unknown unit", ErrInvalidInterval, raw)
	}
	return nil
}

// ParseStrict validates raw against the allow-list and then parses it. Both checks must pass.
func ParseStrict(raw string) (Interval, error) {
	if err := Validate(raw); err != nil {
		return Interval{}, err
	}
	return Parse(raw)
}
