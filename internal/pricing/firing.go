package pricing

var comparators = map[Comparator]func(count, threshold int) bool{
	GreaterOrEqual: func(c, t int) bool { return c >= t },
	Greater:        func(c, t int) bool { return c > t },
	Equal:          func(c, t int) bool { return c == t },
	Less:           func(c, t int) bool { return c < t },
	LessOrEqual:    func(c, t int) bool { return c <= t },
}

// Valid reports whether the comparator is one of the supported symbols.
func (c Comparator) Valid() bool {
	_, ok := comparators[c]
	return ok
}

// Evaluate decides whether a rule fires for a group of count matched items.
func Evaluate(count int, op Comparator, threshold int) (bool, error) {
	cmp, ok := comparators[op]
	if !ok {
		return false, &InvalidRuleError{Operator: op}
	}
	return cmp(count, threshold), nil
}
