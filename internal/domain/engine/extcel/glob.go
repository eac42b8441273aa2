package extcel

import "github.com/gobwas/glob"

// globMatch reuses the compiler's own glob library so the glob() CEL
// function and C2's pattern matching never disagree on what a pattern
// means.
func globMatch(pattern, value string) (bool, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false, err
	}
	return g.Match(value), nil
}
