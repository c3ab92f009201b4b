package slackbot

import (
	"fmt"
	"strconv"
	"strings"

	"lottobot/internal/domain"
)

// args holds a parsed slash command line: key=value tokens by key, the rest
// in order.
type args struct {
	named      map[string]string
	positional []string
}

func badArg(format string, a ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfiguration, fmt.Sprintf(format, a...))
}

func parseArgs(text string) (args, error) {
	a := args{named: map[string]string{}}
	for _, tok := range strings.Fields(text) {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			a.positional = append(a.positional, tok)
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			return args{}, badArg("missing key in %q", tok)
		}
		if _, dup := a.named[key]; dup {
			return args{}, badArg("%s given more than once", key)
		}
		a.named[key] = val
	}
	return a, nil
}

// only rejects keys outside allowed.
func (a args) only(allowed ...string) error {
	for key := range a.named {
		found := false
		for _, k := range allowed {
			if key == k {
				found = true
				break
			}
		}
		if !found {
			return badArg("unknown option %q (allowed: %s)", key, strings.Join(allowed, ", "))
		}
	}
	return nil
}

func (a args) has(key string) bool {
	_, ok := a.named[key]
	return ok
}

func (a args) str(key, def string) string {
	if v, ok := a.named[key]; ok && v != "" {
		return v
	}
	return def
}

func (a args) intValue(key string, def, lo, hi int) (int, error) {
	v, ok := a.named[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badArg("%s must be a number, got %q", key, v)
	}
	if n < lo || n > hi {
		return 0, badArg("%s must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func (a args) boolValue(key string, def bool) (bool, error) {
	v, ok := a.named[key]
	if !ok {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, badArg("%s must be yes or no, got %q", key, v)
}

func (a args) numbers(key string) ([]int, error) {
	v, ok := a.named[key]
	if !ok {
		return nil, nil
	}
	return parseNumberList(v)
}

// parseNumberList accepts numbers separated by commas and/or spaces.
// Range checks are left to the generator and matcher.
func parseNumberList(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, badArg("%q is not a number", f)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseRange parses "lo-hi".
func parseRange(s string) (int, int, error) {
	loStr, hiStr, ok := strings.Cut(s, "-")
	if !ok {
		return 0, 0, badArg("range must look like 100-170, got %q", s)
	}
	lo, err1 := strconv.Atoi(strings.TrimSpace(loStr))
	hi, err2 := strconv.Atoi(strings.TrimSpace(hiStr))
	if err1 != nil || err2 != nil {
		return 0, 0, badArg("range must look like 100-170, got %q", s)
	}
	return lo, hi, nil
}

// parseRatio parses "a:b".
func parseRatio(s string) (int, int, error) {
	aStr, bStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, badArg("ratio must look like 3:3, got %q", s)
	}
	a, err1 := strconv.Atoi(aStr)
	b, err2 := strconv.Atoi(bStr)
	if err1 != nil || err2 != nil {
		return 0, 0, badArg("ratio must look like 3:3, got %q", s)
	}
	return a, b, nil
}
