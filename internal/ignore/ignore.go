package ignore

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sechecker/sechecker/internal/report"
	"github.com/sechecker/sechecker/internal/types"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = ".secheckerignore"

type rule struct {
	module string
	item   string
}

// Matcher waives failing items by module and item glob. Each line of an
// ignore file is "module:item" or a bare item glob that applies to every
// module; # starts a comment.
type Matcher struct {
	rules []rule
}

func Parse(r io.Reader) (Matcher, error) {
	var m Matcher
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ru := rule{module: "*", item: text}
		if mod, item, ok := strings.Cut(text, ":"); ok {
			ru = rule{module: strings.TrimSpace(mod), item: strings.TrimSpace(item)}
		}
		if ru.module == "" || ru.item == "" || !doublestar.ValidatePattern(ru.module) || !doublestar.ValidatePattern(ru.item) {
			return Matcher{}, fmt.Errorf("%w: line %d: bad ignore pattern %q", types.ErrInvalidArgument, line, text)
		}
		m.rules = append(m.rules, ru)
	}
	return m, sc.Err()
}

func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		return Matcher{}, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return Matcher{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (m Matcher) Len() int { return len(m.rules) }

func (m Matcher) Match(module, item string) bool {
	for _, r := range m.rules {
		okMod, _ := doublestar.Match(r.module, module)
		okItem, _ := doublestar.Match(r.item, item)
		if okMod && okItem {
			return true
		}
	}
	return false
}

// Waive marks matching failing items of completed views as passed and
// returns how many were waived. Views taken straight from a library waive
// the modules' own results.
func (m Matcher) Waive(views []report.View) int {
	n := 0
	for _, v := range views {
		if !v.Completed() || v.Result == nil {
			continue
		}
		for _, it := range v.Result.Failing() {
			if m.Match(v.Name, it.ID) {
				it.Passed = true
				n++
			}
		}
	}
	return n
}
