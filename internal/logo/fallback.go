package logo

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Initials derives up to two uppercase initials from a team display name.
// It returns "?" when name has no letters or digits.
func Initials(name string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	}) {
		r, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		n++
		if n == 2 {
			break
		}
	}
	if n == 0 {
		return "?"
	}
	return b.String()
}

// Display walks the sources a consumer should try when rendering a logo:
// the primary locator, then the fallback locator, then initials.
type Display struct {
	sources  []string
	pos      int
	initials string
}

// NewDisplay builds the fallback chain for res. res may be nil, in which
// case the consumer goes straight to initials. teamName is used for the
// initials when res carries no team name.
func NewDisplay(res *Result, teamName string) *Display {
	d := &Display{}
	if res != nil {
		for _, src := range []string{res.URL, res.FallbackURL} {
			if src == "" || (len(d.sources) > 0 && d.sources[0] == src) {
				continue
			}
			d.sources = append(d.sources, src)
		}
		if res.TeamName != "" {
			teamName = res.TeamName
		}
	}
	d.initials = Initials(teamName)
	return d
}

// Source returns the locator to try next, or false once every locator has
// failed and initials should be rendered.
func (d *Display) Source() (string, bool) {
	if d.pos >= len(d.sources) {
		return "", false
	}
	return d.sources[d.pos], true
}

// Failed records that the current locator could not be loaded.
func (d *Display) Failed() {
	if d.pos < len(d.sources) {
		d.pos++
	}
}

// Initials returns the text rendered when no locator loads.
func (d *Display) Initials() string {
	return d.initials
}
