// Package policy decides, per duplicate group, whether to consolidate.
package policy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/hldup/hldup/internal/dedupe"
	"github.com/hldup/hldup/internal/logging"
	"github.com/hldup/hldup/internal/stats"
)

// Decider chooses whether a duplicate group should be consolidated.
// Implementations must not reorder or batch groups; they receive one
// group at a time in canonical-path order.
type Decider interface {
	Decide(g *dedupe.Group) bool
}

// AcceptAll consolidates every group without asking.
type AcceptAll struct{}

func (AcceptAll) Decide(*dedupe.Group) bool { return true }

// RejectAll declines every group; the run still reports what it found.
type RejectAll struct{}

func (RejectAll) Decide(*dedupe.Group) bool { return false }

// affirmatives are the only responses treated as a yes. Anything else,
// including an empty line or a read error, declines.
var affirmatives = []string{"y", "Y", "yes", "Yes", "YES"}

// Interactive prompts on Out and blocks for one line on In per group.
type Interactive struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractive returns a prompting decider reading from in and
// writing to out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{in: bufio.NewReader(in), out: out}
}

// Decide presents the group and reads a single-line response.
func (p *Interactive) Decide(g *dedupe.Group) bool {
	fmt.Fprintf(p.out, "keep %s, link %d duplicate path(s) to it (%s reclaimable):\n",
		g.Canonical.Path(), len(g.Dups), stats.FormatBytes(g.Reclaimable()))
	for _, dup := range g.Dups {
		for _, path := range dup.Paths {
			fmt.Fprintf(p.out, "  %s\n", path)
		}
	}
	fmt.Fprintf(p.out, "link? [y/N] ")

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		log := logging.GetLogger("policy")
		log.Warn().Err(err).Msg("could not read response, declining")
		return false
	}
	return slices.Contains(affirmatives, strings.TrimSpace(line))
}

// StdinIsTerminal reports whether the interactive prompt has a real
// terminal to read from.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
