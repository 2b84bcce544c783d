package probe

import (
	"time"

	"github.com/hazyhaar/worldpulse/pulse/internal/source"
)

// NewDefaultSet wires the production probes. Only annually-published
// datasets get one; fast-moving datasets (bitcoin-price) and manual
// scrapes without a machine-checkable release signal (renewable-capacity)
// rely on their refresh cadence alone.
func NewDefaultSet(wb *source.WorldBank, githubToken string) *Set {
	var opts []CommitProbeOption
	if githubToken != "" {
		opts = append(opts, WithGitHubToken(githubToken))
	}
	return NewSet(
		// The Global Carbon Budget lands in the OWID repo every autumn.
		NewCommitProbe("co2-emissions", "owid", "co2-data", "owid-co2-data.csv", time.October, opts...),
		NewYearScanProbe("military-spending", wb, "WLD", "MS.MIL.XPND.CD"),
		NewYearScanProbe("world-population", wb, "WLD", "SP.POP.TOTL"),
	)
}
