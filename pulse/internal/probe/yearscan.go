// CLAUDE:SUMMARY API year-scan probe: newest non-null year in a trailing indicator window.
package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/worldpulse/pulse/internal/source"
)

// yearScanWindow is how many trailing years the probe queries. Annual
// publishers are never more than a couple of years behind, and a short
// window keeps the check cheap.
const yearScanWindow = 5

// YearScanProbe queries a World Bank indicator for one aggregate over the
// last few years and reports the newest year with a published value.
type YearScanProbe struct {
	slug      string
	wb        *source.WorldBank
	country   string
	indicator string
	now       func() time.Time
}

// NewYearScanProbe builds a probe over a single country/aggregate code.
func NewYearScanProbe(slug string, wb *source.WorldBank, country, indicator string) *YearScanProbe {
	return &YearScanProbe{
		slug:      slug,
		wb:        wb,
		country:   country,
		indicator: indicator,
		now:       time.Now,
	}
}

func (p *YearScanProbe) Slug() string { return p.slug }

func (p *YearScanProbe) Check(ctx context.Context, previousYear int) Result {
	res := Result{
		Slug:         p.slug,
		PreviousYear: previousYear,
		CheckedAt:    p.now().UTC(),
	}

	to := p.now().Year()
	obs, err := p.wb.Indicator(ctx, p.country, p.indicator, to-yearScanWindow, to)
	if err != nil {
		res.Err = err
		res.Method = "indicator year scan failed"
		return res
	}

	year := source.LatestYear(obs)
	if year == 0 {
		res.Err = fmt.Errorf("no published years for %s in %d:%d", p.indicator, to-yearScanWindow, to)
		res.Method = "indicator year scan found no data"
		return res
	}

	res.DetectedYear = year
	if year > previousYear {
		res.Changed = true
		res.Method = fmt.Sprintf("latest published year for %s advanced to %d", p.indicator, year)
	} else {
		res.Method = fmt.Sprintf("latest published year for %s is still %d", p.indicator, year)
	}
	return res
}
