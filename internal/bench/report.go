package bench

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

func ms(d time.Duration) string {
	return humanize.FtoaWithDigits(float64(d)/float64(time.Millisecond), 2) + " ms"
}

// WriteTable renders the report as an aligned text table.
func (r Report) WriteTable(w io.Writer) error {
	fmt.Fprintf(w, "target=%s indexes=%s started %s\n", r.Target, r.Indexes, humanize.Time(r.Started))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "question\trows\twithout\twith\tgain\t")

	var without, with time.Duration
	for _, m := range r.Measurements {
		if m.Unsupported {
			fmt.Fprintf(tw, "%s\t-\t-\t-\tunsupported\t\n", m.Question)
			continue
		}
		without += m.Without
		with += m.With
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			m.Question, humanize.Comma(int64(m.Rows)), ms(m.Without), ms(m.With), gain(m.Gain()))
	}
	total := Measurement{Without: without, With: with}
	fmt.Fprintf(tw, "total\t\t%s\t%s\t%s\t\n", ms(without), ms(with), gain(total.Gain()))
	return tw.Flush()
}

func gain(g float64) string {
	if math.IsNaN(g) {
		return "n/a"
	}
	return humanize.FtoaWithDigits(g, 1) + "%"
}
