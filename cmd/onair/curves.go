package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-onair/dsp/curve"
	"github.com/cwbudde/algo-onair/internal/cli"
)

// CurvesCmd prints the fade curves as gain tables.
type CurvesCmd struct {
	Steps int      `default:"11" help:"Points per table, endpoints included."`
	Names []string `arg:"" optional:"" help:"Curves to print. All curves when empty."`
}

func (c *CurvesCmd) Run() error {
	if c.Steps < 2 {
		return fmt.Errorf("steps must be at least 2, got %d", c.Steps)
	}

	curves := curve.All()
	if len(c.Names) > 0 {
		curves = curves[:0:0]
		for _, name := range c.Names {
			cv, err := curve.Parse(name)
			if err != nil {
				return err
			}
			curves = append(curves, cv)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, cv := range curves {
		out, in := curve.Table(cv, c.Steps)
		fmt.Println(cli.TitleStyle.Render(cv.String()))
		fmt.Fprintln(w, "t\tout\tin\tsum\tpower\t")
		for i := range out {
			t := float64(i) / float64(len(out)-1)
			fmt.Fprintf(w, "%.3f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
				t, out[i], in[i], out[i]+in[i], out[i]*out[i]+in[i]*in[i])
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}
	return nil
}
