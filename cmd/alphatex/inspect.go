package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/hako/durafmt"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cbegin/alphatex-go"
)

var titleCaser = cases.Title(language.AmericanEnglish)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

func init() {
	inspectCmd.Flags().String("text", "", "Inline AlphaTex text")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file|-]",
	Short: "Summarize the tracks, staves and events of a score",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inline, _ := cmd.Flags().GetString("text")
		src, err := readInput(firstArg(args), inline, cmd.InOrStdin())
		if err != nil {
			return err
		}
		res, err := newTranslator().Translate(src)
		if err != nil {
			return err
		}
		inspect(cmd.OutOrStdout(), res)
		return nil
	},
}

type laneStats struct {
	notes, rests int
	seconds      float64
}

func inspect(w io.Writer, res *alphatex.Result) {
	doc := res.Document
	if doc.Title != "" {
		fmt.Fprintf(w, "title: %s\n", doc.Title)
	}
	if doc.Artist != "" {
		fmt.Fprintf(w, "artist: %s\n", doc.Artist)
	}
	if doc.Tempo > 0 {
		fmt.Fprintf(w, "tempo: %d bpm\n", doc.Tempo)
	}
	fmt.Fprintf(w, "events: %s over %s\n",
		humanize.Comma(int64(len(res.Events))), formatDuration(res.Duration()))

	stats := map[[2]int]*laneStats{}
	for _, e := range res.Events {
		k := [2]int{e.Track, e.Staff}
		s := stats[k]
		if s == nil {
			s = &laneStats{}
			stats[k] = s
		}
		if e.IsRest() {
			s.rests++
		} else {
			s.notes++
		}
		s.seconds += e.Duration
	}

	for ti, tr := range res.Score.Tracks {
		name := tr.Name()
		if len(tr.Names) > 1 {
			name = fmt.Sprintf("%s (%s)", name, strings.Join(tr.Names[1:], ", "))
		}
		fmt.Fprintf(w, "%s track %s\n", humanize.Ordinal(ti+1), name)
		for si, st := range tr.Staves {
			s := stats[[2]int{ti, si}]
			if s == nil {
				s = &laneStats{}
			}
			option := strings.TrimSpace(st.Option)
			if option == "" {
				option = "staff"
			}
			fmt.Fprintf(w, "  %s: %s, %s notes, %s rests, %s\n",
				titleCaser.String(option),
				english.Plural(len(st.Measures), "measure", ""),
				humanize.Comma(int64(s.notes)),
				humanize.Comma(int64(s.rests)),
				formatDuration(time.Duration(s.seconds*float64(time.Second))))
		}
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}
