package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/dirs"
	"github.com/tanq16/qurandl/internal/output"
)

// verseRange is an inclusive verse range within one surah.
type verseRange struct {
	Surah int
	From  int
	To    int
}

// parseVerseRange accepts SURAH, SURAH:VERSE and SURAH:FROM-TO.
func parseVerseRange(s string) (verseRange, error) {
	surahPart, versePart, hasVerses := strings.Cut(strings.TrimSpace(s), ":")
	surah, err := strconv.Atoi(surahPart)
	if err != nil {
		return verseRange{}, fmt.Errorf("invalid surah %q", surahPart)
	}
	count, err := catalog.VerseCount(surah)
	if err != nil {
		return verseRange{}, err
	}
	vr := verseRange{Surah: surah, From: 1, To: count}
	if !hasVerses {
		return vr, nil
	}
	fromPart, toPart, isRange := strings.Cut(versePart, "-")
	if vr.From, err = strconv.Atoi(fromPart); err != nil {
		return verseRange{}, fmt.Errorf("invalid verse %q", fromPart)
	}
	vr.To = vr.From
	if isRange {
		if vr.To, err = strconv.Atoi(toPart); err != nil {
			return verseRange{}, fmt.Errorf("invalid verse %q", toPart)
		}
	}
	if vr.From > vr.To {
		return verseRange{}, fmt.Errorf("invalid verse range %d-%d", vr.From, vr.To)
	}
	if err := catalog.CheckVerse(surah, vr.From); err != nil {
		return verseRange{}, err
	}
	if err := catalog.CheckVerse(surah, vr.To); err != nil {
		return verseRange{}, err
	}
	return vr, nil
}

// enqueueRecitation queues every verse in ranges for one reciter. With
// onlyMissing, verses already on disk are skipped.
func enqueueRecitation(q enqueuer, cat *catalog.Catalog, layout dirs.Layout, reciterIdx int, ranges []verseRange, onlyMissing bool) error {
	reciter := cat.Reciters[reciterIdx]
	for _, vr := range ranges {
		var wanted map[int]bool
		if onlyMissing {
			missing, err := layout.Missing(reciter, vr.Surah)
			if err != nil {
				return err
			}
			wanted = make(map[int]bool, len(missing))
			for _, v := range missing {
				wanted[v] = true
			}
		}
		for verse := vr.From; verse <= vr.To; verse++ {
			if wanted != nil && !wanted[verse] {
				continue
			}
			if err := q.EnqueueVerse(reciterIdx, vr.Surah, verse); err != nil {
				return err
			}
		}
	}
	return nil
}

// warnMissing reports verses still absent after a run.
func warnMissing(cat *catalog.Catalog, layout dirs.Layout, reciterIdx int, ranges []verseRange) {
	reciter := cat.Reciters[reciterIdx]
	for _, vr := range ranges {
		missing, err := layout.Missing(reciter, vr.Surah)
		if err != nil {
			continue
		}
		count := 0
		for _, v := range missing {
			if v >= vr.From && v <= vr.To {
				count++
			}
		}
		if count > 0 {
			output.PrintWarning(fmt.Sprintf("Surah %d still has %d missing verse file(s) for %s", vr.Surah, count, reciter.Display))
		}
	}
}

func newRecitationCmd(e *env) *cobra.Command {
	var onlyMissing bool

	cmd := &cobra.Command{
		Use:     "recitation [RECITER] [SURAH[:VERSE[-VERSE]]]...",
		Aliases: []string{"rec", "r"},
		Short:   "Download recitation audio for surahs or verse ranges",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reciterIdx, err := e.catalog.ReciterIndex(args[0])
			if err != nil {
				return err
			}
			var ranges []verseRange
			for _, arg := range args[1:] {
				vr, err := parseVerseRange(arg)
				if err != nil {
					return err
				}
				ranges = append(ranges, vr)
			}
			err = runQueue(e, func(q enqueuer) error {
				return enqueueRecitation(q, e.catalog, e.layout, reciterIdx, ranges, onlyMissing)
			})
			if e.cfg.MissingFileWarning {
				warnMissing(e.catalog, e.layout, reciterIdx, ranges)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&onlyMissing, "missing", "m", false, "Only download verses that are not on disk yet")
	return cmd
}
