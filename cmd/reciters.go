package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/output"
)

func newRecitersCmd(e *env) *cobra.Command {
	var dirsOnly bool

	cmd := &cobra.Command{
		Use:   "reciters",
		Short: "List the available reciters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := newController(e)
			defer ctrl.Close()
			if dirsOnly {
				for _, dir := range ctrl.ReciterDirNames() {
					fmt.Println(dir)
				}
				return nil
			}
			output.PrintHeader("Reciters")
			for i, r := range ctrl.Reciters() {
				fmt.Printf("  %s %s %s\n", output.FDebug(fmt.Sprintf("%2d", i)), output.FInfo(r.Name), output.FDetail(r.Display))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dirsOnly, "dirs", false, "Print only the recitation directory names")
	return cmd
}

// formatVerses collapses sorted verse numbers into ranges like 1-3,7.
func formatVerses(verses []int) string {
	var parts []string
	for i := 0; i < len(verses); {
		j := i
		for j+1 < len(verses) && verses[j+1] == verses[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(verses[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", verses[i], verses[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func newMissingCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "missing [RECITER] [SURAH]...",
		Short: "Report verse files that are not on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := e.catalog.ReciterIndex(args[0])
			if err != nil {
				return err
			}
			reciter := e.catalog.Reciters[idx]
			var surahs []int
			for _, arg := range args[1:] {
				vr, err := parseVerseRange(arg)
				if err != nil {
					return err
				}
				surahs = append(surahs, vr.Surah)
			}
			if len(surahs) == 0 {
				for s := 1; s <= catalog.SurahCount; s++ {
					surahs = append(surahs, s)
				}
			}
			total := 0
			for _, surah := range surahs {
				missing, err := e.layout.Missing(reciter, surah)
				if err != nil {
					return err
				}
				if len(missing) == 0 {
					continue
				}
				total += len(missing)
				fmt.Printf("  %s %s\n", output.FWarning(fmt.Sprintf("%3d", surah)), output.FDebug(formatVerses(missing)))
			}
			if total == 0 {
				output.PrintSuccess(fmt.Sprintf("All verse files present for %s", reciter.Display))
				return nil
			}
			output.PrintWarning(fmt.Sprintf("%d verse file(s) missing for %s", total, reciter.Display))
			return nil
		},
	}
}
