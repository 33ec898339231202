package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/dirs"
	"github.com/tanq16/qurandl/internal/queue"
	"gopkg.in/yaml.v3"
)

type BatchRecitation struct {
	Reciter string   `yaml:"reciter"`
	Surahs  []string `yaml:"surahs"`
	Missing bool     `yaml:"missing,omitempty"`
}

type BatchEntry struct {
	OutputPath string `yaml:"op,omitempty"`
	Link       string `yaml:"link"`
}

// BatchFile lists everything one run should fetch, in queue order:
// recitations, tafasir, translations, then plain files.
type BatchFile struct {
	Recitations  []BatchRecitation `yaml:"recitations"`
	Tafasir      []string          `yaml:"tafasir"`
	Translations []string          `yaml:"translations"`
	Files        []BatchEntry      `yaml:"files"`
}

func readBatchFile(path string) (BatchFile, error) {
	var batch BatchFile
	data, err := os.ReadFile(path)
	if err != nil {
		return batch, fmt.Errorf("error reading batch file: %v", err)
	}
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return batch, fmt.Errorf("error parsing batch file: %v", err)
	}
	return batch, nil
}

// enqueueBatch validates the whole file before anything is queued.
func enqueueBatch(q enqueuer, cat *catalog.Catalog, layout dirs.Layout, batch BatchFile) error {
	type recitationJob struct {
		reciterIdx int
		ranges     []verseRange
		missing    bool
	}
	var recitations []recitationJob
	for _, entry := range batch.Recitations {
		idx, err := cat.ReciterIndex(entry.Reciter)
		if err != nil {
			return err
		}
		job := recitationJob{reciterIdx: idx, missing: entry.Missing}
		for _, s := range entry.Surahs {
			vr, err := parseVerseRange(s)
			if err != nil {
				return fmt.Errorf("reciter %s: %v", entry.Reciter, err)
			}
			job.ranges = append(job.ranges, vr)
		}
		recitations = append(recitations, job)
	}
	for _, name := range batch.Tafasir {
		if _, err := cat.ResourceIndex(catalog.Tafsir, name); err != nil {
			return err
		}
	}
	for _, name := range batch.Translations {
		if _, err := cat.ResourceIndex(catalog.Translation, name); err != nil {
			return err
		}
	}

	for _, job := range recitations {
		if err := enqueueRecitation(q, cat, layout, job.reciterIdx, job.ranges, job.missing); err != nil {
			return err
		}
	}
	if err := enqueueContent(q, cat, catalog.Tafsir, batch.Tafasir); err != nil {
		return err
	}
	if err := enqueueContent(q, cat, catalog.Translation, batch.Translations); err != nil {
		return err
	}
	for i, entry := range batch.Files {
		if entry.Link == "" {
			log.Warn().Str("op", "cmd/batch").Msgf("empty link in files entry %d, skipping", i+1)
			continue
		}
		dest := entry.OutputPath
		if dest == "" {
			dest = filepath.Base(entry.Link)
		}
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(layout.Root, dest)
		}
		if err := q.Enqueue(queue.NewTask(queue.KindFile, queue.Key{Group: i}, entry.Link, dest)); err != nil {
			return err
		}
	}
	return nil
}

func newBatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [YAML_FILE]",
		Short: "Queue recitations, content and files listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batch, err := readBatchFile(args[0])
			if err != nil {
				return err
			}
			return runQueue(e, func(q enqueuer) error {
				return enqueueBatch(q, e.catalog, e.layout, batch)
			})
		},
	}
}
