package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tanq16/qurandl/internal/catalog"
	"github.com/tanq16/qurandl/internal/config"
	"github.com/tanq16/qurandl/internal/dirs"
	"github.com/tanq16/qurandl/internal/queue"
)

type verseCall struct {
	reciter, surah, verse int
}

type contentCall struct {
	kind catalog.ContentKind
	idx  int
}

type fakeQueue struct {
	verses   []verseCall
	contents []contentCall
	tasks    []queue.Task
}

func (f *fakeQueue) Enqueue(task queue.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeQueue) EnqueueVerse(reciterIdx, surah, verse int) error {
	f.verses = append(f.verses, verseCall{reciterIdx, surah, verse})
	return nil
}

func (f *fakeQueue) EnqueueContent(kind catalog.ContentKind, idx int) error {
	f.contents = append(f.contents, contentCall{kind, idx})
	return nil
}

func TestParseVerseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    verseRange
		wantErr bool
	}{
		{"1", verseRange{1, 1, 7}, false},
		{"114", verseRange{114, 1, 6}, false},
		{"2:255", verseRange{2, 255, 255}, false},
		{" 18:1-10 ", verseRange{18, 1, 10}, false},
		{"0", verseRange{}, true},
		{"115", verseRange{}, true},
		{"1:8", verseRange{}, true},
		{"1:5-2", verseRange{}, true},
		{"x:1", verseRange{}, true},
		{"1:a", verseRange{}, true},
		{"1:1-b", verseRange{}, true},
	}
	for _, test := range tests {
		got, err := parseVerseRange(test.in)
		if test.wantErr {
			if err == nil {
				t.Errorf("parseVerseRange(%q): expected error, got %+v", test.in, got)
			}
			continue
		}
		if err != nil || got != test.want {
			t.Errorf("parseVerseRange(%q) = %+v, %v; want %+v", test.in, got, err, test.want)
		}
	}
}

func TestFormatVerses(t *testing.T) {
	tests := []struct {
		in   []int
		want string
	}{
		{nil, ""},
		{[]int{4}, "4"},
		{[]int{1, 2, 3, 7}, "1-3,7"},
		{[]int{3, 4, 6, 7}, "3-4,6-7"},
	}
	for _, test := range tests {
		if got := formatVerses(test.in); got != test.want {
			t.Errorf("formatVerses(%v) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestContentNames(t *testing.T) {
	cfg := config.Default()
	if kind, err := parseContentKind("Tafasir"); err != nil || kind != catalog.Tafsir {
		t.Errorf("Unexpected kind %s (%v)", kind, err)
	}
	if _, err := parseContentKind("hadith"); err == nil {
		t.Error("Expected error for unknown kind")
	}
	if names := contentNames(catalog.Tafsir, nil, cfg); len(names) != 1 || names[0] != "sa3dy" {
		t.Errorf("Expected configured tafsir, got %v", names)
	}
	if names := contentNames(catalog.Translation, nil, cfg); len(names) != 1 || names[0] != "en_khattab" {
		t.Errorf("Expected configured translation, got %v", names)
	}
	if names := contentNames(catalog.Translation, []string{"en_sahih"}, cfg); names[0] != "en_sahih" {
		t.Errorf("Expected explicit names, got %v", names)
	}
}

func testEnv(t *testing.T) (*catalog.Catalog, dirs.Layout) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatal(err)
	}
	return cat, dirs.Layout{Root: t.TempDir()}
}

func TestEnqueueRecitationMissingOnly(t *testing.T) {
	cat, layout := testEnv(t)
	reciter := cat.Reciters[0]
	for _, verse := range []int{1, 2, 5} {
		path := layout.VersePath(reciter, 1, verse)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("mp3"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	var all fakeQueue
	if err := enqueueRecitation(&all, cat, layout, 0, []verseRange{{1, 1, 7}}, false); err != nil {
		t.Fatal(err)
	}
	if len(all.verses) != 7 {
		t.Errorf("Expected 7 verses, got %d", len(all.verses))
	}

	var missing fakeQueue
	if err := enqueueRecitation(&missing, cat, layout, 0, []verseRange{{1, 2, 6}}, true); err != nil {
		t.Fatal(err)
	}
	want := []verseCall{{0, 1, 3}, {0, 1, 4}, {0, 1, 6}}
	if len(missing.verses) != len(want) {
		t.Fatalf("Expected %v, got %v", want, missing.verses)
	}
	for i := range want {
		if missing.verses[i] != want[i] {
			t.Errorf("Call %d: expected %v, got %v", i, want[i], missing.verses[i])
		}
	}
}

func TestEnqueueBatch(t *testing.T) {
	cat, layout := testEnv(t)
	batch := BatchFile{
		Recitations: []BatchRecitation{
			{Reciter: "husary", Surahs: []string{"1:1-2", "112"}},
		},
		Tafasir:      []string{"sa3dy"},
		Translations: []string{"en_sahih"},
		Files: []BatchEntry{
			{Link: "https://example.org/fonts/qcf.zip"},
			{Link: "https://example.org/a.db", OutputPath: "/abs/a.db"},
			{},
		},
	}
	var q fakeQueue
	if err := enqueueBatch(&q, cat, layout, batch); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(q.verses) != 2+4 {
		t.Errorf("Expected 6 verses, got %d", len(q.verses))
	}
	if len(q.contents) != 2 || q.contents[0].kind != catalog.Tafsir || q.contents[1].kind != catalog.Translation {
		t.Errorf("Unexpected content calls %v", q.contents)
	}
	if len(q.tasks) != 2 {
		t.Fatalf("Expected 2 file tasks, got %d", len(q.tasks))
	}
	if q.tasks[0].Dest != filepath.Join(layout.Root, "qcf.zip") || q.tasks[1].Dest != "/abs/a.db" {
		t.Errorf("Unexpected destinations %s, %s", q.tasks[0].Dest, q.tasks[1].Dest)
	}
	if q.tasks[0].Kind != queue.KindFile {
		t.Errorf("Expected file task, got %s", q.tasks[0].Kind)
	}
}

func TestEnqueueBatchValidatesFirst(t *testing.T) {
	cat, layout := testEnv(t)
	tests := []BatchFile{
		{Recitations: []BatchRecitation{{Reciter: "husary", Surahs: []string{"1"}}}, Tafasir: []string{"nope"}},
		{Recitations: []BatchRecitation{{Reciter: "husary", Surahs: []string{"1"}}, {Reciter: "nobody"}}},
		{Recitations: []BatchRecitation{{Reciter: "husary", Surahs: []string{"1:99"}}}},
	}
	for i, batch := range tests {
		var q fakeQueue
		err := enqueueBatch(&q, cat, layout, batch)
		if err == nil {
			t.Errorf("Case %d: expected error", i)
		}
		if len(q.verses)+len(q.contents)+len(q.tasks) != 0 {
			t.Errorf("Case %d: expected nothing queued, got %d verses", i, len(q.verses))
		}
	}
	var q fakeQueue
	err := enqueueBatch(&q, cat, layout, BatchFile{Recitations: []BatchRecitation{{Reciter: "ghost"}}})
	if !errors.Is(err, catalog.ErrUnknownReciter) {
		t.Errorf("Expected ErrUnknownReciter, got %v", err)
	}
}

func TestReadBatchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	data := "recitations:\n  - reciter: alafasy\n    surahs: [\"36\", \"67:1-5\"]\n    missing: true\ntafasir: [muyassar]\nfiles:\n  - link: https://example.org/x\n    op: fonts/x\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	batch, err := readBatchFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Recitations) != 1 || !batch.Recitations[0].Missing || len(batch.Recitations[0].Surahs) != 2 {
		t.Errorf("Unexpected recitations %+v", batch.Recitations)
	}
	if len(batch.Tafasir) != 1 || batch.Files[0].OutputPath != "fonts/x" {
		t.Errorf("Unexpected batch %+v", batch)
	}
	if _, err := readBatchFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestRootCommandSetup(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "conf", "qurandl.yaml")
	downloads := filepath.Join(dir, "downloads")

	root := newRootCmd()
	root.SetArgs([]string{"--config", configPath, "--downloads", downloads, "-H", "X-Mirror: eu", "config", "--path"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Expected config file to be created: %v", err)
	}
	if _, err := os.Stat(downloads); err != nil {
		t.Errorf("Expected downloads root to be created: %v", err)
	}

	// each root command owns its flags
	other := newRootCmd()
	if got, _ := other.PersistentFlags().GetString("config"); got != "" {
		t.Errorf("Expected a fresh root command, got config %q", got)
	}
}
