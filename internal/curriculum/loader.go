package curriculum

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

//go:embed data/ap-ssc-class10.yaml
var defaultSyllabus []byte

// Default returns the catalog built from the embedded syllabus only.
func Default() *Catalog {
	c := newCatalog()
	if err := c.loadYAML(defaultSyllabus); err != nil {
		panic(fmt.Sprintf("embedded syllabus: %v", err))
	}
	return c
}

// Load builds the catalog from the embedded syllabus and then merges every
// syllabus file found below dir. An empty dir loads the embedded data only.
func Load(dir string) (*Catalog, error) {
	c := Default()
	if dir == "" {
		return c, nil
	}

	paths, err := syllabusFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	for _, path := range paths {
		if err := c.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading curriculum %s: %w", path, err)
		}
	}

	slog.Info("curriculum loaded",
		"dir", dir,
		"files", len(paths),
		"subjects", len(c.subjects),
	)
	return c, nil
}

// syllabusFiles lists YAML and XLSX files below dir in lexical order so
// overrides apply deterministically.
func syllabusFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".xlsx":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (c *Catalog) loadFile(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return c.loadWorkbook(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.loadYAML(data)
}

func (c *Catalog) loadYAML(data []byte) error {
	var s Syllabus
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parse syllabus: %w", err)
	}
	for _, subject := range s.Subjects {
		c.add(subject)
	}
	return nil
}

// loadWorkbook reads one subject per sheet: column A holds the chapter name
// and column B an optional context. A leading "Chapter" header row is skipped.
func (c *Catalog) loadWorkbook(path string) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		subject := Subject{Name: sheet}
		for i, row := range rows {
			if len(row) == 0 {
				continue
			}
			name := strings.TrimSpace(row[0])
			if name == "" || (i == 0 && strings.EqualFold(name, "chapter")) {
				continue
			}
			ch := Chapter{Name: name}
			if len(row) > 1 {
				ch.Context = strings.TrimSpace(row[1])
			}
			subject.Chapters = append(subject.Chapters, ch)
		}

		if len(subject.Chapters) == 0 {
			slog.Warn("skipping empty syllabus sheet", "path", path, "sheet", sheet)
			continue
		}
		c.add(subject)
	}
	return nil
}
