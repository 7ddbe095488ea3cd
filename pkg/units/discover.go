package units

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Unit is one test-case directory ready for processing: it holds exactly
// one spreadsheet and one steps CSV.
type Unit struct {
	Name        string
	Dir         string
	Spreadsheet string
	StepsFile   string
}

// Skip records a directory that was found but cannot be processed.
type Skip struct {
	Name   string
	Dir    string
	Reason string
}

var spreadsheetExts = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// Discover walks the immediate subdirectories of root and classifies each
// as a processable unit or a skip. Only an unreadable root is an error;
// malformed subdirectories are reported, not fatal.
func Discover(root string) ([]Unit, []Skip, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory %s: %w", root, err)
	}

	var units []Unit
	var skips []Skip
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		unit, reason := classify(entry.Name(), dir)
		if reason != "" {
			log.Debug().Str("dir", dir).Str("reason", reason).Msg("skipping directory")
			skips = append(skips, Skip{Name: entry.Name(), Dir: dir, Reason: reason})
			continue
		}
		units = append(units, unit)
	}

	sort.Slice(units, func(i, j int) bool { return units[i].Name < units[j].Name })
	sort.Slice(skips, func(i, j int) bool { return skips[i].Name < skips[j].Name })
	return units, skips, nil
}

// Find returns the single named unit under root.
func Find(root, name string) (Unit, error) {
	units, skips, err := Discover(root)
	if err != nil {
		return Unit{}, err
	}
	for _, u := range units {
		if strings.EqualFold(u.Name, name) {
			return u, nil
		}
	}
	for _, s := range skips {
		if strings.EqualFold(s.Name, name) {
			return Unit{}, fmt.Errorf("unit %s cannot be processed: %s", name, s.Reason)
		}
	}
	return Unit{}, fmt.Errorf("unit %s not found under %s", name, root)
}

func classify(name, dir string) (Unit, string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Unit{}, fmt.Sprintf("unreadable: %v", err)
	}

	var spreadsheets, csvs []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		switch {
		case spreadsheetExts[ext]:
			spreadsheets = append(spreadsheets, entry.Name())
		case ext == ".csv":
			csvs = append(csvs, entry.Name())
		}
	}

	switch {
	case len(spreadsheets) == 0:
		return Unit{}, "no spreadsheet found"
	case len(spreadsheets) > 1:
		return Unit{}, fmt.Sprintf("multiple spreadsheets found: %s", strings.Join(spreadsheets, ", "))
	case len(csvs) == 0:
		return Unit{}, "no steps CSV found"
	case len(csvs) > 1:
		return Unit{}, fmt.Sprintf("multiple CSV files found: %s", strings.Join(csvs, ", "))
	}

	return Unit{
		Name:        name,
		Dir:         dir,
		Spreadsheet: filepath.Join(dir, spreadsheets[0]),
		StepsFile:   filepath.Join(dir, csvs[0]),
	}, ""
}
