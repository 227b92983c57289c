// Package report renders finished analysis reports as files and console text.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"walletscope/internal/domain"
)

var actionColumns = []string{"chain", "ts", "hash", "from", "to", "protocol", "type", "method", "erc20_in_cnt", "erc20_out_cnt"}

// FileWriter writes <address>.summary.json and <address>.actions.csv into a
// directory.
type FileWriter struct {
	dir string
}

func NewFileWriter(dir string) (*FileWriter, error) {
	if dir == "" {
		return nil, errors.New("output dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileWriter{dir: dir}, nil
}

// Paths returns the JSON and CSV paths used for address.
func (w *FileWriter) Paths(address string) (string, string) {
	name := filepath.Base(address)
	return filepath.Join(w.dir, name+".summary.json"), filepath.Join(w.dir, name+".actions.csv")
}

func (w *FileWriter) Consume(_ context.Context, report domain.Report) error {
	jsonPath, csvPath := w.Paths(report.Profile.Address)
	if err := writeFile(jsonPath, func(out io.Writer) error { return WriteJSON(out, report) }); err != nil {
		return err
	}
	return writeFile(csvPath, func(out io.Writer) error { return WriteActionsCSV(out, report) })
}

func writeFile(path string, render func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report domain.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(report)
}

// WriteActionsCSV writes every action of every chain, one row each.
func WriteActionsCSV(w io.Writer, report domain.Report) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(actionColumns); err != nil {
		return err
	}
	for _, chain := range report.Chains {
		for _, action := range chain.Actions {
			row := []string{
				chain.Chain,
				action.Timestamp,
				action.Hash,
				action.From,
				action.To,
				action.Protocol,
				string(action.Kind),
				action.Method,
				strconv.Itoa(action.TokenIn),
				strconv.Itoa(action.TokenOut),
			}
			if err := writer.Write(row); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
