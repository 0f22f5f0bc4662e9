// Package export writes an analysis result to disk as JSON plus ledger and
// blotter CSV files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sawpanic/hedgehub/internal/analysis"
)

// File names written by Write
const (
	ResultFile  = "result.json"
	LedgerFile  = "ledger.csv"
	BlotterFile = "blotter.csv"
)

// Write stores res under dir. Every file is written atomically.
func Write(dir string, res *analysis.Result) ([]string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	ledger, err := ledgerCSV(res)
	if err != nil {
		return nil, err
	}
	blotter, err := blotterCSV(res)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		body []byte
	}{{ResultFile, data}, {LedgerFile, ledger}, {BlotterFile, blotter}}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := WriteFileAtomic(path, f.body); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteFileAtomic writes data to file atomically using temp file + rename
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func ledgerCSV(res *analysis.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"date", "position", "qty_a", "qty_b", "price_a", "price_b", "spread", "zscore", "threshold", "cash", "equity", "pnl"})
	for _, row := range res.Ledger {
		_ = w.Write([]string{
			row.Time.Format("2006-01-02"),
			row.Position.String(),
			num(row.QtyA), num(row.QtyB),
			num(row.PriceA), num(row.PriceB),
			num(row.Spread), num(row.Z), num(row.Threshold),
			num(row.Cash), num(row.Equity), num(row.PnL),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func blotterCSV(res *analysis.Result) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "direction", "entry_date", "exit_date", "qty_a", "qty_b", "entry_z", "exit_z", "holding_periods", "pnl", "return_pct", "reason"})
	for _, tr := range res.Blotter {
		_ = w.Write([]string{
			tr.ID,
			tr.Direction.String(),
			tr.EntryTime.Format("2006-01-02"),
			tr.ExitTime.Format("2006-01-02"),
			num(tr.QtyA), num(tr.QtyB),
			num(tr.EntryZ), num(tr.ExitZ),
			strconv.Itoa(tr.HoldingPeriods),
			num(tr.PnL), num(tr.ReturnPct),
			tr.Reason.String(),
		})
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
