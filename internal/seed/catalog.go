package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"medicos/m/domain"
	"medicos/m/internal/inventory"
)

// catalogColumns is the header a catalogue CSV must carry, in order.
var catalogColumns = []string{"name", "batch_number", "expiry_date", "quantity", "unit_price", "manufacturer", "category"}

// CatalogResult summarises one import.
type CatalogResult struct {
	Inserted   int
	Duplicates int
	Rejected   int
}

// LoadCatalogFile imports the CSV at path. See LoadCatalog.
func LoadCatalogFile(ctx context.Context, inv *inventory.Store, path string, log *zap.Logger) (CatalogResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return CatalogResult{}, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer file.Close()
	return LoadCatalog(ctx, inv, file, log)
}

// LoadCatalog inserts one batch per CSV row. Rows whose batch number already
// exists are skipped; malformed rows are logged and skipped. unit_price is in
// paise.
func LoadCatalog(ctx context.Context, inv *inventory.Store, r io.Reader, log *zap.Logger) (CatalogResult, error) {
	var res CatalogResult
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return res, fmt.Errorf("read catalog header: %w", err)
	}
	if len(header) < len(catalogColumns) {
		return res, fmt.Errorf("catalog header %v: %w", header, domain.ErrValidation)
	}
	for i, col := range catalogColumns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return res, fmt.Errorf("catalog column %d is %q, want %q: %w", i+1, header[i], col, domain.ErrValidation)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn("catalog_row_unreadable", zap.Int("line", line), zap.Error(err))
			res.Rejected++
			continue
		}
		m, err := parseRow(record)
		if err != nil {
			log.Warn("catalog_row_rejected", zap.Int("line", line), zap.Error(err))
			res.Rejected++
			continue
		}
		err = inv.Create(ctx, &m)
		switch {
		case errors.Is(err, domain.ErrDuplicateBatch):
			res.Duplicates++
		case err != nil:
			return res, err
		default:
			res.Inserted++
		}
	}
	log.Info("catalog_loaded",
		zap.Int("inserted", res.Inserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("rejected", res.Rejected),
	)
	return res, nil
}

func parseRow(record []string) (domain.Medicine, error) {
	var m domain.Medicine
	if len(record) < len(catalogColumns) {
		return m, fmt.Errorf("want %d fields, got %d: %w", len(catalogColumns), len(record), domain.ErrValidation)
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}
	m.Name, m.BatchNumber, m.ExpiryDate = record[0], record[1], record[2]
	m.Manufacturer, m.Category = record[5], record[6]
	if m.Name == "" || m.BatchNumber == "" {
		return m, fmt.Errorf("name and batch_number are required: %w", domain.ErrValidation)
	}
	if _, err := time.Parse(inventory.DateLayout, m.ExpiryDate); err != nil {
		return m, fmt.Errorf("expiry_date %q: %w", m.ExpiryDate, domain.ErrValidation)
	}
	qty, err := strconv.ParseInt(record[3], 10, 64)
	if err != nil || qty < 0 {
		return m, fmt.Errorf("quantity %q: %w", record[3], domain.ErrValidation)
	}
	price, err := strconv.ParseInt(record[4], 10, 64)
	if err != nil || price < 0 {
		return m, fmt.Errorf("unit_price %q: %w", record[4], domain.ErrValidation)
	}
	m.QuantityAvailable, m.UnitPrice = qty, price
	return m, nil
}
