package ingest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"crosslister/internal/domain"
	"crosslister/internal/service/pricing"
)

// Batch is one watched file's worth of validated products.
type Batch struct {
	Path     string
	Name     string // file stem, used for the results file
	Products []domain.Product
	Skipped  int
}

// ScanFolder lists the JSON batch files in the watch folder, oldest
// name first.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read watch folder: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if strings.HasSuffix(e.Name(), "_results.json") {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ValidateProduct enforces the ingest contract: a product without an
// identifier, a title or a parseable price cannot be listed.
func ValidateProduct(p domain.Product) error {
	if strings.TrimSpace(p.ASIN) == "" {
		return fmt.Errorf("missing asin")
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("missing title")
	}
	if _, err := pricing.ParsePrice(p.Price); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	return nil
}

// LoadBatch reads one batch file. The file may hold a
// {"products": [...]} export, a bare array, or a single product object;
// invalid products are skipped with a log line, and the batch is capped
// at maxItems.
func LoadBatch(path string, maxItems int) (Batch, error) {
	batch := Batch{
		Path: path,
		Name: strings.TrimSuffix(filepath.Base(path), ".json"),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return batch, fmt.Errorf("read batch: %w", err)
	}

	var products []domain.Product
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(raw, &products); err != nil {
			return batch, fmt.Errorf("decode batch %s: %w", batch.Name, err)
		}
	} else {
		var envelope struct {
			Products json.RawMessage `json:"products"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return batch, fmt.Errorf("decode batch %s: %w", batch.Name, err)
		}
		if envelope.Products != nil {
			if err := json.Unmarshal(envelope.Products, &products); err != nil {
				return batch, fmt.Errorf("decode batch %s: %w", batch.Name, err)
			}
		} else {
			var p domain.Product
			if err := json.Unmarshal(raw, &p); err != nil {
				return batch, fmt.Errorf("decode batch %s: %w", batch.Name, err)
			}
			products = []domain.Product{p}
		}
	}

	for _, p := range products {
		if err := ValidateProduct(p); err != nil {
			log.Printf("ingest: %s: skipping %q: %v", batch.Name, p.ASIN, err)
			batch.Skipped++
			continue
		}
		batch.Products = append(batch.Products, p)
	}
	if maxItems > 0 && len(batch.Products) > maxItems {
		log.Printf("ingest: %s: capping batch at %d of %d products",
			batch.Name, maxItems, len(batch.Products))
		batch.Products = batch.Products[:maxItems]
	}
	return batch, nil
}

// MoveTo relocates a processed batch file, falling back to copy+delete
// across filesystems.
func MoveTo(path, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	dest := filepath.Join(destDir, filepath.Base(path))
	if err := os.Rename(path, dest); err == nil {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return err
	}
	return os.Remove(path)
}

// WriteResults drops the run summary next to the processed batch file.
func WriteResults(destDir, batchName string, summary interface{}) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, batchName+"_results.json")
	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
