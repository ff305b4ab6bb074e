package indexing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// KnowledgeDocument is one composed knowledge-base chunk ready for
// embedding, built from a single drug row of the corpus CSV.
type KnowledgeDocument struct {
	Content        string
	Category       string
	Recommendation string
	Description    string
}

// IntentDocument is one labelled example query for the intent classifier.
type IntentDocument struct {
	Query string
	Label string
}

// KnowledgeChunksFromCSV reads the drug corpus and composes one Vietnamese
// text chunk per row from the name, group, disease, gene and product
// columns. Rows yielding no chunk parts are skipped. Returns the documents
// and the total row count.
func KnowledgeChunksFromCSV(path string) ([]KnowledgeDocument, int, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}

	docs := make([]KnowledgeDocument, 0, len(rows))
	for _, row := range rows {
		get := func(col string) string {
			idx, ok := header[col]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		var parts []string
		if v := get("name"); v != "" {
			parts = append(parts, fmt.Sprintf("Hoạt chất thuốc %s", v))
		}
		if v := get("group"); v != "" {
			parts = append(parts, fmt.Sprintf("Thuộc nhóm: %s", v))
		}
		if v := get("related_diseases"); v != "" {
			parts = append(parts, fmt.Sprintf("Thuốc này chỉ định cho các bệnh: %s", v))
		}
		if v := get("related_gene"); v != "" {
			parts = append(parts, fmt.Sprintf("Trong báo cáo PGx của Genestory, liên quan đến gene: %s", v))
		}
		if v := get("product_names"); v != "" {
			parts = append(parts, fmt.Sprintf("Một số sản phẩm chứa hoạt chất thuốc: %s", v))
		}
		if len(parts) == 0 {
			continue
		}

		docs = append(docs, KnowledgeDocument{
			Content:        strings.Join(parts, "\n"),
			Category:       get("category"),
			Recommendation: get("recommendation"),
			Description:    get("description"),
		})
	}
	return docs, len(rows), nil
}

// IntentExamplesFromCSV reads labelled example queries (columns: query,
// label). Rows missing either column are skipped.
func IntentExamplesFromCSV(path string) ([]IntentDocument, int, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, 0, err
	}

	queryIdx, okQ := header["query"]
	labelIdx, okL := header["label"]
	if !okQ || !okL {
		return nil, 0, fmt.Errorf("intent csv must have 'query' and 'label' columns")
	}

	docs := make([]IntentDocument, 0, len(rows))
	for _, row := range rows {
		if queryIdx >= len(row) || labelIdx >= len(row) {
			continue
		}
		query := strings.TrimSpace(row[queryIdx])
		label := strings.TrimSpace(row[labelIdx])
		if query == "" || label == "" {
			continue
		}
		docs = append(docs, IntentDocument{Query: query, Label: label})
	}
	return docs, len(rows), nil
}

// readCSV loads all records and maps the header row to column indexes.
func readCSV(path string) ([][]string, map[string]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open corpus csv: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	header := make(map[string]int, len(headerRow))
	for i, col := range headerRow {
		header[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}
