package config

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"maskbeat-ebiten/core"
)

// parseInt safely converts a string to an integer, returning def on error.
func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// LoadChart はシーケンス譜面を CSV ファイルから読み込みます。
func LoadChart(filePath string) ([][]core.TokenSpec, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open chart csv file %s: %w", filePath, err)
	}
	defer file.Close()

	chart, err := ReadChart(file)
	if err != nil {
		return nil, fmt.Errorf("chart csv %s: %w", filePath, err)
	}
	return chart, nil
}

// ReadChart は "sequence,category,behavior" ヘッダを持つ CSV を読みます。
// 同じ sequence 番号の行はファイル内の順序を保ったまま1つのシーケンスにまとめられ、
// シーケンス同士は番号の昇順に並びます。
func ReadChart(r io.Reader) ([][]core.TokenSpec, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}

	grouped := make(map[int][]core.TokenSpec)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("Warning: error reading chart record at line %d: %v", line, err)
			continue
		}
		if len(record) < len(headers) {
			continue
		}

		data := make(map[string]string)
		for i, header := range headers {
			// ヘッダーを小文字に統一し、前後の空白も除去する
			data[strings.ToLower(strings.TrimSpace(header))] = record[i]
		}

		category, err := core.ParseMaskType(data["category"])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		behavior, err := core.ParseActionType(data["behavior"])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		seq := parseInt(data["sequence"], 0)
		grouped[seq] = append(grouped[seq], core.TokenSpec{
			Category: category,
			Behavior: behavior,
			Weight:   parseInt(data["weight"], 1),
		})
	}

	keys := make([]int, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	chart := make([][]core.TokenSpec, 0, len(keys))
	for _, k := range keys {
		chart = append(chart, grouped[k])
	}
	return chart, nil
}
