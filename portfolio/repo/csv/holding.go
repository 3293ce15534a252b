package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/glbter/fin-dashboard/entities"
	"github.com/glbter/fin-dashboard/portfolio"
)

var header = []string{"symbol", "kind", "fee", "price", "shares", "goal_percent", "order"}

// HoldingRepo reads the holdings from a CSV file with the columns
// symbol,kind,fee,price,shares,goal_percent,order.
type HoldingRepo struct {
	Path string
}

func (r HoldingRepo) GetHoldings(_ context.Context) ([]portfolio.Holding, error) {
	content, err := readCsvFile(r.Path)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: %s has no header", entities.ErrMalformedPayload, r.Path)
	}
	if err := checkHeader(content[0]); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Path, err)
	}

	holdings := make([]portfolio.Holding, 0, len(content)-1)
	for i, line := range content[1:] {
		h, err := parseHolding(line)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", r.Path, i+2, err)
		}
		holdings = append(holdings, h)
	}

	return holdings, nil
}

func checkHeader(line []string) error {
	if len(line) != len(header) {
		return fmt.Errorf("%w: header has %d columns, want %d", entities.ErrMalformedPayload, len(line), len(header))
	}
	for i, name := range header {
		if got := strings.TrimSpace(strings.ToLower(line[i])); got != name {
			return fmt.Errorf("%w: column %d is %q, want %q", entities.ErrMalformedPayload, i+1, got, name)
		}
	}
	return nil
}

func parseHolding(line []string) (portfolio.Holding, error) {
	for i := range line {
		line[i] = strings.TrimSpace(line[i])
	}

	kind, err := portfolio.ParseKind(line[1])
	if err != nil {
		return portfolio.Holding{}, err
	}
	fee, err := strconv.ParseFloat(line[2], 64)
	if err != nil {
		return portfolio.Holding{}, fmt.Errorf("%w: fee: %v", entities.ErrMalformedPayload, err)
	}
	price, err := decimal.NewFromString(line[3])
	if err != nil {
		return portfolio.Holding{}, fmt.Errorf("%w: price: %v", entities.ErrMalformedPayload, err)
	}
	shares, err := strconv.ParseInt(line[4], 10, 64)
	if err != nil {
		return portfolio.Holding{}, fmt.Errorf("%w: shares: %v", entities.ErrMalformedPayload, err)
	}
	goal, err := strconv.ParseFloat(line[5], 64)
	if err != nil {
		return portfolio.Holding{}, fmt.Errorf("%w: goal_percent: %v", entities.ErrMalformedPayload, err)
	}
	order, err := strconv.Atoi(line[6])
	if err != nil {
		return portfolio.Holding{}, fmt.Errorf("%w: order: %v", entities.ErrMalformedPayload, err)
	}

	return portfolio.Holding{
		Symbol:      strings.ToUpper(line[0]),
		Kind:        kind,
		Fee:         fee,
		Price:       price,
		Shares:      shares,
		GoalPercent: goal,
		Order:       order,
	}, nil
}

func readCsvFile(filePath string) ([][]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	csvReader := csv.NewReader(f)
	csvReader.FieldsPerRecord = len(header)
	csvReader.Comment = '#'
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedPayload, err)
	}

	return records, nil
}
