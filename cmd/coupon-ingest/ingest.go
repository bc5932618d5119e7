package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	maxCodeLen = 32
	bloomFPR   = 0.001
)

// list is the parsed content of one file.
type list struct {
	file  string
	rules []coupon.Rule
}

// duplicate is a code seen again after its first occurrence.
type duplicate struct {
	Code string
	File string
	Kept decimal.Decimal
}

// readLists parses every file concurrently, preserving file order in the
// result.
func readLists(ctx context.Context, lg *zap.Logger, files []string) ([]list, error) {
	lists := make([]list, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "open %s", path)
			}
			defer func() { _ = f.Close() }()

			gz, err := pgzip.NewReader(f)
			if err != nil {
				return errors.Wrapf(err, "gzip reader for %s", path)
			}
			defer func() { _ = gz.Close() }()

			rules, err := parse(ctx, gz)
			if err != nil {
				return errors.Wrap(err, path)
			}
			lg.Info("File parsed", zap.String("file", path), zap.Int("coupons", len(rules)))
			lists[i] = list{file: path, rules: rules}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lists, nil
}

// parse reads "CODE,PERCENT[,DESCRIPTION]" lines.
func parse(ctx context.Context, r io.Reader) ([]coupon.Rule, error) {
	var rules []coupon.Rule
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := parseLine(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", n)
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return rules, nil
}

func parseLine(line string) (coupon.Rule, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 2 {
		return coupon.Rule{}, errors.Errorf("want CODE,PERCENT, got %q", line)
	}

	code := coupon.Normalize(parts[0])
	if code == "" || len(code) > maxCodeLen {
		return coupon.Rule{}, errors.Errorf("bad code %q", parts[0])
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return coupon.Rule{}, errors.Errorf("bad code %q", parts[0])
		}
	}

	pct, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
	if err != nil {
		return coupon.Rule{}, errors.Wrapf(err, "percent of %s", code)
	}
	if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return coupon.Rule{}, errors.Errorf("percent of %s out of range: %s", code, pct)
	}

	rule := coupon.Rule{Code: code, Percent: pct}
	if len(parts) == 3 {
		rule.Description = strings.TrimSpace(parts[2])
	}
	if rule.Description == "" {
		rule.Description = pct.String() + "% OFF"
	}
	return rule, nil
}

// merge keeps the first occurrence of each code across lists. The bloom
// filter screens codes so the exact index is consulted only on probable
// repeats.
func merge(lists []list) ([]coupon.Rule, []duplicate) {
	total := 0
	for _, l := range lists {
		total += len(l.rules)
	}
	seen := bloom.NewWithEstimates(uint(max(total, 1)), bloomFPR)
	index := make(map[string]decimal.Decimal, total)

	var (
		out  = make([]coupon.Rule, 0, total)
		dups []duplicate
	)
	for _, l := range lists {
		for _, rule := range l.rules {
			if seen.TestOrAddString(rule.Code) {
				if kept, ok := index[rule.Code]; ok {
					dups = append(dups, duplicate{Code: rule.Code, File: l.file, Kept: kept})
					continue
				}
			}
			index[rule.Code] = rule.Percent
			out = append(out, rule)
		}
	}
	return out, dups
}
