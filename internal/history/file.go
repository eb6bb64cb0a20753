package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/normalize"
)

var ErrUnknownExchange = errors.New("unknown exchange")

// document is the export file layout. JSON exports parse as well, since
// they are valid YAML. Trades stay raw so one bad entry only loses itself.
type document struct {
	Exchange string      `yaml:"exchange"`
	Asset    string      `yaml:"asset"`
	Quote    string      `yaml:"quote"`
	Balance  *float64    `yaml:"balance"`
	Trades   []yaml.Node `yaml:"trades"`
}

type FileSource struct {
	path  string
	asset string
	quote string
	log   *zap.Logger
}

// NewFileSource reads path. asset and quote apply when the file does not
// name its own pair.
func NewFileSource(path, asset, quote string, log *zap.Logger) *FileSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSource{path: path, asset: asset, quote: quote, log: log.Named("history")}
}

func (s *FileSource) Load(ctx context.Context) (*Batch, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := Parse(data, s.asset, s.quote, s.log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.log.Info("loaded trade file",
		zap.String("path", s.path),
		zap.String("exchange", b.Source),
		zap.Int("records", len(b.Records)),
		zap.Int("malformed", len(b.Errors)),
	)
	return b, nil
}

// Parse decodes an export document and normalizes its trades.
func Parse(data []byte, asset, quote string, log *zap.Logger) (*Batch, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse trade file: %w", err)
	}
	if doc.Asset != "" {
		asset = doc.Asset
	}
	if doc.Quote != "" {
		quote = doc.Quote
	}

	n := normalize.New(asset, quote, log)
	exchange := strings.ToLower(strings.TrimSpace(doc.Exchange))

	var res normalize.BatchResult
	switch exchange {
	case normalize.SourceKraken:
		res = normalize.Batch(n, doc.Trades, decodeWith(exchange, n.Kraken))
	case normalize.SourceBitstamp:
		res = normalize.Batch(n, doc.Trades, decodeWith(exchange, n.Bitstamp))
	case normalize.SourceLedger:
		res = normalize.Batch(n, doc.Trades, decodeWith(exchange, n.Row))
	case normalize.SourceOnChain:
		res = normalize.Batch(n, doc.Trades, decodeWith(exchange, n.OnChain))
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownExchange, doc.Exchange)
	}

	return &Batch{
		Source:  exchange,
		Asset:   asset,
		Quote:   quote,
		Records: res.Records,
		Errors:  res.Errors,
		Skipped: res.Skipped,
		Balance: doc.Balance,
	}, nil
}

// decodeWith adapts a normalizer method to raw YAML nodes. A node that does
// not decode into T is malformed like any other bad payload.
func decodeWith[T any](source string, fn func(T) (models.TradeRecord, error)) func(yaml.Node) (models.TradeRecord, error) {
	return func(node yaml.Node) (models.TradeRecord, error) {
		var raw T
		if err := node.Decode(&raw); err != nil {
			return models.TradeRecord{}, &normalize.MalformedError{
				Source: source,
				Index:  -1,
				Reason: fmt.Sprintf("line %d: %v", node.Line, err),
			}
		}
		return fn(raw)
	}
}
