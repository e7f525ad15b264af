package tracker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gregtusar/squeeth/pkg/models"
	"github.com/gregtusar/squeeth/pkg/pnl"
	"github.com/gregtusar/squeeth/pkg/pricefeed"
	"github.com/gregtusar/squeeth/pkg/units"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

var (
	ErrAlreadyTracked = errors.New("account already tracked")
	ErrNotTracked     = errors.New("account not tracked")
)

const defaultCacheSize = 256

// PositionSource returns the ledger record of an account.
type PositionSource interface {
	GetPosition(ctx context.Context, owner string) (*models.RawPosition, error)
}

// SnapshotStore persists computed results.
type SnapshotStore interface {
	Save(ctx context.Context, snap models.Snapshot) error
}

type Options struct {
	PriceInterval    time.Duration
	PositionInterval time.Duration
	CacheSize        int
}

// Entry is the latest marked-to-market state of an account.
type Entry struct {
	Account   string           `json:"account"`
	Position  models.Position  `json:"position"`
	Prices    models.Prices    `json:"prices"`
	Result    models.PnLResult `json:"result"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Tracker keeps watched accounts marked against fresh quotes.
type Tracker struct {
	positions PositionSource
	feed      pricefeed.Feed
	store     SnapshotStore
	opts      Options
	logger    *logrus.Logger

	accounts   map[string]bool
	results    map[string]*Entry
	marketData *MarketData
	memo       *lru.Cache[string, *Entry]
	inflight   singleflight.Group
	mu         sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once
}

// MarketData holds the latest quote per symbol.
type MarketData struct {
	quotes map[models.Symbol]*models.Quote
	mu     sync.RWMutex
}

// New builds a tracker; store may be nil.
func New(positions PositionSource, feed pricefeed.Feed, store SnapshotStore, opts Options, logger *logrus.Logger) *Tracker {
	if opts.PriceInterval <= 0 {
		opts.PriceInterval = 30 * time.Second
	}
	if opts.PositionInterval <= 0 {
		opts.PositionInterval = time.Minute
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	memo, _ := lru.New[string, *Entry](opts.CacheSize)
	return &Tracker{
		positions: positions,
		feed:      feed,
		store:     store,
		opts:      opts,
		logger:    logger,
		accounts:  make(map[string]bool),
		results:   make(map[string]*Entry),
		marketData: &MarketData{
			quotes: make(map[models.Symbol]*models.Quote),
		},
		memo:   memo,
		stopCh: make(chan struct{}),
	}
}

func (t *Tracker) Start(ctx context.Context) error {
	t.logger.Info("Starting position tracker")

	// Prime quotes so the first position refresh has something to mark against.
	t.updateQuotes(ctx)

	go t.collectQuotes(ctx)
	go t.monitorPositions(ctx)

	return nil
}

func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.logger.Info("Stopping position tracker")
		close(t.stopCh)
	})
}

func normalizeAccount(account string) string {
	return strings.ToLower(strings.TrimSpace(account))
}

func (t *Tracker) AddAccount(account string) error {
	account = normalizeAccount(account)
	if account == "" {
		return fmt.Errorf("account is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.accounts[account] {
		return fmt.Errorf("%w: %s", ErrAlreadyTracked, account)
	}

	t.accounts[account] = true
	t.logger.WithField("account", account).Info("Tracking account")
	return nil
}

func (t *Tracker) RemoveAccount(account string) error {
	account = normalizeAccount(account)

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.accounts[account] {
		return fmt.Errorf("%w: %s", ErrNotTracked, account)
	}

	delete(t.accounts, account)
	delete(t.results, account)
	t.logger.WithField("account", account).Info("Stopped tracking account")
	return nil
}

func (t *Tracker) Accounts() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	accounts := make([]string, 0, len(t.accounts))
	for a := range t.accounts {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts
}

func (t *Tracker) collectQuotes(ctx context.Context) {
	ticker := time.NewTicker(t.opts.PriceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.updateQuotes(ctx)
		}
	}
}

func (t *Tracker) updateQuotes(ctx context.Context) {
	var wg sync.WaitGroup
	for _, symbol := range []models.Symbol{models.SymbolETH, models.SymbolOSQTH} {
		wg.Add(1)
		go func(s models.Symbol) {
			defer wg.Done()

			quote, err := t.feed.GetQuote(ctx, s)
			if err != nil {
				t.logger.WithError(err).WithField("symbol", s).Error("Failed to get quote")
				return
			}
			t.UpdateQuote(*quote)
		}(symbol)
	}
	wg.Wait()
}

// UpdateQuote records a quote unless a newer one for the symbol is already held.
func (t *Tracker) UpdateQuote(quote models.Quote) {
	t.marketData.mu.Lock()
	defer t.marketData.mu.Unlock()

	if cur, ok := t.marketData.quotes[quote.Symbol]; ok && cur.Timestamp.After(quote.Timestamp) {
		return
	}
	t.marketData.quotes[quote.Symbol] = &quote
}

// Prices returns the latest ETH and oSQTH prices and whether both are known.
func (t *Tracker) Prices() (models.Prices, bool) {
	t.marketData.mu.RLock()
	defer t.marketData.mu.RUnlock()

	var prices models.Prices
	if q, ok := t.marketData.quotes[models.SymbolETH]; ok {
		prices.ETH = q.Price
	}
	if q, ok := t.marketData.quotes[models.SymbolOSQTH]; ok {
		prices.OSQTH = q.Price
	}
	return prices, prices.Complete()
}

func (t *Tracker) Quotes() []models.Quote {
	t.marketData.mu.RLock()
	defer t.marketData.mu.RUnlock()

	quotes := make([]models.Quote, 0, len(t.marketData.quotes))
	for _, q := range t.marketData.quotes {
		quotes = append(quotes, *q)
	}
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
	return quotes
}

func (t *Tracker) monitorPositions(ctx context.Context) {
	t.refreshPositions(ctx)

	ticker := time.NewTicker(t.opts.PositionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			t.refreshPositions(ctx)
		}
	}
}

func (t *Tracker) refreshPositions(ctx context.Context) {
	if _, ok := t.Prices(); !ok {
		t.logger.Warn("Quotes incomplete, skipping position refresh")
		return
	}

	for _, account := range t.Accounts() {
		if _, err := t.Refresh(ctx, account); err != nil {
			t.logger.WithError(err).WithField("account", account).Error("Failed to refresh position")
		}
	}
}

// Refresh fetches the ledger of account, marks it against the latest quotes and
// records the result. The account does not need to be tracked.
func (t *Tracker) Refresh(ctx context.Context, account string) (*Entry, error) {
	account = normalizeAccount(account)

	prices, ok := t.Prices()
	if !ok {
		return nil, fmt.Errorf("quotes not available yet")
	}

	raw, err := t.positions.GetPosition(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}

	key := units.StringifyDeps(account, raw, prices)

	// Concurrent refreshes of the same input share one computation and one snapshot.
	v, err, _ := t.inflight.Do(key, func() (interface{}, error) {
		if entry, ok := t.cachedEntry(account, key); ok {
			return entry, nil
		}
		return t.mark(ctx, account, key, raw, prices)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Entry), nil
}

func (t *Tracker) mark(ctx context.Context, account, key string, raw *models.RawPosition, prices models.Prices) (*Entry, error) {
	pos, err := raw.Normalize()
	if err != nil {
		return nil, fmt.Errorf("invalid position %s: %w", raw.ID, err)
	}
	pos.Account = account

	entry := &Entry{
		Account:   account,
		Position:  pos,
		Prices:    prices,
		Result:    pnl.Calculate(pos, prices),
		UpdatedAt: time.Now().UTC(),
	}
	t.memo.Add(key, entry)

	t.mu.Lock()
	if t.accounts[account] {
		t.results[account] = entry
	}
	t.mu.Unlock()

	if t.store != nil {
		snap := models.NewSnapshot(account, prices, entry.Result)
		if err := t.store.Save(ctx, snap); err != nil {
			t.logger.WithError(err).WithField("account", account).Error("Failed to store snapshot")
		}
	}

	t.logger.WithFields(logrus.Fields{
		"account":        account,
		"unrealized_pnl": entry.Result.UnrealizedPnL.StringFixed(2),
		"realized_pnl":   entry.Result.RealizedPnL.StringFixed(2),
	}).Debug("Position marked to market")

	return entry, nil
}

func (t *Tracker) cachedEntry(account, key string) (*Entry, bool) {
	entry, ok := t.memo.Get(key)
	if !ok || entry.Account != account {
		return nil, false
	}

	t.mu.Lock()
	if t.accounts[account] {
		t.results[account] = entry
	}
	t.mu.Unlock()
	return entry, true
}

// Result returns the latest entry of a tracked account.
func (t *Tracker) Result(account string) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.results[normalizeAccount(account)]
	return entry, ok
}

func (t *Tracker) Results() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]Entry, 0, len(t.results))
	for _, e := range t.results {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Account < entries[j].Account })
	return entries
}
