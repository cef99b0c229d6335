/*
Oracle projection handlers, per spec.md §4.7 "Oracle set-oracle-data" /
"Loan-token active-price tick". AppointOracle/RemoveOracle are grounded on
original_source/ain-ocean's indexer/oracle.rs shape (both left `todo!()` in
the original); UpdateOracle is this repo's own generalization of the
masternode owner/operator history pattern to oracle weightage/feeds,
recorded in DESIGN.md. SetOracleData's feed-write and weighted-average
recompute follow map_price_feeds/map_price_aggregated from the same file.
*/
package indexer

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/defich/ocean/internal/kv"
	"github.com/defich/ocean/internal/model"
	"github.com/defich/ocean/internal/ocerr"
	"github.com/defich/ocean/internal/poolswap"
	"github.com/defich/ocean/internal/schema"
)

// priceWindowSeconds bounds how stale a feed may be to still contribute to
// an aggregate, per spec.md §4.7 ("within a 3600-second window of block
// time").
const priceWindowSeconds = 3600

// liveDriftFraction is the 0.3 drift tolerance in spec.md §4.7's
// is_live formula.
const liveDriftFraction = 0.3

func toModelFeeds(in []TokenCurrencyInput) []model.TokenCurrency {
	out := make([]model.TokenCurrency, len(in))
	for i, f := range in {
		out[i] = model.TokenCurrency{Token: f.Token, Currency: f.Currency}
	}
	return out
}

// applyAppointOracle writes the oracle row and its (token,currency)→oracle
// secondaries, per spec.md §4.7.
func applyAppointOracle(columns *schema.Columns, p *AppointOraclePayload) error {
	oracle := model.Oracle{
		ID:        p.OracleID,
		Owner:     p.Owner,
		Weightage: p.Weightage,
		Feeds:     toModelFeeds(p.Feeds),
	}
	if err := columns.Oracle.Put(p.OracleID, oracle); err != nil {
		return err
	}
	for _, f := range p.Feeds {
		if err := columns.OracleTokenCurrency.Put(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}, p.OracleID); err != nil {
			return err
		}
	}
	return nil
}

// unapplyAppointOracle reverses applyAppointOracle, per spec.md §4.8.
func unapplyAppointOracle(columns *schema.Columns, p *AppointOraclePayload) error {
	for _, f := range p.Feeds {
		if err := columns.OracleTokenCurrency.Delete(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}); err != nil {
			return err
		}
	}
	return columns.Oracle.Delete(p.OracleID)
}

// applyRemoveOracle soft-deletes the oracle (model.Oracle.Removed), keeping
// its row and token-currency secondaries in place so invalidation is a
// cheap flip rather than a full reconstruction; recomputePriceAggregated
// skips removed oracles.
func applyRemoveOracle(columns *schema.Columns, p *RemoveOraclePayload) error {
	oracle, ok, err := columns.Oracle.Get(p.OracleID)
	if err != nil || !ok {
		return err
	}
	oracle.Removed = true
	return columns.Oracle.Put(p.OracleID, oracle)
}

func unapplyRemoveOracle(columns *schema.Columns, p *RemoveOraclePayload) error {
	oracle, ok, err := columns.Oracle.Get(p.OracleID)
	if err != nil || !ok {
		return err
	}
	oracle.Removed = false
	return columns.Oracle.Put(p.OracleID, oracle)
}

// applyUpdateOracle pushes the oracle's current weightage/feeds onto its
// history, then rewrites the token-currency secondaries to match the new
// feed list, mirroring UpdateMasternode's push-then-apply shape.
func applyUpdateOracle(columns *schema.Columns, height uint32, p *UpdateOraclePayload) error {
	oracle, ok, err := columns.Oracle.Get(p.OracleID)
	if err != nil || !ok {
		return err
	}

	oracle.History = append(oracle.History, model.OracleState{
		Height:    height,
		Weightage: oracle.Weightage,
		Feeds:     oracle.Feeds,
	})

	for _, f := range oracle.Feeds {
		if err := columns.OracleTokenCurrency.Delete(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}); err != nil {
			return err
		}
	}
	for _, f := range p.Feeds {
		if err := columns.OracleTokenCurrency.Put(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}, p.OracleID); err != nil {
			return err
		}
	}

	oracle.Weightage = p.Weightage
	oracle.Feeds = toModelFeeds(p.Feeds)
	return columns.Oracle.Put(p.OracleID, oracle)
}

// unapplyUpdateOracle pops the oracle's last history entry back into its
// live weightage/feeds, restoring the matching token-currency secondaries.
func unapplyUpdateOracle(columns *schema.Columns, p *UpdateOraclePayload) error {
	oracle, ok, err := columns.Oracle.Get(p.OracleID)
	if err != nil || !ok {
		return err
	}
	if len(oracle.History) == 0 {
		return fmt.Errorf("%w: oracle(%x) history empty during invalidation", ocerr.ErrNotFoundDuringInvalidation, p.OracleID)
	}
	last := oracle.History[len(oracle.History)-1]
	oracle.History = oracle.History[:len(oracle.History)-1]

	for _, f := range oracle.Feeds {
		if err := columns.OracleTokenCurrency.Delete(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}); err != nil {
			return err
		}
	}
	for _, f := range last.Feeds {
		if err := columns.OracleTokenCurrency.Put(schema.OracleTokenCurrencyKey{
			Token: f.Token, Currency: f.Currency, OracleID: p.OracleID,
		}, p.OracleID); err != nil {
			return err
		}
	}

	oracle.Weightage = last.Weightage
	oracle.Feeds = last.Feeds
	return columns.Oracle.Put(p.OracleID, oracle)
}

// applySetOracleData writes one price-feed row per declared (token,
// currency) pair, then recomputes price-aggregated for every distinct pair
// touched, per spec.md §4.7.
func applySetOracleData(columns *schema.Columns, height uint32, blockTime int64, txid [32]byte, p *SetOracleDataPayload) error {
	type pair struct{ token, currency string }
	touched := map[pair]struct{}{}

	for _, pp := range p.Prices {
		key := schema.PriceFeedKey{Token: pp.Token, Currency: pp.Currency, OracleID: p.OracleID, Txid: txid}
		if err := columns.OraclePriceFeed.Put(key, model.PriceFeed{
			Token: pp.Token, Currency: pp.Currency, OracleID: p.OracleID, Txid: txid,
			Height: height, Time: p.Timestamp, Amount: pp.Amount, State: model.PriceFeedStateLive,
		}); err != nil {
			return err
		}
		touched[pair{pp.Token, pp.Currency}] = struct{}{}
	}

	for prs := range touched {
		if err := recomputePriceAggregated(columns, prs.token, prs.currency, height, blockTime); err != nil {
			return err
		}
	}
	return nil
}

// unapplySetOracleData deletes this tx's price-feed rows then recomputes
// price-aggregated for every pair touched against what remains, per
// spec.md §4.8: derived rows are restored by recomputing from the
// now-reverted feed set rather than by storing a separate undo delta.
func unapplySetOracleData(columns *schema.Columns, height uint32, blockTime int64, txid [32]byte, p *SetOracleDataPayload) error {
	type pair struct{ token, currency string }
	touched := map[pair]struct{}{}

	for _, pp := range p.Prices {
		if err := columns.OraclePriceFeed.Delete(schema.PriceFeedKey{
			Token: pp.Token, Currency: pp.Currency, OracleID: p.OracleID, Txid: txid,
		}); err != nil {
			return err
		}
		touched[pair{pp.Token, pp.Currency}] = struct{}{}
	}

	for prs := range touched {
		if err := recomputePriceAggregated(columns, prs.token, prs.currency, height, blockTime); err != nil {
			return err
		}
	}
	return nil
}

// qualifyingOracle is one oracle contributing its feed to an aggregate.
type qualifyingOracle struct {
	id        [32]byte
	weightage uint8
}

// recomputePriceAggregated lists the oracles declaring (token, currency) in
// ascending oracle-id order (the Open Question (a) tie-break: lowest
// oracle-id wins ties), takes each's latest feed within the 3600s window,
// and writes the weighted average, per spec.md §4.7. active==0 deletes any
// existing row at this height, so invalidation's recompute-from-remaining-
// feeds approach converges to "no row" when the last contributing feed is
// removed.
func recomputePriceAggregated(columns *schema.Columns, token, currency string, height uint32, blockTime int64) error {
	from := schema.OracleTokenCurrencyKey{Token: token, Currency: currency}
	var oracles []qualifyingOracle
	for secPair, err := range columns.OracleTokenCurrency.List(&from, kv.Forward) {
		if err != nil {
			return err
		}
		if secPair.Key.Token != token || secPair.Key.Currency != currency {
			break
		}
		oracle, ok, err := columns.Oracle.Get(secPair.Key.OracleID)
		if err != nil {
			return err
		}
		if !ok || oracle.Removed || oracle.Weightage == 0 {
			continue
		}
		oracles = append(oracles, qualifyingOracle{id: secPair.Key.OracleID, weightage: oracle.Weightage})
	}
	sort.Slice(oracles, func(i, j int) bool { return bytes.Compare(oracles[i].id[:], oracles[j].id[:]) < 0 })

	weightedSum := decimal.Zero
	weightageSum := decimal.Zero
	var active uint32

	for _, o := range oracles {
		feed, ok, err := latestFeedWithinWindow(columns, token, currency, o.id, blockTime)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(feed.Amount)
		if err != nil {
			return fmt.Errorf("%w: price feed amount %q: %v", ocerr.ErrDecimalConversion, feed.Amount, err)
		}
		weightedSum = weightedSum.Add(amount.Mul(decimal.NewFromInt(int64(o.weightage))))
		weightageSum = weightageSum.Add(decimal.NewFromInt(int64(o.weightage)))
		active++
	}

	key := schema.PriceHeightKey{Token: token, Currency: currency, Height: height}
	if active == 0 {
		_, ok, err := columns.OraclePriceAggregated.Get(key)
		if err != nil {
			return err
		}
		if ok {
			return columns.OraclePriceAggregated.Delete(key)
		}
		return nil
	}

	amount := weightedSum.Div(weightageSum)
	if err := columns.OraclePriceAggregated.Put(key, model.PriceAggregated{
		Token: token, Currency: currency, Height: height, Time: blockTime,
		Amount: amount.StringFixed(8), Active: active,
	}); err != nil {
		return err
	}

	for _, interval := range poolswap.Intervals {
		start := blockTime - blockTime%int64(interval)
		if err := columns.OraclePriceAggregatedInterval.Put(schema.PriceIntervalKey{
			Token: token, Currency: currency, Interval: uint32(interval), Start: start,
		}, model.PriceAggregatedInterval{
			Token: token, Currency: currency, Interval: uint32(interval), Start: start,
			Amount: amount.StringFixed(8), Active: active,
		}); err != nil {
			return err
		}
	}
	return nil
}

// latestFeedWithinWindow finds oracleID's most recent feed for (token,
// currency) within priceWindowSeconds of blockTime, tie-broken by the
// lowest txid on an exact height tie.
func latestFeedWithinWindow(columns *schema.Columns, token, currency string, oracleID [32]byte, blockTime int64) (model.PriceFeed, bool, error) {
	from := schema.PriceFeedKey{Token: token, Currency: currency, OracleID: oracleID}
	var best model.PriceFeed
	var found bool
	for pair, err := range columns.OraclePriceFeed.List(&from, kv.Forward) {
		if err != nil {
			return model.PriceFeed{}, false, err
		}
		if pair.Key.Token != token || pair.Key.Currency != currency || pair.Key.OracleID != oracleID {
			break
		}
		feed := pair.Value
		diff := blockTime - feed.Time
		if diff < 0 {
			diff = -diff
		}
		if diff >= priceWindowSeconds {
			continue
		}
		if !found || feed.Height > best.Height || (feed.Height == best.Height && bytes.Compare(feed.Txid[:], best.Txid[:]) < 0) {
			best, found = feed, true
		}
	}
	return best, found, nil
}

// applySetLoanToken registers (token, currency) as a tracked price-ticker
// by ensuring a zero-value price-active row exists, per spec.md §4.7
// "Loan-token active-price tick": the tick iterates every tracked pair.
func applySetLoanToken(columns *schema.Columns, p *SetLoanTokenPayload) error {
	key := schema.TokenCurrencyKey{Token: p.Token, Currency: p.Currency}
	_, ok, err := columns.OraclePriceActive.Get(key)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return columns.OraclePriceActive.Put(key, model.PriceActive{Token: p.Token, Currency: p.Currency})
}

// unapplySetLoanToken removes the tracked pair only if the tick has never
// touched it since registration (still at its zero value); otherwise the
// tick's derived state is left alone, since only one SetLoanToken per pair
// is expected in practice.
func unapplySetLoanToken(columns *schema.Columns, p *SetLoanTokenPayload) error {
	key := schema.TokenCurrencyKey{Token: p.Token, Currency: p.Currency}
	row, ok, err := columns.OraclePriceActive.Get(key)
	if err != nil || !ok {
		return err
	}
	if row.Height == 0 && row.Active == nil && row.Next == nil {
		return columns.OraclePriceActive.Delete(key)
	}
	return nil
}

// runActivePriceTick updates every tracked price-active row from the
// latest price-aggregated at or before height, per spec.md §4.7
// "Loan-token active-price tick". Promotion: the prior `next` becomes
// `active` on every tick where it exists, a continuously sliding
// one-tick-delayed buffer, not a one-shot bootstrap; `active` only holds
// when `next` was nil. `next` is always refreshed from the current
// aggregate when valid, or cleared otherwise.
func runActivePriceTick(columns *schema.Columns, height uint32, blockTime int64) error {
	for pair, err := range columns.OraclePriceActive.List(nil, kv.Forward) {
		if err != nil {
			return err
		}
		row := pair.Value

		aggregated, ok, err := latestPriceAggregatedAt(columns, row.Token, row.Currency, height)
		if err != nil {
			return err
		}

		valid := false
		if ok {
			diff := blockTime - aggregated.Time
			if diff < 0 {
				diff = -diff
			}
			valid = diff < priceWindowSeconds && aggregated.Active >= 2
		}

		row.History = append(row.History, model.PriceActiveSnapshot{
			Height: row.Height, Active: row.Active, Next: row.Next, IsLive: row.IsLive,
		})

		if row.Next != nil {
			row.Active = row.Next
		}
		if valid {
			amt := aggregated.Amount
			row.Next = &amt
		} else {
			row.Next = nil
		}
		row.Height = height
		row.IsLive = isLivePrice(row.Active, row.Next)

		if err := columns.OraclePriceActive.Put(schema.TokenCurrencyKey{Token: row.Token, Currency: row.Currency}, row); err != nil {
			return err
		}
	}
	return nil
}

// unapplyActivePriceTick reverses runActivePriceTick: every tracked row pops
// its most recent history entry back into its live fields, per spec.md §4.8.
func unapplyActivePriceTick(columns *schema.Columns) error {
	for pair, err := range columns.OraclePriceActive.List(nil, kv.Forward) {
		if err != nil {
			return err
		}
		row := pair.Value
		if len(row.History) == 0 {
			continue
		}
		last := row.History[len(row.History)-1]
		row.History = row.History[:len(row.History)-1]
		row.Height, row.Active, row.Next, row.IsLive = last.Height, last.Active, last.Next, last.IsLive
		if err := columns.OraclePriceActive.Put(schema.TokenCurrencyKey{Token: row.Token, Currency: row.Currency}, row); err != nil {
			return err
		}
	}
	return nil
}

// isLivePrice implements spec.md §4.7's is_live formula.
func isLivePrice(active, next *string) bool {
	if active == nil || next == nil {
		return false
	}
	a, err := decimal.NewFromString(*active)
	if err != nil || !a.IsPositive() {
		return false
	}
	n, err := decimal.NewFromString(*next)
	if err != nil || !n.IsPositive() {
		return false
	}
	drift := n.Sub(a).Abs()
	bound := a.Mul(decimal.NewFromFloat(liveDriftFraction))
	return drift.LessThan(bound)
}

func latestPriceAggregatedAt(columns *schema.Columns, token, currency string, maxHeight uint32) (model.PriceAggregated, bool, error) {
	from := schema.PriceHeightKey{Token: token, Currency: currency, Height: maxHeight}
	for pair, err := range columns.OraclePriceAggregated.List(&from, kv.Reverse) {
		if err != nil {
			return model.PriceAggregated{}, false, err
		}
		if pair.Key.Token != token || pair.Key.Currency != currency {
			return model.PriceAggregated{}, false, nil
		}
		return pair.Value, true, nil
	}
	return model.PriceAggregated{}, false, nil
}
