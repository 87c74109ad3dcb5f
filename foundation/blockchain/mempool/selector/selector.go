// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"
	"sort"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyOldest = "oldest"
	StrategyValue  = "value"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyOldest: oldestSelect,
	StrategyValue:  valueSelect,
}

// Func defines a function that takes the pending transactions and selects
// howMany of them in an order based on the functions strategy. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(transactions []database.Transaction, howMany int) []database.Transaction

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// oldestSelect returns the transactions in the order they were created.
var oldestSelect = func(transactions []database.Transaction, howMany int) []database.Transaction {
	sort.Sort(byTimestamp(transactions))
	return limit(transactions, howMany)
}

// valueSelect returns the transactions moving the most value first. Equal
// totals fall back to the creation order.
var valueSelect = func(transactions []database.Transaction, howMany int) []database.Transaction {
	sort.Sort(byTimestamp(transactions))
	sort.Stable(byTotal(transactions))
	return limit(transactions, howMany)
}

func limit(transactions []database.Transaction, howMany int) []database.Transaction {
	if howMany >= 0 && len(transactions) > howMany {
		return transactions[:howMany]
	}
	return transactions
}

// =============================================================================

// byTimestamp provides sorting support by the transaction timestamp.
type byTimestamp []database.Transaction

// Len returns the number of transactions in the list.
func (bt byTimestamp) Len() int {
	return len(bt)
}

// Less helps to sort the list by timestamp in ascending order. The hash
// breaks ties so the order is the same on every node.
func (bt byTimestamp) Less(i, j int) bool {
	if !bt[i].Timestamp.Equal(bt[j].Timestamp) {
		return bt[i].Timestamp.Before(bt[j].Timestamp)
	}
	return bt[i].ID < bt[j].ID
}

// Swap moves transactions in the order of the timestamp value.
func (bt byTimestamp) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}

// =============================================================================

// byTotal provides sorting support by the transaction output total.
type byTotal []database.Transaction

// Len returns the number of transactions in the list.
func (bt byTotal) Len() int {
	return len(bt)
}

// Less helps to sort the list by total in decending order.
func (bt byTotal) Less(i, j int) bool {
	return bt[i].Total() > bt[j].Total()
}

// Swap moves transactions in the order of the total value.
func (bt byTotal) Swap(i, j int) {
	bt[i], bt[j] = bt[j], bt[i]
}
