package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TimeFormat is the layout used when a timestamp is hashed.
const TimeFormat = "2006-01-02T15:04:05"

// placeholderSignature is the length of the zero filled signature carried by
// coinbase outputs.
const placeholderSignature = 65

// ErrHashMismatch is returned when a transaction's claimed hash doesn't match
// the hash computed from its contents.
var ErrHashMismatch = errors.New("transaction hash mismatch")

// =============================================================================

// Output represents a spendable amount locked to a receiver. Inputs of a
// transaction reference prior outputs using the same shape.
type Output struct {
	Signature   hexutil.Bytes `json:"signature"`
	Amount      Amount        `json:"amount"`
	ReceiverKey string        `json:"receiverKey"`
}

// Transaction is the transfer of value from one sender to a set of receivers.
// The core treats it as an opaque merkle leaf with a stable hash.
type Transaction struct {
	ID        string    `json:"hash"`
	Inputs    []Output  `json:"inputs"`
	Outputs   []Output  `json:"outputs"`
	SenderKey string    `json:"senderKey"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransaction constructs a transaction and computes its hash.
func NewTransaction(senderKey string, inputs []Output, outputs []Output) Transaction {
	tx := Transaction{
		Inputs:    inputs,
		Outputs:   outputs,
		SenderKey: senderKey,
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	tx.ID = tx.ComputeHash()

	return tx
}

// MakeCoinbaseTransaction splits the reward evenly across the recipients,
// rounding each share half up at 10^-8 precision.
func MakeCoinbaseTransaction(recipients []string, reward Amount) (Transaction, error) {
	if len(recipients) == 0 {
		return Transaction{}, errors.New("coinbase requires at least one recipient")
	}

	if reward < 0 {
		return Transaction{}, fmt.Errorf("%w: negative reward %s", ErrInvalidAmount, reward)
	}

	n := int64(len(recipients))
	share := Amount((2*int64(reward) + n) / (2 * n))

	outputs := make([]Output, len(recipients))
	for i, key := range recipients {
		outputs[i] = Output{
			Signature:   make([]byte, placeholderSignature),
			Amount:      share,
			ReceiverKey: key,
		}
	}

	return NewTransaction("", []Output{}, outputs), nil
}

// ComputeHash calculates the hash of the transaction contents. The ID field
// is not part of the hash.
func (tx Transaction) ComputeHash() string {
	var buf bytes.Buffer

	writeCount(&buf, len(tx.Inputs))
	for _, in := range tx.Inputs {
		writeBytes(&buf, in.Signature)
		writeAmount(&buf, in.Amount)
		writeBytes(&buf, []byte(in.ReceiverKey))
	}

	writeCount(&buf, len(tx.Outputs))
	for _, out := range tx.Outputs {
		writeAmount(&buf, out.Amount)
		writeBytes(&buf, []byte(out.ReceiverKey))
	}

	writeBytes(&buf, []byte(tx.SenderKey))
	writeBytes(&buf, []byte(tx.Timestamp.UTC().Format(TimeFormat)))

	return signature.DigestHex(buf.Bytes())
}

// Validate checks the claimed hash matches the transaction contents. This
// is the only validity contract the core enforces.
func (tx Transaction) Validate() error {
	if _, err := signature.HashToBytes(tx.ID); err != nil {
		return err
	}

	if got := tx.ComputeHash(); got != tx.ID {
		return fmt.Errorf("%w: claimed %s, computed %s", ErrHashMismatch, tx.ID, got)
	}

	return nil
}

// Total returns the sum of the output amounts.
func (tx Transaction) Total() Amount {
	var total Amount
	for _, out := range tx.Outputs {
		total += out.Amount
	}

	return total
}

// Hash implements the merkle Hashable interface. The claimed hash is the
// leaf value committed to by the merkle root.
func (tx Transaction) Hash() ([]byte, error) {
	b, err := signature.HashToBytes(tx.ID)
	if err != nil {
		return nil, err
	}

	return b[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Transaction) Equals(other Transaction) bool {
	return tx.ID == other.ID
}

// String implements the fmt.Stringer interface for logging.
func (tx Transaction) String() string {
	return fmt.Sprintf("%s:%d->%d", tx.ID, len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

func writeCount(buf *bytes.Buffer, n int) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	buf.Write(b[:])
}

func writeAmount(buf *bytes.Buffer, a Amount) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(a))
	buf.Write(b[:])
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	writeCount(buf, len(data))
	buf.Write(data)
}
