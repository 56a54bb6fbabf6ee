// Package swapmgr is the Swap Manager collaborator: it builds the on-chain
// claim structure for a swap (HTLC script and address for Bitcoin-like
// chains, HTLC contract instance for EVM chains) and binds it into the
// Swap Repository.
package swapmgr

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
	"github.com/klingon-exchange/klingon-v2/pkg/helpers"
)

// HTLCScriptData is the on-chain claim structure for a Bitcoin-like swap.
type HTLCScriptData struct {
	Script             []byte
	Address            string
	ScriptHash         []byte
	SecretHash         []byte
	ReceiverPubKey     []byte
	SenderPubKey       []byte
	TimeoutBlockHeight uint32
}

// BuildHTLCScript creates an HTLC script using an absolute locktime (CLTV)
// for the refund branch, matching the orchestrator's timeoutBlockHeight
// semantics (block height, not a relative delay).
//
// Script structure:
//
//	OP_IF
//	    OP_SHA256 <secret_hash> OP_EQUALVERIFY
//	    <receiver_pubkey> OP_CHECKSIG
//	OP_ELSE
//	    <timeout_block_height> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    <sender_pubkey> OP_CHECKSIG
//	OP_ENDIF
func BuildHTLCScript(secretHash, receiverPubKey, senderPubKey []byte, timeoutBlockHeight uint32) ([]byte, error) {
	if len(secretHash) != 32 {
		return nil, fmt.Errorf("secret hash must be 32 bytes, got %d", len(secretHash))
	}
	if len(receiverPubKey) != 33 {
		return nil, fmt.Errorf("receiver pubkey must be 33 bytes (compressed), got %d", len(receiverPubKey))
	}
	if len(senderPubKey) != 33 {
		return nil, fmt.Errorf("sender pubkey must be 33 bytes (compressed), got %d", len(senderPubKey))
	}
	if timeoutBlockHeight == 0 {
		return nil, fmt.Errorf("timeout block height must be greater than 0")
	}

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_SHA256)
	builder.AddData(secretHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddData(receiverPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(timeoutBlockHeight))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(senderPubKey)
	builder.AddOp(txscript.OP_CHECKSIG)

	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// BuildHTLCScriptData builds the full claim structure, including the
// P2WSH address for the given chain's params.
func BuildHTLCScriptData(
	secretHash []byte,
	receiverPubKey, senderPubKey *btcec.PublicKey,
	timeoutBlockHeight uint32,
	params *currency.Params,
) (*HTLCScriptData, error) {
	receiverBytes := receiverPubKey.SerializeCompressed()
	senderBytes := senderPubKey.SerializeCompressed()

	script, err := BuildHTLCScript(secretHash, receiverBytes, senderBytes, timeoutBlockHeight)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTLC script: %w", err)
	}

	scriptHash := sha256.Sum256(script)

	address, err := btcutil.NewAddressWitnessScriptHash(scriptHash[:], params.ChaincfgParams())
	if err != nil {
		return nil, fmt.Errorf("failed to create P2WSH address: %w", err)
	}

	return &HTLCScriptData{
		Script:             script,
		Address:            address.EncodeAddress(),
		ScriptHash:         scriptHash[:],
		SecretHash:         secretHash,
		ReceiverPubKey:     receiverBytes,
		SenderPubKey:       senderBytes,
		TimeoutBlockHeight: timeoutBlockHeight,
	}, nil
}

// BuildHTLCClaimWitness creates the witness stack for claiming with the secret.
func BuildHTLCClaimWitness(signature, secret, script []byte) [][]byte {
	return [][]byte{
		signature,
		secret,
		{0x01},
		script,
	}
}

// BuildHTLCRefundWitness creates the witness stack for refunding after timeout.
func BuildHTLCRefundWitness(signature, script []byte) [][]byte {
	return [][]byte{
		signature,
		{},
		script,
	}
}

// BuildP2WSHScriptPubKey creates the scriptPubKey for a P2WSH output.
func BuildP2WSHScriptPubKey(script []byte) []byte {
	scriptHash := sha256.Sum256(script)
	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(scriptHash[:])
	scriptPubKey, _ := builder.Script()
	return scriptPubKey
}

// GeneratePreimage generates a cryptographically secure 32-byte preimage
// and its SHA256 hash.
func GeneratePreimage() (preimage, hash []byte, err error) {
	preimage, err = helpers.GenerateSecureRandom(32)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate preimage: %w", err)
	}
	hashArray := sha256.Sum256(preimage)
	return preimage, hashArray[:], nil
}

// VerifyPreimage checks if a preimage matches the expected hash.
func VerifyPreimage(preimage, expectedHash []byte) bool {
	if len(preimage) != 32 || len(expectedHash) != 32 {
		return false
	}
	actualHash := sha256.Sum256(preimage)
	return helpers.ConstantTimeCompare(actualHash[:], expectedHash)
}

// ExtractSpentLockupTxID decodes a raw Bitcoin-like transaction and returns
// the txid of the outpoint its first input spends. A refund transaction's
// first input is always the HTLC lockup output, so this is how
// BroadcastTransaction recognizes an early refund attempt (spec.md §4.1
// broadcastTransaction, scenario 6) before it is mined. Callers stringify
// the hash only at the storage lookup boundary (chainhash.Hash.String()
// gives the standard byte-reversed txid format lockup_transaction_id is
// stored in).
func ExtractSpentLockupTxID(rawTxHex string) (*chainhash.Hash, error) {
	raw, err := hex.DecodeString(rawTxHex)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction hex: %w", err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	if len(tx.TxIn) == 0 {
		return nil, fmt.Errorf("transaction has no inputs")
	}

	return &tx.TxIn[0].PreviousOutPoint.Hash, nil
}

// ParseHTLCScript parses an HTLC script and extracts its components.
func ParseHTLCScript(script []byte) (secretHash, receiverPubKey, senderPubKey []byte, timeoutBlockHeight uint32, err error) {
	tokenizer := txscript.MakeScriptTokenizer(0, script)

	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_IF {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_IF")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_SHA256 {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_SHA256")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected secret hash")
	}
	secretHash = tokenizer.Data()
	if len(secretHash) != 32 {
		return nil, nil, nil, 0, fmt.Errorf("secret hash must be 32 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_EQUALVERIFY {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_EQUALVERIFY")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected receiver pubkey")
	}
	receiverPubKey = tokenizer.Data()
	if len(receiverPubKey) != 33 {
		return nil, nil, nil, 0, fmt.Errorf("receiver pubkey must be 33 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKSIG {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKSIG")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_ELSE {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_ELSE")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected timeout block height")
	}
	op := tokenizer.Opcode()
	if txscript.IsSmallInt(op) {
		timeoutBlockHeight = uint32(txscript.AsSmallInt(op))
	} else {
		data := tokenizer.Data()
		if len(data) == 0 {
			return nil, nil, nil, 0, fmt.Errorf("invalid timeout block height: expected data push")
		}
		for i := 0; i < len(data); i++ {
			timeoutBlockHeight |= uint32(data[i]) << (8 * i)
		}
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKLOCKTIMEVERIFY {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKLOCKTIMEVERIFY")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_DROP {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_DROP")
	}
	if !tokenizer.Next() {
		return nil, nil, nil, 0, fmt.Errorf("expected sender pubkey")
	}
	senderPubKey = tokenizer.Data()
	if len(senderPubKey) != 33 {
		return nil, nil, nil, 0, fmt.Errorf("sender pubkey must be 33 bytes")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_CHECKSIG {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_CHECKSIG")
	}
	if !tokenizer.Next() || tokenizer.Opcode() != txscript.OP_ENDIF {
		return nil, nil, nil, 0, fmt.Errorf("expected OP_ENDIF")
	}

	return secretHash, receiverPubKey, senderPubKey, timeoutBlockHeight, nil
}

// HTLCScriptHex returns the script as a hex string.
func (h *HTLCScriptData) HTLCScriptHex() string {
	return hex.EncodeToString(h.Script)
}
