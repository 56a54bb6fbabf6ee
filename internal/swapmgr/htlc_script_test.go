package swapmgr

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/klingon-exchange/klingon-v2/internal/currency"
)

func testParams(t *testing.T) *currency.Params {
	t.Helper()
	params, ok := currency.Get("BTC", currency.Mainnet)
	if !ok {
		t.Fatal("BTC mainnet params not registered")
	}
	return params
}

func TestBuildHTLCScript(t *testing.T) {
	secretHash := bytes.Repeat([]byte{0xAA}, 32)
	receiverKey, _ := btcec.NewPrivateKey()
	senderKey, _ := btcec.NewPrivateKey()
	receiverPub := receiverKey.PubKey().SerializeCompressed()
	senderPub := senderKey.PubKey().SerializeCompressed()

	script, err := BuildHTLCScript(secretHash, receiverPub, senderPub, 800000)
	if err != nil {
		t.Fatalf("BuildHTLCScript() error = %v", err)
	}
	if len(script) == 0 {
		t.Fatal("BuildHTLCScript() returned empty script")
	}
}

func TestBuildHTLCScriptRejectsBadLengths(t *testing.T) {
	receiverKey, _ := btcec.NewPrivateKey()
	receiverPub := receiverKey.PubKey().SerializeCompressed()

	if _, err := BuildHTLCScript(make([]byte, 31), receiverPub, receiverPub, 1000); err == nil {
		t.Error("BuildHTLCScript() with short secret hash: want error, got nil")
	}
	if _, err := BuildHTLCScript(make([]byte, 32), receiverPub, receiverPub, 0); err == nil {
		t.Error("BuildHTLCScript() with zero timeout: want error, got nil")
	}
}

func TestBuildHTLCScriptData(t *testing.T) {
	secretHash := bytes.Repeat([]byte{0xBB}, 32)
	receiverKey, _ := btcec.NewPrivateKey()
	senderKey, _ := btcec.NewPrivateKey()

	data, err := BuildHTLCScriptData(secretHash, receiverKey.PubKey(), senderKey.PubKey(), 850000, testParams(t))
	if err != nil {
		t.Fatalf("BuildHTLCScriptData() error = %v", err)
	}
	if data.Address == "" {
		t.Error("BuildHTLCScriptData() produced empty address")
	}
	if len(data.ScriptHash) != 32 {
		t.Errorf("ScriptHash length = %d, want 32", len(data.ScriptHash))
	}
	if data.TimeoutBlockHeight != 850000 {
		t.Errorf("TimeoutBlockHeight = %d, want 850000", data.TimeoutBlockHeight)
	}
}

func TestGenerateAndVerifyPreimage(t *testing.T) {
	preimage, hash, err := GeneratePreimage()
	if err != nil {
		t.Fatalf("GeneratePreimage() error = %v", err)
	}
	if !VerifyPreimage(preimage, hash) {
		t.Error("VerifyPreimage() = false for matching preimage, want true")
	}
	if VerifyPreimage(preimage, bytes.Repeat([]byte{0x00}, 32)) {
		t.Error("VerifyPreimage() = true for mismatched hash, want false")
	}
}

func TestExtractSpentLockupTxID(t *testing.T) {
	var spentHash chainhash.Hash
	copy(spentHash[:], bytes.Repeat([]byte{0x42}, 32))

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&spentHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(0, []byte{}))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("failed to serialize test transaction: %v", err)
	}

	got, err := ExtractSpentLockupTxID(hex.EncodeToString(buf.Bytes()))
	if err != nil {
		t.Fatalf("ExtractSpentLockupTxID() error = %v", err)
	}
	if !got.IsEqual(&spentHash) {
		t.Errorf("ExtractSpentLockupTxID() = %s, want %s", got, spentHash.String())
	}
}

func TestExtractSpentLockupTxIDRejectsGarbage(t *testing.T) {
	if _, err := ExtractSpentLockupTxID("not-hex"); err == nil {
		t.Error("ExtractSpentLockupTxID() with invalid hex: want error, got nil")
	}
	if _, err := ExtractSpentLockupTxID("deadbeef"); err == nil {
		t.Error("ExtractSpentLockupTxID() with truncated tx bytes: want error, got nil")
	}
}
