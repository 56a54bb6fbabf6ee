package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestGetHTLCContract(t *testing.T) {
	sepoliaHTLC := GetHTLCContract(11155111)
	expectedAddr := common.HexToAddress("0x628c677e7b8889e64564d3f381565a9e6656aade")
	if sepoliaHTLC != expectedAddr {
		t.Errorf("Sepolia HTLC = %s, want %s", sepoliaHTLC.Hex(), expectedAddr.Hex())
	}

	mainnetHTLC := GetHTLCContract(1)
	if mainnetHTLC.Hex() != "0x0000000000000000000000000000000000000000" {
		t.Errorf("Mainnet HTLC should be zero address (not deployed), got %s", mainnetHTLC.Hex())
	}

	unknownHTLC := GetHTLCContract(999999)
	if unknownHTLC.Hex() != "0x0000000000000000000000000000000000000000" {
		t.Errorf("Unknown chain HTLC should be zero address, got %s", unknownHTLC.Hex())
	}
}

func TestIsHTLCDeployed(t *testing.T) {
	if !IsHTLCDeployed(11155111) {
		t.Error("HTLC should be deployed on Sepolia")
	}
	if IsHTLCDeployed(1) {
		t.Error("HTLC should NOT be deployed on mainnet yet")
	}
	if IsHTLCDeployed(999999) {
		t.Error("HTLC should NOT be deployed on unknown chain")
	}
}

func TestListDeployedHTLCChains(t *testing.T) {
	chains := ListDeployedHTLCChains()

	found := false
	for _, chainID := range chains {
		if chainID == 11155111 {
			found = true
		}
		if chainID == 1 {
			t.Error("Mainnet (1) should NOT be in deployed chains list")
		}
	}
	if !found {
		t.Error("Sepolia (11155111) should be in deployed chains list")
	}
}

func TestGetEVMContracts(t *testing.T) {
	sepolia := GetEVMContracts(11155111)
	if sepolia == nil {
		t.Fatal("GetEVMContracts(11155111) should not return nil")
	}
	expectedAddr := common.HexToAddress("0x628c677e7b8889e64564d3f381565a9e6656aade")
	if sepolia.HTLCContract != expectedAddr {
		t.Errorf("Sepolia HTLC = %s, want %s", sepolia.HTLCContract.Hex(), expectedAddr.Hex())
	}

	unknown := GetEVMContracts(999999)
	if unknown != nil {
		t.Error("GetEVMContracts(999999) should return nil")
	}
}

func TestResolveEVMContracts(t *testing.T) {
	cfg := Default()
	cfg.Currencies = []CurrencyConfig{
		{Symbol: "ETH", EVMChainID: 11155111},
		{Symbol: "USDT", EVMChainID: 11155111},
		{Symbol: "MATIC", EVMChainID: 80002, EVMContractAddress: "0x1111111111111111111111111111111111111111"},
	}

	resolved := cfg.ResolveEVMContracts()

	sepolia, ok := resolved[11155111]
	wantSepolia := GetHTLCContract(11155111).Hex()
	if !ok || sepolia != wantSepolia {
		t.Errorf("ResolveEVMContracts()[11155111] = %q, ok=%v, want %q", sepolia, ok, wantSepolia)
	}

	amoy, ok := resolved[80002]
	if !ok || amoy != "0x1111111111111111111111111111111111111111" {
		t.Errorf("ResolveEVMContracts()[80002] = %q, ok=%v, want the configured override", amoy, ok)
	}
}
