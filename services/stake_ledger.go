package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

// Ledger errors. The gate surfaces these to the caller; none are retried
// automatically.
var (
	ErrNoWallet          = errors.New("no wallet connection")
	ErrUserRejected      = errors.New("transaction rejected by wallet")
	ErrInsufficientFunds = errors.New("insufficient funds for stake")
	ErrChainMismatch     = errors.New("wallet connected to wrong chain")
)

// StakeLedger abstracts the on-chain staking contract so the staking gate is
// chain-agnostic. Addresses are 0x-prefixed hex strings; amounts are in the
// ledger's native asset unit.
type StakeLedger interface {
	// Connect obtains a wallet connection and verifies the expected chain.
	// It is the prerequisite sub-step before any stake submission.
	Connect(ctx context.Context) (address string, err error)

	// Stake submits a stake transaction and blocks until network finality.
	// Returns the transaction hash once the receipt confirms success.
	Stake(ctx context.Context, from string, amount float64) (txHash string, err error)

	// TotalStaked returns the contract's total staked pool.
	TotalStaked(ctx context.Context) (float64, error)

	// StakeOf returns one address's staked amount on the contract.
	StakeOf(ctx context.Context, address string) (float64, error)

	// BalanceOf returns an address's native balance.
	BalanceOf(ctx context.Context, address string) (float64, error)
}

// 4-byte selectors of the staking contract surface.
const (
	selectorStake       = "0x3a4b66f1" // stake()
	selectorTotalStaked = "0x817b1cd2" // totalStaked()
	selectorBalanceOf   = "0x70a08231" // balanceOf(address), per-address stake
)

// RPCStakeLedger talks JSON-RPC to an EVM node fronting the staking contract.
type RPCStakeLedger struct {
	RPCURL       string
	ContractAddr string
	ChainID      int64
	HTTPClient   *http.Client

	receiptPollEvery time.Duration
}

func NewRPCStakeLedger(rpcURL, contractAddr string, chainID int64) *RPCStakeLedger {
	return &RPCStakeLedger{
		RPCURL:       rpcURL,
		ContractAddr: contractAddr,
		ChainID:      chainID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		receiptPollEvery: 2 * time.Second,
	}
}

type rpcRequest struct {
	ID      int           `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (l *RPCStakeLedger) call(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if params == nil {
		params = []interface{}{}
	}
	payload, err := json.Marshal(rpcRequest{ID: 1, JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.RPCURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode RPC response: %v", ErrUpstream, err)
	}
	if out.Error != nil {
		return nil, classifyRPCError(out.Error)
	}
	return out.Result, nil
}

// classifyRPCError maps wallet/node error codes onto the ledger taxonomy.
// 4001 is the EIP-1193 user-rejection code.
func classifyRPCError(e *rpcError) error {
	switch {
	case e.Code == 4001:
		return fmt.Errorf("%w: %s", ErrUserRejected, e.Message)
	case strings.Contains(strings.ToLower(e.Message), "insufficient funds"):
		return fmt.Errorf("%w: %s", ErrInsufficientFunds, e.Message)
	default:
		return fmt.Errorf("%w: RPC error %d: %s", ErrUpstream, e.Code, e.Message)
	}
}

// Connect requests wallet accounts and verifies the chain id before any
// transaction is allowed through.
func (l *RPCStakeLedger) Connect(ctx context.Context) (string, error) {
	raw, err := l.call(ctx, "eth_requestAccounts")
	if err != nil {
		return "", err
	}
	var accounts []string
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return "", fmt.Errorf("%w: decode accounts: %v", ErrUpstream, err)
	}
	if len(accounts) == 0 {
		return "", ErrNoWallet
	}

	raw, err = l.call(ctx, "eth_chainId")
	if err != nil {
		return "", err
	}
	var chainHex string
	if err := json.Unmarshal(raw, &chainHex); err != nil {
		return "", fmt.Errorf("%w: decode chain id: %v", ErrUpstream, err)
	}
	chainID, ok := new(big.Int).SetString(strings.TrimPrefix(chainHex, "0x"), 16)
	if !ok || chainID.Int64() != l.ChainID {
		return "", fmt.Errorf("%w: connected to chain %s, expected %d", ErrChainMismatch, chainHex, l.ChainID)
	}

	return accounts[0], nil
}

// Stake submits the stake() call with the amount as transaction value and
// waits for the receipt. A reverted receipt is a failure, never a success
// with a caveat.
func (l *RPCStakeLedger) Stake(ctx context.Context, from string, amount float64) (string, error) {
	if from == "" {
		return "", ErrNoWallet
	}

	tx := map[string]string{
		"from":  from,
		"to":    l.ContractAddr,
		"value": toWeiHex(amount),
		"data":  selectorStake,
	}
	raw, err := l.call(ctx, "eth_sendTransaction", tx)
	if err != nil {
		return "", err
	}
	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", fmt.Errorf("%w: decode tx hash: %v", ErrUpstream, err)
	}

	if err := l.awaitReceipt(ctx, txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// awaitReceipt polls until the transaction is mined, then checks its status.
func (l *RPCStakeLedger) awaitReceipt(ctx context.Context, txHash string) error {
	ticker := time.NewTicker(l.receiptPollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for receipt of %s: %v", ErrUpstream, txHash, ctx.Err())
		case <-ticker.C:
			raw, err := l.call(ctx, "eth_getTransactionReceipt", txHash)
			if err != nil {
				return err
			}
			var receipt struct {
				Status string `json:"status"`
			}
			if string(raw) == "null" || len(raw) == 0 {
				continue // not mined yet
			}
			if err := json.Unmarshal(raw, &receipt); err != nil {
				return fmt.Errorf("%w: decode receipt: %v", ErrUpstream, err)
			}
			if receipt.Status != "0x1" {
				return fmt.Errorf("%w: transaction %s reverted", ErrUpstream, txHash)
			}
			return nil
		}
	}
}

// TotalStaked reads the contract's aggregate pool via eth_call.
func (l *RPCStakeLedger) TotalStaked(ctx context.Context) (float64, error) {
	callObj := map[string]string{
		"to":   l.ContractAddr,
		"data": selectorTotalStaked,
	}
	raw, err := l.call(ctx, "eth_call", callObj, "latest")
	if err != nil {
		return 0, err
	}
	return decodeWeiHex(raw)
}

// StakeOf reads one address's staked amount on the contract.
func (l *RPCStakeLedger) StakeOf(ctx context.Context, address string) (float64, error) {
	padded, err := leftPadAddress(address)
	if err != nil {
		return 0, err
	}
	callObj := map[string]string{
		"to":   l.ContractAddr,
		"data": selectorBalanceOf + padded,
	}
	raw, err := l.call(ctx, "eth_call", callObj, "latest")
	if err != nil {
		return 0, err
	}
	return decodeWeiHex(raw)
}

// leftPadAddress ABI-encodes an address argument to 32 bytes. Stored wallet
// columns are only checked for non-emptiness at onboarding, so a malformed
// address must come back as an error here, not blow up the sync loop.
func leftPadAddress(address string) (string, error) {
	hex := strings.ToLower(strings.TrimPrefix(address, "0x"))
	if len(hex) == 0 || len(hex) > 64 {
		return "", fmt.Errorf("%w: wallet address %q is not a hex address", ErrValidation, address)
	}
	for _, c := range hex {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", fmt.Errorf("%w: wallet address %q is not a hex address", ErrValidation, address)
		}
	}
	return strings.Repeat("0", 64-len(hex)) + hex, nil
}

// BalanceOf reads an address's native balance.
func (l *RPCStakeLedger) BalanceOf(ctx context.Context, address string) (float64, error) {
	raw, err := l.call(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return 0, err
	}
	return decodeWeiHex(raw)
}

var weiPerUnit = new(big.Float).SetFloat64(1e18)

// toWeiHex converts a native-asset amount into a 0x-prefixed wei quantity.
func toWeiHex(amount float64) string {
	wei, _ := new(big.Float).Mul(new(big.Float).SetFloat64(amount), weiPerUnit).Int(nil)
	return "0x" + wei.Text(16)
}

// decodeWeiHex parses a hex wei quantity back into native units.
func decodeWeiHex(raw json.RawMessage) (float64, error) {
	var hexVal string
	if err := json.Unmarshal(raw, &hexVal); err != nil {
		return 0, fmt.Errorf("%w: decode quantity: %v", ErrUpstream, err)
	}
	wei, ok := new(big.Int).SetString(strings.TrimPrefix(hexVal, "0x"), 16)
	if !ok {
		return 0, fmt.Errorf("%w: malformed quantity %q", ErrUpstream, hexVal)
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerUnit).Float64()
	return out, nil
}
