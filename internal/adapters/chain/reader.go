package chain

// reader.go: lecturas on-chain del contrato genesis de cada mercado.
//
// Solo se hacen eth_call de lectura: genesisIsEnded(), balanceOf(address) y
// claimable(address). balanceOf viene en los decimales del colateral; los
// importes reclamables son tokens del protocolo con 18 decimales.

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/baofinance/harbor-marks/internal/domain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const tokenDecimals = 18

var genesisABI abi.ABI

func init() {
	var err error
	genesisABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "genesisIsEnded",
			"type": "function",
			"stateMutability": "view",
			"inputs": [],
			"outputs": [{"name": "", "type": "bool"}]
		},
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "claimable",
			"type": "function",
			"stateMutability": "view",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [
				{"name": "peggedAmount", "type": "uint256"},
				{"name": "leveragedAmount", "type": "uint256"}
			]
		}
	]`))
	if err != nil {
		panic("chain: invalid genesis ABI: " + err.Error())
	}
}

// Reader implementa ports.ChainReader sobre cualquier ethereum.ContractCaller.
type Reader struct {
	caller ethereum.ContractCaller
}

// NewReader crea un Reader. En producción caller es un *ethclient.Client.
func NewReader(caller ethereum.ContractCaller) *Reader {
	return &Reader{caller: caller}
}

// Dial conecta al RPC y devuelve un Reader y el cliente para cerrarlo al salir.
func Dial(ctx context.Context, rpcURL string) (*Reader, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("chain.Dial: %w", err)
	}
	return NewReader(client), client, nil
}

// CampaignEnded devuelve el flag genesisIsEnded() del contrato.
func (r *Reader) CampaignEnded(ctx context.Context, marketID string) (bool, error) {
	out, err := r.call(ctx, marketID, "genesisIsEnded")
	if err != nil {
		return false, fmt.Errorf("chain.CampaignEnded: %w", err)
	}
	ended, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("chain.CampaignEnded: unexpected output type %T", out[0])
	}
	return ended, nil
}

// Deposit devuelve el depósito del usuario en unidades de colateral.
func (r *Reader) Deposit(ctx context.Context, marketID, depositor string, decimals int32) (decimal.Decimal, error) {
	account, err := parseAddress(depositor)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain.Deposit: %w", err)
	}
	out, err := r.call(ctx, marketID, "balanceOf", account)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain.Deposit: %w", err)
	}
	if decimals <= 0 {
		decimals = tokenDecimals
	}
	amount, err := toDecimal(out[0], decimals)
	if err != nil {
		return decimal.Zero, fmt.Errorf("chain.Deposit: %w", err)
	}
	return amount, nil
}

// Claimable devuelve los importes pegged/leveraged reclamables tras el cierre.
func (r *Reader) Claimable(ctx context.Context, marketID, depositor string) (domain.Claimable, error) {
	account, err := parseAddress(depositor)
	if err != nil {
		return domain.Claimable{}, fmt.Errorf("chain.Claimable: %w", err)
	}
	out, err := r.call(ctx, marketID, "claimable", account)
	if err != nil {
		return domain.Claimable{}, fmt.Errorf("chain.Claimable: %w", err)
	}
	if len(out) != 2 {
		return domain.Claimable{}, fmt.Errorf("chain.Claimable: expected 2 outputs, got %d", len(out))
	}
	pegged, err := toDecimal(out[0], tokenDecimals)
	if err != nil {
		return domain.Claimable{}, fmt.Errorf("chain.Claimable: pegged: %w", err)
	}
	leveraged, err := toDecimal(out[1], tokenDecimals)
	if err != nil {
		return domain.Claimable{}, fmt.Errorf("chain.Claimable: leveraged: %w", err)
	}
	return domain.Claimable{Pegged: pegged, Leveraged: leveraged}, nil
}

// call empaqueta, ejecuta el eth_call en el último bloque y desempaqueta.
func (r *Reader) call(ctx context.Context, marketID, method string, args ...any) ([]any, error) {
	contract, err := parseAddress(marketID)
	if err != nil {
		return nil, err
	}
	data, err := genesisABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, marketID, err)
	}
	out, err := genesisABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty output", method)
	}
	return out, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func toDecimal(v any, decimals int32) (decimal.Decimal, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected output type %T", v)
	}
	return decimal.NewFromBigInt(n, -decimals), nil
}
