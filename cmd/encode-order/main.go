// encode-order prints the createOrder calldata and a signed raw
// transaction for a desk order, for checking against the contract by hand.
package main

import (
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/uhyunpark/otcdesk/params"
	"github.com/uhyunpark/otcdesk/pkg/chain"
	"github.com/uhyunpark/otcdesk/pkg/crypto"
	"github.com/uhyunpark/otcdesk/pkg/order"
)

func main() {
	cfg := params.LoadFromEnv("")

	side := flag.String("side", "buy", "buy or sell")
	amount := flag.String("amount", "0.5", "order amount")
	price := flag.String("price", "42000", "limit price")
	nonce := flag.Uint64("nonce", 0, "account nonce for the signed transaction")
	flag.Parse()

	s, err := order.ParseSide(*side)
	if err != nil {
		fail(err)
	}
	wire := order.WireFormat{AmountDecimals: cfg.Desk.AmountDecimals, PriceDecimals: cfg.Desk.PriceDecimals}
	req, err := order.BuildRequest(cfg.Desk.Symbol, order.DraftValues{Side: s, Amount: *amount, Price: *price}, wire)
	if err != nil {
		fail(err)
	}
	w, err := wire.Encode(req)
	if err != nil {
		fail(err)
	}

	parsed, err := chain.ParseABI()
	if err != nil {
		fail(err)
	}
	data, err := parsed.Pack("createOrder", w.Symbol, w.Amount, w.Price, w.Side)
	if err != nil {
		fail(err)
	}

	fmt.Println("Order:")
	fmt.Printf("  %s\n", req)
	fmt.Printf("  wire: symbol=%s amount=%d price=%d orderType=%d\n", w.Symbol, w.Amount, w.Price, w.Side)
	fmt.Printf("  decoded: %s\n\n", wire.Decode(w))
	fmt.Printf("Calldata: %s\n\n", hexutil.Encode(data))

	var signer *crypto.Signer
	if cfg.Wallet.PrivateKeyHex != "" {
		signer, err = crypto.FromPrivateKeyHex(cfg.Wallet.PrivateKeyHex)
	} else {
		fmt.Println("No WALLET_PRIVATE_KEY set, generating a throwaway key...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fail(err)
	}

	chainID := big.NewInt(cfg.Chain.ChainID)
	to := common.HexToAddress(cfg.Chain.ContractAddress)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    *nonce,
		To:       &to,
		Gas:      300_000,
		GasPrice: big.NewInt(1_000_000_000),
		Data:     data,
	})
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		fail(err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		fail(err)
	}

	from, err := crypto.Sender(signed, chainID)
	if err != nil {
		fail(err)
	}
	fmt.Printf("From:     %s\n", from.Hex())
	fmt.Printf("To:       %s (chain %s)\n", to.Hex(), chainID)
	fmt.Printf("Tx hash:  %s\n", signed.Hash().Hex())
	fmt.Printf("Raw tx:   %s\n\n", hexutil.Encode(raw))
	fmt.Println("Broadcast with eth_sendRawTransaction, or submit through the desk:")
	fmt.Println("  POST http://localhost:8080/api/v1/orders")
	fmt.Printf("  Body: {\"side\":%q,\"amount\":%q,\"price\":%q}\n", s, *amount, *price)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
