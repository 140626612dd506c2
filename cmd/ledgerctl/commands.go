package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pterm/pterm"

	"ledgernet/blockchain"
	"ledgernet/p2p"
)

const defaultNode = "127.0.0.1:8000"

func runWallet(args []string) error {
	fs := flag.NewFlagSet("wallet", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print wallet details as JSON")
	fs.Parse(args)

	wallet, err := blockchain.GenerateWallet()
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(wallet.Details())
	}
	return renderWallet(wallet.Details())
}

type transferFlags struct {
	public, private, address, to, amount *string
}

func addTransferFlags(fs *flag.FlagSet) transferFlags {
	return transferFlags{
		public:  fs.String("public", "", "sender public key (hex)"),
		private: fs.String("private", "", "sender private key (hex)"),
		address: fs.String("address", "", "sender address (derived from the public key if empty)"),
		to:      fs.String("to", "", "recipient address"),
		amount:  fs.String("amount", "", "amount, e.g. 10 or 0.5"),
	}
}

func (f transferFlags) sign() (blockchain.Transaction, error) {
	if *f.to == "" || *f.amount == "" {
		return blockchain.Transaction{}, errors.New("--to and --amount are required")
	}
	amount, err := blockchain.ParseAmount(*f.amount)
	if err != nil {
		return blockchain.Transaction{}, err
	}
	wallet, err := blockchain.WalletFromMaterial(*f.public, *f.private, *f.address)
	if err != nil {
		return blockchain.Transaction{}, err
	}
	return wallet.Sign(*f.to, amount)
}

func runSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	flags := addTransferFlags(fs)
	node := fs.String("node", defaultNode, "node the curl line targets")
	fs.Parse(args)

	tx, err := flags.sign()
	if err != nil {
		return err
	}

	body, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	pterm.DefaultBox.WithTitle("signed transfer").Println(string(mustIndent(body)))
	pterm.Println(fmt.Sprintf(
		"curl -X POST http://%s/api/transactions -H \"Content-Type: application/json\" -d '%s'",
		*node, body,
	))
	return nil
}

func runSubmit(args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	flags := addTransferFlags(fs)
	node := fs.String("node", defaultNode, "node to submit to")
	timeout := fs.Duration("timeout", p2p.DefaultTimeout, "request timeout")
	fs.Parse(args)

	tx, err := flags.sign()
	if err != nil {
		return err
	}

	client := p2p.NewClient(*timeout)
	if err := client.SubmitTransaction(context.Background(), *node, tx); err != nil {
		return err
	}
	pterm.Success.Printfln("%s -> %s: %s accepted by %s", tx.Sender, tx.Receiver, tx.Amount, *node)
	return nil
}

func runChain(args []string) error {
	fs := flag.NewFlagSet("chain", flag.ExitOnError)
	node := fs.String("node", defaultNode, "node to query")
	timeout := fs.Duration("timeout", p2p.DefaultTimeout, "request timeout")
	fs.Parse(args)

	client := p2p.NewClient(*timeout)
	blocks, err := client.FetchChain(context.Background(), *node)
	if err != nil {
		return err
	}
	return renderChain(*node, blocks)
}

func runBalance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	node := fs.String("node", defaultNode, "node to query")
	address := fs.String("address", "", "address to query")
	timeout := fs.Duration("timeout", p2p.DefaultTimeout, "request timeout")
	fs.Parse(args)

	if *address == "" {
		return errors.New("--address is required")
	}

	client := p2p.NewClient(*timeout)
	amount, err := client.Balance(context.Background(), *node, *address)
	if err != nil {
		return err
	}
	pterm.Info.Printfln("%s holds %s", *address, amount)
	return nil
}

func runMine(args []string) error {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	node := fs.String("node", defaultNode, "node to mine on")
	timeout := fs.Duration("timeout", 2*time.Minute, "request timeout")
	fs.Parse(args)

	spinner, _ := pterm.DefaultSpinner.Start("mining on " + *node)
	summary, err := p2p.NewClient(*timeout).Mine(context.Background(), *node)
	if err != nil {
		if spinner != nil {
			spinner.Fail(err.Error())
		}
		return err
	}
	if spinner != nil {
		spinner.Success(fmt.Sprintf("block %d mined in %s", summary.Index, summary.Elapsed))
	}
	return renderSummary(summary)
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	node := fs.String("node", defaultNode, "node to query")
	timeout := fs.Duration("timeout", p2p.DefaultTimeout, "request timeout")
	fs.Parse(args)

	ctx := context.Background()
	client := p2p.NewClient(*timeout)

	height, err := client.FetchHeight(ctx, *node)
	if err != nil {
		return err
	}
	pending, err := client.PendingTransactions(ctx, *node)
	if err != nil {
		return err
	}
	status, err := client.ConsensusStatus(ctx, *node)
	if err != nil {
		return err
	}
	peers, err := client.Peers(ctx, *node)
	if err != nil {
		return err
	}
	return renderStatus(*node, height, pending, status, peers)
}

// runBot keeps a node busy with signed transfers between a handful of fresh
// wallets, mining after every batch.
func runBot(args []string) error {
	fs := flag.NewFlagSet("bot", flag.ExitOnError)
	node := fs.String("node", defaultNode, "node to drive")
	wallets := fs.Int("wallets", 3, "number of wallets to transfer between")
	rounds := fs.Int("rounds", 5, "number of batches")
	batch := fs.Int("batch", 3, "transfers per batch")
	interval := fs.Duration("interval", time.Second, "pause between batches")
	fs.Parse(args)

	if *wallets < 2 {
		return errors.New("--wallets must be at least 2")
	}

	accounts := make([]*blockchain.Wallet, *wallets)
	for i := range accounts {
		w, err := blockchain.GenerateWallet()
		if err != nil {
			return err
		}
		accounts[i] = w
	}

	ctx := context.Background()
	client := p2p.NewClient(2 * time.Minute)

	for round := 1; round <= *rounds; round++ {
		for i := 0; i < *batch; i++ {
			from := rand.IntN(len(accounts))
			to := (from + 1 + rand.IntN(len(accounts)-1)) % len(accounts)
			amount := blockchain.NewAmount(int64(1 + rand.IntN(10)))

			tx, err := accounts[from].Sign(accounts[to].Address(), amount)
			if err != nil {
				return err
			}
			if err := client.SubmitTransaction(ctx, *node, tx); err != nil {
				pterm.Warning.Printfln("transfer rejected: %v", err)
				continue
			}
			pterm.Info.Printfln("round %d: %s -> %s %s", round, short(tx.Sender), short(tx.Receiver), amount)
		}

		summary, err := client.Mine(ctx, *node)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("round %d: block %d with %d transactions", round, summary.Index, summary.Transactions)

		if round < *rounds {
			time.Sleep(*interval)
		}
	}

	data := pterm.TableData{{"Wallet", "Balance"}}
	for _, w := range accounts {
		amount, err := client.Balance(ctx, *node, w.Address())
		if err != nil {
			return err
		}
		data = append(data, []string{w.Address(), amount.String()})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
