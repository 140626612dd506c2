package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"ledgernet/blockchain"
	"ledgernet/p2p"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mustIndent(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	return buf.Bytes()
}

func short(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}

func renderWallet(d blockchain.WalletDetails) error {
	pterm.DefaultSection.Println("New wallet")
	return pterm.DefaultTable.WithData(pterm.TableData{
		{"address", d.BlockchainAddress},
		{"public key", d.PublicKey},
		{"private key", pterm.LightRed(d.PrivateKey)},
	}).Render()
}

func renderChain(node string, blocks []*blockchain.Block) error {
	pterm.DefaultSection.Printfln("Chain of %s: %d blocks", node, len(blocks))

	for i, b := range blocks {
		header := fmt.Sprintf("nonce %d\nprevious %s\ntime %s",
			b.Nonce, b.PreviousHash, time.Unix(0, int64(b.Timestamp)).UTC().Format(time.RFC3339Nano))
		pterm.DefaultBox.
			WithTitle(pterm.LightCyan(fmt.Sprintf("|%d| %s", i, b.Hash()))).
			Println(header)

		if len(b.Transactions) == 0 {
			continue
		}
		data := pterm.TableData{{"#", "Sender", "Receiver", "Value"}}
		for j, encoded := range b.Transactions {
			raw, err := blockchain.DecodeTransaction(encoded)
			if err != nil {
				data = append(data, []string{strconv.Itoa(j), pterm.LightRed("corrupt"), err.Error(), ""})
				continue
			}
			value := strconv.FormatFloat(raw.Value, 'f', -1, 64)
			data = append(data, []string{
				strconv.Itoa(j),
				string(raw.SenderAddress),
				string(raw.RecipientAddress),
				value,
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}
	return nil
}

func renderSummary(s blockchain.BlockSummary) error {
	return pterm.DefaultTable.WithData(pterm.TableData{
		{"index", strconv.Itoa(s.Index)},
		{"hash", s.Hash.String()},
		{"nonce", strconv.FormatUint(uint64(s.Nonce), 10)},
		{"transactions", strconv.Itoa(s.Transactions)},
		{"elapsed", s.Elapsed.String()},
	}).Render()
}

func renderStatus(node string, height int, pending []blockchain.Transaction, status p2p.ConsensusStatusResponse, peers []string) error {
	pterm.DefaultSection.Printfln("Node %s", node)

	if err := pterm.DefaultTable.WithData(pterm.TableData{
		{"height", strconv.Itoa(height)},
		{"pending", strconv.Itoa(len(pending))},
		{"phase", status.Phase},
		{"resolutions", strconv.FormatUint(status.Resolutions, 10)},
		{"replacements", strconv.FormatUint(status.Replacements, 10)},
		{"rejected chains", strconv.FormatUint(status.RejectedChains, 10)},
		{"peer failures", strconv.FormatUint(status.PeerFailures, 10)},
		{"propagation failures", strconv.FormatUint(status.PropagationFailures, 10)},
	}).Render(); err != nil {
		return err
	}

	if len(peers) == 0 {
		pterm.Warning.Println("no live neighbors")
		return nil
	}
	pterm.Info.Printfln("neighbors: %v", peers)
	return nil
}
