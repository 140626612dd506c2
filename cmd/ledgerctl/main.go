// Command ledgerctl is an operator client for ledger nodes: it creates
// wallets, signs transfers and inspects a node's chain over its HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

type command struct {
	name    string
	summary string
	run     func(args []string) error
}

var commands = []command{
	{"wallet", "generate a new wallet", runWallet},
	{"sign", "sign a transfer and print it with a curl line", runSign},
	{"submit", "sign a transfer and submit it to a node", runSubmit},
	{"chain", "render a node's chain", runChain},
	{"balance", "query an address balance on a node", runBalance},
	{"mine", "ask a node to mine a block", runMine},
	{"status", "show a node's pool, neighbors and consensus state", runStatus},
	{"bot", "submit random transfers between fresh wallets and mine them", runBot},
}

func usage() {
	pterm.DefaultSection.Println("ledgerctl")
	data := pterm.TableData{{"Command", "Description"}}
	for _, c := range commands {
		data = append(data, []string{c.name, c.summary})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	pterm.Println("Run 'ledgerctl <command> -h' for command flags.")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	name := os.Args[1]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(os.Args[2:]); err != nil {
			pterm.Error.Println(err)
			os.Exit(1)
		}
		return
	}

	if name != "-h" && name != "--help" && name != "help" {
		pterm.Error.Println(fmt.Sprintf("unknown command %q", name))
	}
	usage()
	os.Exit(2)
}
