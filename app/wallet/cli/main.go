// Wallet manages the key files nodes mine with and submits transactions.
package main

import "github.com/ardanlabs/poolchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
