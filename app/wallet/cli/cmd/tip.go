package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var tipCmd = &cobra.Command{
	Use:   "tip",
	Short: "Print the tip of the node's chain",
	Run:   tipRun,
}

func init() {
	rootCmd.AddCommand(tipCmd)
}

func tipRun(cmd *cobra.Command, args []string) {
	resp, err := http.Get(fmt.Sprintf("%s/blockchain/tip", url))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var tip struct {
		Hash   string   `json:"hash"`
		Hops   uint64   `json:"hops"`
		Miners []string `json:"miners"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tip); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("tip %s hops %d miners %v\n", tip.Hash, tip.Hops, tip.Miners)
}
