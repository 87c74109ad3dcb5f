package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ardanlabs/poolchain/foundation/blockchain/database"
	"github.com/ardanlabs/poolchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction to the node",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		if err := send(privateKey); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Public key of the receiver.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "0", "Amount to send.")
}

func send(privateKey *ecdsa.PrivateKey) error {
	value, err := database.ParseAmount(amount)
	if err != nil {
		return err
	}

	if _, err := signature.DecodePublicKey(to); err != nil {
		return err
	}

	sig, err := signature.Sign([]byte(to+value.String()), privateKey)
	if err != nil {
		return err
	}

	out := database.Output{
		Signature:   sig,
		Amount:      value,
		ReceiverKey: to,
	}
	tx := database.NewTransaction(signature.PublicKeyToString(privateKey.PublicKey), []database.Output{}, []database.Output{out})

	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	resp, err := http.Post(fmt.Sprintf("%s/blockchain/send", url), "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}

	fmt.Println(string(body))
	return nil
}
