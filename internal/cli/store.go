package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Register and store a capsule from stdin",
		Long:  "Read a capsule document from stdin, register it on the ledger, and ingest it into the memory store.",
		Run:   runStore,
	}

	cmd.Flags().StringP("uploader", "u", "", "Account credited for the capsule (required)")
	cmd.MarkFlagRequired("uploader")

	RootCmd.AddCommand(cmd)
}

func runStore(cmd *cobra.Command, args []string) {
	uploader, _ := cmd.Flags().GetString("uploader")

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	now := time.Now().UTC()
	receipt, err := st.Ledger.RegisterCapsule(raw, uploader, now)
	if err != nil {
		exitErr("register capsule", err)
	}
	if err := st.Store.Ingest(raw, receipt.TxID); err != nil {
		exitErr("ingest capsule", err)
	}
	saveState(cmd.Context(), a, st)

	b, _ := json.Marshal(receipt)
	fmt.Println(string(b))
}
