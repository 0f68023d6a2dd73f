package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mine",
		Short: "Seal pending transactions into a new block",
		Run:   runMine,
	}

	RootCmd.AddCommand(cmd)
}

func runMine(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	hash := st.Ledger.MineBlock(time.Now().UTC())
	saveState(cmd.Context(), a, st)

	out := map[string]interface{}{
		"mined":      hash != "",
		"block_hash": hash,
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
