package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "balance <account>",
		Short: "Show an account's credit balance",
		Args:  cobra.ExactArgs(1),
		Run:   runBalance,
	}

	RootCmd.AddCommand(cmd)
}

func runBalance(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	out := map[string]interface{}{
		"account": args[0],
		"balance": st.Ledger.Balance(args[0]),
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
