package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "register <account>",
		Short: "Register a device account with starting credits",
		Args:  cobra.ExactArgs(1),
		Run:   runRegister,
	}

	cmd.Flags().Float64P("credits", "c", 10, "Initial credit balance")

	RootCmd.AddCommand(cmd)
}

func runRegister(cmd *cobra.Command, args []string) {
	credits, _ := cmd.Flags().GetFloat64("credits")

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	st.Ledger.RegisterDevice(args[0], credits, time.Now().UTC())
	saveState(cmd.Context(), a, st)

	out := map[string]interface{}{
		"account": args[0],
		"balance": st.Ledger.Balance(args[0]),
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
