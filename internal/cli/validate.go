package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Verify the ledger's hash chain",
		Run:   runValidate,
	}

	RootCmd.AddCommand(cmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	out := map[string]interface{}{
		"valid":  st.Ledger.ValidateChain(),
		"blocks": len(st.Ledger.Blocks()),
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
