package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "provenance <capsule-id>",
		Short: "Show a capsule's registration record",
		Args:  cobra.ExactArgs(1),
		Run:   runProvenance,
	}

	RootCmd.AddCommand(cmd)
}

func runProvenance(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	rec, ok := st.Ledger.Provenance(args[0])
	if !ok {
		exitErr("provenance", fmt.Errorf("capsule not found: %s", args[0]))
	}

	b, _ := json.Marshal(rec)
	fmt.Println(string(b))
}
