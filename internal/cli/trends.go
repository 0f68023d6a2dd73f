package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Show memory usage trends",
		Long:  "Report the most accessed capsules, per-tag cluster sizes, daily ingestion counts, and the quality distribution.",
		Run:   runTrends,
	}

	RootCmd.AddCommand(cmd)
}

func runTrends(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	b, _ := json.MarshalIndent(st.Store.Trends(), "", "  ")
	fmt.Println(string(b))
}
