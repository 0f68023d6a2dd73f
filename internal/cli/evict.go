package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Remove stale, rarely accessed capsules",
		Run:   runEvict,
	}

	RootCmd.AddCommand(cmd)
}

func runEvict(cmd *cobra.Command, args []string) {
	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	removed := st.Store.Evict(time.Now().UTC())
	saveState(cmd.Context(), a, st)

	out := map[string]interface{}{
		"evicted":   removed,
		"remaining": st.Store.Len(),
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
