package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// telemetryInput is the stdin document for distill: per-unit sample windows.
type telemetryInput struct {
	Units map[string]unitInput `json:"units"`
}

type unitInput struct {
	BufferSize int          `json:"buffer_size"`
	Samples    [][4]float64 `json:"samples"`
	Tags       []string     `json:"tags"`
	Events     []string     `json:"events"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "distill",
		Short: "Distill a telemetry window into a memory capsule",
		Long:  "Read unit telemetry from stdin, consolidate it into a capsule, register the capsule on the ledger, and ingest it into the memory store. Samples are [activation, error, eligibility, threshold] rows.",
		Run:   runDistill,
	}

	cmd.Flags().Bool("force", false, "Consolidate even if no trigger fired")
	cmd.Flags().StringP("uploader", "u", "", "Account credited for the capsule (default: origin)")

	RootCmd.AddCommand(cmd)
}

func runDistill(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	uploader, _ := cmd.Flags().GetString("uploader")
	org, _ := cmd.Flags().GetString("origin")
	if uploader == "" {
		uploader = org
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		exitErr("read stdin", err)
	}
	var input telemetryInput
	if err := json.Unmarshal(raw, &input); err != nil {
		exitErr("parse telemetry", err)
	}

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	now := time.Now().UTC()
	for id, u := range input.Units {
		size := u.BufferSize
		if size <= 0 {
			size = len(u.Samples)
		}
		buf := st.Consolidator.AddUnit(id, size)
		for _, s := range u.Samples {
			buf.Observe(s[0], s[1], s[2], s[3])
		}
		for _, tag := range u.Tags {
			buf.AddTag(tag)
		}
		for _, kind := range u.Events {
			buf.AddEvent(now, kind)
		}
	}

	capsule := st.Consolidator.MaybeConsolidate(now)
	if capsule == nil && force {
		capsule = st.Consolidator.Consolidate(now)
	}
	if capsule == nil {
		saveState(cmd.Context(), a, st)
		fmt.Println(`{"consolidated":false}`)
		return
	}

	receipt, err := st.Ledger.RegisterCapsule(capsule.Encode(), uploader, now)
	if err != nil {
		exitErr("register capsule", err)
	}
	st.Store.IngestCapsule(capsule, receipt.TxID)
	saveState(cmd.Context(), a, st)

	out := map[string]interface{}{
		"consolidated": true,
		"capsule_id":   capsule.ID,
		"tx_id":        receipt.TxID,
		"novelty":      capsule.Novelty,
		"importance":   capsule.Importance,
		"privacy":      capsule.Privacy,
		"quality":      receipt.Quality,
		"incentive":    receipt.Incentive,
	}
	b, _ := json.Marshal(out)
	fmt.Println(string(b))
}
