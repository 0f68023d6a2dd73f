package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	leaseCmd := &cobra.Command{
		Use:   "lease",
		Short: "Manage resource leases",
	}

	requestCmd := &cobra.Command{
		Use:   "request",
		Short: "Request a resource lease",
		Run:   runLeaseRequest,
	}
	requestCmd.Flags().StringP("borrower", "b", "", "Borrowing account (required)")
	requestCmd.Flags().String("owner", "", "Resource owner account (required)")
	requestCmd.Flags().StringP("resource", "r", "", "Resource identifier (required)")
	requestCmd.Flags().Float64("duration", 1, "Lease duration in units")
	requestCmd.MarkFlagRequired("borrower")
	requestCmd.MarkFlagRequired("owner")
	requestCmd.MarkFlagRequired("resource")

	completeCmd := &cobra.Command{
		Use:   "complete <lease-id>",
		Short: "Complete a lease with performance metrics",
		Args:  cobra.ExactArgs(1),
		Run:   runLeaseComplete,
	}
	completeCmd.Flags().StringP("metrics", "m", "", "Comma-separated name=value performance metrics")

	leaseCmd.AddCommand(requestCmd, completeCmd)
	RootCmd.AddCommand(leaseCmd)
}

func runLeaseRequest(cmd *cobra.Command, args []string) {
	borrower, _ := cmd.Flags().GetString("borrower")
	owner, _ := cmd.Flags().GetString("owner")
	resource, _ := cmd.Flags().GetString("resource")
	duration, _ := cmd.Flags().GetFloat64("duration")

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	leaseID, err := st.Ledger.RequestLease(borrower, owner, resource, duration, time.Now().UTC())
	if err != nil {
		exitErr("lease request", err)
	}
	saveState(cmd.Context(), a, st)

	lease, _ := st.Ledger.LeaseByID(leaseID)
	b, _ := json.Marshal(lease)
	fmt.Println(string(b))
}

func runLeaseComplete(cmd *cobra.Command, args []string) {
	metricsStr, _ := cmd.Flags().GetString("metrics")

	metrics, err := parseMetrics(metricsStr)
	if err != nil {
		exitErr("parse metrics", err)
	}

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	if err := st.Ledger.CompleteLease(args[0], metrics, time.Now().UTC()); err != nil {
		exitErr("lease complete", err)
	}
	saveState(cmd.Context(), a, st)

	lease, _ := st.Ledger.LeaseByID(args[0])
	b, _ := json.Marshal(lease)
	fmt.Println(string(b))
}

func parseMetrics(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	metrics := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad metric %q (use name=value)", pair)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad metric value %q", value)
		}
		metrics[strings.TrimSpace(name)] = v
	}
	return metrics, nil
}
