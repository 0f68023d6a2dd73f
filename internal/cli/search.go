package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/meshmind/engram/internal/vectorstore"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the memory store",
		Long:  "Score stored capsules against a probe vector and context filters. Results are ranked by relevance.",
		Run:   runSearch,
	}

	cmd.Flags().String("vector", "", "Comma-separated probe vector (required)")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated context filter tags")
	cmd.Flags().StringP("algorithm", "a", "cosine", "Similarity: cosine, euclidean, dot, hybrid")
	cmd.Flags().IntP("limit", "l", 0, "Maximum results (default 10)")
	cmd.Flags().Float64("min-quality", 0, "Minimum quality score")
	cmd.Flags().String("since", "", "Only capsules at or after this RFC3339 time")
	cmd.Flags().String("until", "", "Only capsules at or before this RFC3339 time")
	cmd.MarkFlagRequired("vector")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	vectorStr, _ := cmd.Flags().GetString("vector")
	tagsStr, _ := cmd.Flags().GetString("tags")
	algo, _ := cmd.Flags().GetString("algorithm")
	limit, _ := cmd.Flags().GetInt("limit")
	minQuality, _ := cmd.Flags().GetFloat64("min-quality")
	since, _ := cmd.Flags().GetString("since")
	until, _ := cmd.Flags().GetString("until")

	vector, err := parseVector(vectorStr)
	if err != nil {
		exitErr("parse vector", err)
	}
	if !vectorstore.ValidAlgorithms[vectorstore.Algorithm(algo)] {
		exitErr("search", fmt.Errorf("unknown algorithm %q", algo))
	}

	q := vectorstore.Query{
		Vector:       vector,
		Tags:         splitTags(tagsStr),
		QualityFloor: minQuality,
		Limit:        limit,
		Algorithm:    vectorstore.Algorithm(algo),
	}
	if since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			exitErr("parse since", err)
		}
		q.From = &t
	}
	if until != "" {
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			exitErr("parse until", err)
		}
		q.To = &t
	}

	a, st, err := openState(cmd.Context(), cmd)
	if err != nil {
		exitErr("open state", err)
	}
	defer a.Close()

	results := st.Store.Search(q, time.Now().UTC())

	// Search updates access patterns on the returned entries.
	saveState(cmd.Context(), a, st)

	b, _ := json.Marshal(results)
	fmt.Println(string(b))
}

func parseVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vector := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad component %q", p)
		}
		vector = append(vector, v)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty vector")
	}
	return vector, nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
