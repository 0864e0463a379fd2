package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"videoSearch/core"
)

var (
	queryIndex string
	queryType  string
	queryText  string

	jobID  string
	shotID string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single search and print the JSON result",
	Long: `Run a single search against an index.

Examples:
  videoSearch query --index shots --type text --query '"Alice" likes cats'
  videoSearch query --index shots --type clip --query clips/sample.mp4`,
	RunE: runQuery,
}

var segmentCmd = &cobra.Command{
	Use:   "segment",
	Short: "Split {job}.srt into sentence segments and store {job}.json",
	RunE:  runSegment,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed and index one shot from the shot bucket",
	RunE:  runIndex,
}

func init() {
	queryCmd.Flags().StringVar(&queryIndex, "index", "", "index (collection) name")
	queryCmd.Flags().StringVar(&queryType, "type", "text", "query type: text, image or clip")
	queryCmd.Flags().StringVar(&queryText, "query", "", "query text, base64 image or clip object key")
	_ = queryCmd.MarkFlagRequired("index")
	_ = queryCmd.MarkFlagRequired("query")

	segmentCmd.Flags().StringVar(&jobID, "job", "", "job id")
	_ = segmentCmd.MarkFlagRequired("job")

	indexCmd.Flags().StringVar(&queryIndex, "index", "", "index (collection) name")
	indexCmd.Flags().StringVar(&jobID, "job", "", "job id")
	indexCmd.Flags().StringVar(&shotID, "shot", "", "shot id")
	_ = indexCmd.MarkFlagRequired("index")
	_ = indexCmd.MarkFlagRequired("job")
	_ = indexCmd.MarkFlagRequired("shot")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(segmentCmd)
	rootCmd.AddCommand(indexCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	res, _, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	out, err := res.Engine.Search(ctx, core.QueryRequest{
		Index: queryIndex,
		Type:  core.QueryType(queryType),
		Query: queryText,
	})
	if err != nil {
		return err
	}
	return writeJSON(out)
}

func runSegment(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	res, _, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	segments, err := res.Indexer.SegmentTranscript(ctx, jobID)
	if err != nil {
		return err
	}
	return writeJSON(segments)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	res, _, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	shot, err := res.Indexer.IndexShot(ctx, queryIndex, jobID, shotID)
	if err != nil {
		return err
	}
	shot.DescVector, shot.ImageVector, shot.TranscriptVector = nil, nil, nil
	return writeJSON(shot)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
