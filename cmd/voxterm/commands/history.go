package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/voxterm/voxterm/pkg/cli"
	"github.com/voxterm/voxterm/pkg/history"
	"github.com/voxterm/voxterm/pkg/storage"
	"github.com/voxterm/voxterm/pkg/usage"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Conversation history",
}

var (
	listCount  int
	listFormat string
)

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		turns := app.History.Turns()
		if listCount > 0 && len(turns) > listCount {
			turns = turns[len(turns)-listCount:]
		}

		if listFormat != "" {
			return cli.Output(turns, cli.OutputOptions{Format: cli.OutputFormat(listFormat)})
		}

		if len(turns) == 0 {
			fmt.Println("No history yet.")
			return nil
		}
		for _, t := range turns {
			speaker := "assistant"
			if t.Role == history.RoleUser {
				speaker = "you"
			}
			marker := ""
			if t.Interrupted {
				marker = " [interrupted]"
			}
			fmt.Printf("%s  %-9s %s%s\n", t.CreatedAt.Local().Format("2006-01-02 15:04:05"), speaker, t.Text, marker)
		}
		return nil
	},
}

var historyUsageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show aggregate token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		b := app.History.UsageTotals()
		fmt.Printf("tokens:        in %d · out %d · total %d\n", b.InputTokens, b.OutputTokens, b.TotalTokens)
		fmt.Printf("audio tokens:  in %d (cached %d) · out %d\n", b.InputAudioTokens, b.InputAudioCachedTokens, b.OutputAudioTokens)
		fmt.Printf("text tokens:   in %d (cached %d) · out %d\n", b.InputTextTokens, b.InputTextCachedTokens, b.OutputTextTokens)

		provider := app.Settings.SelectedProvider(ctx)
		model := app.Settings.Model(ctx, provider)
		if cost, ok := usage.DefaultCatalog().Estimate(b, provider, model); ok {
			fmt.Printf("estimated:     %s (at %s/%s rates)\n", usage.FormatUSD(cost.Total), provider, model)
		}
		return nil
	},
}

var (
	exportOut      string
	exportS3Bucket string
	exportS3Prefix string
)

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export history as CSV",
	Long: `Export the conversation history as a CSV file.

By default the file lands in ~/.voxterm/exports. Use --out for a custom
local path, or --s3 to upload to an S3 bucket (credentials come from the
standard AWS environment). The bootstrap config can set a default S3
destination.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		turns := app.History.Turns()
		if len(turns) == 0 {
			return fmt.Errorf("no history to export")
		}

		bucket := exportS3Bucket
		prefix := exportS3Prefix
		if bucket == "" && exportOut == "" {
			bucket = app.Config.Export.S3Bucket
			prefix = app.Config.Export.S3Prefix
		}

		name := history.ExportFilename(time.Now())
		var store storage.FileStore
		var dest string
		switch {
		case bucket != "":
			awsCfg, err := config.LoadDefaultConfig(ctx)
			if err != nil {
				return fmt.Errorf("load AWS config: %w", err)
			}
			store = storage.NewS3(s3.NewFromConfig(awsCfg), bucket, prefix)
			dest = "s3://" + bucket + "/" + strings.TrimSuffix(prefix, "/")
		case exportOut != "":
			dir := filepath.Dir(exportOut)
			name = filepath.Base(exportOut)
			store, err = storage.NewLocal(dir)
			if err != nil {
				return err
			}
			dest = dir
		default:
			store, err = storage.NewLocal(app.Config.ExportDir(app.Paths))
			if err != nil {
				return err
			}
			dest = app.Config.ExportDir(app.Paths)
		}

		if err := exportCSV(ctx, store, name, turns); err != nil {
			return err
		}
		cli.PrintSuccess("exported %d turns to %s", len(turns), filepath.Join(dest, name))
		return nil
	},
}

func exportCSV(ctx context.Context, store storage.FileStore, name string, turns []history.Turn) error {
	if exists, err := store.Exists(ctx, name); err != nil {
		return fmt.Errorf("check destination: %w", err)
	} else if exists {
		return fmt.Errorf("%s already exists", name)
	}

	w, err := store.Write(ctx, name)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	if err := history.WriteCSV(w, turns); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

var clearYes bool

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		n := len(app.History.Turns())
		if n == 0 {
			fmt.Println("No history to clear.")
			return nil
		}
		if !clearYes {
			return fmt.Errorf("refusing to delete %d turns without --yes", n)
		}
		if err := app.History.Clear(ctx); err != nil {
			return err
		}
		cli.PrintSuccess("cleared %d turns", n)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVarP(&listCount, "count", "n", 0, "show only the last N turns")
	historyListCmd.Flags().StringVar(&listFormat, "format", "", "output format (json, yaml)")

	historyExportCmd.Flags().StringVar(&exportOut, "out", "", "local output path")
	historyExportCmd.Flags().StringVar(&exportS3Bucket, "s3", "", "S3 bucket to upload to")
	historyExportCmd.Flags().StringVar(&exportS3Prefix, "prefix", "", "S3 object key prefix")

	historyClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deletion")

	historyCmd.AddCommand(historyListCmd, historyUsageCmd, historyExportCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}
